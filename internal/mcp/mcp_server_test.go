package mcp_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/huangsam/estateprep/core"
	"github.com/huangsam/estateprep/core/prep"
	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/internal/dataload"
	"github.com/huangsam/estateprep/internal/iocache"
	mcp_internal "github.com/huangsam/estateprep/internal/mcp"
	"github.com/huangsam/estateprep/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFeatures = schema.Descriptor{
	Numeric:     []string{"HouseAge"},
	Categorical: []string{"PostCode"},
	Date:        "TransactionDate",
}

// fittedStore returns a mock state store holding a state fitted on a small batch under "default".
func fittedStore(t *testing.T) *iocache.MockStateStore {
	t.Helper()
	records, err := dataload.ParseJSONRecords([]byte(`[
		{"No": 1, "TransactionDate": "2013.10", "HouseAge": 10, "PostCode": "A1"},
		{"No": 2, "TransactionDate": "2014.01", "HouseAge": null, "PostCode": "B2"},
		{"No": 3, "TransactionDate": "2013.12", "HouseAge": 30, "PostCode": "A1"}
	]`))
	require.NoError(t, err)

	p, err := prep.New(testFeatures)
	require.NoError(t, err)
	require.NoError(t, p.Fit(records))
	state, err := p.State()
	require.NoError(t, err)
	data, err := json.Marshal(state)
	require.NoError(t, err)

	store := &iocache.MockStateStore{}
	store.On("Get", context.Background(), "default").Return(schema.StoredState{
		Key: "default", Value: data, Version: schema.StateFormatVersion, Timestamp: 1700000000,
	}, nil)
	store.On("Get", context.Background(), "missing").Return(schema.StoredState{}, sql.ErrNoRows)
	return store
}

func newServerTool(t *testing.T, store contract.StateStore, name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.Helper()
	mgr := &iocache.MockStoreManager{}
	mgr.On("GetStateStore").Return(store)

	baseCfg := &contract.Config{Features: testFeatures, StateKey: contract.DefaultStateKey}
	s := mcp_internal.NewMCPServer(baseCfg, mgr)
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)
	return tool.Handler
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	return res.Content[0].(mcp.TextContent).Text
}

func TestTransformRecords(t *testing.T) {
	ctx := context.Background()
	handler := newServerTool(t, fittedStore(t), "transform_records")

	res, err := handler(ctx, call("transform_records", map[string]any{
		"records": `[{"No": 4, "TransactionDate": "2015.06", "HouseAge": 20, "PostCode": "C3"}]`,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var got struct {
		Columns []string               `json:"columns"`
		Rows    [][]float64            `json:"rows"`
		Report  schema.TransformReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, []string{"No", "HouseAge", "PostCode_A1", "PostCode_B2", "Year", "Month"}, got.Columns)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, []float64{4, 0, 0, 0, 2015, 6}, got.Rows[0])
	assert.Equal(t, 1, got.Report.Records)
	assert.Equal(t, map[string]int{"PostCode": 1}, got.Report.Unseen)
}

func TestTransformRecords_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		store   contract.StateStore
		args    map[string]any
		wantMsg string
	}{
		{"missing records", nil, map[string]any{}, "records is required"},
		{"invalid json", nil, map[string]any{"records": "[{"}, "invalid records"},
		{"no state store", nil, map[string]any{"records": "[]"}, "state store is not initialized"},
		{"unknown state", fittedStore(t), map[string]any{"records": "[]", "state_key": "missing"}, "fitted state not found"},
		{"malformed date", fittedStore(t), map[string]any{
			"records": `[{"No": 4, "TransactionDate": "June 2015", "HouseAge": 20, "PostCode": "A1"}]`,
		}, "transform failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newServerTool(t, tt.store, "transform_records")
			res, err := handler(ctx, call("transform_records", tt.args))
			require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, resultText(t, res), tt.wantMsg)
		})
	}
}

func TestDescribeState(t *testing.T) {
	ctx := context.Background()
	handler := newServerTool(t, fittedStore(t), "describe_state")

	res, err := handler(ctx, call("describe_state", map[string]any{}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var got struct {
		Key     string          `json:"key"`
		Columns []schema.Column `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, "default", got.Key)
	require.Len(t, got.Columns, 6)
	assert.Equal(t, schema.Column{Name: "PostCode_B2", Kind: schema.CategoricalColumn}, got.Columns[3])

	res, err = handler(ctx, call("describe_state", map[string]any{"state_key": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "fitted state not found")
}

func TestListStates(t *testing.T) {
	ctx := context.Background()

	store := &iocache.MockStateStore{}
	store.On("List", ctx).Return([]schema.StoredState{
		{Key: "v2", Version: 1, Timestamp: 200},
		{Key: "default", Version: 1, Timestamp: 100},
	}, nil).Once()
	store.On("List", ctx).Return(nil, errors.New("disk full")).Once()
	handler := newServerTool(t, store, "list_states")

	res, err := handler(ctx, call("list_states", nil))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.JSONEq(t, `[
		{"key": "v2", "version": 1, "timestamp": 200},
		{"key": "default", "version": 1, "timestamp": 100}
	]`, resultText(t, res))

	res, err = handler(ctx, call("list_states", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "disk full")
	store.AssertExpectations(t)

	res, err = newServerTool(t, nil, "list_states")(ctx, call("list_states", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, core.ErrNoStateStore.Error(), resultText(t, res))
}
