package iocache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/estateprep/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRunStore(t *testing.T) *RunStoreImpl {
	t.Helper()
	store, err := NewRunStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.(*RunStoreImpl)
}

var houseColumns = []schema.Column{
	{Name: "No", Kind: schema.PassthroughColumn},
	{Name: "HouseAge", Kind: schema.NumericColumn},
	{Name: "PostCode_A1", Kind: schema.CategoricalColumn},
	{Name: schema.YearColumn, Kind: schema.DateColumn},
	{Name: schema.MonthColumn, Kind: schema.DateColumn},
}

func TestRunStore_BeginEndRun(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteRunStore(t)

	start := time.Now().Add(-1500 * time.Millisecond)
	runID, err := store.BeginRun(ctx, "default", start, map[string]any{"numeric": []string{"HouseAge"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), runID)

	runs, err := store.GetAllRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].EndTime, "run still open")
	assert.Nil(t, runs[0].RunDurationMs)

	end := start.Add(1500 * time.Millisecond)
	require.NoError(t, store.EndRun(ctx, runID, end, 414, len(houseColumns)))

	runs, err = store.GetAllRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, "default", run.StateKey)
	assert.True(t, start.Equal(run.StartTime))
	require.NotNil(t, run.EndTime)
	assert.True(t, end.Equal(*run.EndTime))
	require.NotNil(t, run.RunDurationMs)
	assert.Equal(t, int32(1500), *run.RunDurationMs)
	assert.Equal(t, int32(414), run.TotalRecords)
	assert.Equal(t, int32(5), run.TotalColumns)
	require.NotNil(t, run.ConfigParams)
	assert.JSONEq(t, `{"numeric":["HouseAge"]}`, *run.ConfigParams)

	assert.Error(t, store.EndRun(ctx, 999, end, 1, 1), "unknown run")
}

func TestRunStore_RecordColumns(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteRunStore(t)

	first, err := store.BeginRun(ctx, "default", time.Now(), nil)
	require.NoError(t, err)
	second, err := store.BeginRun(ctx, "default", time.Now(), nil)
	require.NoError(t, err)

	require.NoError(t, store.RecordColumns(ctx, second, houseColumns[:2]))
	require.NoError(t, store.RecordColumns(ctx, first, houseColumns))
	require.NoError(t, store.RecordColumns(ctx, first, nil))

	cols, err := store.GetAllColumns(ctx)
	require.NoError(t, err)
	require.Len(t, cols, 7)
	assert.Equal(t, schema.FitColumnRecord{RunID: first, ColumnIndex: 0, ColumnName: "No", ColumnKind: "passthrough"}, cols[0])
	assert.Equal(t, schema.FitColumnRecord{RunID: first, ColumnIndex: 4, ColumnName: "Month", ColumnKind: "date"}, cols[4])
	assert.Equal(t, second, cols[5].RunID)

	// A duplicate position aborts the whole batch
	err = store.RecordColumns(ctx, second, houseColumns)
	assert.Error(t, err)
	cols, err = store.GetAllColumns(ctx)
	require.NoError(t, err)
	assert.Len(t, cols, 7)
}

func TestRunStore_GetStatus(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteRunStore(t)

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Zero(t, status.TotalRuns)
	assert.Equal(t, int64(0), status.TableSizes[fitRunsTable])

	oldest := time.Now().Add(-time.Hour)
	for i, n := range []int{10, 20} {
		id, err := store.BeginRun(ctx, "default", oldest.Add(time.Duration(i)*time.Minute), nil)
		require.NoError(t, err)
		require.NoError(t, store.EndRun(ctx, id, time.Now(), n, 3))
	}

	status, err = store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalRuns)
	assert.Equal(t, int64(2), status.LastRunID)
	assert.True(t, oldest.Equal(status.OldestRunTime))
	assert.Equal(t, 30, status.TotalRecords)
	assert.Equal(t, int64(2), status.TableSizes[fitRunsTable])
}

func TestExecuteRunExport(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteRunStore(t)
	out := filepath.Join(t.TempDir(), "history")

	assert.ErrorContains(t, ExecuteRunExport(ctx, store, ""), "--output-file")
	assert.ErrorContains(t, ExecuteRunExport(ctx, store, out), "no fit runs")

	id, err := store.BeginRun(ctx, "default", time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, store.RecordColumns(ctx, id, houseColumns))
	require.NoError(t, store.EndRun(ctx, id, time.Now(), 3, len(houseColumns)))

	require.NoError(t, ExecuteRunExport(ctx, store, out))
	for _, suffix := range []string{".fit_runs.parquet", ".fit_run_columns.parquet"} {
		info, err := os.Stat(out + suffix)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestExecuteRunExport_StatusError(t *testing.T) {
	store := &MockRunStore{}
	store.On("GetStatus", context.Background()).Return(schema.RunStatus{}, assert.AnError)

	err := ExecuteRunExport(context.Background(), store, filepath.Join(t.TempDir(), "out"))
	assert.ErrorIs(t, err, assert.AnError)
	store.AssertExpectations(t)
}
