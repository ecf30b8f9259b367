package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/huangsam/estateprep/core"
	"github.com/huangsam/estateprep/core/prep"
	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/internal/dataload"
	"github.com/huangsam/estateprep/internal/logger"
	"github.com/huangsam/estateprep/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager

	mu    sync.RWMutex
	preps map[string]*prep.Preprocessor // Fitted handles by state key, read-only once loaded
}

// preprocessor returns the fitted handle for the configured state key, loading it on first use.
func (h *toolHandler) preprocessor(ctx context.Context, cfg *contract.Config) (*prep.Preprocessor, error) {
	h.mu.RLock()
	p, ok := h.preps[cfg.StateKey]
	h.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := core.LoadPreprocessor(ctx, cfg, h.mgr.GetStateStore())
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.preps == nil {
		h.preps = make(map[string]*prep.Preprocessor)
	}
	h.preps[cfg.StateKey] = p
	return p, nil
}

// configFor returns a copy of the base config pointed at the requested state key.
func (h *toolHandler) configFor(request mcp.CallToolRequest) *contract.Config {
	cfg := h.baseCfg.Clone()
	if k := request.GetString("state_key", ""); k != "" {
		cfg.StateKey = k
	}
	return cfg
}

func (h *toolHandler) handleTransformRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.configFor(request)
	raw := request.GetString("records", "")
	if raw == "" {
		return mcp.NewToolResultError("records is required"), nil
	}

	records, err := dataload.ParseJSONRecords([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid records: %v", err)), nil
	}

	p, err := h.preprocessor(ctx, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading state failed: %v", err)), nil
	}

	m, report, err := p.TransformWithReport(records)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("transform failed: %v", err)), nil
	}
	logger.Named("mcp").Debug().Str("state_key", cfg.StateKey).Int("records", m.Len()).Msg("transformed records")

	if m.Rows == nil {
		m.Rows = [][]float64{}
	}
	return jsonResult(struct {
		schema.FeatureMatrix
		Report schema.TransformReport `json:"report"`
	}{m, report}), nil
}

func (h *toolHandler) handleDescribeState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.configFor(request)

	state, err := core.LoadState(ctx, h.mgr.GetStateStore(), cfg.StateKey)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading state failed: %v", err)), nil
	}

	return jsonResult(struct {
		Key     string              `json:"key"`
		Columns []schema.Column     `json:"columns"`
		State   *schema.FittedState `json:"state"`
	}{cfg.StateKey, state.Columns(), state}), nil
}

func (h *toolHandler) handleListStates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store := h.mgr.GetStateStore()
	if store == nil {
		return mcp.NewToolResultError(core.ErrNoStateStore.Error()), nil
	}

	states, err := store.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing states failed: %v", err)), nil
	}

	type entry struct {
		Key       string `json:"key"`
		Version   int    `json:"version"`
		Timestamp int64  `json:"timestamp"`
	}
	entries := make([]entry, 0, len(states))
	for _, s := range states {
		entries = append(entries, entry{Key: s.Key, Version: s.Version, Timestamp: s.Timestamp})
	}

	return jsonResult(entries), nil
}

// jsonResult renders v as indented JSON, or a tool error when v cannot be encoded.
func jsonResult(v any) *mcp.CallToolResult {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result failed: %v", err))
	}
	return mcp.NewToolResultText(string(jsonData))
}
