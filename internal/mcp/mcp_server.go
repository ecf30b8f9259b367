// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"
	"fmt"

	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/internal/logger"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the estateprep MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s, _ := newServer(baseCfg, mgr)
	return s
}

func newServer(baseCfg *contract.Config, mgr contract.StoreManager) (*server.MCPServer, *toolHandler) {
	s := server.NewMCPServer(
		"Estateprep Feature Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: transform_records ---
	s.AddTool(mcp.NewTool("transform_records",
		mcp.WithDescription("Transform raw real-estate records into model-ready feature vectors using a fitted state."),
		mcp.WithString("records", mcp.Description("JSON array of record objects (or a single object) keyed by field name."), mcp.Required()),
		mcp.WithString("state_key", mcp.Description("Key of the fitted state to use. Defaults to the configured key.")),
	), h.handleTransformRecords)

	// --- 2. Tool: describe_state ---
	s.AddTool(mcp.NewTool("describe_state",
		mcp.WithDescription("Describe a fitted state: its output columns, numeric statistics and vocabularies."),
		mcp.WithString("state_key", mcp.Description("Key of the fitted state. Defaults to the configured key.")),
	), h.handleDescribeState)

	// --- 3. Tool: list_states ---
	s.AddTool(mcp.NewTool("list_states",
		mcp.WithDescription("List the keys of all stored fitted states."),
	), h.handleListStates)

	return s, h
}

// StartMCPServer loads the configured fitted state and serves the MCP tools on stdio.
// The configured state must exist; other keys are loaded on first use.
func StartMCPServer(ctx context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s, h := newServer(baseCfg, mgr)
	if _, err := h.preprocessor(ctx, baseCfg); err != nil {
		return fmt.Errorf("cannot serve state %q: %w", baseCfg.StateKey, err)
	}
	logger.Named("mcp").Info().Str("state_key", baseCfg.StateKey).Msg("serving fitted state on stdio")
	return server.ServeStdio(s)
}
