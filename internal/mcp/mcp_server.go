// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/prstats/core"
	"github.com/huangsam/prstats/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the prstats MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, rt core.Runtime) *server.MCPServer {
	s := server.NewMCPServer(
		"GitHub PR Statistics Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		rt:      rt,
	}

	windowArgs := []mcp.ToolOption{
		mcp.WithString("since", mcp.Description("Start of the activity window (YYYY-MM-DD, RFC3339 or 'N units ago'). Defaults to the configured value.")),
		mcp.WithString("until", mcp.Description("End of the activity window, inclusive. Defaults to the configured value.")),
		mcp.WithString("repos", mcp.Description("Comma-separated subset of the configured repositories.")),
	}

	// --- 1. Tool: check_data_protection ---
	s.AddTool(mcp.NewTool("check_data_protection", append([]mcp.ToolOption{
		mcp.WithDescription("Count active members per group and report data protection threshold violations. No statistics are computed."),
	}, windowArgs...)...), h.handleCheckDataProtection)

	// --- 2. Tool: get_group_stats ---
	s.AddTool(mcp.NewTool("get_group_stats", append([]mcp.ToolOption{
		mcp.WithDescription("Compute pull request statistics per repository and per group. Fails when data protection thresholds are not met."),
	}, windowArgs...)...), h.handleGetGroupStats)

	return s
}

// StartMCPServer starts the prstats MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, rt core.Runtime) error {
	s := NewMCPServer(baseCfg, rt)
	return server.ServeStdio(s)
}
