package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/prstats/core"
	"github.com/huangsam/prstats/core/policy"
	"github.com/huangsam/prstats/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	rt      core.Runtime
}

// requestConfig clones the base config and applies the window and repository arguments.
// The override directive is always cleared since nobody can confirm it over MCP.
func (h *toolHandler) requestConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	cfg.Override = false
	err := contract.RevalidateRun(cfg,
		request.GetString("since", ""),
		request.GetString("until", ""),
		request.GetString("repos", ""),
		h.now())
	return cfg, err
}

// runtime returns the shared runtime with an operator that always declines.
func (h *toolHandler) runtime() core.Runtime {
	rt := h.rt
	rt.Disclaimer = io.Discard
	rt.Confirm = contract.StaticConfirmation("no")
	return rt
}

func (h *toolHandler) now() time.Time {
	if h.rt.Now != nil {
		return h.rt.Now()
	}
	return time.Now()
}

func (h *toolHandler) handleCheckDataProtection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	result, err := core.ExecuteCheck(ctx, cfg, h.runtime())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("check failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetGroupStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	report, err := core.ExecuteReport(ctx, cfg, h.runtime())
	if err != nil {
		var blocked *policy.BlockedError
		if errors.As(err, &blocked) {
			jsonData, _ := json.MarshalIndent(blocked.Blocked(), "", "  ")
			return mcp.NewToolResultError(fmt.Sprintf("data protection thresholds not met, statistics withheld:\n%s", jsonData)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("statistics failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
