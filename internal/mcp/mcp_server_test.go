package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/huangsam/prstats/core"
	"github.com/huangsam/prstats/internal/contract"
	mcp_internal "github.com/huangsam/prstats/internal/mcp"
	"github.com/huangsam/prstats/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var since = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func baseConfig() *contract.Config {
	s := since
	return &contract.Config{
		Repositories: []string{"acme/api", "acme/web"},
		Groups: []schema.GroupDefinition{
			{Name: "backend", Members: []string{"u1", "u2", "u3", "u4", "u5"}},
		},
		Window:   schema.ActivityWindow{Since: &s},
		Override: true, // never honored over MCP
	}
}

// activePRs has one merged PR per author, each with an in-window commit.
func activePRs(authors ...string) map[string][]schema.PullRequest {
	var prs []schema.PullRequest
	for i, a := range authors {
		created := since.AddDate(0, 0, i+1)
		merged := created.Add(24 * time.Hour)
		prs = append(prs, schema.PullRequest{
			Repository: "acme/api", Number: i + 1, Author: a, CreatedAt: created,
			ClosedAt: &merged, MergedAt: &merged, State: schema.MergedState,
			Additions: 10, Deletions: 5,
			Commits: []schema.CommitInfo{{SHA: fmt.Sprintf("c%d", i), Author: a, AuthoredAt: created}},
		})
	}
	return map[string][]schema.PullRequest{"acme/api": prs}
}

func callTool(t *testing.T, rt core.Runtime, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	s := mcp_internal.NewMCPServer(baseConfig(), rt)
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	return res
}

func text(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	rt := core.Runtime{Collector: &contract.MockPRCollector{}}

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		contains string
	}{
		{"bad since", "check_data_protection", map[string]any{"since": "yesterday-ish"}, "invalid date format"},
		{"inverted window", "get_group_stats", map[string]any{"until": "2026-01-01"}, "cannot be after"},
		{"unknown repo", "get_group_stats", map[string]any{"repos": "acme/other"}, "matches none"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, rt, tt.tool, tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, text(res), tt.contains)
		})
	}
}

func TestCheckDataProtection(t *testing.T) {
	collector := &contract.MockPRCollector{}
	collector.On("Collect", mock.Anything, []string{"acme/web"}, mock.Anything).Return(activePRs("u1", "u2"), nil)

	res := callTool(t, core.Runtime{Collector: collector}, "check_data_protection", map[string]any{"repos": "acme/web"})
	require.False(t, res.IsError, text(res))

	var result schema.CheckResult
	require.NoError(t, json.Unmarshal([]byte(text(res)), &result))
	assert.Equal(t, schema.BlockedState, result.State)
	assert.Equal(t, 2, result.GroupActiveCounts["backend"])
	collector.AssertExpectations(t)
}

func TestGetGroupStatsBlocked(t *testing.T) {
	collector := &contract.MockPRCollector{}
	collector.On("Collect", mock.Anything, mock.Anything, mock.Anything).Return(activePRs("u1", "u2"), nil)
	confirm := &contract.MockConfirmationSource{}

	rt := core.Runtime{Collector: collector, Confirm: confirm}
	res := callTool(t, rt, "get_group_stats", nil)

	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "data protection thresholds not met")
	assert.Contains(t, text(res), `"backend"`)
	assert.NotContains(t, text(res), "u1")
	confirm.AssertNotCalled(t, "Confirm", mock.Anything)
}

func TestGetGroupStatsApproved(t *testing.T) {
	collector := &contract.MockPRCollector{}
	collector.On("Collect", mock.Anything, mock.Anything, mock.Anything).Return(activePRs("u1", "u2", "u3", "u4", "u5"), nil)

	res := callTool(t, core.Runtime{Collector: collector}, "get_group_stats", map[string]any{"until": "2026-02-28"})
	require.False(t, res.IsError, text(res))

	var report schema.Report
	require.NoError(t, json.Unmarshal([]byte(text(res)), &report))
	assert.Equal(t, schema.ApprovedState, report.Metadata.PolicyState)
	assert.False(t, report.Metadata.OverrideUsed)
	assert.Equal(t, 5, report.GroupStats["backend"].ActiveMemberCount)
	assert.Equal(t, 5, report.RepoStats["acme/api"].MergedPRDuration.Count)
}
