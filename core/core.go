// Package core orchestrates a run: collection, threshold checks, the override ritual and
// statistics. The computations live in the subpackages and never touch I/O.
package core

import (
	"context"
	"io"
	"time"

	"github.com/huangsam/prstats/core/agg"
	"github.com/huangsam/prstats/core/metrics"
	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/schema"
)

// Runtime bundles the collaborators of a run. History, Disclaimer and Confirm may be nil.
type Runtime struct {
	Collector  contract.PRCollector
	History    contract.HistoryStore
	Disclaimer io.Writer
	Confirm    contract.ConfirmationSource
	Now        func() time.Time
}

func (rt Runtime) now() time.Time {
	if rt.Now != nil {
		return rt.Now()
	}
	return time.Now()
}

// ExecuteCheck collects the configured repositories and runs the threshold checks only.
func ExecuteCheck(ctx context.Context, cfg *contract.Config, rt Runtime) (schema.CheckResult, error) {
	b, err := NewReportBuilder(ctx, cfg, rt).Collect()
	if err != nil {
		return schema.CheckResult{}, err
	}
	return b.Enforce().GetCheckResult(), nil
}

// ExecuteReport runs the full pipeline and returns the report. A blocked run without the
// override directive returns a *policy.BlockedError. A failed override returns an error
// wrapping schema.ErrOverrideAborted. The run is recorded when a history store is set.
func ExecuteReport(ctx context.Context, cfg *contract.Config, rt Runtime) (*schema.Report, error) {
	b := NewReportBuilder(ctx, cfg, rt).BeginRun()
	report, err := runReport(b)
	b.EndRun(err)
	return report, err
}

func runReport(b *ReportBuilder) (*schema.Report, error) {
	if _, err := b.Collect(); err != nil {
		return nil, err
	}
	if _, err := b.Enforce().Govern(); err != nil {
		return nil, err
	}
	return b.ComputeStats().GetResult(), nil
}

// DropInconsistent removes the pull requests that fail schema validation. The returned
// counts are keyed by repository and only hold repositories that lost a pull request.
func DropInconsistent(prs map[string][]schema.PullRequest) (map[string][]schema.PullRequest, map[string]int) {
	valid := make(map[string][]schema.PullRequest, len(prs))
	skipped := make(map[string]int)
	for _, repo := range schema.SortedKeys(prs) {
		kept := make([]schema.PullRequest, 0, len(prs[repo]))
		for i := range prs[repo] {
			if err := prs[repo][i].Validate(); err != nil {
				contract.Logger.WithError(err).Warn("skipping inconsistent pull request")
				skipped[repo]++
				continue
			}
			kept = append(kept, prs[repo][i])
		}
		valid[repo] = kept
	}
	return valid, skipped
}

// BuildReport computes every statistic of an approved run. It is pure: asOf replaces the
// wall clock for open pull requests.
func BuildReport(prs map[string][]schema.PullRequest, groups []schema.GroupDefinition, check schema.CheckResult, state schema.PolicyState, window schema.ActivityWindow, asOf time.Time) schema.Report {
	repos := schema.SortedKeys(prs)

	repoStats := make(map[string]schema.RepoStats, len(repos))
	var all []schema.PullRequest
	for _, repo := range repos {
		repoStats[repo] = metrics.ComputeRepoStats(prs[repo], asOf)
		all = append(all, prs[repo]...)
	}

	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}

	meta := schema.ReportMetadata{
		Window:           window,
		AsOf:             asOf,
		Repositories:     repos,
		GroupsConsidered: names,
		PullRequests:     len(all),
		PolicyState:      state,
		OverrideUsed:     state == schema.ApprovedWithOverrideState,
	}
	if meta.OverrideUsed {
		meta.Violations = check.Violations
	}

	return schema.Report{
		RepoStats:  repoStats,
		GroupStats: agg.AggregatePullRequests(all, groups, check.GroupActiveCounts),
		Metadata:   meta,
	}
}
