package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/huangsam/prstats/core/policy"
	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/schema"
)

// ReportBuilder walks one run through its phases using a builder pattern.
type ReportBuilder struct {
	ctx   context.Context
	cfg   *contract.Config
	rt    Runtime
	start time.Time
	runID int64

	// Internal data collected during the build process
	prs     map[string][]schema.PullRequest
	skipped map[string]int
	check   schema.CheckResult
	state  schema.PolicyState
	report *schema.Report
}

// NewReportBuilder is the starting point for building a report.
func NewReportBuilder(ctx context.Context, cfg *contract.Config, rt Runtime) *ReportBuilder {
	return &ReportBuilder{
		ctx:   ctx,
		cfg:   cfg,
		rt:    rt,
		start: rt.now(),
		state: schema.CheckingState,
	}
}

// BeginRun opens a history record when a history store is configured.
// A history failure is logged and never stops the run.
func (b *ReportBuilder) BeginRun() *ReportBuilder {
	if b.rt.History == nil {
		return b
	}
	id, err := b.rt.History.BeginRun(b.start, runParams(b.cfg))
	if err != nil {
		contract.LogWarn("Cannot record run history", err)
		return b
	}
	b.runID = id
	return b
}

// Collect validates the groups and fetches the pull requests of every configured repository.
func (b *ReportBuilder) Collect() (*ReportBuilder, error) {
	if err := policy.ValidateGroups(b.cfg.Groups); err != nil {
		return nil, err
	}
	if b.rt.Collector == nil {
		return nil, errors.New("no pull request collector configured")
	}

	prs, err := b.rt.Collector.Collect(b.ctx, b.cfg.Repositories, b.cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to collect pull requests: %w", err)
	}
	b.prs, b.skipped = DropInconsistent(prs)

	contract.Logger.WithFields(logrus.Fields{
		"repositories":  len(b.prs),
		"pull_requests": countPullRequests(b.prs),
	}).Debug("collection finished")
	return b, nil
}

// Enforce runs the active-member thresholds over the collected data.
func (b *ReportBuilder) Enforce() *ReportBuilder {
	b.check = policy.Enforce(b.prs, b.cfg.Groups, b.cfg.Window)
	b.state = b.check.State
	return b
}

// Govern decides whether statistics may be produced. A blocked run without the override
// directive returns a *policy.BlockedError.
func (b *ReportBuilder) Govern() (*ReportBuilder, error) {
	state, err := policy.Govern(b.check, b.cfg.Override, b.rt.Disclaimer, b.rt.Confirm)
	b.state = state
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ComputeStats computes repository and group statistics for an approved run.
func (b *ReportBuilder) ComputeStats() *ReportBuilder {
	asOf := b.cfg.Window.AsOf(b.start)
	report := BuildReport(b.prs, b.cfg.Groups, b.check, b.state, b.cfg.Window, asOf)
	for repo, n := range b.skipped {
		stats := report.RepoStats[repo]
		stats.InconsistentSkipped = n
		report.RepoStats[repo] = stats
	}
	b.report = &report
	return b
}

// EndRun closes the history record with the outcome implied by err.
func (b *ReportBuilder) EndRun(err error) {
	if b.rt.History == nil || b.runID == 0 {
		return
	}
	outcome := runOutcome(err)
	if outcome == schema.RunCompleted && b.report != nil {
		for _, name := range schema.SortedKeys(b.report.GroupStats) {
			if recErr := b.rt.History.RecordGroupStats(b.runID, name, b.report.GroupStats[name]); recErr != nil {
				contract.LogWarn("Cannot record group statistics", recErr)
			}
		}
	}
	override := b.state == schema.ApprovedWithOverrideState
	if endErr := b.rt.History.EndRun(b.runID, b.rt.now(), outcome, override, countPullRequests(b.prs)); endErr != nil {
		contract.LogWarn("Cannot finish run history", endErr)
	}
}

// GetResult returns the built report, or nil before ComputeStats.
func (b *ReportBuilder) GetResult() *schema.Report {
	return b.report
}

// GetCheckResult returns the threshold check result.
func (b *ReportBuilder) GetCheckResult() schema.CheckResult {
	return b.check
}

// runOutcome maps the error of a run onto the stored outcome.
func runOutcome(err error) schema.RunOutcome {
	switch {
	case err == nil:
		return schema.RunCompleted
	case policy.IsBlocked(err):
		return schema.RunBlocked
	case errors.Is(err, schema.ErrOverrideAborted):
		return schema.RunAborted
	default:
		return schema.RunFailed
	}
}

// runParams describes the run for the history store. Group members are reduced to counts.
func runParams(cfg *contract.Config) map[string]any {
	groups := make(map[string]int, len(cfg.Groups))
	for _, g := range cfg.Groups {
		groups[g.Name] = len(schema.UniqueStrings(g.Members))
	}
	params := map[string]any{
		"base_url":           cfg.BaseURL,
		"repositories":       cfg.Repositories,
		"groups":             groups,
		"output":             string(cfg.Output),
		"override_requested": cfg.Override,
	}
	if cfg.Window.Since != nil {
		params["since"] = cfg.Window.Since.UTC().Format(time.RFC3339)
	}
	if cfg.Window.Until != nil {
		params["until"] = cfg.Window.Until.UTC().Format(time.RFC3339)
	}
	return params
}

func countPullRequests(prs map[string][]schema.PullRequest) int {
	total := 0
	for _, list := range prs {
		total += len(list)
	}
	return total
}
