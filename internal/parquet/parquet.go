// Package parquet provides data structures and functions for exporting prstats
// reports and run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/prstats/schema"
	"github.com/parquet-go/parquet-go"
)

// Scope values of a StatRow.
const (
	RepositoryScope = "repository"
	GroupScope      = "group"
)

// Run represents a single prstats run with metadata.
// This struct maps to the prstats_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int64 `parquet:"run_duration_ms,optional,snappy"`

	// Outcome is completed, blocked, aborted or failed (nullable while running)
	Outcome *string `parquet:"outcome,optional,snappy"`

	// OverrideUsed records whether the data protection override was exercised
	OverrideUsed bool `parquet:"override_used,snappy"`

	// PullRequests is the number of pull requests collected
	PullRequests int32 `parquet:"pull_requests,snappy"`

	// ConfigParams contains the JSON-encoded run parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// GroupStats is the persisted summary of one group in one run.
// This struct maps to the prstats_group_stats database table.
type GroupStats struct {
	RunID                    int64     `parquet:"run_id,snappy"`
	GroupName                string    `parquet:"group_name,snappy"`
	RecordedAt               time.Time `parquet:"recorded_at,snappy"`
	MemberCount              int32     `parquet:"member_count,snappy"`
	ActiveMemberCount        int32     `parquet:"active_member_count,snappy"`
	ReviewsSubmitted         int32     `parquet:"reviews_submitted,snappy"`
	TimeToSubmitReviewMedian *float64  `parquet:"time_to_submit_review_median,optional,snappy"`
	LOCPerCreatedPRMedian    *float64  `parquet:"loc_per_created_pr_median,optional,snappy"`
	CommentsAsReviewerMedian *float64  `parquet:"comments_as_reviewer_median,optional,snappy"`
	CommentsAsAuthorMedian   *float64  `parquet:"comments_as_author_median,optional,snappy"`
	ChangesRequestedRate     *float64  `parquet:"changes_requested_rate,optional,snappy"`
	DirectApprovalRate       *float64  `parquet:"direct_approval_rate,optional,snappy"`
}

// StatRow is one metric of one repository or group in a report.
// Rates use Median for the percentage and leave the other value columns empty.
type StatRow struct {
	Scope  string   `parquet:"scope,snappy,dict"`
	Name   string   `parquet:"name,snappy,dict"`
	Metric string   `parquet:"metric,snappy,dict"`
	Unit   string   `parquet:"unit,snappy,dict"`
	Count  int32    `parquet:"count,snappy"`
	Min    *float64 `parquet:"min,optional,snappy"`
	Median *float64 `parquet:"median,optional,snappy"`
	Mean   *float64 `parquet:"mean,optional,snappy"`
	Max    *float64 `parquet:"max,optional,snappy"`
}

// Write writes rows of any tagged struct type to w as a single Parquet file.
func Write[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteFile creates outputPath and writes data to it.
func WriteFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(file, data); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:         record.RunID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			Outcome:       record.Outcome,
			OverrideUsed:  record.OverrideUsed,
			PullRequests:  record.PullRequests,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertGroupStatsRecords converts schema.GroupStatsRecord to GroupStats for Parquet export.
func ConvertGroupStatsRecords(records []schema.GroupStatsRecord) []GroupStats {
	result := make([]GroupStats, len(records))
	for i, r := range records {
		result[i] = GroupStats{
			RunID:                    r.RunID,
			GroupName:                r.GroupName,
			RecordedAt:               r.RecordedAt,
			MemberCount:              r.MemberCount,
			ActiveMemberCount:        r.ActiveMemberCount,
			ReviewsSubmitted:         r.ReviewsSubmitted,
			TimeToSubmitReviewMedian: r.TimeToSubmitReviewMedian,
			LOCPerCreatedPRMedian:    r.LOCPerCreatedPRMedian,
			CommentsAsReviewerMedian: r.CommentsAsReviewerMedian,
			CommentsAsAuthorMedian:   r.CommentsAsAuthorMedian,
			ChangesRequestedRate:     r.ChangesRequestedRate,
			DirectApprovalRate:       r.DirectApprovalRate,
		}
	}
	return result
}

// ConvertReport flattens a report into rows: repositories first, then groups,
// each sorted by name and listed in metric display order.
func ConvertReport(report schema.Report) []StatRow {
	var rows []StatRow
	for _, repo := range schema.SortedKeys(report.RepoStats) {
		for _, nd := range report.RepoStats[repo].Distributions() {
			rows = append(rows, distributionRow(RepositoryScope, repo, nd))
		}
	}
	for _, group := range schema.SortedKeys(report.GroupStats) {
		stats := report.GroupStats[group]
		for _, nd := range stats.Distributions() {
			rows = append(rows, distributionRow(GroupScope, group, nd))
		}
		for _, rate := range stats.Rates() {
			row := StatRow{Scope: GroupScope, Name: group, Metric: string(rate.Key), Unit: "%", Median: rate.Value}
			if rate.Value != nil {
				row.Count = 1
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func distributionRow(scope, name string, nd schema.NamedDistribution) StatRow {
	d := nd.Distribution
	return StatRow{
		Scope:  scope,
		Name:   name,
		Metric: string(nd.Key),
		Unit:   nd.Unit,
		Count:  int32(d.Count),
		Min:    d.Minimum,
		Median: d.Median,
		Mean:   d.Mean,
		Max:    d.Maximum,
	}
}
