package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/schema"
)

// Table names for run history.
const (
	runsTable       = "prstats_runs"
	groupStatsTable = "prstats_group_stats"
)

var groupStatsColumns = []string{
	"run_id", "group_name", "recorded_at", "member_count", "active_member_count", "reviews_submitted",
	"time_to_submit_review_median", "loc_per_created_pr_median",
	"comments_as_reviewer_median", "comments_as_author_median",
	"changes_requested_rate", "direct_approval_rate",
}

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	sb      sq.StatementBuilderType
	backend schema.DatabaseBackend
	now     func() time.Time
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a HistoryStore with the specified backend. Tables are
// brought to the latest migration before the store is returned.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		return &HistoryStoreImpl{backend: backend, now: time.Now}, nil
	}

	if _, err := MigrateHistory(backend, connStr, -1); err != nil {
		return nil, fmt.Errorf("failed to prepare history tables: %w", err)
	}

	db, err := openDB(backend, connStr, contract.GetHistoryDBFilePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}

	return &HistoryStoreImpl{
		db:      db,
		sb:      statementBuilder(backend),
		backend: backend,
		now:     time.Now,
	}, nil
}

func (hs *HistoryStoreImpl) disabled() bool {
	return hs.backend == schema.NoneBackend || hs.db == nil
}

func (hs *HistoryStoreImpl) table(name string) string {
	return quoteTableName(name, hs.backend)
}

// BeginRun creates a new run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	if hs.disabled() {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	ins := hs.sb.
		Insert(hs.table(runsTable)).
		Columns("start_time", "config_params").
		Values(formatTime(startTime, hs.backend), string(configJSON))

	var runID int64
	if hs.backend == schema.PostgreSQLBackend {
		query, args, err := ins.Suffix("RETURNING run_id").ToSql()
		if err != nil {
			return 0, fmt.Errorf("failed to build run insert: %w", err)
		}
		if err := hs.db.QueryRow(query, args...).Scan(&runID); err != nil {
			return 0, fmt.Errorf("failed to insert run: %w", err)
		}
		return runID, nil
	}

	query, args, err := ins.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build run insert: %w", err)
	}
	res, err := hs.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	return runID, nil
}

// EndRun updates the run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, outcome schema.RunOutcome, overrideUsed bool, pullRequests int) error {
	if hs.disabled() {
		return nil
	}

	query, args, err := hs.sb.
		Select("start_time").
		From(hs.table(runsTable)).
		Where(sq.Eq{"run_id": runID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build run query: %w", err)
	}
	startTime, err := hs.scanTime(hs.db.QueryRow(query, args...))
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}

	query, args, err = hs.sb.
		Update(hs.table(runsTable)).
		Set("end_time", formatTime(endTime, hs.backend)).
		Set("run_duration_ms", endTime.Sub(startTime).Milliseconds()).
		Set("outcome", string(outcome)).
		Set("override_used", overrideUsed).
		Set("pull_requests", pullRequests).
		Where(sq.Eq{"run_id": runID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build run update: %w", err)
	}
	if _, err := hs.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// RecordGroupStats stores the pooled medians and rates of one group.
func (hs *HistoryStoreImpl) RecordGroupStats(runID int64, groupName string, stats schema.GroupStats) error {
	if hs.disabled() {
		return nil
	}

	r := schema.NewGroupStatsRecord(runID, groupName, hs.now(), stats)
	query, args, err := hs.sb.
		Insert(hs.table(groupStatsTable)).
		Columns(groupStatsColumns...).
		Values(
			r.RunID, r.GroupName, formatTime(r.RecordedAt, hs.backend),
			r.MemberCount, r.ActiveMemberCount, r.ReviewsSubmitted,
			r.TimeToSubmitReviewMedian, r.LOCPerCreatedPRMedian,
			r.CommentsAsReviewerMedian, r.CommentsAsAuthorMedian,
			r.ChangesRequestedRate, r.DirectApprovalRate,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build group stats insert: %w", err)
	}
	if _, err := hs.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to insert group stats for %s: %w", groupName, err)
	}
	return nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.disabled() {
		return status, nil
	}

	for _, table := range []string{runsTable, groupStatsTable} {
		query, _, err := hs.sb.Select("COUNT(*)").From(hs.table(table)).ToSql()
		if err != nil {
			return status, fmt.Errorf("failed to build count query: %w", err)
		}
		var count int64
		if err := hs.db.QueryRow(query).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalRuns = int(status.TableSizes[runsTable])
	if status.TotalRuns == 0 {
		return status, nil
	}

	query, args, err := hs.sb.Select("COUNT(*)").From(hs.table(runsTable)).Where(sq.Eq{"override_used": true}).ToSql()
	if err != nil {
		return status, fmt.Errorf("failed to build override query: %w", err)
	}
	if err := hs.db.QueryRow(query, args...).Scan(&status.OverrideRuns); err != nil {
		return status, fmt.Errorf("failed to count override runs: %w", err)
	}

	query, _, err = hs.sb.Select("run_id", "start_time").From(hs.table(runsTable)).OrderBy("run_id DESC").Limit(1).ToSql()
	if err != nil {
		return status, fmt.Errorf("failed to build last run query: %w", err)
	}
	var lastStart any
	if err := hs.db.QueryRow(query).Scan(&status.LastRunID, &lastStart); err != nil {
		return status, fmt.Errorf("failed to get last run info: %w", err)
	}
	if status.LastRunTime, err = hs.toTime(lastStart); err != nil {
		return status, fmt.Errorf("failed to parse last run time: %w", err)
	}

	query, _, err = hs.sb.Select("start_time").From(hs.table(runsTable)).OrderBy("run_id ASC").Limit(1).ToSql()
	if err != nil {
		return status, fmt.Errorf("failed to build oldest run query: %w", err)
	}
	if status.OldestRunTime, err = hs.scanTime(hs.db.QueryRow(query)); err != nil {
		return status, fmt.Errorf("failed to get oldest run time: %w", err)
	}

	return status, nil
}

// GetAllRuns retrieves all runs from the store, oldest first.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query, _, err := hs.sb.
		Select("run_id", "start_time", "end_time", "run_duration_ms", "outcome", "override_used", "pull_requests", "config_params").
		From(hs.table(runsTable)).
		OrderBy("run_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build runs query: %w", err)
	}

	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		var start, end any
		if err := rows.Scan(&record.RunID, &start, &end, &record.RunDurationMs, &record.Outcome,
			&record.OverrideUsed, &record.PullRequests, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if record.StartTime, err = hs.toTime(start); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if end != nil {
			endTime, err := hs.toTime(end)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end_time: %w", err)
			}
			record.EndTime = &endTime
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllGroupStats retrieves all group rows ordered by run and group name.
func (hs *HistoryStoreImpl) GetAllGroupStats() ([]schema.GroupStatsRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query, _, err := hs.sb.
		Select(groupStatsColumns...).
		From(hs.table(groupStatsTable)).
		OrderBy("run_id", "group_name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build group stats query: %w", err)
	}

	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query group stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.GroupStatsRecord
	for rows.Next() {
		var r schema.GroupStatsRecord
		var recorded any
		if err := rows.Scan(&r.RunID, &r.GroupName, &recorded, &r.MemberCount, &r.ActiveMemberCount, &r.ReviewsSubmitted,
			&r.TimeToSubmitReviewMedian, &r.LOCPerCreatedPRMedian, &r.CommentsAsReviewerMedian, &r.CommentsAsAuthorMedian,
			&r.ChangesRequestedRate, &r.DirectApprovalRate); err != nil {
			return nil, fmt.Errorf("failed to scan group stats: %w", err)
		}
		if r.RecordedAt, err = hs.toTime(recorded); err != nil {
			return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group stats: %w", err)
	}
	return results, nil
}

// scanTime reads a single time column from row.
func (hs *HistoryStoreImpl) scanTime(row *sql.Row) (time.Time, error) {
	var v any
	if err := row.Scan(&v); err != nil {
		return time.Time{}, err
	}
	return hs.toTime(v)
}

// toTime converts a scanned value into a time. SQLite yields RFC3339 text,
// the other backends yield native timestamps.
func (hs *HistoryStoreImpl) toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return parseStoredTime(t)
	case []byte:
		return parseStoredTime(string(t))
	default:
		return time.Time{}, fmt.Errorf("unexpected time value of type %T", v)
	}
}
