// Package contract provides interfaces and shared utilities for the internal architecture of prstats.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/prstats/schema"
)

// PRProvider yields fully populated pull requests per repository.
// This allows the core to be tested without talking to GitHub.
type PRProvider interface {
	// CollectRepository returns the pull requests of repo created inside window.
	CollectRepository(ctx context.Context, repo string, window schema.ActivityWindow) ([]schema.PullRequest, error)

	// BaseURL identifies the API the provider talks to. It is part of cache keys.
	BaseURL() string
}

// PRCollector gathers the pull requests of many repositories at once.
type PRCollector interface {
	Collect(ctx context.Context, repos []string, window schema.ActivityWindow) (map[string][]schema.PullRequest, error)
}

// ConfirmationSource asks the operator for the override confirmation token.
// It is a single synchronous exchange so tests can answer without a terminal.
type ConfirmationSource interface {
	Confirm(prompt string) (string, error)
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetCacheStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for API response cache storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore records runs and their group-level results. Override usage is kept for audit.
// It never stores per-user values.
type HistoryStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, outcome schema.RunOutcome, overrideUsed bool, pullRequests int) error

	// RecordGroupStats stores the pooled statistics of one group
	RecordGroupStats(runID int64, groupName string, stats schema.GroupStats) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every recorded run, oldest first
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllGroupStats returns every recorded group row, ordered by run and group
	GetAllGroupStats() ([]schema.GroupStatsRecord, error)

	// Close closes the underlying connection
	Close() error
}
