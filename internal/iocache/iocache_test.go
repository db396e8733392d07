package iocache

import (
	"bytes"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/prstats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func resetOnce() {
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &StoreManager{}
}

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "prstats_cache", false},
		{"leading underscore", "_cache", false},
		{"digits", "cache2", false},
		{"empty", "", true},
		{"leading digit", "2cache", true},
		{"space", "my cache", true},
		{"injection", "cache; DROP TABLE users", true},
		{"quote", `cache"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, `"prstats_runs"`, quoteTableName("prstats_runs", schema.SQLiteBackend))
	assert.Equal(t, `"prstats_runs"`, quoteTableName("prstats_runs", schema.PostgreSQLBackend))
	assert.Equal(t, "`prstats_runs`", quoteTableName("prstats_runs", schema.MySQLBackend))
}

func TestUpsertStatements(t *testing.T) {
	tests := []struct {
		backend  schema.DatabaseBackend
		contains []string
	}{
		{schema.SQLiteBackend, []string{`INSERT OR REPLACE INTO "t"`, "VALUES (?,?,?,?)"}},
		{schema.MySQLBackend, []string{"INSERT INTO `t`", "ON DUPLICATE KEY UPDATE"}},
		{schema.PostgreSQLBackend, []string{`INSERT INTO "t"`, "VALUES ($1,$2,$3,$4)", "ON CONFLICT (cache_key)"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			cs := &CacheStoreImpl{sb: statementBuilder(tt.backend), tableName: "t", backend: tt.backend}
			query, args, err := cs.upsert("k", []byte("v"), 1, 42).ToSql()
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, query, s)
			}
			assert.Len(t, args, 4)
		})
	}
}

func TestCacheStoreSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewCacheStore(cacheTable, schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, _, _, err = store.Get("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, store.Set("k1", []byte(`{"a":1}`), 1, 1000))
	value, version, ts, err := store.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), value)
	assert.Equal(t, 1, version)
	assert.Equal(t, int64(1000), ts)

	// Upsert replaces the existing row
	require.NoError(t, store.Set("k1", []byte(`{"a":2}`), 2, 2000))
	value, version, ts, err = store.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":2}`), value)
	assert.Equal(t, 2, version)
	assert.Equal(t, int64(2000), ts)

	require.NoError(t, store.Set("k2", []byte(`[]`), 2, 500))
	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.TotalEntries)
	assert.Equal(t, time.Unix(500, 0), status.OldestEntryTime)
	assert.Equal(t, time.Unix(2000, 0), status.LastEntryTime)
	assert.Greater(t, status.TableSizeBytes, int64(0))
}

func TestCacheStoreNoneBackend(t *testing.T) {
	store, err := NewCacheStore(cacheTable, schema.NoneBackend, "")
	require.NoError(t, err)

	require.NoError(t, store.Set("k", []byte("v"), 1, 1))
	_, _, _, err = store.Get("k")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestNewCacheStoreErrors(t *testing.T) {
	_, err := NewCacheStore("bad name", schema.SQLiteBackend, filepath.Join(t.TempDir(), "c.db"))
	assert.Error(t, err)

	_, err = NewCacheStore(cacheTable, schema.DatabaseBackend("oracle"), "")
	assert.ErrorContains(t, err, "unsupported backend")

	_, err = NewCacheStore(cacheTable, schema.MySQLBackend, "not a dsn")
	assert.Error(t, err)
}

func TestHistoryStoreSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	recordedAt := time.Date(2025, 11, 3, 10, 5, 0, 0, time.UTC)
	store.(*HistoryStoreImpl).now = func() time.Time { return recordedAt }

	start := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	runID, err := store.BeginRun(start, map[string]any{"repositories": []string{"acme/api"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), runID)

	stats := schema.GroupStats{
		MemberCount:          6,
		ActiveMemberCount:    5,
		ReviewsSubmitted:     12,
		TimeToSubmitReview:   schema.Distribution{Count: 3, Median: schema.Float64Ptr(4.5)},
		DirectApprovalRate:   schema.Float64Ptr(75),
		ChangesRequestedRate: schema.Float64Ptr(25),
	}
	require.NoError(t, store.RecordGroupStats(runID, "backend", stats))
	require.NoError(t, store.RecordGroupStats(runID, "alpha", schema.GroupStats{MemberCount: 5}))

	end := start.Add(1500 * time.Millisecond)
	require.NoError(t, store.EndRun(runID, end, schema.RunCompleted, true, 17))

	secondID, err := store.BeginRun(start.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), secondID)

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)

	first := runs[0]
	assert.Equal(t, runID, first.RunID)
	assert.True(t, start.Equal(first.StartTime))
	require.NotNil(t, first.EndTime)
	assert.True(t, end.Equal(*first.EndTime))
	require.NotNil(t, first.RunDurationMs)
	assert.Equal(t, int64(1500), *first.RunDurationMs)
	require.NotNil(t, first.Outcome)
	assert.Equal(t, "completed", *first.Outcome)
	assert.True(t, first.OverrideUsed)
	assert.Equal(t, int32(17), first.PullRequests)
	require.NotNil(t, first.ConfigParams)
	assert.JSONEq(t, `{"repositories":["acme/api"]}`, *first.ConfigParams)

	assert.Nil(t, runs[1].EndTime)
	assert.Nil(t, runs[1].Outcome)
	assert.False(t, runs[1].OverrideUsed)

	groups, err := store.GetAllGroupStats()
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "alpha", groups[0].GroupName, "ordered by group name within a run")
	assert.Nil(t, groups[0].TimeToSubmitReviewMedian)
	assert.Equal(t, "backend", groups[1].GroupName)
	assert.Equal(t, int32(5), groups[1].ActiveMemberCount)
	assert.Equal(t, int32(12), groups[1].ReviewsSubmitted)
	require.NotNil(t, groups[1].TimeToSubmitReviewMedian)
	assert.InDelta(t, 4.5, *groups[1].TimeToSubmitReviewMedian, 1e-9)
	require.NotNil(t, groups[1].DirectApprovalRate)
	assert.InDelta(t, 75.0, *groups[1].DirectApprovalRate, 1e-9)
	assert.True(t, recordedAt.Equal(groups[1].RecordedAt))

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalRuns)
	assert.Equal(t, 1, status.OverrideRuns)
	assert.Equal(t, int64(2), status.LastRunID)
	assert.True(t, start.Add(time.Hour).Equal(status.LastRunTime))
	assert.True(t, start.Equal(status.OldestRunTime))
	assert.Equal(t, int64(2), status.TableSizes[runsTable])
	assert.Equal(t, int64(2), status.TableSizes[groupStatsTable])
}

func TestHistoryStoreEndRunUnknown(t *testing.T) {
	store, err := NewHistoryStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	err = store.EndRun(99, time.Now(), schema.RunFailed, false, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestHistoryStoreNoneBackend(t *testing.T) {
	store, err := NewHistoryStore(schema.NoneBackend, "")
	require.NoError(t, err)

	id, err := store.BeginRun(time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)
	assert.NoError(t, store.RecordGroupStats(id, "g", schema.GroupStats{}))
	assert.NoError(t, store.EndRun(id, time.Now(), schema.RunCompleted, false, 0))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestMigrateHistory(t *testing.T) {
	t.Run("none backend", func(t *testing.T) {
		_, err := MigrateHistory(schema.NoneBackend, "", -1)
		assert.Error(t, err)
	})

	t.Run("sqlite up and down", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "migrate.db")

		res, err := MigrateHistory(schema.SQLiteBackend, dbPath, -1)
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, uint(2), res.To)
		assert.Contains(t, res.String(), "Successfully migrated from version 0 to version 2")

		res, err = MigrateHistory(schema.SQLiteBackend, dbPath, -1)
		require.NoError(t, err)
		assert.False(t, res.Changed)
		assert.Equal(t, "No migration needed. Database is already at version 2", res.String())

		res, err = MigrateHistory(schema.SQLiteBackend, dbPath, 1)
		require.NoError(t, err)
		assert.Equal(t, uint(2), res.From)
		assert.Equal(t, uint(1), res.To)

		res, err = MigrateHistory(schema.SQLiteBackend, dbPath, 0)
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, uint(0), res.To)
	})
}

func TestLatestHistoryVersion(t *testing.T) {
	for _, backend := range []schema.DatabaseBackend{schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend} {
		t.Run(string(backend), func(t *testing.T) {
			v, err := LatestHistoryVersion(backend)
			require.NoError(t, err)
			assert.Equal(t, uint(2), v)
		})
	}

	_, err := LatestHistoryVersion(schema.NoneBackend)
	assert.Error(t, err)
}

func TestClearStores(t *testing.T) {
	dir := t.TempDir()

	t.Run("sqlite removes file", func(t *testing.T) {
		dbPath := filepath.Join(dir, "history.db")
		store, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		require.NoError(t, ClearHistory(schema.SQLiteBackend, dbPath, ""))
		_, err = os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("sqlite missing file", func(t *testing.T) {
		assert.NoError(t, ClearCache(schema.SQLiteBackend, filepath.Join(dir, "nope.db"), ""))
	})

	t.Run("sqlite empty path", func(t *testing.T) {
		assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	})

	t.Run("none", func(t *testing.T) {
		assert.NoError(t, ClearHistory(schema.NoneBackend, "", ""))
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.ErrorContains(t, ClearCache(schema.DatabaseBackend("oracle"), "", ""), "unsupported backend")
	})
}

func TestInitStores(t *testing.T) {
	dir := t.TempDir()

	t.Run("sqlite", func(t *testing.T) {
		resetOnce()
		defer CloseStores()

		cachePath := filepath.Join(dir, "cache.db")
		historyPath := filepath.Join(dir, "history.db")
		require.NoError(t, InitStores(schema.SQLiteBackend, cachePath, schema.SQLiteBackend, historyPath))
		require.NoError(t, InitStores(schema.SQLiteBackend, cachePath, schema.SQLiteBackend, historyPath))

		assert.NotNil(t, Manager.GetCacheStore())
		assert.NotNil(t, Manager.GetHistoryStore())
		_, err := os.Stat(cachePath)
		assert.NoError(t, err)
	})

	t.Run("disabled", func(t *testing.T) {
		resetOnce()
		defer CloseStores()

		require.NoError(t, InitStores("", "", "", ""))
		assert.Nil(t, Manager.GetCacheStore())
		assert.Nil(t, Manager.GetHistoryStore())
	})

	t.Run("history failure closes cache", func(t *testing.T) {
		resetOnce()
		defer CloseStores()

		err := InitStores(schema.SQLiteBackend, filepath.Join(dir, "c2.db"), schema.DatabaseBackend("oracle"), "")
		require.Error(t, err)
		assert.Nil(t, Manager.GetCacheStore())
	})

	t.Run("concurrent access", func(t *testing.T) {
		resetOnce()
		defer CloseStores()
		require.NoError(t, InitStores(schema.NoneBackend, "", schema.NoneBackend, ""))

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NotNil(t, Manager.GetCacheStore())
				assert.NotNil(t, Manager.GetHistoryStore())
			}()
		}
		wg.Wait()
	})
}

func TestExecuteHistoryExport(t *testing.T) {
	t.Run("requires output file", func(t *testing.T) {
		err := ExecuteHistoryExport(&MockHistoryStore{}, "", &bytes.Buffer{})
		assert.ErrorContains(t, err, "--output-file")
	})

	t.Run("empty history", func(t *testing.T) {
		store := &MockHistoryStore{}
		store.On("GetStatus").Return(schema.HistoryStatus{Backend: "sqlite", Connected: true}, nil)
		err := ExecuteHistoryExport(store, filepath.Join(t.TempDir(), "out"), &bytes.Buffer{})
		assert.ErrorContains(t, err, "no run history")
		store.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &MockHistoryStore{}
		store.On("GetStatus").Return(schema.HistoryStatus{TotalRuns: 1}, nil)
		store.On("GetAllRuns").Return(nil, errors.New("boom"))
		err := ExecuteHistoryExport(store, filepath.Join(t.TempDir(), "out"), &bytes.Buffer{})
		assert.ErrorContains(t, err, "boom")
	})

	t.Run("writes both files", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewHistoryStore(schema.SQLiteBackend, filepath.Join(dir, "history.db"))
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		id, err := store.BeginRun(time.Now(), map[string]any{"output": "markdown"})
		require.NoError(t, err)
		require.NoError(t, store.RecordGroupStats(id, "backend", schema.GroupStats{MemberCount: 5}))
		require.NoError(t, store.EndRun(id, time.Now(), schema.RunCompleted, false, 3))

		var out bytes.Buffer
		base := filepath.Join(dir, "export")
		require.NoError(t, ExecuteHistoryExport(store, base, &out))

		for _, suffix := range []string{".runs.parquet", ".group_stats.parquet"} {
			info, err := os.Stat(base + suffix)
			require.NoError(t, err)
			assert.Greater(t, info.Size(), int64(0))
		}
		assert.Contains(t, out.String(), "Exported 1 runs")
		assert.Contains(t, out.String(), "Exported 1 group records")
	})
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "none"})
	assert.Equal(t, "Cache Backend: none\nConnected: false\n", buf.String())

	buf.Reset()
	last := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	PrintHistoryStatus(&buf, schema.HistoryStatus{
		Backend:       "sqlite",
		Connected:     true,
		TotalRuns:     3,
		OverrideRuns:  1,
		LastRunID:     3,
		LastRunTime:   last,
		OldestRunTime: last.Add(-48 * time.Hour),
		TableSizes:    map[string]int64{runsTable: 3, groupStatsTable: 6},
	})
	out := buf.String()
	assert.Contains(t, out, "Runs With Override: 1\n")
	assert.Contains(t, out, "Last Run: 2025-11-03T10:00:00Z\n")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(groupStatsTable)), bytes.Index(buf.Bytes(), []byte("prstats_runs:")), "tables are sorted")
}

func TestMockCacheStore(t *testing.T) {
	store := &MockCacheStore{}
	store.On("Get", "k").Return(nil, 0, int64(0), sql.ErrNoRows)
	store.On("Set", "k", mock.Anything, 1, int64(5)).Return(nil)

	_, _, _, err := store.Get("k")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, store.Set("k", []byte("v"), 1, 5))
	store.AssertExpectations(t)
}
