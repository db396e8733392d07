package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/internal/iocache"
	"github.com/huangsam/prstats/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyConfig reads the history backend settings from the config file, env and flags.
func historyConfig(args []string) (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(args); err != nil {
		return "", "", err
	}

	backend, err := contract.ParseDatabaseBackend(viper.GetString("history-backend"))
	if err != nil {
		return "", "", err
	}
	connStr := viper.GetString("history-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetup loads minimal configuration needed for history operations.
// This is used by commands that need history access without full shared setup.
func historySetup(args []string) error {
	backend, connStr, err := historyConfig(args)
	if err != nil {
		return err
	}

	// Initialize stores with the loaded config (no response caching for history commands)
	if err := iocache.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")

	return nil
}

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, args []string) error {
	return historySetup(args)
}

// historyMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func historyMigrateSetup(args []string) error {
	backend, connStr, err := historyConfig(args)
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetHistoryDBFilePath()
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr

	return nil
}

// historyMigrateSetupWrapper wraps historyMigrateSetup to provide PreRunE for migrate command.
func historyMigrateSetupWrapper(_ *cobra.Command, args []string) error {
	return historyMigrateSetup(args)
}

// historyCmd focused on run history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the run history and exports",
	Long: `Manage the history of report runs.

When a history backend is configured, prstats records every report run:
- Run metadata (window, repositories, outcome, whether the override was used)
- Per group statistics of approved runs, keyed by group name only

Usernames are never stored. The history doubles as an audit trail of every
use of --overwrite-data-protection.

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, the default)

Subcommands:
  status  - Show history statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all history data
  migrate - Run database schema migrations

Examples:
  # Check history status
  prstats history status --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  prstats history export --history-backend sqlite --output-file prstats-history`,
}

// historyClearCmd clears the history data.
var historyClearCmd = &cobra.Command{
	Use:   "clear [config_path]",
	Short: "Remove all recorded runs and group statistics",
	Long: `Delete all stored runs and group statistics.

WARNING: This action cannot be undone and removes the override audit trail.
Consider exporting data first.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: historySetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		// The SQLite file cannot be removed while it is open.
		iocache.CloseStores()
		dbPath := sqlitePath(cfg.HistoryDBConnect, contract.GetHistoryDBFilePath())
		if err := iocache.ClearHistory(cfg.HistoryBackend, dbPath, cfg.HistoryDBConnect); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Println("History cleared successfully.")
		return nil
	},
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status [config_path]",
	Short: "Display history statistics and connection details",
	Long: `Show the backend, number of recorded runs and overrides, the newest and
oldest run and the size of the history tables.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: historySetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		store := iocache.Manager.GetHistoryStore()
		if store == nil {
			return fmt.Errorf("history is not configured. Set --history-backend")
		}
		status, err := store.GetStatus()
		if err != nil {
			return fmt.Errorf("failed to get history status: %w", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
		return nil
	},
}

// historyExportCmd exports history data to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export [config_path]",
	Short: "Export the run history to Parquet for BI tools and analytics",
	Long: `Export all recorded runs and group statistics to Parquet.

Writes <output-file>.runs.parquet and <output-file>.group_stats.parquet.

Requires: --output-file parameter

Examples:
  prstats history export --history-backend sqlite --output-file prstats-history
  duckdb -c "SELECT * FROM read_parquet('prstats-history.runs.parquet') LIMIT 10"`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: historySetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := iocache.ExecuteHistoryExport(iocache.Manager.GetHistoryStore(), cfg.OutputFile, os.Stdout); err != nil {
			return fmt.Errorf("failed to export history: %w", err)
		}
		return nil
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate [config_path]",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  prstats history migrate --history-backend sqlite

  # Rollback to initial state
  prstats history migrate --history-backend sqlite --target-version 0`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: historyMigrateSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		targetVersion := viper.GetInt("target-version")
		result, err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		fmt.Println(result.String())
		return nil
	},
}
