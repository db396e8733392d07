// Package cmd defines the command-line interface for prstats.
package cmd

import (
	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file (alternative to the positional argument)")
	rootCmd.PersistentFlags().String("since", "", "Start of the activity window: YYYY-MM-DD, RFC3339 or time ago")
	rootCmd.PersistentFlags().String("until", "", "End of the activity window, inclusive: YYYY-MM-DD, RFC3339 or time ago")
	rootCmd.PersistentFlags().String("users", "", "Comma-separated users, replaces the users from the config file")
	rootCmd.PersistentFlags().String("repos", "", "Comma-separated subset of the configured repositories")
	rootCmd.PersistentFlags().String("output", string(schema.MarkdownOut), "Output format: markdown or text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Path to write output to; '-' means stdout (default <config>_statistics.<ext>)")
	rootCmd.PersistentFlags().Int("max-workers", contract.DefaultMaxWorkers, "Number of repositories fetched concurrently")
	rootCmd.PersistentFlags().Bool("verbose", false, "Debug logging and a JSON-lines log of every API request")
	rootCmd.PersistentFlags().String("request-log", "", "Path of the API request log (default <config>_requests.log with --verbose)")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", string(schema.NoneBackend), "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for run history (must differ from cache-db-connect)")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of reportCmd to Viper
	reportCmd.Flags().Bool("overwrite-data-protection", false, "Publish statistics despite threshold violations after typed confirmation")
	if err := viper.BindPFlags(reportCmd.Flags()); err != nil {
		contract.LogFatal("Error binding report flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
