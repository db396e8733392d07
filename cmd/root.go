package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/prstats/core"
	"github.com/huangsam/prstats/core/policy"
	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/internal/ghclient"
	"github.com/huangsam/prstats/internal/iocache"
	"github.com/huangsam/prstats/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "prstats",
	Short: "Compute pull request statistics per repository and per team.",
	Long: `prstats collects pull requests from GitHub or GitHub Enterprise and reports
review and merge statistics per repository and per user group.

Group statistics are only published when every group has enough active members,
so that no figure can be traced back to an individual.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in ENV variables and sets defaults.
func initConfig() {
	// Set environment variable prefix
	viper.SetEnvPrefix("PRSTATS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("output", schema.MarkdownOut)
	viper.SetDefault("max-workers", contract.DefaultMaxWorkers)
	viper.SetDefault("cache-backend", schema.SQLiteBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("history-backend", schema.NoneBackend)
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("color", "yes")
}

// configPath picks the positional config path over --config.
func configPath(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return viper.GetString("config")
}

// sharedSetup reads the config file, unmarshals all sources and runs validation.
func sharedSetup(_ context.Context, _ *cobra.Command, args []string) error {
	path := configPath(args)
	if path == "" {
		return fmt.Errorf("a config file is required. Pass it as the first argument or with --config")
	}

	// 1. Read config file. This merges defaults, file, env, and flags.
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	input.ConfigPath = path

	// 4. Run all validation and complex parsing.
	// This function populates the global 'cfg' from 'input'.
	if err := contract.ProcessAndValidate(cfg, input, time.Now()); err != nil {
		return err
	}
	// Catch undersized groups before any API call.
	if err := policy.ValidateGroups(cfg.Groups); err != nil {
		return err
	}
	contract.SetVerbose(cfg.Verbose)
	color.NoColor = !cfg.UseColors

	if err := ghclient.ValidateBaseURL(cfg.BaseURL); err != nil {
		return err
	}

	// 5. Initialize persistence layer with validated config
	if err := iocache.InitStores(cfg.CacheBackend, cfg.CacheDBConnect, cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// loadConfigFile reads the config file when one is named. Store commands work without one.
func loadConfigFile(args []string) error {
	path := configPath(args)
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return nil
}

// buildRuntime wires the GitHub client, the response cache and the history store into a
// core.Runtime. The returned cleanup closes the request log.
func buildRuntime(confirmIn io.Reader) (core.Runtime, func(), error) {
	cleanup := func() {}

	token, err := ghclient.ResolveToken(cfg.APIToken, cfg.TokenEnv)
	if err != nil {
		return core.Runtime{}, cleanup, err
	}

	opts := ghclient.ClientOptions{
		BaseURL:   cfg.BaseURL,
		Token:     token,
		VerifySSL: cfg.VerifySSL,
	}
	if cfg.RequestLogFile != "" {
		logFile, err := os.OpenFile(cfg.RequestLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return core.Runtime{}, cleanup, fmt.Errorf("failed to open request log %s: %w", cfg.RequestLogFile, err)
		}
		opts.RequestLog = logFile
		cleanup = func() { _ = logFile.Close() }
		contract.Logger.WithField("file", cfg.RequestLogFile).Debug("logging API requests")
	}

	client, err := ghclient.NewClient(opts)
	if err != nil {
		cleanup()
		return core.Runtime{}, func() {}, err
	}

	provider := core.NewCachedProvider(ghclient.NewProvider(client, cfg.BaseURL), iocache.Manager.GetCacheStore())
	return core.Runtime{
		Collector:  ghclient.NewCollector(provider, cfg.MaxWorkers),
		History:    iocache.Manager.GetHistoryStore(),
		Disclaimer: os.Stderr,
		Confirm:    &contract.PromptConfirmation{In: confirmIn, Out: os.Stderr},
	}, cleanup, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
