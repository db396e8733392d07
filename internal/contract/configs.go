package contract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/huangsam/prstats/schema"
)

// Default values for configuration.
const (
	DefaultTokenEnv   = "GITHUB_TOKEN"
	DefaultMaxWorkers = 4
	MaxMaxWorkers     = 64
)

// CacheTTL is how long a cached pull request collection stays fresh.
const CacheTTL = 24 * time.Hour

// CacheGranularity is the step that activity windows are widened to before caching.
// Relative bounds such as "3 months ago" move every second; aligned bounds do not.
const CacheGranularity = time.Hour

// AlignWindow widens window to whole CacheGranularity steps: Since is truncated and
// Until is rounded up. Open bounds stay open.
func AlignWindow(window schema.ActivityWindow) schema.ActivityWindow {
	var out schema.ActivityWindow
	if window.Since != nil {
		s := window.Since.UTC().Truncate(CacheGranularity)
		out.Since = &s
	}
	if window.Until != nil {
		u := window.Until.UTC().Truncate(CacheGranularity)
		if u.Before(window.Until.UTC()) {
			u = u.Add(CacheGranularity)
		}
		out.Until = &u
	}
	return out
}

// GitHubRawInput is the github section of the YAML config file.
type GitHubRawInput struct {
	BaseURL   string `mapstructure:"base_url"`
	TokenEnv  string `mapstructure:"token_env"`
	APIToken  string `mapstructure:"api_token"`
	VerifySSL *bool  `mapstructure:"verify_ssl"`
}

// Config holds the runtime configuration for a run.
// This struct is the "final, validated" config.
type Config struct {
	ConfigPath string

	BaseURL   string
	APIToken  string // direct token from the config file, wins over TokenEnv
	TokenEnv  string
	VerifySSL bool

	Repositories []string
	Users        []string
	Groups       []schema.GroupDefinition
	Window       schema.ActivityWindow

	Output         schema.OutputMode
	OutputFile     string
	MaxWorkers     int
	Override       bool
	Verbose        bool
	RequestLogFile string
	Width          int // Terminal width override (0 = auto-detect)
	UseColors      bool

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	ConfigPath string

	// --- Fields from the YAML config file ---
	GitHub       GitHubRawInput      `mapstructure:"github"`
	Repositories []string            `mapstructure:"repositories"`
	Users        []string            `mapstructure:"users"`
	UserGroups   map[string][]string `mapstructure:"user_groups"`

	// --- Fields from rootCmd.PersistentFlags() ---
	Since            string `mapstructure:"since"`
	Until            string `mapstructure:"until"`
	Repos            string `mapstructure:"repos"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	MaxWorkers       int    `mapstructure:"max-workers"`
	Verbose          bool   `mapstructure:"verbose"`
	RequestLog       string `mapstructure:"request-log"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Fields from reportCmd.Flags() ---
	Override bool `mapstructure:"overwrite-data-protection"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Repositories = append([]string(nil), c.Repositories...)
	clone.Users = append([]string(nil), c.Users...)
	if c.Groups != nil {
		clone.Groups = make([]schema.GroupDefinition, len(c.Groups))
		for i, g := range c.Groups {
			clone.Groups[i] = schema.GroupDefinition{Name: g.Name, Members: append([]string(nil), g.Members...)}
		}
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct. now anchors relative time inputs.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput, now time.Time) error {
	if err := validateGitHubInputs(cfg, input); err != nil {
		return err
	}
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processRepositories(cfg, input); err != nil {
		return err
	}
	if err := processUsersAndGroups(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input, now); err != nil {
		return err
	}
	return validateBackendConfigs(cfg, input)
}

// validateGitHubInputs checks the github section and applies its defaults.
func validateGitHubInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(input.GitHub.BaseURL), "/")
	if cfg.BaseURL == "" {
		return fmt.Errorf("github.base_url is required")
	}
	cfg.APIToken = strings.TrimSpace(input.GitHub.APIToken)
	cfg.TokenEnv = strings.TrimSpace(input.GitHub.TokenEnv)
	if cfg.TokenEnv == "" {
		cfg.TokenEnv = DefaultTokenEnv
	}
	cfg.VerifySSL = input.GitHub.VerifySSL == nil || *input.GitHub.VerifySSL
	return nil
}

// validateSimpleInputs processes and validates the plain flag fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.ConfigPath = input.ConfigPath
	cfg.Verbose = input.Verbose
	cfg.Override = input.Override
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.MaxWorkers <= 0 || input.MaxWorkers > MaxMaxWorkers {
		return fmt.Errorf("max-workers must be greater than 0 and cannot exceed %d (received %d)", MaxMaxWorkers, input.MaxWorkers)
	}
	cfg.MaxWorkers = input.MaxWorkers

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be markdown, text, csv, json, parquet", input.Output)
	}

	// Text goes to the terminal unless a file is named; "-" forces stdout for every format.
	cfg.OutputFile = strings.TrimSpace(input.OutputFile)
	switch {
	case cfg.OutputFile == "-":
		cfg.OutputFile = ""
	case cfg.OutputFile == "" && cfg.Output != schema.TextOut:
		cfg.OutputFile = DefaultOutputFile(cfg.ConfigPath, cfg.Output)
	}

	cfg.RequestLogFile = strings.TrimSpace(input.RequestLog)
	if cfg.RequestLogFile == "" && cfg.Verbose {
		cfg.RequestLogFile = DefaultRequestLogFile(cfg.ConfigPath)
	}
	return nil
}

// processRepositories normalizes config repositories and narrows them with --repos.
func processRepositories(cfg *Config, input *ConfigRawInput) error {
	if len(input.Repositories) == 0 {
		return fmt.Errorf("'repositories' list cannot be empty")
	}
	repos := make([]string, 0, len(input.Repositories))
	for _, r := range input.Repositories {
		n, err := NormalizeRepository(r)
		if err != nil {
			return err
		}
		repos = append(repos, n)
	}
	repos = schema.UniqueStrings(repos)

	if strings.TrimSpace(input.Repos) != "" {
		wanted := make(map[string]struct{})
		for r := range strings.SplitSeq(input.Repos, ",") {
			if strings.TrimSpace(r) == "" {
				continue
			}
			n, err := NormalizeRepository(r)
			if err != nil {
				return fmt.Errorf("invalid --repos value: %w", err)
			}
			wanted[n] = struct{}{}
		}
		narrowed := repos[:0]
		for _, r := range repos {
			if _, ok := wanted[r]; ok {
				narrowed = append(narrowed, r)
			}
		}
		repos = narrowed
		if len(repos) == 0 {
			return fmt.Errorf("--repos %q matches none of the configured repositories", input.Repos)
		}
	}

	cfg.Repositories = repos
	return nil
}

// processUsersAndGroups builds the group list. When users are given, group membership is
// narrowed to them; thresholds are checked afterwards on the narrowed groups.
func processUsersAndGroups(cfg *Config, input *ConfigRawInput) error {
	cfg.Users = schema.UniqueStrings(input.Users)

	if len(input.UserGroups) == 0 {
		return fmt.Errorf("'user_groups' must define at least one group")
	}

	var allowed map[string]struct{}
	if len(cfg.Users) > 0 {
		allowed = make(map[string]struct{}, len(cfg.Users))
		for _, u := range cfg.Users {
			allowed[u] = struct{}{}
		}
	}

	cfg.Groups = make([]schema.GroupDefinition, 0, len(input.UserGroups))
	for _, name := range schema.SortedKeys(input.UserGroups) {
		var members []string
		for _, m := range input.UserGroups[name] {
			if allowed != nil {
				if _, ok := allowed[strings.TrimSpace(m)]; !ok {
					continue
				}
			}
			members = append(members, m)
		}
		cfg.Groups = append(cfg.Groups, schema.GroupDefinition{Name: name, Members: members})
	}
	return nil
}

// processTimeRange parses --since and --until into the activity window.
// Both are optional; a missing bound leaves that side of the window open.
func processTimeRange(cfg *Config, input *ConfigRawInput, now time.Time) error {
	cfg.Window = schema.ActivityWindow{}

	if input.Since != "" {
		t, err := ParseTimeInput(input.Since, now, false)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		cfg.Window.Since = &t
	}
	if input.Until != "" {
		t, err := ParseTimeInput(input.Until, now, true)
		if err != nil {
			return fmt.Errorf("invalid --until: %w", err)
		}
		cfg.Window.Until = &t
	}

	if cfg.Window.Since != nil && cfg.Window.Until != nil && cfg.Window.Since.After(*cfg.Window.Until) {
		return fmt.Errorf("start time (%s) cannot be after end time (%s)",
			cfg.Window.Since.Format(DateTimeFormat), cfg.Window.Until.Format(DateTimeFormat))
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ParseDatabaseBackend lowercases and validates a backend name.
func ParseDatabaseBackend(s string) (schema.DatabaseBackend, error) {
	backend := schema.DatabaseBackend(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid backend '%s'. must be sqlite, mysql, postgresql, none", s)
	}
	return backend, nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	var err error
	if cfg.CacheBackend, err = ParseDatabaseBackend(input.CacheBackend); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	if cfg.HistoryBackend, err = ParseDatabaseBackend(input.HistoryBackend); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	// For SQLite, resolve to actual file paths to catch default path conflicts
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		historyPath := cfg.HistoryDBConnect
		if historyPath == "" {
			historyPath = GetHistoryDBFilePath()
		}
		if cachePath == historyPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}
	return nil
}

var (
	sshRepoRe   = regexp.MustCompile(`^git@[^:]+:(.+?)(?:\.git)?$`)
	httpsRepoRe = regexp.MustCompile(`^https?://[^/]+/(.+?)(?:\.git)?$`)
	ownerRepoRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)
)

// NormalizeRepository turns owner/repo, https://host/owner/repo(.git) and
// git@host:owner/repo(.git) into owner/repo.
func NormalizeRepository(s string) (string, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	out := s
	if m := sshRepoRe.FindStringSubmatch(s); m != nil {
		out = m[1]
	} else if m := httpsRepoRe.FindStringSubmatch(s); m != nil {
		out = m[1]
	}
	for strings.HasSuffix(out, ".git") {
		out = strings.TrimSuffix(out, ".git")
	}
	if !ownerRepoRe.MatchString(out) {
		return "", fmt.Errorf("invalid repository %q. Expected owner/repo or a clone URL", s)
	}
	return out, nil
}

// DefaultOutputFile derives "<config_basename>_statistics.<ext>" from the config path.
func DefaultOutputFile(configPath string, mode schema.OutputMode) string {
	return configBasename(configPath) + "_statistics." + OutputExtension(mode)
}

// DefaultRequestLogFile derives "<config_basename>_requests.log" from the config path.
func DefaultRequestLogFile(configPath string) string {
	return configBasename(configPath) + "_requests.log"
}

// OutputExtension returns the file extension used for an output mode.
func OutputExtension(mode schema.OutputMode) string {
	switch mode {
	case schema.MarkdownOut:
		return "md"
	case schema.TextOut:
		return "txt"
	default:
		return string(mode)
	}
}

func configBasename(configPath string) string {
	if configPath == "" {
		return "prstats"
	}
	base := filepath.Base(configPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// RevalidateRun narrows a cloned config with per-request time and repository inputs,
// as used by the MCP tools. Empty inputs keep the configured values.
func RevalidateRun(cfg *Config, since, until, repos string, now time.Time) error {
	if since != "" || until != "" {
		input := &ConfigRawInput{Since: since, Until: until}
		if input.Since == "" && cfg.Window.Since != nil {
			input.Since = cfg.Window.Since.Format(time.RFC3339Nano)
		}
		if input.Until == "" && cfg.Window.Until != nil {
			input.Until = cfg.Window.Until.Format(time.RFC3339Nano)
		}
		if err := processTimeRange(cfg, input, now); err != nil {
			return err
		}
	}
	if strings.TrimSpace(repos) != "" {
		return processRepositories(cfg, &ConfigRawInput{Repositories: cfg.Repositories, Repos: repos})
	}
	return nil
}
