package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/huangsam/prstats/schema"
)

// Color variables for console output.
var (
	BlockedColor  = color.New(color.FgRed, color.Bold)     // BlockedColor marks suppressed output.
	OverrideColor = color.New(color.FgMagenta, color.Bold) // OverrideColor marks output released by override.
	WarnColor     = color.New(color.FgYellow)              // WarnColor marks degraded data.
	ApprovedColor = color.New(color.FgGreen)               // ApprovedColor marks a clean pass.
	InfoColor     = color.New(color.FgCyan)                // InfoColor is for headings.
)

// GetColorLabel returns a colored policy state label for console output (table).
func GetColorLabel(state schema.PolicyState) string {
	text := string(state)
	switch state {
	case schema.BlockedState, schema.AbortedState:
		return BlockedColor.Sprint(text)
	case schema.ApprovedWithOverrideState:
		return OverrideColor.Sprint(text)
	case schema.ApprovedState:
		return ApprovedColor.Sprint(text)
	default:
		return InfoColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the response cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".prstats_cache.db"
	}
	return filepath.Join(homeDir, ".prstats_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".prstats_history.db"
	}
	return filepath.Join(homeDir, ".prstats_history.db")
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
