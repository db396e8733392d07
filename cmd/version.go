package cmd

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/huangsam/prstats/core"
	"github.com/huangsam/prstats/internal/iocache"
	"github.com/huangsam/prstats/schema"
	"github.com/spf13/cobra"
)

// versionCmd reports the build and the data formats this binary reads and writes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of prstats.",
	Long: `Display the release, the build, and the storage formats of this binary.

The cache format and history schema versions tell whether an existing cache
will be reused and whether "prstats history migrate" is needed.`,
	Run: func(cmd *cobra.Command, _ []string) {
		writeVersion(cmd.OutOrStdout(), resolveVersion())
	},
}

// resolveVersion falls back to the module version when no release version was linked in,
// as with "go install github.com/huangsam/prstats@vX".
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return version
}

func writeVersion(w io.Writer, release string) {
	history := "unknown"
	if v, err := iocache.LatestHistoryVersion(schema.SQLiteBackend); err == nil {
		history = fmt.Sprintf("v%d", v)
	}
	_, _ = fmt.Fprintf(w, "prstats CLI\n")
	_, _ = fmt.Fprintf(w, "  Version:        %s\n", release)
	_, _ = fmt.Fprintf(w, "  Commit:         %s\n", commit)
	_, _ = fmt.Fprintf(w, "  Built:          %s (%s)\n", date, runtime.Version())
	_, _ = fmt.Fprintf(w, "  Cache format:   v%d\n", core.CacheFormatVersion)
	_, _ = fmt.Fprintf(w, "  History schema: %s\n", history)
	_, _ = fmt.Fprintf(w, "  Thresholds:     %d members per group, %d active\n", schema.MinGroupSize, schema.MinActiveMembers)
}
