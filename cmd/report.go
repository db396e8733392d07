package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/huangsam/prstats/core"
	"github.com/huangsam/prstats/core/policy"
	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/internal/outwriter"
	"github.com/spf13/cobra"
)

// reportCmd computes and publishes the statistics.
var reportCmd = &cobra.Command{
	Use:   "report <config_path>",
	Short: "Compute pull request statistics per repository and per group",
	Long: `Collect pull requests of the configured repositories and report merge, review and
comment statistics per repository and per user group.

Before any statistics are computed, every group and the run as a whole must have at
least 5 active members, meaning people who authored a commit inside the window.
When a threshold is not met, nothing is published and the command exits with code 3.

With --overwrite-data-protection a warning is shown and the statistics are only
published after typing 'y' or 'yes'. Any other answer exits with code 4.

Examples:
  # Last quarter as Markdown (written to team_statistics.md)
  prstats report team.yaml --since "3 months ago"

  # Two repositories of the config, JSON on stdout
  prstats report team.yaml --repos acme/api,acme/web --output json --output-file -

  # Fixed window with request logging
  prstats report team.yaml --since 2026-01-01 --until 2026-03-31 --verbose`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		rt, cleanup, err := buildRuntime(os.Stdin)
		if err != nil {
			return err
		}
		defer cleanup()

		start := time.Now()
		report, err := core.ExecuteReport(rootCtx, cfg, rt)
		if err != nil {
			var blocked *policy.BlockedError
			if errors.As(err, &blocked) {
				if werr := outwriter.NewOutWriter().WriteBlocked(os.Stderr, blocked.Blocked()); werr != nil {
					contract.LogWarn("Failed to write policy results", werr)
				}
			}
			return err
		}
		return outwriter.NewOutWriter().WriteReport(report, cfg, time.Since(start))
	},
}
