package cmd

import (
	"os"

	"github.com/huangsam/prstats/core"
	"github.com/huangsam/prstats/internal/outwriter"
	"github.com/spf13/cobra"
)

// checkCmd focused on CI/CD policy enforcement.
var checkCmd = &cobra.Command{
	Use:   "check <config_path>",
	Short: "Check data protection thresholds without computing statistics",
	Long: `Collect pull requests and count the active members of every group and of the
whole run. No statistics are computed.

Exits with code 3 when any threshold is violated, which makes it usable as a gate
before a scheduled report.

Examples:
  # Would last month's report be published?
  prstats check team.yaml --since "1 month ago"

  # Machine readable result
  prstats check team.yaml --output json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		rt, cleanup, err := buildRuntime(os.Stdin)
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := core.ExecuteCheck(rootCtx, cfg, rt)
		if err != nil {
			return err
		}
		if err := outwriter.NewOutWriter().WriteCheck(os.Stdout, result, cfg); err != nil {
			return err
		}
		if !result.Passed() {
			return errViolations
		}
		return nil
	},
}
