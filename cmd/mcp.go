package cmd

import (
	"github.com/huangsam/prstats/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp <config_path>",
	Short: "Start the prstats MCP server",
	Long: `Launch an MCP server on stdio that lets AI agents run threshold checks and
fetch group statistics. Blocked runs come back as tool errors and the data
protection override is never available over MCP.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		// stdin carries the protocol, so nothing may be read from it for confirmation.
		rt, cleanup, err := buildRuntime(nil)
		if err != nil {
			return err
		}
		defer cleanup()
		return mcp.StartMCPServer(rootCtx, cfg, rt)
	},
}
