package cmd

import (
	"github.com/huangsam/estateprep/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the estateprep MCP server",
	Long: `Launch an MCP server on stdio that lets agents transform records with a stored state.

Tools:
  transform_records - Transform a JSON batch of records into feature vectors
  describe_state    - Describe a stored fitted state
  list_states       - List stored state keys

The state under --state-key must exist; it is loaded once at startup.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr, so stdout stays reserved for the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, storeManager)
	},
}
