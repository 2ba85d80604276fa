package cmd

import (
	"github.com/huangsam/sca/internal/agentdb"
	"github.com/huangsam/sca/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the SCA MCP server",
	Long:  `Launch an MCP server that allows AI agents to list SCA policies and checks via standard tools.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr so stdio stays clean for the protocol.
		return sharedSetup(cmd, args, nil)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := agentdb.Open(cfg.Backend, cfg.DBConnect)
		if err != nil {
			return err
		}
		return mcp.StartMCPServer(rootCtx, cfg, store)
	},
}
