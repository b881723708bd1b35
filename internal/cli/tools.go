package cli

import (
	"github.com/spf13/cobra"
)

var toolsResources bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List tools exposed by the MCP server",
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsResources, "resources", false, "list resources instead of tools")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	gw, cleanup, err := buildGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	if toolsResources {
		return printEnvelope(gw.ListMCPResources(cmd.Context()))
	}
	return printEnvelope(gw.ListMCPTools(cmd.Context()))
}
