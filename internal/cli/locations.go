package cli

import (
	"github.com/spf13/cobra"
)

var locationsLimit int

var locationsCmd = &cobra.Command{
	Use:   "locations <query>",
	Short: "Autocomplete cities and airports by free text",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocations,
}

func init() {
	locationsCmd.Flags().IntVar(&locationsLimit, "limit", 5, "maximum number of matches (1-20)")
	rootCmd.AddCommand(locationsCmd)
}

func runLocations(cmd *cobra.Command, args []string) error {
	gw, cleanup, err := buildGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	env := gw.AutocompleteLocations(cmd.Context(), map[string]interface{}{
		"query": args[0],
		"limit": locationsLimit,
	}, preference())

	return printEnvelope(env)
}
