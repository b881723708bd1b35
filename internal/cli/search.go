package cli

import (
	"github.com/spf13/cobra"
)

var (
	searchFrom     string
	searchTo       string
	searchDate     string
	searchReturn   string
	searchAdults   int
	searchCabin    string
	searchCurrency string
	searchNonStop  bool
	searchMaxPrice int
	searchMax      int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search flight offers between two airports",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "origin IATA code (required)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "destination IATA code (required)")
	searchCmd.Flags().StringVar(&searchDate, "date", "", "departure date YYYY-MM-DD (required)")
	searchCmd.Flags().StringVar(&searchReturn, "return", "", "return date YYYY-MM-DD")
	searchCmd.Flags().IntVar(&searchAdults, "adults", 1, "number of adult travelers (1-9)")
	searchCmd.Flags().StringVar(&searchCabin, "cabin", "ECONOMY", "cabin class")
	searchCmd.Flags().StringVar(&searchCurrency, "currency", "", "currency code (defaults from config)")
	searchCmd.Flags().BoolVar(&searchNonStop, "non-stop", false, "non-stop flights only")
	searchCmd.Flags().IntVar(&searchMaxPrice, "max-price", 0, "maximum total price")
	searchCmd.Flags().IntVar(&searchMax, "max", 0, "maximum number of offers (defaults from config)")

	_ = searchCmd.MarkFlagRequired("from")
	_ = searchCmd.MarkFlagRequired("to")
	_ = searchCmd.MarkFlagRequired("date")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	gw, cleanup, err := buildGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	searchArgs := map[string]interface{}{
		"origin":         searchFrom,
		"destination":    searchTo,
		"departure_date": searchDate,
		"adults":         searchAdults,
		"cabin":          searchCabin,
	}
	if searchReturn != "" {
		searchArgs["return_date"] = searchReturn
	}
	if searchCurrency != "" {
		searchArgs["currency"] = searchCurrency
	}
	if cmd.Flags().Changed("non-stop") {
		searchArgs["non_stop"] = searchNonStop
	}
	if searchMaxPrice > 0 {
		searchArgs["max_price"] = searchMaxPrice
	}
	if searchMax > 0 {
		searchArgs["max_results"] = searchMax
	}

	env := gw.SearchFlights(cmd.Context(), searchArgs, preference())

	return printEnvelope(env)
}
