package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	priceOfferFile string
	priceCurrency  string
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Price a flight offer returned by search",
	Long: `Price a flight offer. The offer file must contain the full offer as
preserved under the "full" key of a search result, so the API receives the
exact representation it previously handed out.`,
	RunE: runPrice,
}

func init() {
	priceCmd.Flags().StringVar(&priceOfferFile, "offer-file", "", "path to a JSON file with the full flight offer (required)")
	priceCmd.Flags().StringVar(&priceCurrency, "currency", "", "currency code")

	_ = priceCmd.MarkFlagRequired("offer-file")

	rootCmd.AddCommand(priceCmd)
}

func runPrice(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(priceOfferFile)
	if err != nil {
		return fmt.Errorf("failed to read offer file: %w", err)
	}

	var offer map[string]interface{}
	if err := json.Unmarshal(data, &offer); err != nil {
		return fmt.Errorf("offer file is not valid JSON: %w", err)
	}

	gw, cleanup, err := buildGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	priceArgs := map[string]interface{}{
		"flight_offer": offer,
	}
	if priceCurrency != "" {
		priceArgs["currency"] = priceCurrency
	}

	env := gw.PriceOffer(cmd.Context(), priceArgs, preference())

	return printEnvelope(env)
}
