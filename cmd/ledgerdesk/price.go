package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fathom/ledgerdesk/internal/config"
	"github.com/fathom/ledgerdesk/internal/pricelookup"
	"github.com/fathom/ledgerdesk/internal/ui"
)

var priceCmd = &cobra.Command{
	Use:     "price <description>",
	GroupID: "data",
	Short:   "Suggest a market rate for a service or item",
	Long: `Ask for a typical price range for a service or item, to help draft
invoice line items.

Requires an API key in the config (pricing.api_key) or the
LEDGERDESK_PRICING_API_KEY environment variable.

Example usage:
  ledgerdesk price "logo design for a bakery"
  ledgerdesk price --currency USD "one day of plumbing work"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if cfg.Pricing.APIKey == "" {
			return fmt.Errorf("no pricing API key configured")
		}

		currency := cfg.Pricing.Currency
		if flag, _ := cmd.Flags().GetString("currency"); flag != "" {
			currency = flag
		}

		description := strings.Join(args, " ")
		client := pricelookup.NewClient(cfg.Pricing.APIKey)

		fmt.Printf("Looking up a rate for %s...\n", ui.Accent(description))
		s, err := client.Suggest(cmd.Context(), description, currency, cfg.Pricing.Region)
		if err != nil {
			return err
		}

		fmt.Printf("\nSuggested range: %s to %s\n",
			ui.Amount(s.Low.StringFixed(2), s.Currency),
			ui.Amount(s.High.StringFixed(2), s.Currency))
		if s.Notes != "" {
			fmt.Println(ui.Faint(s.Notes))
		}
		return nil
	},
}

func init() {
	priceCmd.Flags().String("currency", "", "Currency code (overrides config)")
	rootCmd.AddCommand(priceCmd)
}
