package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"receiptflow/internal/logger"
	"receiptflow/internal/receipt"
)

var parseCmd = &cobra.Command{
	Use:   "parse [text-file]",
	Short: "Run the receipt field heuristics against a saved OCR text blob",
	Long: `Parse a text file containing raw OCR output and print the fields the
heuristics would extract: shop name, address (extended variant), date and
total price.

The heuristics are line-position and substring based and need ongoing
tuning as receipt formats vary; this command makes that tuning possible
without any cloud calls.`,
	Example: `  # Inspect what the default heuristics extract
  receiptflow parse blob.txt

  # Extended variant (address from lines 2-4), JSON output
  receiptflow parse blob.txt --variant extended --json`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

// parseOutput is the JSON shape printed with --json.
type parseOutput struct {
	ShopName string `json:"shop_name"`
	Address  string `json:"address,omitempty"`
	Date     string `json:"date"`
	Total    string `json:"total"`
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().String("variant", "basic", "parser variant: basic or extended")
	parseCmd.Flags().Bool("json", false, "Output as JSON")
}

func runParse(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("parse")

	variant, _ := cmd.Flags().GetString("variant")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read text file: %w", err)
	}

	parser, err := receipt.NewHeuristicParser(receipt.Variant(variant))
	if err != nil {
		return err
	}

	fields, err := parser.Parse(string(data))
	if err != nil {
		return fmt.Errorf("could not parse %s: %w", args[0], err)
	}

	log.Debug().
		Str("file", args[0]).
		Str("variant", variant).
		Msg("Parsed receipt text")

	if jsonOutput {
		out, err := json.MarshalIndent(parseOutput{
			ShopName: fields.ShopName,
			Address:  fields.Address,
			Date:     fields.Date,
			Total:    fields.Total,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Shop name: %s\n", fields.ShopName)
	if variant == string(receipt.VariantExtended) {
		fmt.Printf("Address:   %s\n", fields.Address)
	}
	fmt.Printf("Date:      %s\n", fields.Date)
	fmt.Printf("Total:     %s\n", fields.Total)
	return nil
}
