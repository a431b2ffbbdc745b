package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"receiptflow/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "receiptflow",
	Short: "receiptflow - archive receipt images and report them to a spreadsheet",
	Long: `receiptflow moves receipt images from a Google Drive folder into a
Cloud Storage bucket, extracts their text with Google Cloud Vision (or a
Document AI OCR processor), scrapes shop name, address, date and total
price out of the text, and appends one row per receipt to a Google Sheet.

Files already present in the bucket under the destination prefix are
skipped, so repeated runs only pick up new receipts.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("receiptflow executed")

		fmt.Println("receiptflow - receipt archive pipeline")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}
