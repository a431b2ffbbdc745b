package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"receiptflow/internal/archive"
	"receiptflow/internal/auth"
	"receiptflow/internal/config"
	"receiptflow/internal/drive"
	"receiptflow/internal/logger"
	"receiptflow/internal/ocr"
	"receiptflow/internal/pipeline"
	"receiptflow/internal/receipt"
	"receiptflow/internal/report"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Archive receipt images from Drive and report them to a spreadsheet",
	Long: `Run the receipt pipeline once: list the configured Google Drive folder,
archive each new image to the Cloud Storage bucket, extract its text with
the OCR backend, parse the receipt fields, and append a report row.

Images whose destination path already exists in the bucket are skipped,
so the command is safe to re-run against an unchanged folder.

Required environment variables (flags override the matching values):
  DRIVE_FOLDER_ID - Google Drive folder holding the receipt images
  GCS_BUCKET      - Cloud Storage bucket receiving the archived copies

Credentials come from GOOGLE_APPLICATION_CREDENTIALS or
GOOGLE_CREDENTIALS when set; otherwise an interactive OAuth flow runs
against the client secret file and caches its token locally.`,
	Example: `  # Archive new receipts and append rows to the configured sheet
  receiptflow process -s <sheet-id>

  # Extended variant (adds the shop address column)
  receiptflow process --variant extended -s <sheet-id>

  # Offline run: write the report to a local workbook instead of Sheets
  receiptflow process --xlsx receipts.xlsx

  # Use the Document AI OCR backend
  receiptflow process --ocr documentai -s <sheet-id>`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringP("bucket", "b", "", "Cloud Storage bucket name")
	processCmd.Flags().StringP("folder", "f", "", "destination folder prefix inside the bucket")
	processCmd.Flags().StringP("sheet", "s", "", "Google spreadsheet ID for the report")
	processCmd.Flags().String("sheet-name", "", "sheet name inside the spreadsheet")
	processCmd.Flags().String("drive-folder", "", "Google Drive folder ID to read receipts from")
	processCmd.Flags().String("variant", "", "pipeline variant: basic or extended")
	processCmd.Flags().String("ocr", "", "OCR backend: vision or documentai")
	processCmd.Flags().Int("top", 0, "maximum annotations requested per image")
	processCmd.Flags().String("xlsx", "", "write the report to a local workbook instead of Google Sheets")
	processCmd.Flags().Bool("no-browser", false, "do not open the spreadsheet in a browser on success")
	processCmd.Flags().Int("timeout", 300, "run timeout in seconds")
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process")

	cfg := config.FromEnv()
	applyFlagOverrides(cmd, cfg)

	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	noBrowser, _ := cmd.Flags().GetBool("no-browser")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	if err := cfg.Validate(); err != nil {
		return err
	}
	if xlsxPath == "" && cfg.SheetID == "" {
		return fmt.Errorf("a report destination is required: pass --sheet (or set SHEET_ID), or use --xlsx for a local workbook")
	}

	log.Info().
		Str("drive_folder", cfg.DriveFolderID).
		Str("bucket", cfg.GCSBucket).
		Str("prefix", cfg.GCSFolder).
		Str("variant", cfg.Variant).
		Str("ocr", cfg.OCRBackend).
		Msg("Starting receipt pipeline")

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	authOpts, err := auth.ClientOptions(ctx, auth.Options{
		ClientSecretFile: cfg.OAuthClientSecretFile,
		TokenFile:        cfg.OAuthTokenFile,
	})
	if err != nil {
		return handleAuthError(err)
	}

	source, err := drive.NewService(ctx, cfg.DriveFolderID, authOpts...)
	if err != nil {
		return fmt.Errorf("failed to create Drive service: %w", err)
	}

	store, err := archive.NewStore(ctx, cfg.GCSBucket, authOpts...)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close storage client")
		}
	}()

	extractor, err := createExtractor(ctx, cfg, authOpts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := extractor.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close OCR client")
		}
	}()

	parser, err := receipt.NewHeuristicParser(receipt.Variant(cfg.Variant))
	if err != nil {
		return err
	}

	var writer report.RowWriter
	var sheetsWriter *report.SheetsWriter
	if xlsxPath != "" {
		writer = report.NewXLSXWriter(xlsxPath, cfg.SheetName)
	} else {
		sheetsWriter, err = report.NewSheetsWriter(ctx, cfg.SheetID, cfg.SheetName, authOpts...)
		if err != nil {
			return fmt.Errorf("failed to create sheets writer: %w", err)
		}
		writer = sheetsWriter
	}

	startTime := time.Now()
	result, err := pipeline.Run(ctx, pipeline.Services{
		Source:    source,
		Archive:   store,
		Extractor: extractor,
		Parser:    parser,
		Report:    writer,
	}, pipeline.Options{
		Folder:  cfg.GCSFolder,
		Variant: receipt.Variant(cfg.Variant),
	})
	if err != nil {
		return handleProcessError(err, log)
	}

	log.Info().
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int64("cells", result.CellsWritten).
		Dur("duration", time.Since(startTime)).
		Msg("Pipeline run completed")

	fmt.Printf("DONE: processed %d receipt(s), skipped %d already archived, wrote %d cells\n",
		result.Processed, result.Skipped, result.CellsWritten)

	if sheetsWriter != nil {
		url := sheetsWriter.URL()
		fmt.Printf("Report: %s\n", url)
		if !noBrowser {
			if openErr := browser.OpenURL(url); openErr != nil {
				log.Warn().Err(openErr).Msg("Could not open browser")
			}
		}
	} else {
		fmt.Printf("Report: %s\n", xlsxPath)
	}

	return nil
}

// applyFlagOverrides folds explicitly set flags into the env config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("bucket"); v != "" {
		cfg.GCSBucket = v
	}
	if v, _ := cmd.Flags().GetString("folder"); v != "" {
		cfg.GCSFolder = v
	}
	if v, _ := cmd.Flags().GetString("sheet"); v != "" {
		cfg.SheetID = v
	}
	if v, _ := cmd.Flags().GetString("sheet-name"); v != "" {
		cfg.SheetName = v
	}
	if v, _ := cmd.Flags().GetString("drive-folder"); v != "" {
		cfg.DriveFolderID = v
	}
	if v, _ := cmd.Flags().GetString("variant"); v != "" {
		cfg.Variant = v
	}
	if v, _ := cmd.Flags().GetString("ocr"); v != "" {
		cfg.OCRBackend = v
	}
	if v, _ := cmd.Flags().GetInt("top"); v > 0 {
		cfg.VisionMaxResults = v
	}
}

// createExtractor builds the configured OCR backend.
func createExtractor(ctx context.Context, cfg *config.Config, authOpts []option.ClientOption) (ocr.TextExtractor, error) {
	switch cfg.OCRBackend {
	case "documentai":
		return ocr.NewDocumentAIExtractor(ctx, ocr.DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		}, authOpts...)
	default:
		return ocr.NewVisionExtractor(ctx, cfg.VisionMaxResults, authOpts...)
	}
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling run")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}

// handleAuthError gives credential failures an actionable message.
func handleAuthError(err error) error {
	if errors.Is(err, auth.ErrMissingClientSecret) {
		return fmt.Errorf("Google credentials not configured. Either:\n\n"+
			"1. Export GOOGLE_APPLICATION_CREDENTIALS with a service account JSON path, or\n"+
			"2. Export GOOGLE_CREDENTIALS with inline JSON, or\n"+
			"3. Place an OAuth client secret file at the configured path for the interactive flow\n\n"+
			"Original error: %w", err)
	}
	return fmt.Errorf("credential bootstrap failed: %w", err)
}

// handleProcessError translates pipeline failures for the CLI user.
func handleProcessError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Pipeline run failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, pipeline.ErrNoSourceFiles):
		return fmt.Errorf("no receipt images found in the Drive folder; nothing to do")
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("run timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("run was canceled")
	case errors.Is(err, receipt.ErrShortReceipt):
		return fmt.Errorf("a receipt's text was too short for the extended variant's address heuristic; re-run with --variant basic or fix the source image: %w", err)
	case errors.Is(err, ocr.ErrImageTooLarge):
		return fmt.Errorf("a receipt image exceeds the 20MB annotation limit: %w", err)
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "oauth2: "):
		return fmt.Errorf("Google authentication failed. Delete the cached token file to re-run the authorization flow, or check the service account credentials.\n\nOriginal error: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED") ||
		strings.Contains(errStr, "forbidden"):
		return fmt.Errorf("permission denied. The account needs Drive read, Storage write, Vision and Sheets access")
	case strings.Contains(errStr, "quota"):
		return fmt.Errorf("API quota exceeded. Check the project quotas in the Google Cloud Console")
	default:
		return fmt.Errorf("could not process receipts: %w", err)
	}
}
