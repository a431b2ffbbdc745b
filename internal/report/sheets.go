package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"receiptflow/internal/logger"
)

// SheetsWriter appends rows to a named sheet in a Google spreadsheet.
type SheetsWriter struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	log           zerolog.Logger
}

// NewSheetsWriter creates a writer for the given spreadsheet and sheet.
func NewSheetsWriter(ctx context.Context, spreadsheetID, sheetName string, opts ...option.ClientOption) (*SheetsWriter, error) {
	const op = "report.NewSheetsWriter"

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &SheetsWriter{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           logger.WithComponent("sheets"),
	}, nil
}

// Append adds one row after the sheet's current data and returns the
// number of cells written. A response without an update confirmation is
// an error.
func (w *SheetsWriter) Append(ctx context.Context, row []interface{}) (int64, error) {
	const op = "report.Append"

	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{row},
	}

	rsp, err := w.service.Spreadsheets.Values.Append(
		w.spreadsheetID,
		w.sheetName,
		valueRange,
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to append row to sheet %s: %w", op, w.sheetName, err)
	}
	if rsp == nil || rsp.Updates == nil {
		return 0, fmt.Errorf("%s: append to sheet %s returned no update confirmation", op, w.sheetName)
	}

	w.log.Debug().
		Str("sheet", w.sheetName).
		Int64("cells", rsp.Updates.UpdatedCells).
		Msg("Appended report row")

	return rsp.Updates.UpdatedCells, nil
}

// URL returns the browser URL of the spreadsheet.
func (w *SheetsWriter) URL() string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit", w.spreadsheetID)
}
