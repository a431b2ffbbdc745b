package report

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"receiptflow/internal/logger"
)

// XLSXWriter appends rows to a sheet in a local workbook, for runs
// without a Google spreadsheet. The workbook is created on first use and
// saved after every append; volumes are small.
type XLSXWriter struct {
	path      string
	sheetName string
	log       zerolog.Logger
}

// NewXLSXWriter creates a writer for the given workbook path and sheet.
func NewXLSXWriter(path, sheetName string) *XLSXWriter {
	return &XLSXWriter{
		path:      path,
		sheetName: sheetName,
		log:       logger.WithComponent("xlsx"),
	}
}

// Append adds one row after the sheet's current data and returns the
// number of cells written. Formula cells (leading "=") are stored as
// formulas so the hyperlink stays clickable.
func (w *XLSXWriter) Append(ctx context.Context, row []interface{}) (int64, error) {
	const op = "report.XLSXWriter.Append"

	f, err := w.open()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	rows, err := f.GetRows(w.sheetName)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to read sheet %s: %w", op, w.sheetName, err)
	}
	rowNum := len(rows) + 1

	for i, value := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		if s, ok := value.(string); ok && strings.HasPrefix(s, "=") {
			err = f.SetCellFormula(w.sheetName, cell, strings.TrimPrefix(s, "="))
		} else {
			err = f.SetCellValue(w.sheetName, cell, value)
		}
		if err != nil {
			return 0, fmt.Errorf("%s: failed to set cell %s: %w", op, cell, err)
		}
	}

	if err := f.SaveAs(w.path); err != nil {
		return 0, fmt.Errorf("%s: failed to save workbook %s: %w", op, w.path, err)
	}

	w.log.Debug().
		Str("workbook", w.path).
		Int("row", rowNum).
		Int("cells", len(row)).
		Msg("Appended report row")

	return int64(len(row)), nil
}

// open loads the existing workbook or starts a new one with the target
// sheet present.
func (w *XLSXWriter) open() (*excelize.File, error) {
	if _, err := os.Stat(w.path); err == nil {
		f, err := excelize.OpenFile(w.path)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook %s: %w", w.path, err)
		}
		idx, err := f.GetSheetIndex(w.sheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to locate sheet %s: %w", w.sheetName, err)
		}
		if idx == -1 {
			if _, err := f.NewSheet(w.sheetName); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to create sheet %s: %w", w.sheetName, err)
			}
		}
		return f, nil
	}

	f := excelize.NewFile()
	if w.sheetName != "Sheet1" {
		if _, err := f.NewSheet(w.sheetName); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", w.sheetName, err)
		}
	}
	return f, nil
}
