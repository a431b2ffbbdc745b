// Package report appends one row per processed receipt to a report sink.
// Google Sheets is the default sink; a local XLSX workbook is available
// for offline runs. Rows are append-only, there is no update or delete
// path and no deduplication at the report level.
package report

import (
	"context"
	"fmt"

	"receiptflow/internal/archive"
	"receiptflow/internal/receipt"
)

// Entry is everything known about one processed receipt when its row is
// written.
type Entry struct {
	Fields       receipt.Fields
	Ref          archive.ObjectRef
	FileName     string
	ModifiedTime string
}

// RowWriter appends a single row and reports how many cells were written.
// A sink that cannot confirm the append must return an error; the
// pipeline treats that as fatal.
type RowWriter interface {
	Append(ctx context.Context, row []interface{}) (int64, error)
}

// BuildRow produces the ordered cell values for an entry. The basic
// variant writes date, hyperlink, shop name, total and modified time; the
// extended variant inserts the address before the total.
func BuildRow(e Entry, variant receipt.Variant) []interface{} {
	link := Hyperlink(e.Ref, e.FileName)

	if variant == receipt.VariantExtended {
		return []interface{}{
			e.Fields.Date,
			link,
			e.Fields.ShopName,
			e.Fields.Address,
			e.Fields.Total,
			e.ModifiedTime,
		}
	}
	return []interface{}{
		e.Fields.Date,
		link,
		e.Fields.ShopName,
		e.Fields.Total,
		e.ModifiedTime,
	}
}

// Hyperlink builds the spreadsheet formula linking the row to its
// archived object, labeled with the source file name.
func Hyperlink(ref archive.ObjectRef, label string) string {
	return fmt.Sprintf(`=HYPERLINK("storage.cloud.google.com/%s/%s", "%s")`, ref.Bucket, ref.Path, label)
}
