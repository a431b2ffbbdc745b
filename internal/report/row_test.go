package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receiptflow/internal/archive"
	"receiptflow/internal/receipt"
	"receiptflow/internal/report"
)

func testEntry() report.Entry {
	return report.Entry{
		Fields: receipt.Fields{
			ShopName: "Shop X",
			Address:  "Ln1 Ln2 Ln3",
			Date:     "2023-05-01",
			Total:    "45.00",
		},
		Ref:          archive.ObjectRef{Bucket: "cloud-workshop-bucket", Path: "receipts/receipt02.jpg"},
		FileName:     "receipt02.jpg",
		ModifiedTime: "2023-05-01T10:00:00.000Z",
	}
}

func TestHyperlink(t *testing.T) {
	link := report.Hyperlink(archive.ObjectRef{Bucket: "b", Path: "receipts/x.jpg"}, "x.jpg")
	assert.Equal(t, `=HYPERLINK("storage.cloud.google.com/b/receipts/x.jpg", "x.jpg")`, link)
}

func TestBuildRowBasic(t *testing.T) {
	row := report.BuildRow(testEntry(), receipt.VariantBasic)
	require.Len(t, row, 5)
	assert.Equal(t, "2023-05-01", row[0])
	assert.Equal(t, `=HYPERLINK("storage.cloud.google.com/cloud-workshop-bucket/receipts/receipt02.jpg", "receipt02.jpg")`, row[1])
	assert.Equal(t, "Shop X", row[2])
	assert.Equal(t, "45.00", row[3])
	assert.Equal(t, "2023-05-01T10:00:00.000Z", row[4])
}

func TestBuildRowExtended(t *testing.T) {
	row := report.BuildRow(testEntry(), receipt.VariantExtended)
	require.Len(t, row, 6)
	assert.Equal(t, "Shop X", row[2])
	assert.Equal(t, "Ln1 Ln2 Ln3", row[3])
	assert.Equal(t, "45.00", row[4])
	assert.Equal(t, "2023-05-01T10:00:00.000Z", row[5])
}
