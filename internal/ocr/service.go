// Package ocr extracts text from receipt images.
//
// Two backends implement the same interface: Google Cloud Vision text
// detection (the default) and a Document AI OCR processor. Both take the
// raw image bytes inline; the client libraries handle transport encoding.
//
// Required environment variables (either backend):
//   - GOOGLE_APPLICATION_CREDENTIALS: path to service account JSON, OR
//   - GOOGLE_CREDENTIALS: inline JSON credentials string
//
// Cloud Vision limits inline images to 20MB; receipts are comfortably
// below that, but the limit is enforced up front so oversized inputs fail
// with a typed error instead of an API rejection.
package ocr

import "context"

// TextExtractor turns one image into a raw text blob.
// An image with no detectable text yields "" and a nil error; a missing
// or failed annotation response is an error.
type TextExtractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (string, error)

	// Close releases the underlying API client.
	Close() error
}

// MaxImageSizeBytes is the maximum image size accepted for inline
// annotation (20MB, the Vision API synchronous limit).
const MaxImageSizeBytes = 20 * 1024 * 1024
