package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrImageTooLarge is returned when the image exceeds the inline
	// annotation size limit.
	ErrImageTooLarge = errors.New("image size exceeds the maximum limit (20MB)")

	// ErrAnnotateFailed is returned when the annotation API fails to
	// process the image.
	ErrAnnotateFailed = errors.New("text annotation failed")

	// ErrNoResponse is returned when the annotation API returns no
	// response for the submitted image.
	ErrNoResponse = errors.New("no response from annotation API")

	// ErrMissingCredentials is returned when no Google Cloud credentials
	// are available to construct a client.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")
)

// ExtractError wraps errors with context about the extraction failure.
type ExtractError struct {
	// Op is the operation that failed (e.g., "Extract").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *ExtractError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapExtractError wraps an error as an ExtractError if it isn't already one.
func WrapExtractError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var xerr *ExtractError
	if errors.As(err, &xerr) {
		return err // Already wrapped
	}

	return &ExtractError{Op: op, Err: err, Details: details}
}
