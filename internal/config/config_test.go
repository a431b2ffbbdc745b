package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receiptflow/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DRIVE_FOLDER_ID", "folder123")
	t.Setenv("GCS_BUCKET", "test-bucket")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "receipts", cfg.GCSFolder)
	assert.Equal(t, "Sheet1", cfg.SheetName)
	assert.Equal(t, "vision", cfg.OCRBackend)
	assert.Equal(t, 5, cfg.VisionMaxResults)
	assert.Equal(t, "basic", cfg.Variant)
	assert.Equal(t, "client_secret.json", cfg.OAuthClientSecretFile)
	assert.Equal(t, "token.json", cfg.OAuthTokenFile)
}

func TestLoadMissingDriveFolder(t *testing.T) {
	t.Setenv("DRIVE_FOLDER_ID", "")
	t.Setenv("GCS_BUCKET", "test-bucket")

	_, err := config.Load()
	assert.ErrorContains(t, err, "DRIVE_FOLDER_ID")
}

func TestLoadMissingBucket(t *testing.T) {
	t.Setenv("DRIVE_FOLDER_ID", "folder123")
	t.Setenv("GCS_BUCKET", "")

	_, err := config.Load()
	assert.ErrorContains(t, err, "GCS_BUCKET")
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OCR_BACKEND", "tesseract")

	_, err := config.Load()
	assert.ErrorContains(t, err, "OCR_BACKEND")
}

func TestLoadDocumentAIRequiresProcessorAndProject(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("OCR_BACKEND", "documentai")

	_, err := config.Load()
	assert.ErrorContains(t, err, "DOCUMENT_AI_PROCESSOR_ID")

	t.Setenv("DOCUMENT_AI_PROCESSOR_ID", "proc123")
	_, err = config.Load()
	assert.ErrorContains(t, err, "GOOGLE_CLOUD_PROJECT")

	t.Setenv("GOOGLE_CLOUD_PROJECT", "my-project")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "documentai", cfg.OCRBackend)
}

func TestLoadRejectsUnknownVariant(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PIPELINE_VARIANT", "merged")

	_, err := config.Load()
	assert.ErrorContains(t, err, "PIPELINE_VARIANT")
}
