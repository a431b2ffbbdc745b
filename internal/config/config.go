package config

import (
	"fmt"
	"os"
	"strconv"

	"receiptflow/internal/logger"
)

// Config carries every knob the pipeline reads from the environment.
// Flags on the process command override the matching fields at run time.
type Config struct {
	// Google Cloud Configuration
	GoogleCloudProject  string
	GoogleCloudLocation string

	// Source: Google Drive folder holding receipt images
	DriveFolderID string

	// Archive: Cloud Storage destination
	GCSBucket string
	GCSFolder string

	// OCR backend selection: "vision" or "documentai"
	OCRBackend            string
	VisionMaxResults      int
	DocumentAIProcessorID string

	// Report: Google Sheets destination
	SheetID   string
	SheetName string

	// Pipeline variant: "basic" or "extended"
	Variant string

	// OAuth bootstrap for user-credential runs
	OAuthClientSecretFile string
	OAuthTokenFile        string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the environment and validates the result. Commands that
// accept flag overrides use FromEnv and validate after applying them.
func Load() (*Config, error) {
	config := FromEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// FromEnv reads the environment without validating.
func FromEnv() *Config {
	return &Config{
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DriveFolderID:         getEnv("DRIVE_FOLDER_ID", ""),
		GCSBucket:             getEnv("GCS_BUCKET", ""),
		GCSFolder:             getEnv("GCS_FOLDER", "receipts"),
		OCRBackend:            getEnv("OCR_BACKEND", "vision"),
		VisionMaxResults:      getEnvInt("VISION_MAX_RESULTS", 5),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		SheetID:               getEnv("SHEET_ID", ""),
		SheetName:             getEnv("SHEET_NAME", "Sheet1"),
		Variant:               getEnv("PIPELINE_VARIANT", "basic"),
		OAuthClientSecretFile: getEnv("OAUTH_CLIENT_SECRET_FILE", "client_secret.json"),
		OAuthTokenFile:        getEnv("OAUTH_TOKEN_FILE", "token.json"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}
}

// Validate checks the fields every run needs regardless of flags.
func (c *Config) Validate() error {
	if c.DriveFolderID == "" {
		return fmt.Errorf("DRIVE_FOLDER_ID is required")
	}
	if c.GCSBucket == "" {
		return fmt.Errorf("GCS_BUCKET is required")
	}
	if c.OCRBackend != "vision" && c.OCRBackend != "documentai" {
		return fmt.Errorf("OCR_BACKEND must be \"vision\" or \"documentai\", got %q", c.OCRBackend)
	}
	if c.OCRBackend == "documentai" {
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required when OCR_BACKEND=documentai")
		}
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required when OCR_BACKEND=documentai")
		}
	}
	if c.Variant != "basic" && c.Variant != "extended" {
		return fmt.Errorf("PIPELINE_VARIANT must be \"basic\" or \"extended\", got %q", c.Variant)
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
