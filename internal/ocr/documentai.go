package ocr

import (
	"context"
	"fmt"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"receiptflow/internal/logger"
)

// DocumentAIConfig identifies the OCR processor to call.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
}

// DocumentAIExtractor implements TextExtractor using a Document AI OCR
// processor. It is the alternative backend for receipts Vision handles
// poorly; only the plain document text is consumed.
type DocumentAIExtractor struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIExtractor creates a Document AI backed extractor.
func NewDocumentAIExtractor(ctx context.Context, config DocumentAIConfig, opts ...option.ClientOption) (*DocumentAIExtractor, error) {
	const op = "NewDocumentAIExtractor"

	if config.ProjectID == "" {
		return nil, WrapExtractError(op, ErrMissingCredentials, "project ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	// Regional processors live on regional endpoints.
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, WrapExtractError(op, err, fmt.Sprintf("failed to create Document AI client for location %s", config.Location))
	}

	return &DocumentAIExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("documentai"),
	}, nil
}

// Extract submits the image to the OCR processor and returns the
// document's full text, or "" when the processor detects none.
func (d *DocumentAIExtractor) Extract(ctx context.Context, image []byte, mimeType string) (string, error) {
	const op = "Extract"

	if len(image) > MaxImageSizeBytes {
		return "", WrapExtractError(op, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(image)))
	}

	req := &documentaipb.ProcessRequest{
		Name: d.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  image,
				MimeType: mimeType,
			},
		},
	}

	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		return "", WrapExtractError(op, ErrAnnotateFailed, fmt.Sprintf("Document AI call failed: %v", err))
	}
	if resp.Document == nil {
		return "", WrapExtractError(op, ErrNoResponse, "response contains no document")
	}

	d.log.Debug().
		Int("text_length", len(resp.Document.Text)).
		Msg("Document OCR completed")

	return resp.Document.Text, nil
}

// Close closes the underlying Document AI client.
func (d *DocumentAIExtractor) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}

func (d *DocumentAIExtractor) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		d.config.ProjectID, d.config.Location, d.config.ProcessorID)
}
