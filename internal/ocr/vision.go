package ocr

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"receiptflow/internal/logger"
)

// VisionExtractor implements TextExtractor using Cloud Vision
// TEXT_DETECTION on inline image bytes.
type VisionExtractor struct {
	client     *vision.ImageAnnotatorClient
	maxResults int32
	log        zerolog.Logger
}

// NewVisionExtractor creates a Vision-backed extractor. maxResults caps
// the annotations requested per image; only the first annotation (the
// full text blob) is consumed.
func NewVisionExtractor(ctx context.Context, maxResults int, opts ...option.ClientOption) (*VisionExtractor, error) {
	const op = "NewVisionExtractor"

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapExtractError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapExtractError(op, err, "failed to create Vision client")
	}

	return &VisionExtractor{
		client:     client,
		maxResults: int32(maxResults),
		log:        logger.WithComponent("vision"),
	}, nil
}

// NewVisionExtractorWithClient creates an extractor with an explicit
// client (for testing).
func NewVisionExtractorWithClient(client *vision.ImageAnnotatorClient, maxResults int) *VisionExtractor {
	return &VisionExtractor{
		client:     client,
		maxResults: int32(maxResults),
		log:        logger.WithComponent("vision"),
	}
}

// Extract runs text detection and returns the first annotation's full
// text, or "" when the image contains no detectable text.
func (v *VisionExtractor) Extract(ctx context.Context, image []byte, mimeType string) (string, error) {
	const op = "Extract"

	if len(image) > MaxImageSizeBytes {
		return "", WrapExtractError(op, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(image)))
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{
						Type:       visionpb.Feature_TEXT_DETECTION,
						MaxResults: v.maxResults,
					},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", WrapExtractError(op, ErrAnnotateFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return "", WrapExtractError(op, ErrNoResponse, "empty batch response")
	}

	annotation := resp.Responses[0]
	if annotation.Error != nil {
		return "", WrapExtractError(op, ErrAnnotateFailed, fmt.Sprintf("Vision API error: %s", annotation.Error.Message))
	}

	// No text annotations means a readable response with nothing detected.
	if len(annotation.TextAnnotations) == 0 {
		v.log.Warn().Str("mime_type", mimeType).Msg("No text detected in image")
		return "", nil
	}

	text := annotation.TextAnnotations[0].Description
	v.log.Debug().
		Int("annotations", len(annotation.TextAnnotations)).
		Int("text_length", len(text)).
		Msg("Text detection completed")

	return text, nil
}

// Close closes the underlying Vision client.
func (v *VisionExtractor) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
