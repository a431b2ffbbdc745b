// Package drive lists and downloads receipt images from a Google Drive
// folder. Files are read-only source material; nothing here mutates the
// Drive side.
package drive

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"receiptflow/internal/logger"
)

// SourceFile describes one file in the source folder. ModifiedTime is the
// RFC3339 string Drive reports; it is passed through to the report row
// unparsed.
type SourceFile struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime string
}

// Service wraps the Drive files API for a single source folder.
type Service struct {
	files    *gdrive.Service
	folderID string
	log      zerolog.Logger
}

// NewService creates a Drive service scoped to the given folder.
func NewService(ctx context.Context, folderID string, opts ...option.ClientOption) (*Service, error) {
	const op = "drive.NewService"

	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create drive service: %w", op, err)
	}

	return &Service{
		files:    svc,
		folderID: folderID,
		log:      logger.WithComponent("drive"),
	}, nil
}

// List returns the non-trashed files in the source folder.
func (s *Service) List(ctx context.Context) ([]SourceFile, error) {
	const op = "drive.List"

	query := fmt.Sprintf("'%s' in parents and trashed=false", s.folderID)
	rsp, err := s.files.Files.List().
		Q(query).
		Fields("files(id,name,mimeType,modifiedTime)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list folder %s: %w", op, s.folderID, err)
	}

	files := make([]SourceFile, 0, len(rsp.Files))
	for _, f := range rsp.Files {
		files = append(files, SourceFile{
			ID:           f.Id,
			Name:         f.Name,
			MimeType:     f.MimeType,
			ModifiedTime: f.ModifiedTime,
		})
	}

	s.log.Debug().
		Str("folder_id", s.folderID).
		Int("count", len(files)).
		Msg("Listed source files")

	return files, nil
}

// Download fetches the raw bytes of one source file.
func (s *Service) Download(ctx context.Context, fileID string) ([]byte, error) {
	const op = "drive.Download"

	rsp, err := s.files.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to download file %s: %w", op, fileID, err)
	}
	defer rsp.Body.Close()

	data, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read file %s: %w", op, fileID, err)
	}

	s.log.Debug().
		Str("file_id", fileID).
		Int("bytes", len(data)).
		Msg("Downloaded source file")

	return data, nil
}
