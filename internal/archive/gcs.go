// Package archive copies receipt images into a Cloud Storage bucket and
// answers which destination paths already exist. Idempotence across runs
// is exact-path based: <folder>/<name> present under the prefix means the
// source file was already archived.
package archive

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"receiptflow/internal/logger"
)

// ObjectRef is the canonical location of an archived receipt.
type ObjectRef struct {
	Bucket string
	Path   string
}

// Store wraps a Cloud Storage bucket.
type Store struct {
	client *storage.Client
	bucket string
	log    zerolog.Logger
}

// NewStore creates a store for the given bucket.
func NewStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*Store, error) {
	const op = "archive.NewStore"

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create storage client: %w", op, err)
	}

	return &Store{
		client: client,
		bucket: bucket,
		log:    logger.WithComponent("archive"),
	}, nil
}

// ListPrefix returns the set of object paths currently under prefix.
// The caller builds this once per run and checks membership per file.
func (s *Store) ListPrefix(ctx context.Context, prefix string) (map[string]struct{}, error) {
	const op = "archive.ListPrefix"

	paths := make(map[string]struct{})
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: failed to list gs://%s/%s: %w", op, s.bucket, prefix, err)
		}
		paths[attrs.Name] = struct{}{}
	}

	s.log.Debug().
		Str("bucket", s.bucket).
		Str("prefix", prefix).
		Int("count", len(paths)).
		Msg("Listed archived objects")

	return paths, nil
}

// Upload writes data to path as a single object. The write carries a
// does-not-exist precondition; a precondition failure means another run
// archived the object first and is reported as success.
func (s *Store) Upload(ctx context.Context, path string, data []byte, contentType string) (ObjectRef, error) {
	const op = "archive.Upload"

	ref := ObjectRef{Bucket: s.bucket, Path: path}

	w := s.client.Bucket(s.bucket).Object(path).
		If(storage.Conditions{DoesNotExist: true}).
		NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		if isPreconditionFailed(err) {
			s.log.Info().Str("path", path).Msg("Object already archived, skipping upload")
			return ref, nil
		}
		return ObjectRef{}, fmt.Errorf("%s: failed to write gs://%s/%s: %w", op, s.bucket, path, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			s.log.Info().Str("path", path).Msg("Object already archived, skipping upload")
			return ref, nil
		}
		return ObjectRef{}, fmt.Errorf("%s: failed to finalize gs://%s/%s: %w", op, s.bucket, path, err)
	}

	s.log.Debug().
		Str("bucket", s.bucket).
		Str("path", path).
		Int("bytes", len(data)).
		Msg("Uploaded object")

	return ref, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 412
}
