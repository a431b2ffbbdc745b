package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receiptflow/internal/archive"
	"receiptflow/internal/drive"
	"receiptflow/internal/pipeline"
	"receiptflow/internal/receipt"
)

type fakeSource struct {
	files     []drive.SourceFile
	data      map[string][]byte
	downloads int
}

func (s *fakeSource) List(ctx context.Context) ([]drive.SourceFile, error) {
	return s.files, nil
}

func (s *fakeSource) Download(ctx context.Context, fileID string) ([]byte, error) {
	s.downloads++
	data, ok := s.data[fileID]
	if !ok {
		return nil, fmt.Errorf("unknown file %s", fileID)
	}
	return data, nil
}

type fakeArchive struct {
	bucket   string
	objects  map[string]struct{}
	uploads  int
	failPath string
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{bucket: "test-bucket", objects: make(map[string]struct{})}
}

func (a *fakeArchive) ListPrefix(ctx context.Context, prefix string) (map[string]struct{}, error) {
	paths := make(map[string]struct{})
	for path := range a.objects {
		if strings.HasPrefix(path, prefix) {
			paths[path] = struct{}{}
		}
	}
	return paths, nil
}

func (a *fakeArchive) Upload(ctx context.Context, path string, data []byte, contentType string) (archive.ObjectRef, error) {
	if path == a.failPath {
		return archive.ObjectRef{}, errors.New("upload not confirmed")
	}
	a.uploads++
	a.objects[path] = struct{}{}
	return archive.ObjectRef{Bucket: a.bucket, Path: path}, nil
}

// fakeExtractor echoes the image bytes back as text, so tests control the
// blob each receipt parses from.
type fakeExtractor struct{}

func (e *fakeExtractor) Extract(ctx context.Context, image []byte, mimeType string) (string, error) {
	return string(image), nil
}

func (e *fakeExtractor) Close() error { return nil }

type fakeWriter struct {
	rows [][]interface{}
}

func (w *fakeWriter) Append(ctx context.Context, row []interface{}) (int64, error) {
	w.rows = append(w.rows, row)
	return int64(len(row)), nil
}

func testServices(t *testing.T, src *fakeSource, arc *fakeArchive, w *fakeWriter) pipeline.Services {
	t.Helper()
	parser, err := receipt.NewHeuristicParser(receipt.VariantBasic)
	require.NoError(t, err)
	return pipeline.Services{
		Source:    src,
		Archive:   arc,
		Extractor: &fakeExtractor{},
		Parser:    parser,
		Report:    w,
	}
}

func sourceFile(id, name string) drive.SourceFile {
	return drive.SourceFile{
		ID:           id,
		Name:         name,
		MimeType:     "image/jpeg",
		ModifiedTime: "2023-05-01T10:00:00.000Z",
	}
}

func TestRunProcessesAllFiles(t *testing.T) {
	src := &fakeSource{
		files: []drive.SourceFile{sourceFile("f1", "a.jpg"), sourceFile("f2", "b.jpg")},
		data: map[string][]byte{
			"f1": []byte("Shop A\nDate 2023-05-01\nTotal RM 12.50"),
			"f2": []byte("Shop B\nDate 2023-05-02\nTotal 9.99"),
		},
	}
	arc := newFakeArchive()
	w := &fakeWriter{}

	result, err := pipeline.Run(context.Background(), testServices(t, src, arc, w),
		pipeline.Options{Folder: "receipts", Variant: receipt.VariantBasic})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, int64(10), result.CellsWritten)
	assert.Equal(t, 2, arc.uploads)
	require.Len(t, w.rows, 2)

	row := w.rows[0]
	assert.Equal(t, "2023-05-01", row[0])
	assert.Equal(t, `=HYPERLINK("storage.cloud.google.com/test-bucket/receipts/a.jpg", "a.jpg")`, row[1])
	assert.Equal(t, "Shop A", row[2])
	assert.Equal(t, "12.50", row[3])
	assert.Equal(t, "2023-05-01T10:00:00.000Z", row[4])
}

func TestRunSkipsArchivedPaths(t *testing.T) {
	src := &fakeSource{
		files: []drive.SourceFile{sourceFile("f1", "a.jpg"), sourceFile("f2", "b.jpg")},
		data: map[string][]byte{
			"f1": []byte("Shop A\nTotal RM 1.00"),
			"f2": []byte("Shop B\nTotal RM 2.00"),
		},
	}
	arc := newFakeArchive()
	arc.objects["receipts/a.jpg"] = struct{}{}
	w := &fakeWriter{}

	result, err := pipeline.Run(context.Background(), testServices(t, src, arc, w),
		pipeline.Options{Folder: "receipts", Variant: receipt.VariantBasic})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, arc.uploads)
	assert.Equal(t, 1, src.downloads)
	require.Len(t, w.rows, 1)
	assert.Equal(t, "Shop B", w.rows[0][2])
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	src := &fakeSource{
		files: []drive.SourceFile{sourceFile("f1", "a.jpg"), sourceFile("f2", "b.jpg")},
		data: map[string][]byte{
			"f1": []byte("Shop A\nTotal RM 1.00"),
			"f2": []byte("Shop B\nTotal RM 2.00"),
		},
	}
	arc := newFakeArchive()
	w := &fakeWriter{}
	svc := testServices(t, src, arc, w)
	opts := pipeline.Options{Folder: "receipts", Variant: receipt.VariantBasic}

	first, err := pipeline.Run(context.Background(), svc, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Processed)

	// Second run against the unchanged listing: no uploads, no rows.
	second, err := pipeline.Run(context.Background(), svc, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 2, arc.uploads)
	assert.Len(t, w.rows, 2)
}

func TestRunEmptyListing(t *testing.T) {
	src := &fakeSource{}
	arc := newFakeArchive()
	w := &fakeWriter{}

	_, err := pipeline.Run(context.Background(), testServices(t, src, arc, w),
		pipeline.Options{Folder: "receipts", Variant: receipt.VariantBasic})
	assert.ErrorIs(t, err, pipeline.ErrNoSourceFiles)
	assert.Empty(t, w.rows)
}

func TestRunUploadFailureAborts(t *testing.T) {
	src := &fakeSource{
		files: []drive.SourceFile{
			sourceFile("f1", "a.jpg"),
			sourceFile("f2", "b.jpg"),
			sourceFile("f3", "c.jpg"),
		},
		data: map[string][]byte{
			"f1": []byte("Shop A\nTotal RM 1.00"),
			"f2": []byte("Shop B\nTotal RM 2.00"),
			"f3": []byte("Shop C\nTotal RM 3.00"),
		},
	}
	arc := newFakeArchive()
	arc.failPath = "receipts/b.jpg"
	w := &fakeWriter{}

	_, err := pipeline.Run(context.Background(), testServices(t, src, arc, w),
		pipeline.Options{Folder: "receipts", Variant: receipt.VariantBasic})
	require.Error(t, err)

	// Files before the failure stay archived and reported; the failed file
	// and everything after it are untouched.
	_, archived := arc.objects["receipts/a.jpg"]
	assert.True(t, archived)
	_, archived = arc.objects["receipts/c.jpg"]
	assert.False(t, archived)
	require.Len(t, w.rows, 1)
	assert.Equal(t, "Shop A", w.rows[0][2])
}

func TestRunParseFailureAborts(t *testing.T) {
	src := &fakeSource{
		files: []drive.SourceFile{sourceFile("f1", "a.jpg")},
		data: map[string][]byte{
			// Three lines only; the extended variant needs four.
			"f1": []byte("Shop A\nDate 2023-05-01\nTotal RM 1.00"),
		},
	}
	arc := newFakeArchive()
	w := &fakeWriter{}

	parser, err := receipt.NewHeuristicParser(receipt.VariantExtended)
	require.NoError(t, err)
	svc := testServices(t, src, arc, w)
	svc.Parser = parser

	_, err = pipeline.Run(context.Background(), svc,
		pipeline.Options{Folder: "receipts", Variant: receipt.VariantExtended})
	assert.ErrorIs(t, err, receipt.ErrShortReceipt)

	// The file was archived before parsing failed; no row was written.
	_, archived := arc.objects["receipts/a.jpg"]
	assert.True(t, archived)
	assert.Empty(t, w.rows)
}

func TestRunExtendedRowShape(t *testing.T) {
	src := &fakeSource{
		files: []drive.SourceFile{sourceFile("f1", "a.jpg")},
		data: map[string][]byte{
			"f1": []byte("Shop X\nLn1\nLn2\nLn3\nDate: 2023-05-01\nTotal 45.00"),
		},
	}
	arc := newFakeArchive()
	w := &fakeWriter{}

	parser, err := receipt.NewHeuristicParser(receipt.VariantExtended)
	require.NoError(t, err)
	svc := testServices(t, src, arc, w)
	svc.Parser = parser

	result, err := pipeline.Run(context.Background(), svc,
		pipeline.Options{Folder: "receipts", Variant: receipt.VariantExtended})
	require.NoError(t, err)
	assert.Equal(t, int64(6), result.CellsWritten)

	require.Len(t, w.rows, 1)
	row := w.rows[0]
	require.Len(t, row, 6)
	assert.Equal(t, "2023-05-01", row[0])
	assert.Equal(t, "Shop X", row[2])
	assert.Equal(t, "Ln1 Ln2 Ln3", row[3])
	assert.Equal(t, "45.00", row[4])
}
