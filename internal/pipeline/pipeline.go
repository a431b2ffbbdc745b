// Package pipeline runs the receipt workflow: list the Drive folder,
// skip files already archived, then archive, extract, parse and report
// each remaining file in order.
//
// Processing is strictly sequential. A duplicate causes a per-file skip;
// every other failure aborts the run immediately. There is no rollback:
// files archived and reported before the failure stay that way, and the
// next run resumes through the path-based duplicate filter.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"receiptflow/internal/archive"
	"receiptflow/internal/drive"
	"receiptflow/internal/logger"
	"receiptflow/internal/ocr"
	"receiptflow/internal/receipt"
	"receiptflow/internal/report"
)

// ErrNoSourceFiles is returned when the source folder lists empty.
var ErrNoSourceFiles = errors.New("no files found in source folder")

// Source lists and downloads receipt files.
type Source interface {
	List(ctx context.Context) ([]drive.SourceFile, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Archiver stores receipt files and reports which paths already exist.
type Archiver interface {
	ListPrefix(ctx context.Context, prefix string) (map[string]struct{}, error)
	Upload(ctx context.Context, path string, data []byte, contentType string) (archive.ObjectRef, error)
}

// Services bundles the clients a run needs. The bundle is constructed
// once per run and threaded through; there is no package-level state.
type Services struct {
	Source    Source
	Archive   Archiver
	Extractor ocr.TextExtractor
	Parser    receipt.FieldParser
	Report    report.RowWriter
}

// Options holds the per-run parameters.
type Options struct {
	// Folder is the destination prefix inside the bucket; each file is
	// archived at <Folder>/<name>.
	Folder string

	// Variant selects the parsed field set and the report row shape.
	Variant receipt.Variant
}

// Result summarizes a completed run.
type Result struct {
	Processed    int
	Skipped      int
	CellsWritten int64
}

// Run executes the pipeline over every file in the source folder.
func Run(ctx context.Context, svc Services, opts Options) (*Result, error) {
	log := logger.WithComponent("pipeline")

	files, err := svc.Source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing source folder: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoSourceFiles
	}

	// One listing per run; exact-path membership decides skips.
	archived, err := svc.Archive.ListPrefix(ctx, opts.Folder+"/")
	if err != nil {
		return nil, fmt.Errorf("listing archived objects: %w", err)
	}

	result := &Result{}
	for _, file := range files {
		path := opts.Folder + "/" + file.Name
		if _, ok := archived[path]; ok {
			log.Info().Str("file", file.Name).Msg("Already archived, skipping")
			result.Skipped++
			continue
		}

		if err := processFile(ctx, svc, opts, file, path, result, log); err != nil {
			return nil, err
		}
	}

	log.Info().
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int64("cells", result.CellsWritten).
		Msg("Run completed")

	return result, nil
}

// processFile carries one source file through archive, extraction,
// parsing and reporting.
func processFile(ctx context.Context, svc Services, opts Options, file drive.SourceFile, path string, result *Result, log zerolog.Logger) error {
	data, err := svc.Source.Download(ctx, file.ID)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", file.Name, err)
	}

	ref, err := svc.Archive.Upload(ctx, path, data, file.MimeType)
	if err != nil {
		return fmt.Errorf("archiving %s: %w", file.Name, err)
	}
	log.Info().
		Str("file", file.Name).
		Str("bucket", ref.Bucket).
		Str("path", ref.Path).
		Msg("Archived receipt")

	text, err := svc.Extractor.Extract(ctx, data, file.MimeType)
	if err != nil {
		return fmt.Errorf("extracting text from %s: %w", file.Name, err)
	}

	fields, err := svc.Parser.Parse(text)
	if err != nil {
		return fmt.Errorf("parsing fields from %s: %w", file.Name, err)
	}

	row := report.BuildRow(report.Entry{
		Fields:       fields,
		Ref:          ref,
		FileName:     file.Name,
		ModifiedTime: file.ModifiedTime,
	}, opts.Variant)

	cells, err := svc.Report.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("reporting %s: %w", file.Name, err)
	}

	log.Info().
		Str("file", file.Name).
		Str("shop", fields.ShopName).
		Str("total", fields.Total).
		Int64("cells", cells).
		Msg("Reported receipt")

	result.Processed++
	result.CellsWritten += cells
	return nil
}
