package splitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"codeberg.org/snonux/transdata/internal"
	"codeberg.org/snonux/transdata/internal/archive"
	"codeberg.org/snonux/transdata/internal/chunk"
	"codeberg.org/snonux/transdata/internal/table"
)

// Options configures a split run.
type Options struct {
	// Source is the table to read (csv, tsv, xlsx, optionally compressed).
	Source string

	// Column is the header name of the text column to split.
	Column string

	// MaxChunkChars bounds the chunk length in characters.
	MaxChunkChars int

	// MaxRows limits the number of data rows read. Negative reads all rows.
	MaxRows int

	// OutputDir is the parent of the chunk folder.
	OutputDir string

	// BaseName names the chunk folder and prefixes every chunk file.
	// Defaults to the source file stem.
	BaseName string

	// Normalize applies Unicode NFC to each cell before splitting.
	Normalize bool

	// Archive moves a previous chunk folder to OutputDir/archive instead of
	// deleting its chunk files.
	Archive bool

	Logger *slog.Logger
}

// Result summarizes a split run.
type Result struct {
	Dir       string
	Rows      int
	Chunks    int
	EmptyRows int
	Files     []string
}

// Split reads opts.Source and writes one CSV file per chunk of the
// designated column into OutputDir/BaseName.
func Split(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.MaxChunkChars < 1 {
		return nil, fmt.Errorf("%w: got %d", chunk.ErrInvalidBudget, opts.MaxChunkChars)
	}
	if _, err := os.Stat(opts.Source); err != nil {
		return nil, chunk.NotFound(opts.Source, err)
	}

	baseName := opts.BaseName
	if baseName == "" {
		baseName = internal.SanitizeFilename(table.Stem(opts.Source))
	}

	src, err := table.Open(opts.Source)
	if err != nil {
		return nil, chunk.NotFound(opts.Source, err)
	}
	defer src.Close()

	columnIndex := slices.Index(src.Header(), opts.Column)
	if columnIndex < 0 {
		return nil, fmt.Errorf("%w: %q in %s", chunk.ErrColumnNotFound, opts.Column, opts.Source)
	}

	dir := filepath.Join(opts.OutputDir, baseName)
	if err := prepareDir(dir, baseName, opts.Archive, logger); err != nil {
		return nil, err
	}

	logger.Info("splitting table",
		"source", opts.Source,
		"column", opts.Column,
		"max_chunk_chars", opts.MaxChunkChars,
		"max_rows", opts.MaxRows,
		"output", dir)

	result := &Result{Dir: dir}
	manifest := &chunk.Manifest{
		Source:        opts.Source,
		BaseName:      baseName,
		Column:        opts.Column,
		MaxChunkChars: opts.MaxChunkChars,
		CreatedAt:     time.Now().UTC(),
	}
	progress := newProgress(opts.MaxRows, logger)

	for opts.MaxRows < 0 || result.Rows < opts.MaxRows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		record, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("failed to read row %d of %s: %w", result.Rows+1, opts.Source, err)
		}
		result.Rows++
		row := result.Rows

		text := record[columnIndex]
		if !utf8.ValidString(text) {
			return result, fmt.Errorf("%w: row %d of %s", chunk.ErrInvalidUTF8, row, opts.Source)
		}
		if opts.Normalize {
			text = chunk.NFC(text)
		}

		chunks := chunk.SplitText(text, opts.MaxChunkChars)
		if len(chunks) == 0 {
			result.EmptyRows++
			logger.Debug("row has no text", "row", row)
		}
		for i, c := range chunks {
			path := filepath.Join(dir, chunk.FileName(baseName, row, i+1))
			if err := chunk.WriteCSV(path, [][]string{{opts.Column}, {c}}); err != nil {
				return result, err
			}
			result.Files = append(result.Files, path)
		}
		result.Chunks += len(chunks)
		manifest.Rows = append(manifest.Rows, chunk.ManifestRow{Row: row, Chunks: len(chunks)})

		progress.report(row, len(chunks))
	}

	if err := chunk.WriteManifest(dir, manifest); err != nil {
		return result, err
	}

	logger.Info("split finished",
		"rows", result.Rows,
		"chunks", result.Chunks,
		"empty_rows", result.EmptyRows,
		"output", dir)
	return result, nil
}

// prepareDir makes sure dir exists and holds no chunk files from an earlier
// run. Files other than chunk CSVs and the manifest are left alone.
func prepareDir(dir, baseName string, archiveOld bool, logger *slog.Logger) error {
	if _, err := os.Stat(dir); err == nil && archiveOld {
		archived, err := archive.ArchiveDir(dir, baseName)
		if err != nil {
			return fmt.Errorf("failed to archive %s: %w", dir, err)
		}
		logger.Info("archived previous chunks", "from", dir, "to", archived)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || (!strings.HasSuffix(name, chunk.Extension) && name != chunk.ManifestFile) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
		removed++
	}
	if removed > 0 {
		logger.Info("removed previous chunk files", "dir", dir, "count", removed)
	}
	return nil
}

// progress logs every row at debug level and every 5% step at info level
// when the total is known.
type progress struct {
	total    int
	lastStep int
	logger   *slog.Logger
}

func newProgress(total int, logger *slog.Logger) *progress {
	return &progress{total: total, logger: logger}
}

func (p *progress) report(row, chunks int) {
	if p.total <= 0 {
		p.logger.Debug("row split", "row", row, "chunks", chunks)
		return
	}

	percent := float64(row) / float64(p.total) * 100
	p.logger.Debug("row split",
		"row", row,
		"total", p.total,
		"chunks", chunks,
		"percent", fmt.Sprintf("%.2f", percent))

	if step := int(percent) / 5; step > p.lastStep {
		p.lastStep = step
		p.logger.Info("progress", "row", row, "total", p.total, "percent", step*5)
	}
}
