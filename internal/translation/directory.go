package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"codeberg.org/snonux/transdata/internal/chunk"
)

// DefaultOutputSubdir is created inside the input folder when no output
// folder is given.
const DefaultOutputSubdir = "traducao"

// DirOptions configures Directory
type DirOptions struct {
	InputDir  string
	OutputDir string

	// TranslateHeader also translates the first row of every file
	TranslateHeader bool

	Logger *slog.Logger
}

// DirResult summarizes a Directory run
type DirResult struct {
	OutputDir string
	Files     int
	Cells     int
	Skipped   int
}

// Directory translates every CSV file in opts.InputDir cell by cell and
// writes the result under the same name into opts.OutputDir. Empty cells
// are kept as they are. A manifest in the input folder is copied.
func Directory(ctx context.Context, t Translator, opts DirOptions) (*DirResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	entries, err := os.ReadDir(opts.InputDir)
	if err != nil {
		return nil, chunk.NotFound(opts.InputDir, err)
	}

	outDir := opts.OutputDir
	if outDir == "" {
		outDir = filepath.Join(opts.InputDir, DefaultOutputSubdir)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), chunk.Extension) {
			names = append(names, e.Name())
		}
	}
	chunk.SortFileNames(names)

	if err := removeStale(outDir, names, logger); err != nil {
		return nil, err
	}

	logger.Info("translating chunks",
		"input", opts.InputDir,
		"output", outDir,
		"files", len(names),
		"backend", t.Name())

	result := &DirResult{OutputDir: outDir}
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		records, err := chunk.ReadCSV(filepath.Join(opts.InputDir, name))
		if err != nil {
			return result, err
		}

		cells, skipped, err := translateRecords(ctx, t, records, opts.TranslateHeader)
		if err != nil {
			return result, fmt.Errorf("failed to translate %s: %w", name, err)
		}
		if err := chunk.WriteCSV(filepath.Join(outDir, name), records); err != nil {
			return result, err
		}

		result.Files++
		result.Cells += cells
		result.Skipped += skipped
		logger.Debug("file translated", "file", name, "n", i+1, "total", len(names), "cells", cells)
	}

	if err := copyManifest(opts.InputDir, outDir); err != nil {
		return result, err
	}

	logger.Info("translation finished",
		"files", result.Files,
		"cells", result.Cells,
		"skipped_cells", result.Skipped)
	return result, nil
}

// translateRecords replaces every non-empty cell in place
func translateRecords(ctx context.Context, t Translator, records [][]string, translateHeader bool) (cells, skipped int, err error) {
	for i, record := range records {
		if i == 0 && !translateHeader {
			continue
		}
		for j, cell := range record {
			if strings.TrimSpace(cell) == "" {
				skipped++
				continue
			}
			translated, err := t.Translate(ctx, cell)
			if err != nil {
				return cells, skipped, err
			}
			record[j] = translated
			cells++
		}
	}
	return cells, skipped, nil
}

// removeStale deletes CSV files in outDir left from an earlier run whose
// source chunk no longer exists
func removeStale(outDir string, names []string, logger *slog.Logger) error {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), chunk.Extension) || slices.Contains(names, e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(outDir, e.Name())); err != nil {
			return fmt.Errorf("failed to remove stale file: %w", err)
		}
		logger.Debug("removed stale translation", "file", e.Name())
	}
	return nil
}

func copyManifest(inDir, outDir string) error {
	data, err := os.ReadFile(filepath.Join(inDir, chunk.ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, chunk.ManifestFile), data, 0644); err != nil {
		return fmt.Errorf("failed to copy manifest: %w", err)
	}
	return nil
}
