package merger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/transdata/internal/chunk"
)

// Mode selects how the values of several chunk files are combined into one
// merged row.
type Mode string

const (
	// ModeJoin joins the values of each column with a single space, which
	// rebuilds the original cell.
	ModeJoin Mode = "join"

	// ModeColumns appends the values of every chunk file as extra columns.
	ModeColumns Mode = "columns"
)

// ParseMode validates a mode name. The empty string selects ModeJoin.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeJoin:
		return ModeJoin, nil
	case ModeColumns:
		return ModeColumns, nil
	default:
		return "", fmt.Errorf("unknown merge mode %q (supported: join, columns)", s)
	}
}

// Options configures a merge run.
type Options struct {
	// InputDir holds the chunk files.
	InputDir string

	// OutputFile receives the merged table. Parent directories are created.
	OutputFile string

	Mode Mode

	// Manifest overrides InputDir/manifest.yaml. When nil the manifest file
	// is read if present.
	Manifest *chunk.Manifest

	// IgnoreManifest merges by file names only.
	IgnoreManifest bool

	Logger *slog.Logger
}

// Result summarizes a merge run.
type Result struct {
	OutputFile string
	Files      int
	Skipped    int
	Rows       int
	EmptyRows  int
}

// mergedRow is one output row under construction.
type mergedRow struct {
	row    int
	chunks int
	values []string
}

// merger holds the EMPTY/ACCUMULATING state while files are visited.
type merger struct {
	mode    Mode
	logger  *slog.Logger
	header  []string
	current *mergedRow
	rows    []*mergedRow
}

// Merge combines the chunk files in opts.InputDir into opts.OutputFile.
func Merge(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeJoin
	}

	entries, err := os.ReadDir(opts.InputDir)
	if err != nil {
		return nil, chunk.NotFound(opts.InputDir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), chunk.Extension) {
			names = append(names, e.Name())
		}
	}
	chunk.SortFileNames(names)

	manifest := opts.Manifest
	if manifest == nil && !opts.IgnoreManifest {
		manifest, err = chunk.ReadManifest(opts.InputDir)
		if errors.Is(err, chunk.ErrNotFound) {
			manifest = nil
		} else if err != nil {
			return nil, err
		}
	}

	logger.Info("merging chunks",
		"input", opts.InputDir,
		"files", len(names),
		"mode", mode,
		"manifest", manifest != nil)

	result := &Result{OutputFile: opts.OutputFile}
	m := &merger{mode: mode, logger: logger}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		records, err := chunk.ReadCSV(filepath.Join(opts.InputDir, name))
		if err != nil {
			return result, err
		}
		if len(records) == 0 {
			logger.Debug("skipping empty file", "file", name)
			result.Skipped++
			continue
		}
		if !m.add(name, records) {
			result.Skipped++
			continue
		}
		result.Files++
	}
	m.flush()

	var out [][]string
	if m.header == nil {
		logger.Warn("no chunk files found, writing empty output", "input", opts.InputDir)
	} else {
		out = append(out, m.header)
		var empty int
		rows := m.rows
		if manifest != nil {
			rows, empty = m.align(manifest)
		}
		for _, r := range rows {
			out = append(out, r.values)
		}
		result.Rows = len(rows)
		result.EmptyRows = empty
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputFile), 0755); err != nil {
		return result, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := chunk.WriteCSV(opts.OutputFile, out); err != nil {
		return result, err
	}

	logger.Info("merge finished",
		"output", opts.OutputFile,
		"files", result.Files,
		"rows", result.Rows,
		"empty_rows", result.EmptyRows)
	return result, nil
}

// add feeds one non-empty chunk file into the state machine and reports
// whether it contributed to a merged row.
func (m *merger) add(name string, records [][]string) bool {
	if m.header == nil {
		m.header = records[0]
	}

	row, index, parsed := chunk.ParseFileName(name)

	if len(records) == 1 {
		m.extend(row, records[0])
		return true
	}

	if !parsed {
		m.logger.Warn("ignoring file with unrecognized name", "file", name)
		return false
	}
	if len(records) > 2 {
		m.logger.Debug("only the first data row of a chunk file is merged", "file", name, "rows", len(records)-1)
	}

	switch {
	case index == 1:
		m.flush()
		m.current = &mergedRow{row: row, chunks: 1, values: append([]string(nil), records[1]...)}
	case m.current != nil && m.current.row != row:
		m.logger.Warn("chunk without its first part, starting a new row", "file", name, "row", row, "chunk", index)
		m.flush()
		m.current = &mergedRow{row: row, chunks: 1, values: append([]string(nil), records[1]...)}
	default:
		m.extend(row, records[1])
	}
	return true
}

// extend adds values onto the in-progress row, starting one if needed.
func (m *merger) extend(row int, values []string) {
	if m.current == nil {
		m.current = &mergedRow{row: row}
	}
	m.current.chunks++

	if m.mode == ModeColumns {
		m.current.values = append(m.current.values, values...)
		return
	}
	for i, v := range values {
		if i >= len(m.current.values) {
			m.current.values = append(m.current.values, v)
			continue
		}
		switch {
		case v == "":
		case m.current.values[i] == "":
			m.current.values[i] = v
		default:
			m.current.values[i] += " " + v
		}
	}
}

func (m *merger) flush() {
	if m.current != nil && len(m.current.values) > 0 {
		m.rows = append(m.rows, m.current)
	}
	m.current = nil
}

// align orders the merged rows by the manifest and fills rows that produced
// no chunks with empty cells. Merged rows the manifest does not list are
// appended at the end.
func (m *merger) align(manifest *chunk.Manifest) ([]*mergedRow, int) {
	byRow := make(map[int]*mergedRow, len(m.rows))
	for _, r := range m.rows {
		if r.row > 0 {
			byRow[r.row] = r
		}
	}

	aligned := make([]*mergedRow, 0, len(manifest.Rows))
	empty := 0
	for _, mr := range manifest.Rows {
		r, ok := byRow[mr.Row]
		if !ok {
			if mr.Chunks > 0 {
				m.logger.Warn("row missing from chunk files", "row", mr.Row, "expected_chunks", mr.Chunks)
			}
			aligned = append(aligned, &mergedRow{row: mr.Row, values: make([]string, len(m.header))})
			empty++
			continue
		}
		if r.chunks != mr.Chunks {
			m.logger.Warn("chunk count differs from manifest", "row", mr.Row, "chunks", r.chunks, "expected_chunks", mr.Chunks)
		}
		aligned = append(aligned, r)
		delete(byRow, mr.Row)
	}

	for _, r := range m.rows {
		if _, listed := byRow[r.row]; listed || r.row <= 0 {
			m.logger.Warn("row not listed in manifest", "row", r.row)
			aligned = append(aligned, r)
		}
	}
	return aligned, empty
}
