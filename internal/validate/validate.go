// Package validate checks that a CSV file is fit for splitting.
package validate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"codeberg.org/snonux/transdata/internal/chunk"
)

// DefaultMinColumns is the smallest accepted header width
const DefaultMinColumns = 2

// Kind classifies a violation
type Kind string

const (
	KindEmpty       Kind = "empty"
	KindNoHeader    Kind = "no_header"
	KindTooFewCols  Kind = "too_few_columns"
	KindColumnCount Kind = "column_count"
	KindInvalidUTF8 Kind = "invalid_utf8"
)

// Violation is one broken restriction
type Violation struct {
	Kind    Kind
	Line    int
	Message string
}

// Report lists the violations found in one file
type Report struct {
	Path       string
	Columns    int
	Rows       int
	Violations []Violation
}

// OK reports whether the file meets every restriction
func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

func (r *Report) add(kind Kind, line int, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{Kind: kind, Line: line, Message: fmt.Sprintf(format, args...)})
}

// CheckFile reads the CSV at path and reports empty files, a missing header,
// fewer than minColumns columns and rows whose width differs from the
// header. I/O and parse errors are returned as errors.
func CheckFile(path string, minColumns int) (*Report, error) {
	if minColumns <= 0 {
		minColumns = DefaultMinColumns
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, chunk.NotFound(path, err)
	}
	defer f.Close()

	report := &Report{Path: path}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		report.add(KindEmpty, 0, "file is empty")
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if isBlank(header) {
		report.add(KindNoHeader, 1, "first row is not a header")
		return report, nil
	}
	report.Columns = len(header)
	if report.Columns < minColumns {
		report.add(KindTooFewCols, 1, "header has %d columns, at least %d required", report.Columns, minColumns)
	}
	checkUTF8(report, header, 1)

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		report.Rows++

		line, _ := r.FieldPos(0)
		if len(record) != report.Columns {
			report.add(KindColumnCount, line, "row has %d columns, header has %d", len(record), report.Columns)
		}
		checkUTF8(report, record, line)
	}

	return report, nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if field != "" {
			return false
		}
	}
	return true
}

func checkUTF8(report *Report, record []string, line int) {
	for i, field := range record {
		if !utf8.ValidString(field) {
			report.add(KindInvalidUTF8, line, "column %d is not valid UTF-8", i+1)
		}
	}
}
