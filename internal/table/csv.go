package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

type delimitedReader struct {
	r       *csv.Reader
	header  []string
	closers []func() error
}

func newDelimitedReader(r io.Reader, comma rune, closers []func() error) (*delimitedReader, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty table: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	// Drop a UTF-8 byte order mark left by spreadsheet exports.
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}

	return &delimitedReader{r: cr, header: header, closers: closers}, nil
}

func (d *delimitedReader) Header() []string {
	return d.header
}

func (d *delimitedReader) Next() ([]string, error) {
	row, err := d.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to parse row: %w", err)
	}
	return pad(row, len(d.header)), nil
}

func (d *delimitedReader) Close() error {
	return closeAll(d.closers)
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}
