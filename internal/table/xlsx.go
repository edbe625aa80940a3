package table

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// metadataSheets are skipped when looking for the data sheet.
var metadataSheets = map[string]bool{
	"info":     true,
	"metadata": true,
	"about":    true,
	"readme":   true,
	"notes":    true,
}

type xlsxReader struct {
	file    *excelize.File
	rows    *excelize.Rows
	header  []string
	closers []func() error
}

func newXLSXReader(r io.Reader, closers []func() error) (*xlsxReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}

	sheet := dataSheet(f.GetSheetList())
	if sheet == "" {
		f.Close()
		return nil, fmt.Errorf("no sheets in Excel file")
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	x := &xlsxReader{file: f, rows: rows, closers: closers}
	header, err := x.next()
	if err != nil {
		rows.Close()
		f.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("empty table: no header row")
		}
		return nil, err
	}
	x.header = header
	return x, nil
}

// dataSheet returns the first sheet that is not a metadata sheet, or the
// last sheet when all of them look like metadata.
func dataSheet(sheets []string) string {
	for _, s := range sheets {
		if !metadataSheets[strings.ToLower(s)] {
			return s
		}
	}
	if len(sheets) == 0 {
		return ""
	}
	return sheets[len(sheets)-1]
}

func (x *xlsxReader) next() ([]string, error) {
	if !x.rows.Next() {
		if err := x.rows.Error(); err != nil {
			return nil, fmt.Errorf("failed to read Excel rows: %w", err)
		}
		return nil, io.EOF
	}
	cols, err := x.rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel row: %w", err)
	}
	return cols, nil
}

func (x *xlsxReader) Header() []string {
	return x.header
}

func (x *xlsxReader) Next() ([]string, error) {
	row, err := x.next()
	if err != nil {
		return nil, err
	}
	if len(row) > len(x.header) {
		row = row[:len(x.header)]
	}
	return pad(row, len(x.header)), nil
}

func (x *xlsxReader) Close() error {
	var first error
	if err := x.rows.Close(); err != nil {
		first = err
	}
	if err := x.file.Close(); err != nil && first == nil {
		first = err
	}
	if err := closeAll(x.closers); err != nil && first == nil {
		first = err
	}
	return first
}
