// Package table reads source tables row by row. CSV, TSV and XLSX files are
// supported, optionally compressed with gzip, bzip2, xz or zstd.
package table

import (
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Reader yields the header and then the data rows of a table.
type Reader interface {
	// Header returns the first row of the table.
	Header() []string

	// Next returns the next data row padded to the header width. It returns
	// io.EOF after the last row.
	Next() ([]string, error)

	Close() error
}

// Format identifies the row encoding of a table file.
type Format int

const (
	FormatCSV Format = iota
	FormatTSV
	FormatXLSX
)

// Compression identifies the outer compression of a table file.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionXZ
	CompressionZstd
)

// DetectFormat derives format and compression from the file name, for
// example "train.tsv.zst". Unknown extensions are read as CSV.
func DetectFormat(path string) (Format, Compression) {
	name := strings.ToLower(filepath.Base(path))

	compression := CompressionNone
	switch {
	case strings.HasSuffix(name, ".gz"):
		compression = CompressionGzip
	case strings.HasSuffix(name, ".bz2"):
		compression = CompressionBzip2
	case strings.HasSuffix(name, ".xz"):
		compression = CompressionXZ
	case strings.HasSuffix(name, ".zst"):
		compression = CompressionZstd
	}
	if compression != CompressionNone {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	switch filepath.Ext(name) {
	case ".tsv", ".tab":
		return FormatTSV, compression
	case ".xlsx":
		return FormatXLSX, compression
	default:
		return FormatCSV, compression
	}
}

// Stem returns the file name without directory, compression and table
// extensions: "data/train.csv.gz" becomes "train".
func Stem(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".gz", ".bz2", ".xz", ".zst", ".csv", ".tsv", ".tab", ".xlsx"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			name = name[:len(name)-len(ext)]
		}
	}
	return name
}

// Open opens the table at path. The returned error wraps the os.Open error,
// so a missing file matches fs.ErrNotExist.
func Open(path string) (Reader, error) {
	format, compression := DetectFormat(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r, closeFn, err := decompress(f, compression)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	closers := []func() error{closeFn, f.Close}

	var reader Reader
	switch format {
	case FormatXLSX:
		reader, err = newXLSXReader(r, closers)
	case FormatTSV:
		reader, err = newDelimitedReader(r, '\t', closers)
	default:
		reader, err = newDelimitedReader(r, ',', closers)
	}
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return reader, nil
}

// decompress wraps r according to compression. The returned close function
// is never nil.
func decompress(r io.Reader, compression Compression) (io.Reader, func() error, error) {
	noop := func() error { return nil }

	switch compression {
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, gz.Close, nil
	case CompressionBzip2:
		return bzip2.NewReader(r), noop, nil
	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xr, noop, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return dec, func() error { dec.Close(); return nil }, nil
	default:
		return r, noop, nil
	}
}

// pad extends row with empty cells up to width.
func pad(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}

func closeAll(closers []func() error) error {
	var first error
	for _, c := range closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
