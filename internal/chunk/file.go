package chunk

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// ReadCSV reads every record of a CSV file. Records may have different
// lengths.
func ReadCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NotFound(path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

// WriteCSV writes records to path through a temporary file in the same
// directory and renames it into place, so readers never see a partial file.
func WriteCSV(path string, records [][]string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	for _, record := range records {
		if len(record) == 1 && record[0] == "" {
			// A lone empty field would be written as a blank line, which
			// csv readers skip.
			w.Flush()
			if _, err = tmp.WriteString("\"\"\n"); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			continue
		}
		if err = w.Write(record); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", path, err)
	}
	return nil
}
