package chunk

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the manifest written next to the chunk files.
const ManifestFile = "manifest.yaml"

// Manifest describes one split run.
type Manifest struct {
	Source        string        `yaml:"source"`
	BaseName      string        `yaml:"base_name"`
	Column        string        `yaml:"column"`
	MaxChunkChars int           `yaml:"max_chunk_chars"`
	CreatedAt     time.Time     `yaml:"created_at"`
	Rows          []ManifestRow `yaml:"rows"`
}

// ManifestRow records how many chunk files one source row produced.
type ManifestRow struct {
	Row    int `yaml:"row"`
	Chunks int `yaml:"chunks"`
}

// ChunkCount returns the number of chunks recorded for a row ordinal.
func (m *Manifest) ChunkCount(row int) (int, bool) {
	for _, r := range m.Rows {
		if r.Row == row {
			return r.Chunks, true
		}
	}
	return 0, false
}

// WriteManifest stores m as dir/manifest.yaml.
func WriteManifest(dir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads dir/manifest.yaml. A missing manifest is reported as a
// *NotFoundError.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NotFound(path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}
	return &m, nil
}
