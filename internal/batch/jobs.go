package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Job is one split job. Zero fields inherit the command line values.
type Job struct {
	Source   string `yaml:"source"`
	Column   string `yaml:"column,omitempty"`
	MaxChars int    `yaml:"max_chars,omitempty"`
	MaxRows  *int   `yaml:"max_rows,omitempty"`
	Output   string `yaml:"output,omitempty"`
	BaseName string `yaml:"base_name,omitempty"`
}

// jobFile is the YAML layout: optional defaults plus the job list
type jobFile struct {
	Defaults Job   `yaml:"defaults"`
	Jobs     []Job `yaml:"jobs"`
}

// WithDefaults returns j with every unset field taken from d
func (j Job) WithDefaults(d Job) Job {
	if j.Source == "" {
		j.Source = d.Source
	}
	if j.Column == "" {
		j.Column = d.Column
	}
	if j.MaxChars == 0 {
		j.MaxChars = d.MaxChars
	}
	if j.MaxRows == nil && d.MaxRows != nil {
		n := *d.MaxRows
		j.MaxRows = &n
	}
	if j.Output == "" {
		j.Output = d.Output
	}
	if j.BaseName == "" {
		j.BaseName = d.BaseName
	}
	return j
}

// ReadJobFile reads split jobs from a file.
// Supports formats:
// - YAML (.yaml, .yml): a "jobs" list with optional "defaults"
// - Plain text: one source per line, optionally "source = column"
func ReadJobFile(filename string) ([]Job, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	var jobs []Job
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		jobs, err = parseYAML(content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse job file %s: %w", filename, err)
		}
	default:
		jobs = parseLines(string(content))
	}

	for i, job := range jobs {
		if job.Source == "" {
			return nil, fmt.Errorf("job %d in %s has no source", i+1, filename)
		}
	}
	return jobs, nil
}

func parseYAML(content []byte) ([]Job, error) {
	var f jobFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, err
	}

	var jobs []Job
	for _, job := range f.Jobs {
		jobs = append(jobs, job.WithDefaults(f.Defaults))
	}
	return jobs, nil
}

func parseLines(content string) []Job {
	var jobs []Job

	for _, line := range splitLines(content) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Check if line contains '=' for the column format
		if source, column, ok := strings.Cut(line, "="); ok {
			source = strings.TrimSpace(source)
			if source == "" {
				continue // Ignore lines without a source
			}
			jobs = append(jobs, Job{Source: source, Column: strings.TrimSpace(column)})
			continue
		}

		jobs = append(jobs, Job{Source: line})
	}

	return jobs
}

// splitLines splits a string by newlines
func splitLines(s string) []string {
	var lines []string
	var current strings.Builder
	for _, r := range s {
		if r == '\n' {
			lines = append(lines, current.String())
			current.Reset()
		} else if r != '\r' {
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
