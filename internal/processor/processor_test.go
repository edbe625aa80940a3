package processor

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"codeberg.org/snonux/transdata/internal/chunk"
	"codeberg.org/snonux/transdata/internal/cli"
	"codeberg.org/snonux/transdata/internal/metrics"
	"codeberg.org/snonux/transdata/internal/testutil"
)

func newTestProcessor(t *testing.T, flags *cli.Flags) (*Processor, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	p := &Processor{
		flags:   flags,
		logger:  slog.New(slog.DiscardHandler),
		metrics: metrics.New(),
		out:     out,
	}
	t.Cleanup(func() { p.Close() })
	return p, out
}

func writeSource(t *testing.T, dir string, texts ...string) string {
	t.Helper()
	records := [][]string{{"id", "text"}}
	for i, text := range texts {
		records = append(records, []string{string(rune('1' + i)), text})
	}
	path := filepath.Join(dir, "train.csv")
	testutil.CreateCSVFile(t, path, records)
	return path
}

func TestNewProcessor(t *testing.T) {
	flags := cli.NewFlags()
	p, err := NewProcessor(flags)
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}

	if p.flags != flags {
		t.Error("Processor flags not set correctly")
	}
	if p.logger == nil || p.metrics == nil {
		t.Error("Logger or metrics not initialized")
	}
	if p.runID == "" {
		t.Error("Run ID not set")
	}
}

func TestNewProcessor_InvalidLogLevel(t *testing.T) {
	flags := cli.NewFlags()
	flags.LogLevel = "chatty"

	if _, err := NewProcessor(flags); err == nil {
		t.Error("Expected error for invalid log level")
	}
}

func TestSplit(t *testing.T) {
	tmpDir := t.TempDir()
	source := writeSource(t, tmpDir, "short", "a text that needs two chunks", "")

	flags := cli.NewFlags()
	flags.OutputDir = filepath.Join(tmpDir, "out")
	flags.MaxChars = 16
	p, out := newTestProcessor(t, flags)

	if err := p.Split(context.Background(), []string{source}); err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	files := testutil.ListFiles(t, filepath.Join(flags.OutputDir, "train"), ".csv")
	if len(files) != 3 {
		t.Errorf("Expected 3 chunk files, got %v", files)
	}
	if !strings.Contains(out.String(), "Split 3 rows into 3 chunk files") {
		t.Errorf("Unexpected summary: %s", out.String())
	}
	if !strings.Contains(out.String(), "Empty rows (no chunk file): 1") {
		t.Errorf("Empty row not reported: %s", out.String())
	}

	m := p.Metrics()
	if got := promtest.ToFloat64(m.ChunksWritten); got != 3 {
		t.Errorf("ChunksWritten = %v, want 3", got)
	}
	if got := promtest.ToFloat64(m.JobsTotal.WithLabelValues("split", "ok")); got != 1 {
		t.Errorf("split ok jobs = %v, want 1", got)
	}
}

func TestSplitBatch(t *testing.T) {
	tmpDir := t.TempDir()
	source := writeSource(t, tmpDir, "one", "two")
	batchFile := filepath.Join(tmpDir, "jobs.txt")
	content := source + "\n" + filepath.Join(tmpDir, "missing.csv") + "\n"
	testutil.CreateTestFile(t, batchFile, []byte(content))

	flags := cli.NewFlags()
	flags.OutputDir = filepath.Join(tmpDir, "out")
	flags.BaseName = "ignored"
	flags.BatchFile = batchFile
	p, out := newTestProcessor(t, flags)

	var err error
	_, stderr := testutil.CaptureOutput(t, func() {
		err = p.Split(context.Background(), nil)
	})
	if err == nil || !strings.Contains(err.Error(), "1 of 2 jobs failed") {
		t.Errorf("Expected job failure error, got %v", err)
	}
	if !strings.Contains(stderr, "missing.csv") {
		t.Errorf("Failing job not reported on stderr: %q", stderr)
	}

	// Batch jobs use the source name, not the single-run base name
	testutil.AssertFileExists(t, filepath.Join(flags.OutputDir, "train", chunk.FileName("train", 1, 1)))

	summary := out.String()
	for _, want := range []string{"Processing 1/2", "Processing 2/2", "Total jobs: 2", "Processed: 1", "Errors: 1"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary does not contain %q:\n%s", want, summary)
		}
	}

	m := p.Metrics()
	if got := promtest.ToFloat64(m.JobsTotal.WithLabelValues("split", "error")); got != 1 {
		t.Errorf("split error jobs = %v, want 1", got)
	}
}

func TestSplitBatch_InvalidFile(t *testing.T) {
	flags := cli.NewFlags()
	flags.BatchFile = "/nonexistent/file.txt"
	p, _ := newTestProcessor(t, flags)

	if err := p.SplitBatch(context.Background()); err == nil {
		t.Error("Expected error for non-existent batch file")
	}
}

func TestMerge_DefaultOutput(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "train")
	testutil.CreateCSVFile(t, filepath.Join(dir, chunk.FileName("train", 1, 1)), [][]string{{"text"}, {"hello"}})
	testutil.CreateCSVFile(t, filepath.Join(dir, chunk.FileName("train", 1, 2)), [][]string{{"text"}, {"world"}})

	p, out := newTestProcessor(t, cli.NewFlags())

	if err := p.Merge(context.Background(), []string{dir + string(filepath.Separator)}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	records := testutil.ReadCSVFile(t, filepath.Join(tmpDir, "train_merged.csv"))
	if len(records) != 2 || records[1][0] != "hello world" {
		t.Errorf("Unexpected merged records: %v", records)
	}
	if !strings.Contains(out.String(), "Merged 2 files into 1 rows") {
		t.Errorf("Unexpected summary: %s", out.String())
	}
}

func TestMerge_InvalidMode(t *testing.T) {
	flags := cli.NewFlags()
	flags.MergeMode = "zip"
	p, _ := newTestProcessor(t, flags)

	if err := p.Merge(context.Background(), []string{t.TempDir()}); err == nil {
		t.Error("Expected error for invalid merge mode")
	}
}

func TestPipeline_IdentityRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	gen := &testutil.TestDataGenerator{}
	texts := []string{gen.GenerateSentence(40), "short one", "", gen.GenerateSentence(7)}
	source := writeSource(t, tmpDir, texts...)

	flags := cli.NewFlags()
	flags.OutputDir = filepath.Join(tmpDir, "out")
	flags.MaxChars = 50
	p, out := newTestProcessor(t, flags)

	if err := p.Pipeline(context.Background(), []string{source}); err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}

	merged := filepath.Join(flags.OutputDir, "train_merged.csv")
	records := testutil.ReadCSVFile(t, merged)
	if len(records) != len(texts)+1 {
		t.Fatalf("Expected %d records, got %d", len(texts)+1, len(records))
	}
	if records[0][0] != "text" {
		t.Errorf("Header = %v, want [text]", records[0])
	}
	for i, text := range texts {
		if records[i+1][0] != text {
			t.Errorf("Row %d = %q, want %q", i+1, records[i+1][0], text)
		}
	}

	for _, want := range []string{"Splitting...", "Translating...", "Merging..."} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output does not contain %q", want)
		}
	}
	if got := promtest.ToFloat64(p.Metrics().JobsTotal.WithLabelValues("pipeline", "ok")); got != 1 {
		t.Errorf("pipeline ok jobs = %v, want 1", got)
	}
}

func TestPipeline_CacheHits(t *testing.T) {
	tmpDir := t.TempDir()
	source := writeSource(t, tmpDir, "same text", "same text", "other text")

	flags := cli.NewFlags()
	flags.OutputDir = filepath.Join(tmpDir, "out")
	flags.MergeOutput = filepath.Join(tmpDir, "result.csv")
	p, _ := newTestProcessor(t, flags)

	if err := p.Pipeline(context.Background(), []string{source}); err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}

	testutil.AssertFileExists(t, flags.MergeOutput)
	if got := promtest.ToFloat64(p.Metrics().CacheHits); got != 1 {
		t.Errorf("CacheHits = %v, want 1", got)
	}
	if got := promtest.ToFloat64(p.Metrics().Translations.WithLabelValues("identity", "ok")); got != 2 {
		t.Errorf("identity translations = %v, want 2", got)
	}
}

func TestPipeline_MissingSource(t *testing.T) {
	p, _ := newTestProcessor(t, cli.NewFlags())

	err := p.Pipeline(context.Background(), []string{filepath.Join(t.TempDir(), "missing.csv")})
	if err == nil || !strings.Contains(err.Error(), "split failed") {
		t.Errorf("Expected split error, got %v", err)
	}
	if got := promtest.ToFloat64(p.Metrics().JobsTotal.WithLabelValues("pipeline", "error")); got != 1 {
		t.Errorf("pipeline error jobs = %v, want 1", got)
	}
}

func TestTranslate_UnknownProvider(t *testing.T) {
	flags := cli.NewFlags()
	flags.Provider = "babelfish"
	p, _ := newTestProcessor(t, flags)

	if err := p.Translate(context.Background(), []string{t.TempDir()}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestTranslate_SQLiteCache(t *testing.T) {
	tmpDir := testutil.CreateTestDirectory(t)
	dir := filepath.Join(tmpDir, "chunks", "train")
	testutil.CreateCSVFile(t, filepath.Join(dir, chunk.FileName("train", 1, 1)), [][]string{{"text"}, {"hello"}})

	flags := cli.NewFlags()
	flags.CacheFile = filepath.Join(tmpDir, "cache", "translations.db")
	p, out := newTestProcessor(t, flags)

	if err := p.Translate(context.Background(), []string{dir}); err != nil {
		t.Skipf("SQLite cache not available: %v", err)
	}

	testutil.AssertFileExists(t, flags.CacheFile)
	testutil.AssertFileExists(t, filepath.Join(dir, "traducao", chunk.FileName("train", 1, 1)))
	if !strings.Contains(out.String(), "Translated 1 cells in 1 files") {
		t.Errorf("Unexpected summary: %s", out.String())
	}
}

func TestValidate(t *testing.T) {
	tmpDir := t.TempDir()
	good := filepath.Join(tmpDir, "good.csv")
	bad := filepath.Join(tmpDir, "bad.csv")
	testutil.CreateCSVFile(t, good, [][]string{{"id", "text"}, {"1", "ok"}})
	testutil.CreateCSVFile(t, bad, [][]string{{"text"}, {"too narrow"}})

	p, out := newTestProcessor(t, cli.NewFlags())

	err := p.Validate(context.Background(), []string{good, bad})
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed validation") {
		t.Errorf("Expected validation error, got %v", err)
	}
	if !strings.Contains(out.String(), "✓ "+good) {
		t.Errorf("Good file not reported: %s", out.String())
	}
	if !strings.Contains(out.String(), "✗ "+bad) {
		t.Errorf("Bad file not reported: %s", out.String())
	}
}

func TestArchive(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, "train")
	testutil.CreateTestFile(t, filepath.Join(dir, "a.csv"), []byte("text\nx\n"))

	p, out := newTestProcessor(t, cli.NewFlags())

	if err := p.Archive(context.Background(), []string{dir}); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	testutil.AssertFileNotExists(t, dir)
	if !strings.Contains(out.String(), "Archived") {
		t.Errorf("Unexpected output: %s", out.String())
	}
}

func TestClose_WritesMetricsFile(t *testing.T) {
	flags := cli.NewFlags()
	flags.MetricsFile = filepath.Join(t.TempDir(), "metrics", "transdata.prom")
	p, _ := newTestProcessor(t, flags)
	p.Metrics().JobDone("split", nil)

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	testutil.AssertFileContains(t, flags.MetricsFile, `transdata_jobs_total{command="split",status="ok"} 1`)
}
