package merger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"codeberg.org/snonux/transdata/internal/chunk"
	"codeberg.org/snonux/transdata/internal/splitter"
	"codeberg.org/snonux/transdata/internal/testutil"
)

func writeChunks(t *testing.T, dir string, files map[string][][]string) {
	t.Helper()
	for name, records := range files {
		testutil.CreateCSVFile(t, filepath.Join(dir, name), records)
	}
}

func TestMerge_Scenario(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "chunks")
	writeChunks(t, in, map[string][][]string{
		chunk.FileName("train", 1, 1): {{"id", "text"}, {"1", "linha curta"}},
		chunk.FileName("train", 2, 1): {{"id", "text"}, {"2", "texto com"}},
		chunk.FileName("train", 2, 2): {{"id", "text"}, {"", "mais de dez"}},
	})
	out := filepath.Join(tmpDir, "merged.csv")

	result, err := Merge(context.Background(), Options{InputDir: in, OutputFile: out})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	if result.Rows != 2 || result.Files != 3 {
		t.Errorf("Rows/Files = %d/%d, want 2/3", result.Rows, result.Files)
	}

	want := [][]string{
		{"id", "text"},
		{"1", "linha curta"},
		{"2", "texto com mais de dez"},
	}
	got := testutil.ReadCSVFile(t, out)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merged table = %q, want %q", got, want)
	}
	for i, row := range got {
		if len(row) != len(got[0]) {
			t.Errorf("Row %d has %d columns, header has %d", i, len(row), len(got[0]))
		}
	}
}

func TestMerge_ColumnsMode(t *testing.T) {
	tmpDir := t.TempDir()
	writeChunks(t, tmpDir, map[string][][]string{
		chunk.FileName("train", 1, 1): {{"text"}, {"a"}},
		chunk.FileName("train", 2, 1): {{"text"}, {"b"}},
		chunk.FileName("train", 2, 2): {{"text"}, {"c"}},
		chunk.FileName("train", 2, 3): {{"text"}, {"d"}},
	})
	out := filepath.Join(tmpDir, "out", "merged.csv")

	if _, err := Merge(context.Background(), Options{InputDir: tmpDir, OutputFile: out, Mode: ModeColumns}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	want := [][]string{{"text"}, {"a"}, {"b", "c", "d"}}
	if got := testutil.ReadCSVFile(t, out); !reflect.DeepEqual(got, want) {
		t.Errorf("Merged table = %q, want %q", got, want)
	}
}

func TestMerge_LegacyUnpaddedNames(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "chunks")
	writeChunks(t, in, map[string][][]string{
		"train_parte_1_1.csv":  {{"text"}, {"um"}},
		"train_parte_2_1.csv":  {{"text"}, {"dois"}},
		"train_parte_10_1.csv": {{"text"}, {"dez"}},
		"train_parte_10_2.csv": {{"text"}, {"e mais"}},
	})
	out := filepath.Join(tmpDir, "merged.csv")

	if _, err := Merge(context.Background(), Options{InputDir: in, OutputFile: out}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	want := [][]string{{"text"}, {"um"}, {"dois"}, {"dez e mais"}}
	if got := testutil.ReadCSVFile(t, out); !reflect.DeepEqual(got, want) {
		t.Errorf("Merged table = %q, want %q", got, want)
	}
}

func TestMerge_ManifestKeepsEmptyRows(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "chunks")
	writeChunks(t, in, map[string][][]string{
		chunk.FileName("train", 1, 1): {{"text"}, {"um"}},
		chunk.FileName("train", 3, 1): {{"text"}, {"tres"}},
		chunk.FileName("train", 3, 2): {{"text"}, {"partes"}},
	})
	err := chunk.WriteManifest(in, &chunk.Manifest{
		BaseName: "train",
		Column:   "text",
		Rows: []chunk.ManifestRow{
			{Row: 1, Chunks: 1},
			{Row: 2, Chunks: 0},
			{Row: 3, Chunks: 2},
			{Row: 4, Chunks: 0},
		},
	})
	if err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}
	out := filepath.Join(tmpDir, "merged.csv")

	result, err := Merge(context.Background(), Options{InputDir: in, OutputFile: out})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if result.Rows != 4 || result.EmptyRows != 2 {
		t.Errorf("Rows/EmptyRows = %d/%d, want 4/2", result.Rows, result.EmptyRows)
	}

	want := [][]string{{"text"}, {"um"}, {""}, {"tres partes"}, {""}}
	if got := testutil.ReadCSVFile(t, out); !reflect.DeepEqual(got, want) {
		t.Errorf("Merged table = %q, want %q", got, want)
	}

	// Without the manifest the empty rows disappear.
	if _, err := Merge(context.Background(), Options{InputDir: in, OutputFile: out, IgnoreManifest: true}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	want = [][]string{{"text"}, {"um"}, {"tres partes"}}
	if got := testutil.ReadCSVFile(t, out); !reflect.DeepEqual(got, want) {
		t.Errorf("Merged table without manifest = %q, want %q", got, want)
	}
}

func TestMerge_SkipsEmptyAndUnrecognizedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "chunks")
	writeChunks(t, in, map[string][][]string{
		chunk.FileName("train", 1, 1): {{"text"}, {"um"}},
		"notes.csv":                   {{"text"}, {"ignorado"}},
	})
	testutil.CreateTestFile(t, filepath.Join(in, chunk.FileName("train", 2, 1)), nil)
	testutil.CreateTestFile(t, filepath.Join(in, "readme.txt"), []byte("not a chunk"))
	out := filepath.Join(tmpDir, "merged.csv")

	result, err := Merge(context.Background(), Options{InputDir: in, OutputFile: out})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if result.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", result.Skipped)
	}

	want := [][]string{{"text"}, {"um"}}
	if got := testutil.ReadCSVFile(t, out); !reflect.DeepEqual(got, want) {
		t.Errorf("Merged table = %q, want %q", got, want)
	}
}

func TestMerge_EmptyDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "chunks")
	if err := os.MkdirAll(in, 0755); err != nil {
		t.Fatalf("Failed to create input directory: %v", err)
	}
	out := filepath.Join(tmpDir, "merged.csv")

	result, err := Merge(context.Background(), Options{InputDir: in, OutputFile: out})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if result.Rows != 0 {
		t.Errorf("Rows = %d, want 0", result.Rows)
	}
	testutil.AssertFileContent(t, out, nil)
}

func TestMerge_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	missing := filepath.Join(tmpDir, "missing")

	_, err := Merge(context.Background(), Options{InputDir: missing, OutputFile: filepath.Join(tmpDir, "out.csv")})

	var nf *chunk.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Expected *chunk.NotFoundError, got %v", err)
	}
	if nf.Path != missing {
		t.Errorf("NotFoundError.Path = %s, want %s", nf.Path, missing)
	}
	testutil.AssertFileNotExists(t, filepath.Join(tmpDir, "out.csv"))
}

func TestSplitMergeRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	gen := &testutil.TestDataGenerator{}
	texts := []string{
		"texto com mais de dez caracteres",
		"",
		"  espaços   extras\tno meio  ",
		gen.GenerateSentence(40),
		"curto",
	}

	records := [][]string{{"id", "text"}}
	for i, text := range texts {
		records = append(records, []string{string(rune('a' + i)), text})
	}
	source := filepath.Join(tmpDir, "train.csv")
	testutil.CreateCSVFile(t, source, records)

	for _, budget := range []int{1, 5, 12, 1000} {
		split, err := splitter.Split(context.Background(), splitter.Options{
			Source:        source,
			Column:        "text",
			MaxChunkChars: budget,
			MaxRows:       -1,
			OutputDir:     filepath.Join(tmpDir, "chunks"),
		})
		if err != nil {
			t.Fatalf("Split(budget=%d) failed: %v", budget, err)
		}

		out := filepath.Join(tmpDir, "merged.csv")
		if _, err := Merge(context.Background(), Options{InputDir: split.Dir, OutputFile: out}); err != nil {
			t.Fatalf("Merge(budget=%d) failed: %v", budget, err)
		}

		got := testutil.ReadCSVFile(t, out)
		if len(got) != len(texts)+1 {
			t.Fatalf("budget=%d: merged %d rows, want %d", budget, len(got)-1, len(texts))
		}
		for i, text := range texts {
			if want := chunk.NormalizeSpace(text); got[i+1][0] != want {
				t.Errorf("budget=%d row %d: got %q, want %q", budget, i+1, got[i+1][0], want)
			}
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"", ModeJoin, false},
		{"join", ModeJoin, false},
		{"COLUMNS", ModeColumns, false},
		{"zip", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
