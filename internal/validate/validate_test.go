package validate

import (
	"errors"
	"path/filepath"
	"testing"

	"codeberg.org/snonux/transdata/internal/chunk"
	"codeberg.org/snonux/transdata/internal/testutil"
)

func TestCheckFile(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		minColumns int
		wantKinds  []Kind
		wantRows   int
	}{
		{
			name:      "valid",
			content:   "id,text\n1,ola\n2,\"com, virgula\"\n",
			wantRows:  2,
			wantKinds: nil,
		},
		{
			name:      "empty",
			content:   "",
			wantKinds: []Kind{KindEmpty},
		},
		{
			name:      "blank header",
			content:   ",\n1,a\n",
			wantKinds: []Kind{KindNoHeader},
		},
		{
			name:      "single column",
			content:   "text\nola\n",
			wantRows:  1,
			wantKinds: []Kind{KindTooFewCols},
		},
		{
			name:       "single column allowed",
			content:    "text\nola\n",
			minColumns: 1,
			wantRows:   1,
		},
		{
			name:      "ragged rows",
			content:   "id,text\n1,a\n2\n3,b,c\n",
			wantRows:  3,
			wantKinds: []Kind{KindColumnCount, KindColumnCount},
		},
		{
			name:      "invalid utf-8",
			content:   "id,text\n1,bad \xff\n",
			wantRows:  1,
			wantKinds: []Kind{KindInvalidUTF8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.csv")
			testutil.CreateTestFile(t, path, []byte(tt.content))

			report, err := CheckFile(path, tt.minColumns)
			if err != nil {
				t.Fatalf("CheckFile failed: %v", err)
			}

			if len(report.Violations) != len(tt.wantKinds) {
				t.Fatalf("Violations = %+v, want kinds %v", report.Violations, tt.wantKinds)
			}
			for i, v := range report.Violations {
				if v.Kind != tt.wantKinds[i] {
					t.Errorf("Violation %d kind = %s, want %s", i, v.Kind, tt.wantKinds[i])
				}
			}
			if report.OK() != (len(tt.wantKinds) == 0) {
				t.Errorf("OK() = %v", report.OK())
			}
			if report.Rows != tt.wantRows {
				t.Errorf("Rows = %d, want %d", report.Rows, tt.wantRows)
			}
		})
	}
}

func TestCheckFile_Lines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	testutil.CreateTestFile(t, path, []byte("id,text\n1,a\n\n2\n"))

	report, err := CheckFile(path, 0)
	if err != nil {
		t.Fatalf("CheckFile failed: %v", err)
	}
	if len(report.Violations) != 1 || report.Violations[0].Line != 4 {
		t.Errorf("Expected one violation on line 4, got %+v", report.Violations)
	}
}

func TestCheckFile_Errors(t *testing.T) {
	_, err := CheckFile(filepath.Join(t.TempDir(), "missing.csv"), 2)
	if !errors.Is(err, chunk.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "broken.csv")
	testutil.CreateTestFile(t, path, []byte("id,text\n1,\"unterminated\n"))
	if _, err := CheckFile(path, 2); err == nil {
		t.Error("Expected parse error for unterminated quote")
	}
}
