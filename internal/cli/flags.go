package cli

import "time"

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile     string
	LogLevel    string
	LogFormat   string
	MetricsFile string

	// Split flags
	Column    string
	MaxChars  int
	MaxRows   int
	OutputDir string
	BaseName  string
	Normalize bool
	Archive   bool
	BatchFile string

	// Merge flags
	MergeMode      string
	MergeOutput    string
	IgnoreManifest bool

	// Translation flags
	Provider        string
	Fallback        string
	SourceLang      string
	TargetLang      string
	Model           string
	Timeout         time.Duration
	CacheFile       string
	NoCache         bool
	TranslateHeader bool
	TranslateOutput string
	BreakerFailures int

	// Validate flags
	MinColumns int
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		LogLevel:        "info",
		LogFormat:       "text",
		Column:          "text",
		MaxChars:        5000,
		MaxRows:         -1,
		OutputDir:       ".",
		MergeMode:       "join",
		Provider:        "identity",
		TargetLang:      "pt",
		Timeout:         60 * time.Second,
		BreakerFailures: 5,
		MinColumns:      2,
	}
}
