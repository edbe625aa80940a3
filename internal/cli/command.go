package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/snonux/transdata/internal"
)

// RunFunc executes one subcommand with its positional arguments
type RunFunc func(ctx context.Context, args []string) error

// Handlers are the actions behind the subcommands
type Handlers struct {
	Split     RunFunc
	Merge     RunFunc
	Translate RunFunc
	Pipeline  RunFunc
	Validate  RunFunc
	Models    RunFunc
	Archive   RunFunc
}

// configKeyAnnotation holds the config file key of a flag. The
// environment variable is the key upper-cased with "_" for "." and the
// TRANSDATA_ prefix, for example TRANSDATA_SPLIT_MAX_CHARS.
const configKeyAnnotation = "transdata_config_key"

// bindConfig links flag name of fs to a config key
func bindConfig(fs *pflag.FlagSet, name, key string) {
	if err := fs.SetAnnotation(name, configKeyAnnotation, []string{key}); err != nil {
		panic(err)
	}
}

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags, handlers Handlers) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "transdata",
		Short: "Dataset translation preparation tool",
		Long: `transdata prepares text datasets for machine translation.

It splits a text column of a CSV, TSV or XLSX table into word-aligned
chunk files that fit a translation request, translates the chunk files
and merges them back into one row per source row.

Examples:
  transdata split train.csv --column article --max-chars 4000
  transdata translate out/train --provider openai --target-lang pt
  transdata merge out/train/traducao -o train_pt.csv
  transdata pipeline train.csv.gz --column article --provider gemini`,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyConfig(cmd)
		},
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.transdata.yaml)")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: text or json")
	pf.StringVar(&flags.MetricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file")
	bindConfig(pf, "log-level", "log.level")
	bindConfig(pf, "log-format", "log.format")
	bindConfig(pf, "metrics-file", "metrics.file")

	rootCmd.AddCommand(
		newSplitCommand(flags, handlers.Split),
		newMergeCommand(flags, handlers.Merge),
		newTranslateCommand(flags, handlers.Translate),
		newPipelineCommand(flags, handlers.Pipeline),
		newValidateCommand(flags, handlers.Validate),
		newModelsCommand(handlers.Models),
		newArchiveCommand(handlers.Archive),
	)

	return rootCmd
}

func newSplitCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split [source]",
		Short: "Split a text column into chunk files",
		Long: `Split reads a table and writes one single-column CSV file per chunk of
the text column into <output>/<base-name>. Chunks never cut a word and stay
below --max-chars characters unless a single word is longer.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if flags.BatchFile == "" && len(args) != 1 {
				return fmt.Errorf("requires a source table or --batch")
			}
			if flags.BatchFile != "" && len(args) > 0 {
				return fmt.Errorf("a source table cannot be combined with --batch")
			}
			return nil
		},
		RunE: runE(run),
	}

	addSplitFlags(cmd, flags)
	cmd.Flags().StringVar(&flags.BatchFile, "batch", "", "Run the split jobs listed in a YAML or text file")
	return cmd
}

func newMergeCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <chunk-dir>",
		Short: "Merge chunk files back into one table",
		Args:  cobra.ExactArgs(1),
		RunE:  runE(run),
	}

	addMergeFlags(cmd, flags)
	cmd.Flags().StringVarP(&flags.MergeOutput, "output", "o", "", "Merged CSV file (default <chunk-dir>_merged.csv)")
	return cmd
}

func newTranslateCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate <chunk-dir>",
		Short: "Translate every chunk file in a folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runE(run),
	}

	addTranslationFlags(cmd, flags)
	cmd.Flags().StringVarP(&flags.TranslateOutput, "output", "o", "", "Output folder (default <chunk-dir>/traducao)")
	return cmd
}

func newPipelineCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline <source>",
		Short: "Split, translate and merge in one run",
		Args:  cobra.ExactArgs(1),
		RunE:  runE(run),
	}

	addSplitFlags(cmd, flags)
	addTranslationFlags(cmd, flags)
	addMergeFlags(cmd, flags)
	cmd.Flags().StringVar(&flags.MergeOutput, "merged", "", "Merged CSV file (default <output>/<base-name>_merged.csv)")
	return cmd
}

func newValidateCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check CSV files for structural problems",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runE(run),
	}

	cmd.Flags().IntVar(&flags.MinColumns, "min-columns", flags.MinColumns, "Minimum number of header columns")
	return cmd
}

func newModelsCommand(run RunFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available OpenAI chat models for the current API key",
		Args:  cobra.NoArgs,
		RunE:  runE(run),
	}
}

func newArchiveCommand(run RunFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <dir>",
		Short: "Move a chunk folder into a sibling archive folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runE(run),
	}
}

func addSplitFlags(cmd *cobra.Command, flags *Flags) {
	cmd.Flags().StringVarP(&flags.Column, "column", "c", flags.Column, "Name of the text column to split")
	cmd.Flags().IntVarP(&flags.MaxChars, "max-chars", "m", flags.MaxChars, "Maximum characters per chunk")
	cmd.Flags().IntVar(&flags.MaxRows, "max-rows", flags.MaxRows, "Maximum number of rows to read (-1 for all)")
	cmd.Flags().StringVarP(&flags.OutputDir, "output", "o", flags.OutputDir, "Parent folder of the chunk folder")
	cmd.Flags().StringVar(&flags.BaseName, "base-name", "", "Chunk folder and file prefix (default: source file name)")
	cmd.Flags().BoolVar(&flags.Normalize, "normalize", false, "Apply Unicode NFC normalization before splitting")
	cmd.Flags().BoolVar(&flags.Archive, "archive", false, "Archive a previous chunk folder instead of deleting its files")

	bindConfig(cmd.Flags(), "column", "split.column")
	bindConfig(cmd.Flags(), "max-chars", "split.max_chars")
	bindConfig(cmd.Flags(), "max-rows", "split.max_rows")
	bindConfig(cmd.Flags(), "output", "split.output")
	bindConfig(cmd.Flags(), "base-name", "split.base_name")
	bindConfig(cmd.Flags(), "normalize", "split.normalize")
}

func addMergeFlags(cmd *cobra.Command, flags *Flags) {
	cmd.Flags().StringVar(&flags.MergeMode, "mode", flags.MergeMode, "Merge mode: join or columns")
	cmd.Flags().BoolVar(&flags.IgnoreManifest, "ignore-manifest", false, "Merge by file names only")

	bindConfig(cmd.Flags(), "mode", "merge.mode")
}

func addTranslationFlags(cmd *cobra.Command, flags *Flags) {
	cmd.Flags().StringVar(&flags.Provider, "provider", flags.Provider, "Translation backend: openai, gemini or identity")
	cmd.Flags().StringVar(&flags.Fallback, "fallback", "", "Backend used when the primary backend fails")
	cmd.Flags().StringVar(&flags.SourceLang, "source-lang", "", "Source language code (default: detect)")
	cmd.Flags().StringVar(&flags.TargetLang, "target-lang", flags.TargetLang, "Target language code")
	cmd.Flags().StringVar(&flags.Model, "model", "", "Model name (default depends on the backend)")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", flags.Timeout, "Timeout per translation request")
	cmd.Flags().StringVar(&flags.CacheFile, "cache", "", "SQLite translation cache file (default: in memory)")
	cmd.Flags().BoolVar(&flags.NoCache, "no-cache", false, "Disable the translation cache")
	cmd.Flags().BoolVar(&flags.TranslateHeader, "translate-header", false, "Translate the header row too")
	cmd.Flags().IntVar(&flags.BreakerFailures, "breaker-failures", flags.BreakerFailures, "Consecutive failures before a backend is paused")

	bindConfig(cmd.Flags(), "provider", "translation.provider")
	bindConfig(cmd.Flags(), "fallback", "translation.fallback")
	bindConfig(cmd.Flags(), "source-lang", "translation.source")
	bindConfig(cmd.Flags(), "target-lang", "translation.target")
	bindConfig(cmd.Flags(), "model", "translation.model")
	bindConfig(cmd.Flags(), "timeout", "translation.timeout")
	bindConfig(cmd.Flags(), "cache", "translation.cache")
	bindConfig(cmd.Flags(), "breaker-failures", "translation.breaker_failures")
}

func runE(run RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if run == nil {
			return fmt.Errorf("%s is not available", cmd.Name())
		}
		return run(cmd.Context(), args)
	}
}

// applyConfig copies config file and environment values into every flag the
// user did not set on the command line.
func applyConfig(cmd *cobra.Command) error {
	var firstErr error
	apply := func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if len(keys) == 0 || f.Changed || !viper.IsSet(keys[0]) {
			return
		}
		key := keys[0]
		if err := f.Value.Set(viper.GetString(key)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("invalid value for %s in config: %w", key, err)
		}
	}

	// Flags() also holds the persistent flags inherited from the root
	cmd.Flags().VisitAll(apply)
	return firstErr
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".transdata" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".transdata")
	}

	// Values from ./.env never override the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
	}

	// Environment variables
	viper.SetEnvPrefix("TRANSDATA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	// First check environment variable
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}

	// Then check config file
	return viper.GetString("translation.openai_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("translation.gemini_key")
}
