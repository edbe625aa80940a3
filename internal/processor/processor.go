package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"codeberg.org/snonux/transdata/internal"
	"codeberg.org/snonux/transdata/internal/archive"
	"codeberg.org/snonux/transdata/internal/batch"
	"codeberg.org/snonux/transdata/internal/cli"
	"codeberg.org/snonux/transdata/internal/merger"
	"codeberg.org/snonux/transdata/internal/metrics"
	"codeberg.org/snonux/transdata/internal/models"
	"codeberg.org/snonux/transdata/internal/splitter"
	"codeberg.org/snonux/transdata/internal/translation"
	"codeberg.org/snonux/transdata/internal/validate"
)

// Processor handles the main dataset processing logic
type Processor struct {
	flags   *cli.Flags
	logger  *slog.Logger
	metrics *metrics.Metrics
	out     io.Writer
	runID   string

	cache translation.Cache
}

// NewProcessor creates a new processor. Log output goes to stderr, summaries
// to stdout.
func NewProcessor(flags *cli.Flags) (*Processor, error) {
	runID := internal.NewRunID()
	logger, err := cli.NewLogger(os.Stderr, flags.LogLevel, flags.LogFormat, runID)
	if err != nil {
		return nil, err
	}
	return &Processor{
		flags:   flags,
		logger:  logger,
		metrics: metrics.New(),
		out:     os.Stdout,
		runID:   runID,
	}, nil
}

// Metrics returns the counters of this run
func (p *Processor) Metrics() *metrics.Metrics {
	return p.metrics
}

// Close releases the translation cache and writes the metrics file when one
// is configured
func (p *Processor) Close() error {
	var errs []error
	if p.cache != nil {
		errs = append(errs, p.cache.Close())
		p.cache = nil
	}
	if p.flags.MetricsFile != "" {
		errs = append(errs, p.metrics.WriteFile(p.flags.MetricsFile))
	}
	return errors.Join(errs...)
}

// Split splits the source named in args, or every job of the batch file
func (p *Processor) Split(ctx context.Context, args []string) error {
	if p.flags.BatchFile != "" {
		return p.SplitBatch(ctx)
	}

	result, err := p.split(ctx, p.flagJob(args[0]))
	p.metrics.JobDone("split", err)
	if err != nil {
		return err
	}
	p.printSplit(result)
	return nil
}

// SplitBatch runs every job of the batch file. A failing job is reported
// and counted; the next job still runs.
func (p *Processor) SplitBatch(ctx context.Context) error {
	jobs, err := batch.ReadJobFile(p.flags.BatchFile)
	if err != nil {
		return err
	}

	defaults := p.flagJob("")
	defaults.BaseName = ""

	// Track statistics
	processedCount := 0
	errorCount := 0
	totalChunks := 0

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		job = job.WithDefaults(defaults)

		fmt.Fprintf(p.out, "\nProcessing %d/%d: %s\n", i+1, len(jobs), job.Source)

		result, err := p.split(ctx, job)
		p.metrics.JobDone("split", err)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error processing '%s': %v\n", job.Source, err)
			errorCount++
			// Continue with next job
			continue
		}
		p.printSplit(result)
		processedCount++
		totalChunks += result.Chunks
	}

	// Print summary
	fmt.Fprintf(p.out, "\n=== Batch Processing Summary ===\n")
	fmt.Fprintf(p.out, "Total jobs: %d\n", len(jobs))
	fmt.Fprintf(p.out, "Processed: %d\n", processedCount)
	fmt.Fprintf(p.out, "Chunk files: %d\n", totalChunks)
	if errorCount > 0 {
		fmt.Fprintf(p.out, "Errors: %d\n", errorCount)
	}
	fmt.Fprintf(p.out, "================================\n")

	if errorCount > 0 {
		return fmt.Errorf("%d of %d jobs failed", errorCount, len(jobs))
	}
	return nil
}

// Merge merges the chunk folder in args[0]
func (p *Processor) Merge(ctx context.Context, args []string) error {
	dir := filepath.Clean(args[0])
	output := p.flags.MergeOutput
	if output == "" {
		output = dir + "_merged.csv"
	}

	result, err := p.merge(ctx, dir, output)
	p.metrics.JobDone("merge", err)
	if err != nil {
		return err
	}
	p.printMerge(result)
	return nil
}

// Translate translates every chunk file of the folder in args[0]
func (p *Processor) Translate(ctx context.Context, args []string) error {
	result, err := p.translate(ctx, args[0], p.flags.TranslateOutput)
	p.metrics.JobDone("translate", err)
	if err != nil {
		return err
	}
	p.printTranslate(result)
	return nil
}

// Pipeline splits the source in args[0], translates the chunks and merges
// the translations into one CSV file
func (p *Processor) Pipeline(ctx context.Context, args []string) (err error) {
	defer func() { p.metrics.JobDone("pipeline", err) }()

	fmt.Fprintf(p.out, "\nProcessing: %s\n", args[0])

	fmt.Fprintf(p.out, "  Splitting...\n")
	split, err := p.split(ctx, p.flagJob(args[0]))
	if err != nil {
		return fmt.Errorf("split failed: %w", err)
	}
	p.printSplit(split)

	fmt.Fprintf(p.out, "  Translating...\n")
	translated, err := p.translate(ctx, split.Dir, "")
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}
	p.printTranslate(translated)

	output := p.flags.MergeOutput
	if output == "" {
		output = filepath.Join(filepath.Dir(split.Dir), filepath.Base(split.Dir)+"_merged.csv")
	}

	fmt.Fprintf(p.out, "  Merging...\n")
	merged, err := p.merge(ctx, translated.OutputDir, output)
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}
	p.printMerge(merged)
	return nil
}

// Validate checks every file in args and prints the violations found
func (p *Processor) Validate(ctx context.Context, args []string) error {
	failed := 0
	for _, path := range args {
		if err := ctx.Err(); err != nil {
			return err
		}

		report, err := validate.CheckFile(path, p.flags.MinColumns)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error validating '%s': %v\n", path, err)
			failed++
			continue
		}
		if report.OK() {
			fmt.Fprintf(p.out, "✓ %s: %d columns, %d rows\n", path, report.Columns, report.Rows)
			continue
		}

		failed++
		fmt.Fprintf(p.out, "✗ %s: %d problems\n", path, len(report.Violations))
		for _, v := range report.Violations {
			fmt.Fprintf(p.out, "  line %d: %s\n", v.Line, v.Message)
		}
	}

	p.metrics.JobDone("validate", nil)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(args))
	}
	return nil
}

// ListModels prints the OpenAI chat models usable for translation
func (p *Processor) ListModels(ctx context.Context, args []string) error {
	return models.NewLister(cli.GetOpenAIKey()).ListAvailableModels(ctx, p.out)
}

// Archive moves the folder in args[0] into a sibling archive folder
func (p *Processor) Archive(ctx context.Context, args []string) error {
	path, err := archive.ArchiveDir(filepath.Clean(args[0]), "")
	p.metrics.JobDone("archive", err)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Archived %s to %s\n", args[0], path)
	return nil
}

// flagJob returns the split job described by the command line flags
func (p *Processor) flagJob(source string) batch.Job {
	maxRows := p.flags.MaxRows
	return batch.Job{
		Source:   source,
		Column:   p.flags.Column,
		MaxChars: p.flags.MaxChars,
		MaxRows:  &maxRows,
		Output:   p.flags.OutputDir,
		BaseName: p.flags.BaseName,
	}
}

func (p *Processor) split(ctx context.Context, job batch.Job) (*splitter.Result, error) {
	maxRows := -1
	if job.MaxRows != nil {
		maxRows = *job.MaxRows
	}

	result, err := splitter.Split(ctx, splitter.Options{
		Source:        job.Source,
		Column:        job.Column,
		MaxChunkChars: job.MaxChars,
		MaxRows:       maxRows,
		OutputDir:     job.Output,
		BaseName:      job.BaseName,
		Normalize:     p.flags.Normalize,
		Archive:       p.flags.Archive,
		Logger:        p.logger.With("source", job.Source),
	})
	if err != nil {
		return nil, err
	}

	p.metrics.RowsRead.Add(float64(result.Rows))
	p.metrics.ChunksWritten.Add(float64(result.Chunks))
	p.metrics.EmptyRows.Add(float64(result.EmptyRows))
	return result, nil
}

func (p *Processor) merge(ctx context.Context, dir, output string) (*merger.Result, error) {
	mode, err := merger.ParseMode(p.flags.MergeMode)
	if err != nil {
		return nil, err
	}

	result, err := merger.Merge(ctx, merger.Options{
		InputDir:       dir,
		OutputFile:     output,
		Mode:           mode,
		IgnoreManifest: p.flags.IgnoreManifest,
		Logger:         p.logger,
	})
	if err != nil {
		return nil, err
	}

	p.metrics.FilesMerged.Add(float64(result.Files))
	p.metrics.RowsMerged.Add(float64(result.Rows))
	return result, nil
}

func (p *Processor) translate(ctx context.Context, dir, output string) (*translation.DirResult, error) {
	translator, cached, err := p.newTranslator()
	if err != nil {
		return nil, err
	}

	result, err := translation.Directory(ctx, translator, translation.DirOptions{
		InputDir:        dir,
		OutputDir:       output,
		TranslateHeader: p.flags.TranslateHeader,
		Logger:          p.logger,
	})
	if cached != nil {
		p.metrics.CacheHits.Add(float64(cached.Hits()))
	}
	return result, err
}

// newTranslator builds the translator stack from the flags: backend,
// optional fallback, circuit breaker, metrics and cache. The returned
// *translation.Cached is nil when caching is disabled.
func (p *Processor) newTranslator() (translation.Translator, *translation.Cached, error) {
	config := p.translationConfig(p.flags.Provider)
	translator, err := translation.NewTranslator(config)
	if err != nil {
		return nil, nil, err
	}

	if p.flags.Fallback != "" {
		fallback, err := translation.NewTranslator(p.translationConfig(p.flags.Fallback))
		if err != nil {
			return nil, nil, fmt.Errorf("fallback: %w", err)
		}
		translator = translation.NewTranslatorWithFallback(translator, fallback, p.logger)
	}

	failures := uint32(0)
	if p.flags.BreakerFailures > 0 {
		failures = uint32(p.flags.BreakerFailures)
	}
	translator = translation.NewBreaker(translator, failures, 0, p.logger)
	translator = p.metrics.ObserveTranslator(translator)

	if p.flags.NoCache {
		return translator, nil, nil
	}
	if p.cache == nil {
		if p.cache, err = p.openCache(); err != nil {
			return nil, nil, err
		}
	}
	cached := translation.NewCached(translator, p.cache, config.TargetLang, p.logger)
	return cached, cached, nil
}

func (p *Processor) openCache() (translation.Cache, error) {
	if p.flags.CacheFile == "" {
		return translation.NewMemoryCache(), nil
	}
	cache, err := translation.OpenSQLiteCache(p.flags.CacheFile)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("opened translation cache", "path", p.flags.CacheFile)
	return cache, nil
}

func (p *Processor) translationConfig(provider string) *translation.Config {
	return &translation.Config{
		Provider:   provider,
		SourceLang: p.flags.SourceLang,
		TargetLang: p.flags.TargetLang,
		Model:      p.flags.Model,
		Timeout:    p.flags.Timeout,
		OpenAIKey:  cli.GetOpenAIKey(),
		GeminiKey:  cli.GetGeminiKey(),
	}
}

func (p *Processor) printSplit(r *splitter.Result) {
	fmt.Fprintf(p.out, "  Split %d rows into %d chunk files in %s\n", r.Rows, r.Chunks, r.Dir)
	if r.EmptyRows > 0 {
		fmt.Fprintf(p.out, "  Empty rows (no chunk file): %d\n", r.EmptyRows)
	}
}

func (p *Processor) printTranslate(r *translation.DirResult) {
	fmt.Fprintf(p.out, "  Translated %d cells in %d files into %s\n", r.Cells, r.Files, r.OutputDir)
}

func (p *Processor) printMerge(r *merger.Result) {
	fmt.Fprintf(p.out, "  Merged %d files into %d rows: %s\n", r.Files, r.Rows, r.OutputFile)
	if r.Skipped > 0 {
		fmt.Fprintf(p.out, "  Skipped files: %d\n", r.Skipped)
	}
}
