// Package metrics counts what one run did and writes the counters in the
// Prometheus text format, ready for the node_exporter textfile collector.
package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters of one run on a private registry
type Metrics struct {
	registry *prometheus.Registry

	RowsRead           prometheus.Counter
	ChunksWritten      prometheus.Counter
	EmptyRows          prometheus.Counter
	FilesMerged        prometheus.Counter
	RowsMerged         prometheus.Counter
	Translations       *prometheus.CounterVec
	TranslationSeconds *prometheus.HistogramVec
	CacheHits          prometheus.Counter
	JobsTotal          *prometheus.CounterVec
	LastRunTimestamp   prometheus.Gauge
}

// New creates the counters and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transdata_rows_read_total",
			Help: "Number of source rows read by the splitter",
		}),
		ChunksWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transdata_chunks_written_total",
			Help: "Number of chunk files written by the splitter",
		}),
		EmptyRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transdata_empty_rows_total",
			Help: "Number of source rows without text",
		}),
		FilesMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transdata_files_merged_total",
			Help: "Number of chunk files merged",
		}),
		RowsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transdata_rows_merged_total",
			Help: "Number of rows written by the merger",
		}),
		Translations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transdata_translations_total",
				Help: "Count of translation requests",
			},
			[]string{"backend", "status"},
		),
		TranslationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transdata_translation_duration_seconds",
				Help:    "Latency of translation requests",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"backend"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transdata_translation_cache_hits_total",
			Help: "Number of translations answered from the cache",
		}),
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transdata_jobs_total",
				Help: "Count of jobs by command and status",
			},
			[]string{"command", "status"},
		),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transdata_last_run_timestamp_seconds",
			Help: "Unix time the run finished",
		}),
	}

	m.registry.MustRegister(
		m.RowsRead,
		m.ChunksWritten,
		m.EmptyRows,
		m.FilesMerged,
		m.RowsMerged,
		m.Translations,
		m.TranslationSeconds,
		m.CacheHits,
		m.JobsTotal,
		m.LastRunTimestamp,
	)
	return m
}

// Registry returns the registry holding the counters
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// JobDone counts one finished job
func (m *Metrics) JobDone(command string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.JobsTotal.WithLabelValues(command, status).Inc()
}

// WriteFile stamps the run time and writes all counters to path in the
// text exposition format. The file is replaced atomically.
func (m *Metrics) WriteFile(path string) error {
	m.LastRunTimestamp.SetToCurrentTime()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// Translator is the translation capability being observed
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
	Name() string
}

type observed struct {
	inner Translator
	m     *Metrics
}

// ObserveTranslator counts requests and latency of t
func (m *Metrics) ObserveTranslator(t Translator) Translator {
	return &observed{inner: t, m: m}
}

func (o *observed) Translate(ctx context.Context, text string) (string, error) {
	start := time.Now()
	translated, err := o.inner.Translate(ctx, text)

	backend := o.inner.Name()
	o.m.TranslationSeconds.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	o.m.Translations.WithLabelValues(backend, status).Inc()

	return translated, err
}

func (o *observed) Name() string { return o.inner.Name() }
