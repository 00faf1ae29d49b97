package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campprojects/dashboard/internal/metrics"
	"github.com/campprojects/dashboard/internal/project"
)

// Mode decides whether a run touches the store.
type Mode string

const (
	// ModeAlways replaces the stored table on every run.
	ModeAlways Mode = "always"
	// ModeIfEmpty ingests only into an empty store, so edits survive restarts.
	ModeIfEmpty Mode = "if-empty"
	// ModeNever skips ingestion.
	ModeNever Mode = "never"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeAlways, ModeIfEmpty, ModeNever:
		return m, nil
	}
	return "", fmt.Errorf("unknown ingest mode %q", s)
}

// Replacer is the part of the record store ingestion writes to.
type Replacer interface {
	Count(ctx context.Context) (int64, error)
	Replace(ctx context.Context, t project.Table) error
}

// Config describes one ingestion run.
type Config struct {
	Path    string
	Mode    Mode
	Schema  *project.Schema
	Options Options
}

// Result summarizes a run.
type Result struct {
	Rows     int
	Skipped  bool
	Duration time.Duration
}

// Run reads the source file and replaces the stored table with it.
func Run(ctx context.Context, dst Replacer, cfg Config, log *zap.Logger) (Result, error) {
	start := time.Now()

	switch cfg.Mode {
	case ModeNever:
		metrics.IngestRuns.WithLabelValues("skipped").Inc()
		return Result{Skipped: true}, nil
	case ModeIfEmpty:
		n, err := dst.Count(ctx)
		if err != nil {
			metrics.IngestRuns.WithLabelValues("store_error").Inc()
			return Result{}, err
		}
		if n > 0 {
			log.Info("store already populated, skipping ingest", zap.Int64("rows", n))
			metrics.IngestRuns.WithLabelValues("skipped").Inc()
			return Result{Skipped: true, Duration: time.Since(start)}, nil
		}
	case ModeAlways:
	default:
		return Result{}, fmt.Errorf("unknown ingest mode %q", cfg.Mode)
	}

	schema := cfg.Schema
	if schema == nil {
		schema = project.DefaultSchema()
	}

	t, err := ReadFile(cfg.Path, schema, cfg.Options)
	if err != nil {
		metrics.IngestRuns.WithLabelValues("source_error").Inc()
		log.Error("failed to read source", zap.String("path", cfg.Path), zap.Error(err))
		return Result{}, err
	}

	if err := dst.Replace(ctx, t); err != nil {
		metrics.IngestRuns.WithLabelValues("store_error").Inc()
		return Result{}, err
	}

	res := Result{Rows: len(t.Records), Duration: time.Since(start)}
	metrics.IngestRuns.WithLabelValues("ok").Inc()
	metrics.IngestedRows.Add(float64(res.Rows))
	log.Info("ingested source",
		zap.String("path", cfg.Path),
		zap.Int("rows", res.Rows),
		zap.Int("columns", len(t.Columns)),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// IsSourceError reports whether err came from the source file rather than
// the store.
func IsSourceError(err error) bool {
	var dsErr *project.DataSourceError
	return errors.As(err, &dsErr)
}
