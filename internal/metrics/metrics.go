// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IngestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Name:      "ingest_runs_total",
		Help:      "Ingestion runs by outcome (ok, skipped, source_error, store_error).",
	}, []string{"outcome"})

	IngestedRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dashboard",
		Name:      "ingested_rows_total",
		Help:      "Rows written by ingestion.",
	})

	RecordUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Name:      "record_updates_total",
		Help:      "Update path results by outcome (updated, not_found, invalid, error).",
	}, []string{"outcome"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dashboard",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
