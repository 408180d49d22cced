// Package metrics exposes Prometheus collectors for the ingestion pipeline.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeNetwork    = "network"
	OutcomeHTTPStatus = "http_status"
	OutcomeTimeout    = "timeout"
)

// Cache lookup results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
	CacheError = "error"
)

var (
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_fetches_total",
			Help: "Total number of live page fetches, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	fetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_fetch_duration_seconds",
			Help:    "Histogram of live page fetch latencies, labeled by outcome.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"outcome"},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_cache_lookups_total",
			Help: "Total number of cache lookups, labeled by result.",
		},
		[]string{"result"},
	)

	extractFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_extract_failures_total",
			Help: "Total number of pages that could not be turned into athlete records.",
		},
	)

	athletesWritten = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_athletes_written",
			Help: "Number of athlete records in the last written output document.",
		},
	)

	rateLimitDelaysSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_rate_limit_delays_seconds",
			Help:    "Histogram of rate limit wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)
)

// ObserveFetch records a live fetch and its latency.
func ObserveFetch(outcome string, duration time.Duration) {
	fetchesTotal.WithLabelValues(outcome).Inc()
	fetchDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveCacheLookup records the result of a cache consultation.
func ObserveCacheLookup(result string) {
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveExtractFailure increments the extraction failure counter.
func ObserveExtractFailure() {
	extractFailuresTotal.Inc()
}

// SetAthletesWritten records the size of the last output document.
func SetAthletesWritten(n int) {
	athletesWritten.Set(float64(n))
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// WriteTextfile dumps the default registry in the text exposition format so
// a node_exporter textfile collector can pick it up after a batch run.
func WriteTextfile(path string) error {
	return WriteTextfileFrom(path, prometheus.DefaultGatherer)
}

// WriteTextfileFrom dumps the given gatherer to path, creating parent
// directories as needed.
func WriteTextfileFrom(path string, g prometheus.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
