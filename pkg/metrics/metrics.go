// Package metrics defines the Prometheus metric collectors for the search
// engine and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. Each instance carries its own
// registry so repeated construction (one per server) never double-registers.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	SearchesTotal      *prometheus.CounterVec
	SearchDuration     *prometheus.HistogramVec
	SearchResultsCount prometheus.Histogram

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	DocumentsIndexedTotal prometheus.Counter
	FilesSkippedTotal     *prometheus.CounterVec
	BatchDuration         prometheus.Histogram
	BatchProcessed        prometheus.Gauge
	SnapshotWritesTotal   *prometheus.CounterVec

	DocumentCount   prometheus.Gauge
	UniqueTermCount prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsense_http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsense_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsense_http_requests_in_flight",
				Help: "HTTP requests currently being served.",
			},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsense_searches_total",
				Help: "Total search queries by rank method.",
			},
			[]string{"method"},
		),
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsense_search_duration_seconds",
				Help:    "Search latency in seconds by cache status (hit, miss, bypass).",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docsense_search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsense_cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsense_cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		DocumentsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docsense_documents_indexed_total",
				Help: "Total documents added or replaced in the index.",
			},
		),
		FilesSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsense_files_skipped_total",
				Help: "Files skipped during indexing by reason (fresh, unsupported, error).",
			},
			[]string{"reason"},
		),
		BatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docsense_index_batch_duration_seconds",
				Help:    "Wall-clock duration of a full indexing batch.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
		),
		BatchProcessed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsense_index_batch_processed",
				Help: "Documents processed by the most recent indexing batch.",
			},
		),
		SnapshotWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsense_snapshot_writes_total",
				Help: "Snapshot persistence attempts by status (ok, error).",
			},
			[]string{"status"},
		),
		DocumentCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsense_document_count",
				Help: "Documents currently in the index.",
			},
		),
		UniqueTermCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsense_unique_term_count",
				Help: "Distinct terms currently in the index.",
			},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchesTotal,
		m.SearchDuration,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocumentsIndexedTotal,
		m.FilesSkippedTotal,
		m.BatchDuration,
		m.BatchProcessed,
		m.SnapshotWritesTotal,
		m.DocumentCount,
		m.UniqueTermCount,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
