// Package observability provides the Prometheus metrics of the search core.
package observability

import "github.com/prometheus/client_golang/prometheus"

// SearchBuckets spans in-process lookups through slow remote calls, 1ms to 5s.
var SearchBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

var (
	// SearchesTotal counts completed searches by mode and result source.
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_searches_total",
			Help: "Completed searches",
		},
		[]string{"mode", "source"},
	)

	// SearchDuration records search latency in seconds by result source.
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookshelf_search_duration_seconds",
			Help:    "Search duration",
			Buckets: SearchBuckets,
		},
		[]string{"source"},
	)

	// CacheLookupsTotal counts response cache lookups by outcome (hit/miss).
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_search_cache_lookups_total",
			Help: "Search cache lookups",
		},
		[]string{"result"},
	)

	// FallbacksTotal counts searches answered by the local fallback, by reason.
	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_search_fallbacks_total",
			Help: "Search fallbacks",
		},
		[]string{"reason"},
	)

	// RemoteRequestsTotal counts calls to the remote full-text procedures.
	RemoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_remote_requests_total",
			Help: "Remote full-text requests",
		},
		[]string{"operation", "status"},
	)

	// RemoteLatency records remote call latency in seconds.
	RemoteLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookshelf_remote_latency_seconds",
			Help:    "Remote full-text latency",
			Buckets: SearchBuckets,
		},
		[]string{"operation"},
	)

	// IndexedBooks tracks the size of the local corpora.
	IndexedBooks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookshelf_indexed_books",
			Help: "Books held by the local search engines",
		},
	)

	// IngestedBooksTotal counts catalog changes applied to the local engines.
	IngestedBooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_ingested_books_total",
			Help: "Catalog changes applied",
		},
		[]string{"operation"},
	)
)

// Fallback reasons.
const (
	ReasonRemoteError   = "remote_error"
	ReasonRemoteEmpty   = "remote_empty"
	ReasonInternalError = "internal_error"
)

func init() {
	prometheus.MustRegister(
		SearchesTotal,
		SearchDuration,
		CacheLookupsTotal,
		FallbacksTotal,
		RemoteRequestsTotal,
		RemoteLatency,
		IndexedBooks,
		IngestedBooksTotal,
	)
}
