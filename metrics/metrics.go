package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ObservablesExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docintel_observables_extracted_total",
			Help: "Total number of observables produced by extraction passes",
		},
	)

	WhitelistHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docintel_whitelist_hits_total",
			Help: "Total number of observables suppressed by the whitelist",
		},
	)

	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docintel_extraction_duration_seconds",
			Help:    "Time taken to extract observables from a document",
			Buckets: prometheus.DefBuckets,
		},
	)

	FeedCollections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docintel_feed_collections_total",
			Help: "Total number of feed collection attempts",
		},
		[]string{"feed", "status"},
	)

	SubmissionsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docintel_submissions_published_total",
			Help: "Total number of submission events published",
		},
		[]string{"feed"},
	)

	SubmissionsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docintel_submissions_skipped_total",
			Help: "Total number of feed items skipped as already submitted",
		},
		[]string{"feed"},
	)

	WhitelistImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docintel_whitelist_imports_total",
			Help: "Total number of whitelist entries processed during imports",
		},
		[]string{"outcome"},
	)

	PostProcessorRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docintel_postprocessor_runs_total",
			Help: "Total number of post-processor invocations",
		},
		[]string{"processor", "status"},
	)

	IndexerUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docintel_indexer_updates_total",
			Help: "Total number of index entity updates",
		},
		[]string{"entity", "status"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docintel_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docintel_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docintel_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"cache", "operation"},
	)
)

// NewTimer starts a prometheus timer for the given histogram
func NewTimer(h prometheus.Histogram) *prometheus.Timer {
	return prometheus.NewTimer(h)
}
