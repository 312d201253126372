// Prometheus metrics for the similarity core.
package similarity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// indexedDocuments tracks the current index size.
	indexedDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "similarityd",
			Subsystem: "index",
			Name:      "documents",
			Help:      "Number of documents currently in the similarity index",
		},
	)

	// cacheEntries tracks the current score cache size.
	cacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "similarityd",
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Number of pairwise scores currently cached",
		},
	)

	// cacheHits and cacheMisses count cache lookups.
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "similarityd",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total pairwise score cache hits",
		},
	)
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "similarityd",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total pairwise score cache misses",
		},
	)

	// searchesTotal counts searches by strategy (approximate, exhaustive).
	searchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "similarityd",
			Subsystem: "search",
			Name:      "total",
			Help:      "Total similarity searches by candidate strategy",
		},
		[]string{"strategy"},
	)

	// searchDuration tracks end-to-end findSimilar latency by strategy.
	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "similarityd",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Duration of similarity searches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	// duplicatesFound counts documents classified at or above the duplicate
	// threshold.
	duplicatesFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "similarityd",
			Subsystem: "search",
			Name:      "duplicates_total",
			Help:      "Total candidates classified as duplicates",
		},
	)
)
