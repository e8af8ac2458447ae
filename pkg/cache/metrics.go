package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolutionHits counts resolutions served from Redis, by link name
	ResolutionHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sra_cache_hits_total",
			Help: "Total number of link resolutions served from cache",
		},
		[]string{"link"},
	)

	// ResolutionMisses counts lookups that fell through to elink
	ResolutionMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sra_cache_misses_total",
			Help: "Total number of link resolution cache misses",
		},
		[]string{"link", "reason"}, // "absent", "expired", "corrupt"
	)

	// ResolvedIDs observes how many uids each stored resolution holds
	ResolvedIDs = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sra_cache_resolved_ids",
			Help:    "Number of linked uids per cached resolution",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sra_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
