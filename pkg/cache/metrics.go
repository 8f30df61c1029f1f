package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks keys found in the online store
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feature_store_cache_hits_total",
			Help: "Total number of online store key hits",
		},
	)

	// CacheMisses tracks keys absent or expired in the online store
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feature_store_cache_misses_total",
			Help: "Total number of online store key misses",
		},
	)

	// CacheWrites tracks SET operations by expiry policy
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_store_cache_writes_total",
			Help: "Total number of online store writes",
		},
		[]string{"expiry"}, // "ttl", "none"
	)

	// CacheErrors tracks engine failures by operation
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_store_cache_errors_total",
			Help: "Total number of online store operation errors",
		},
		[]string{"operation"}, // "set", "get", "get_many", "scan", "delete"
	)

	// CacheOpDuration tracks engine round trip latency by operation
	CacheOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feature_store_cache_operation_duration_seconds",
			Help:    "Online store operation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
		},
		[]string{"operation"},
	)

	// BatchKeys tracks the number of keys per multiplexed read
	BatchKeys = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feature_store_cache_batch_keys",
			Help:    "Number of keys fetched per GetMany call",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)
