package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestedFeatures tracks feature values written by ingestion
	IngestedFeatures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feature_store_ingested_features_total",
			Help: "Total number of feature values ingested",
		},
	)

	// IngestFailures tracks rejected or failed ingestion requests by reason
	IngestFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_store_ingest_failures_total",
			Help: "Total number of failed ingestion requests",
		},
		[]string{"reason"}, // "validation", "unregistered", "type_mismatch", "unavailable"
	)

	// RetrievedFeatures tracks looked up feature values by outcome
	RetrievedFeatures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_store_retrieved_features_total",
			Help: "Total number of feature values looked up",
		},
		[]string{"result"}, // "found", "missing", "invalid"
	)

	// RetrievalDuration tracks retrieval latency by mode
	RetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feature_store_retrieval_duration_seconds",
			Help:    "Retrieval duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"mode"}, // "single", "batch"
	)
)
