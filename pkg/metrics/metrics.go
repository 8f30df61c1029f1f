// Package metrics exposes the Prometheus registry of the feature store.
// Metrics are defined in their respective packages (cache, gateway, retry,
// server) and registered via promauto to avoid circular dependencies.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all feature store metrics land in.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics exposition handler. Collection errors are
// served as HTTP 500.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		Registry,
		promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{
			ErrorHandling: promhttp.HTTPErrorOnError,
		}),
	)
}

// NewIsolated returns a fresh registry carrying the Go and process
// collectors. Used by tests that must not observe global state.
func NewIsolated() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - feature_store_cache_hits_total (Counter): Keys found
//   - feature_store_cache_misses_total (Counter): Keys absent or expired
//   - feature_store_cache_writes_total{expiry} (Counter): Writes by expiry policy (ttl, none)
//   - feature_store_cache_errors_total{operation} (Counter): Engine errors
//   - feature_store_cache_operation_duration_seconds{operation} (Histogram): Round trip latency
//   - feature_store_cache_batch_keys (Histogram): Keys per multi-get
//
// Gateway Metrics (pkg/gateway):
//   - feature_store_ingested_features_total (Counter): Feature values written
//   - feature_store_ingest_failures_total{reason} (Counter): Aborted ingestions by reason
//   - feature_store_retrieved_features_total{result} (Counter): Returned values by result (found, missing, invalid)
//   - feature_store_retrieval_duration_seconds{mode} (Histogram): Retrieval latency (single, batch)
//
// Retry Metrics (pkg/retry):
//   - feature_store_retries_total{operation} (Counter): Retry attempts
//   - feature_store_retry_backoff_seconds{operation} (Histogram): Backoff duration
//   - feature_store_retry_exhausted_total{operation} (Counter): Operations that exhausted their attempts
//
// HTTP Metrics (pkg/server):
//   - feature_store_http_requests_total{route, status} (Counter): Requests by route pattern and status
//   - feature_store_http_request_duration_seconds{route} (Histogram): Request latency
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(feature_store_cache_hits_total[5m])) /
//   (sum(rate(feature_store_cache_hits_total[5m])) + sum(rate(feature_store_cache_misses_total[5m])))
//
//   # Store Unavailability
//   sum by (operation) (rate(feature_store_cache_errors_total[5m]))
//
//   # P95 Online Retrieval Latency
//   histogram_quantile(0.95, sum by (le, mode) (rate(feature_store_retrieval_duration_seconds_bucket[5m])))
//
//   # Unregistered Feature Rejections
//   rate(feature_store_ingest_failures_total{reason="unregistered"}[5m])
