// Package metrics provides the Prometheus registry and HTTP handler for the
// ESI request cache. All metrics are defined in their respective packages
// (client, cache, ratelimit) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the ESI client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Error Limit Metrics (pkg/ratelimit):
//   - esi_errors_remaining (Gauge): Current errors remaining in ESI error limit window
//   - esi_error_limit_updates_total{level} (Counter): Error limit observations by level
//
// Cache Metrics (pkg/cache), all labelled by backend (memory, redis, postgres):
//   - esi_cache_hits_total{backend} (Counter): Lookups that returned a live entry
//   - esi_cache_misses_total{backend} (Counter): Lookups without a live entry
//   - esi_cache_writes_total{backend} (Counter): Inserted entries
//   - esi_cache_swept_entries_total{backend} (Counter): Entries removed by sweeps
//   - esi_cache_size_bytes{backend} (Gauge): Body bytes held (memory backend)
//   - esi_cache_errors_total{backend, operation} (Counter): Store operation errors
//
// Request Metrics (pkg/client):
//   - esi_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status,
//     plus cache_hit, network_error and cancelled
//   - esi_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - esi_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, unaccepted)
//
// Retry Metrics (pkg/client):
//   - esi_retries_total{error_class} (Counter): Retry attempts by error class
//   - esi_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - esi_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(esi_cache_hits_total[5m])) /
//   (sum(rate(esi_cache_hits_total[5m])) + sum(rate(esi_cache_misses_total[5m])))
//
//   # Error Limit Status
//   esi_errors_remaining < 20
//
//   # Request Error Rate
//   rate(esi_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(esi_request_duration_seconds_bucket[5m]))
//
//   # Retry Exhaustion Rate
//   rate(esi_retry_exhausted_total[5m]) / rate(esi_requests_total[5m])
