// Package metrics exposes the Prometheus metrics of the sec-api.io client.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, fanout) to maintain modularity and avoid circular dependencies.
//
// This package provides the scrape handler and a reference for all metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry receives the scrape handler's own metrics. The package metrics
// register themselves on the default registerer via promauto.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry read by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler serving all registered metrics. Scrapes
// are counted in promhttp_metric_handler_requests_total on Registry.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry,
		promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{Registry: Registry}))
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - secapi_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - secapi_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - secapi_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - secapi_retries_total{error_class} (Counter): Retry attempts by error class
//   - secapi_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - secapi_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - secapi_rate_limit_cooldown_seconds (Gauge): Length of the most recent 429 cooldown
//   - secapi_rate_limit_cooldowns_total (Counter): Cooldowns started by 429 responses
//   - secapi_rate_limit_throttles_total (Counter): Requests delayed by an active cooldown
//
// Cache Metrics (pkg/cache):
//   - secapi_cache_hits_total (Counter): Extractor responses served from Redis
//   - secapi_cache_misses_total (Counter): Cache misses
//   - secapi_cache_stored_bytes_total (Counter): Bytes written to the cache
//   - secapi_cache_errors_total{operation} (Counter): Cache operation errors
//
// Fan-out Metrics (pkg/fanout):
//   - secapi_sections_fetched_total{status} (Counter): Sections fetched by outcome (ok, error)
//
// Example Prometheus Queries:
//
//	# Cache Hit Rate
//	sum(rate(secapi_cache_hits_total[5m])) /
//	(sum(rate(secapi_cache_hits_total[5m])) + sum(rate(secapi_cache_misses_total[5m])))
//
//	# Share of requests that needed a retry
//	sum(rate(secapi_retries_total[5m])) / sum(rate(secapi_requests_total[5m]))
//
//	# P95 Request Latency
//	histogram_quantile(0.95, rate(secapi_request_duration_seconds_bucket[5m]))
//
//	# Cooldowns per hour
//	increase(secapi_rate_limit_cooldowns_total[1h])
