// Package metrics provides the centralized Prometheus metrics registry for
// the virascope backend. All metrics are defined in their respective packages
// (keypool, ratelimit, youtube, search, cache) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the backend.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Key Pool Metrics (pkg/keypool):
//   - virascope_keypool_usable_keys (Gauge): API keys not exhausted for the current UTC day
//   - virascope_keypool_exhausted_marks_total (Counter): Keys marked quota-exhausted
//   - virascope_keypool_all_exhausted_total (Counter): Selections that found every key exhausted
//
// Rate Limit Metrics (pkg/ratelimit):
//   - virascope_rate_limit_allowed_total (Counter): Requests allowed within budget
//   - virascope_rate_limit_denied_total (Counter): Requests denied over budget
//   - virascope_rate_limit_bypassed_total (Counter): Privileged requests that skipped the counter
//   - virascope_rate_limit_fail_open_total (Counter): Requests allowed because the store errored
//
// Upstream API Metrics (pkg/youtube):
//   - virascope_api_requests_total{endpoint, status} (Counter): Upstream requests by endpoint and HTTP status
//   - virascope_api_request_duration_seconds{endpoint} (Histogram): Upstream request duration
//   - virascope_api_errors_total{class} (Counter): Upstream errors by class (quota, bad_request, auth, transient)
//   - virascope_api_retries_total (Counter): Transient-error retries
//   - virascope_api_retry_backoff_seconds (Histogram): Backoff waited between retries
//   - virascope_api_retry_exhausted_total (Counter): Calls that exhausted the retry budget
//
// Search Metrics (pkg/search):
//   - virascope_search_requests_total{kind, outcome} (Counter): Logical searches by kind and outcome
//   - virascope_search_quota_rotations_total (Counter): Attempts discarded due to key quota exhaustion
//   - virascope_search_pages_per_request (Histogram): Pages fetched by the winning attempt
//
// Cache Metrics (pkg/cache):
//   - virascope_cache_hits_total (Counter): Cache hits
//   - virascope_cache_misses_total (Counter): Cache misses
//   - virascope_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Keys still usable today
//   virascope_keypool_usable_keys
//
//   # Rate limit denial rate
//   rate(virascope_rate_limit_denied_total[5m])
//
//   # Quota rotation rate (rising values mean the pool is draining)
//   rate(virascope_search_quota_rotations_total[5m])
//
//   # P95 upstream latency
//   histogram_quantile(0.95, rate(virascope_api_request_duration_seconds_bucket[5m]))
//
//   # Channel cache hit rate
//   sum(rate(virascope_cache_hits_total[5m])) /
//   (sum(rate(virascope_cache_hits_total[5m])) + sum(rate(virascope_cache_misses_total[5m])))
