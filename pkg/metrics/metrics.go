// Package metrics documents the Prometheus metrics of the WaniKani client and
// exposes them over HTTP.
// All metrics are defined in their respective packages (client, cache, ratelimit)
// to maintain modularity and avoid circular dependencies.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the WaniKani client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back what Registry holds.
var Gatherer = prometheus.DefaultGatherer

// Prefix is shared by every metric name of this module.
const Prefix = "wanikani_"

// Names lists the metric catalogue.
var Names = []string{
	"wanikani_requests_total",
	"wanikani_request_duration_seconds",
	"wanikani_errors_total",
	"wanikani_conditional_requests_total",
	"wanikani_cache_hits_total",
	"wanikani_cache_misses_total",
	"wanikani_cache_writes_total",
	"wanikani_cache_errors_total",
	"wanikani_not_modified_total",
	"wanikani_rate_limit_remaining",
	"wanikani_rate_limit_blocks_total",
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Registered returns the catalogue names currently present in Gatherer.
// Vector metrics only appear once a label combination has been observed.
func Registered() ([]string, error) {
	families, err := Gatherer.Gather()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), Prefix) {
			out = append(out, mf.GetName())
		}
	}
	return out, nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - wanikani_requests_total{endpoint, status} (Counter): requests by endpoint and HTTP status
//   - wanikani_request_duration_seconds{endpoint} (Histogram): request duration by endpoint
//   - wanikani_errors_total{class} (Counter): errors by class (client, auth, rate_limit, server, network, parse)
//   - wanikani_conditional_requests_total (Counter): requests sent with If-None-Match or If-Modified-Since
//
// Cache Metrics (pkg/cache):
//   - wanikani_cache_hits_total{backend} (Counter): stored entries found
//   - wanikani_cache_misses_total (Counter): lookups without a stored entry
//   - wanikani_cache_writes_total{backend} (Counter): upserts
//   - wanikani_cache_errors_total{backend, operation} (Counter): store failures
//   - wanikani_not_modified_total (Counter): 304 responses answered from the store
//
// Rate Limit Metrics (pkg/ratelimit):
//   - wanikani_rate_limit_remaining (Gauge): requests left in the current window
//   - wanikani_rate_limit_blocks_total (Counter): requests refused locally
//
// Endpoints are labelled with ids replaced by {id}, e.g. "subjects/{id}".
//
// Example Prometheus Queries:
//
//   # Revalidation rate
//   rate(wanikani_not_modified_total[5m]) / rate(wanikani_conditional_requests_total[5m])
//
//   # Window nearly exhausted
//   wanikani_rate_limit_remaining < 5
//
//   # Request error rate
//   rate(wanikani_errors_total[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(wanikani_request_duration_seconds_bucket[5m]))
