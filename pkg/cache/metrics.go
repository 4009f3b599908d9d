package cache

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by backend
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wanikani_cache_hits_total",
			Help: "Total number of WaniKani cache hits",
		},
		[]string{"backend"}, // "redis", "leveldb", "sqlite", "postgres", "memory"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wanikani_cache_misses_total",
			Help: "Total number of WaniKani cache misses",
		},
	)

	// CacheWrites tracks upserts by backend
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wanikani_cache_writes_total",
			Help: "Total number of WaniKani cache upserts",
		},
		[]string{"backend"},
	)

	// NotModifiedResponses tracks 304 Not Modified responses served from cache
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wanikani_not_modified_total",
			Help: "Total number of WaniKani 304 Not Modified responses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wanikani_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"backend", "operation"}, // "get", "put", "delete"
	)
)

// recordGet counts the outcome of a store lookup.
func recordGet(backend string, err error) {
	switch {
	case err == nil:
		CacheHits.WithLabelValues(backend).Inc()
	case errors.Is(err, ErrCacheMiss):
		CacheMisses.Inc()
	default:
		CacheErrors.WithLabelValues(backend, "get").Inc()
	}
}

// recordPut counts the outcome of an upsert.
func recordPut(backend string, err error) {
	if err != nil {
		CacheErrors.WithLabelValues(backend, "put").Inc()
		return
	}
	CacheWrites.WithLabelValues(backend).Inc()
}

func recordDelete(backend string, err error) {
	if err != nil {
		CacheErrors.WithLabelValues(backend, "delete").Inc()
	}
}
