package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by backend (memory, redis, postgres)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esi_cache_hits_total",
			Help: "Total number of ESI cache hits",
		},
		[]string{"backend"},
	)

	// CacheMisses tracks cache misses by backend
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esi_cache_misses_total",
			Help: "Total number of ESI cache misses",
		},
		[]string{"backend"},
	)

	// CacheWrites tracks successful inserts by backend
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esi_cache_writes_total",
			Help: "Total number of ESI cache entries written",
		},
		[]string{"backend"},
	)

	// SweptEntries tracks entries removed by sweeps
	SweptEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esi_cache_swept_entries_total",
			Help: "Total number of expired ESI cache entries removed by sweeps",
		},
		[]string{"backend"},
	)

	// CacheSize tracks bytes of response bodies held in process, so only the
	// memory backend reports it
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "esi_cache_size_bytes",
			Help: "Bytes of ESI response bodies held by the in-process cache",
		},
		[]string{"backend"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esi_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"backend", "operation"}, // "sweep", "lookup", "insert"
	)
)
