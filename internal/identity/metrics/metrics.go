// Package metrics provides Prometheus metrics for the public key cache.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credledger_pubkey_cache_hits_total",
		Help: "Public key lookups served from cache, by backend",
	}, []string{"backend"})
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credledger_pubkey_cache_misses_total",
		Help: "Public key lookups not found in cache, by backend",
	}, []string{"backend"})
	cacheLookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "credledger_pubkey_cache_lookup_duration_seconds",
		Help:    "Duration of public key cache lookups",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05},
	}, []string{"backend"})
)

func ObserveHit(backend string, start time.Time) {
	cacheHitsTotal.WithLabelValues(backend).Inc()
	cacheLookupDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
}

func ObserveMiss(backend string, start time.Time) {
	cacheMissesTotal.WithLabelValues(backend).Inc()
	cacheLookupDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
}
