package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Provider and cache Prometheus metrics.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geogrub",
			Name:      "provider_requests_total",
			Help:      "Total number of outbound provider requests",
		},
		[]string{"provider", "op", "status"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "geogrub",
			Name:      "provider_request_duration_seconds",
			Help:      "Outbound provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "op"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geogrub",
			Name:      "cache_total",
			Help:      "Cache hits and misses per tier",
		},
		[]string{"tier", "result"}, // tier: coordinate/results/image, result: hit/miss
	)

	SearchPagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geogrub",
			Name:      "search_pages_total",
			Help:      "Nearby-search pages fetched",
		},
	)

	SessionsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "geogrub",
			Name:      "sessions_dropped_total",
			Help:      "Search results discarded because a newer search superseded them",
		},
	)
)

var providerMetricsRegistered bool

// RegisterProviderMetrics registers provider and cache metrics. Must be called once from main.
func RegisterProviderMetrics() {
	if providerMetricsRegistered {
		return
	}
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(SearchPagesTotal)
	prometheus.MustRegister(SessionsDroppedTotal)
	providerMetricsRegistered = true
}

// ObserveProviderRequest records one outbound call and its latency.
func ObserveProviderRequest(provider, op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ProviderRequestsTotal.WithLabelValues(provider, op, status).Inc()
	ProviderRequestDuration.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
}
