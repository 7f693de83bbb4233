package oidc

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHit = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oidc_creds",
			Subsystem: "token",
			Name:      "cache_hit_total",
			Help:      "Number of cache hits to the token cache",
		},
	)

	cacheMiss = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oidc_creds",
			Subsystem: "token",
			Name:      "cache_miss_total",
			Help:      "Number of cache misses to the token cache",
		},
	)

	errorFetching = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oidc_creds",
			Subsystem: "token",
			Name:      "fetch_errors_total",
			Help:      "Number of errors fetching tokens from the token endpoint",
		},
	)

	fetchTiming = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "oidc_creds",
			Subsystem: "token",
			Name:      "fetch_timing_seconds",
			Help:      "Bucketed histogram of token fetch timings",

			// 5ms to ~20s
			Buckets: prometheus.ExponentialBuckets(.005, 2, 13),
		},
	)

	fetchExecuting = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "oidc_creds",
			Subsystem: "token",
			Name:      "fetch_current",
			Help:      "Number of token fetches currently executing",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheHit)
	prometheus.MustRegister(cacheMiss)
	prometheus.MustRegister(errorFetching)
	prometheus.MustRegister(fetchTiming)
	prometheus.MustRegister(fetchExecuting)
}
