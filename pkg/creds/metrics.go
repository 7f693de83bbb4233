package creds

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHit = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oidc_creds",
			Subsystem: "credentials",
			Name:      "cache_hit_total",
			Help:      "Number of cache hits to the credentials cache",
		},
	)

	cacheMiss = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oidc_creds",
			Subsystem: "credentials",
			Name:      "cache_miss_total",
			Help:      "Number of cache misses to the credentials cache",
		},
	)

	errorExchanging = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oidc_creds",
			Subsystem: "credentials",
			Name:      "exchange_errors_total",
			Help:      "Number of errors exchanging tokens for credentials",
		},
	)

	exchangeTiming = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "oidc_creds",
			Subsystem: "credentials",
			Name:      "exchange_timing_seconds",
			Help:      "Bucketed histogram of exchange timings",

			// 5ms to ~20s
			Buckets: prometheus.ExponentialBuckets(.005, 2, 13),
		},
	)

	exchangeExecuting = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "oidc_creds",
			Subsystem: "credentials",
			Name:      "exchange_current",
			Help:      "Number of exchanges currently executing",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheHit)
	prometheus.MustRegister(cacheMiss)
	prometheus.MustRegister(errorExchanging)
	prometheus.MustRegister(exchangeTiming)
	prometheus.MustRegister(exchangeExecuting)
}
