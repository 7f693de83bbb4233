package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	handlerTimer = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oidc_creds",
			Subsystem: "http",
			Name:      "handler_latency_seconds",
			Help:      "Bucketed histogram of handler timings",

			// 1ms to ~8s
			Buckets: prometheus.ExponentialBuckets(.001, 2, 14),
		},
		[]string{"handler"},
	)

	responses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oidc_creds",
			Subsystem: "http",
			Name:      "responses_total",
			Help:      "Number of responses served, by handler and status bucket",
		},
		[]string{"handler", "code"},
	)

	credentialErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oidc_creds",
			Subsystem: "http",
			Name:      "credential_errors_total",
			Help:      "Number of requests that failed to obtain credentials",
		},
		[]string{"handler", "kind"},
	)
)

func init() {
	prometheus.MustRegister(handlerTimer)
	prometheus.MustRegister(responses)
	prometheus.MustRegister(credentialErrors)
}
