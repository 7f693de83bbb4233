package loop

import "github.com/prometheus/client_golang/prometheus"

var (
	writes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oidc_creds",
			Subsystem: "loop",
			Name:      "writes_total",
			Help:      "Number of successful artifact writes",
		},
		[]string{"loop"},
	)

	cycleErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oidc_creds",
			Subsystem: "loop",
			Name:      "cycle_errors_total",
			Help:      "Number of loop cycles that failed, by error kind",
		},
		[]string{"loop", "kind"},
	)
)

func init() {
	prometheus.MustRegister(writes)
	prometheus.MustRegister(cycleErrors)
}
