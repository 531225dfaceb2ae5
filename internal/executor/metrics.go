package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestDuration measures the total duration of logical calls.
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Total duration of logical gateway calls in seconds, including retries and backoff",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "result"},
	)

	// attemptsTotal counts network attempts.
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_request_attempts_total",
			Help: "Total number of network attempts against backend services",
		},
		[]string{"service"},
	)

	// retriesTotal counts attempts beyond the first.
	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_request_retries_total",
			Help: "Total number of retry attempts against backend services",
		},
		[]string{"service"},
	)

	// authRejectedTotal counts authentication rejections from backends.
	authRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_auth_rejected_total",
			Help: "Total number of backend responses that rejected the current credentials",
		},
		[]string{"service"},
	)
)

// recordCall records the outcome of one logical call.
func recordCall(service, result string, durationSeconds float64) {
	requestDuration.WithLabelValues(service, result).Observe(durationSeconds)
}

// recordAttempt records one network attempt; attempts past the first
// also count as retries.
func recordAttempt(service string, attempt int) {
	attemptsTotal.WithLabelValues(service).Inc()
	if attempt > 0 {
		retriesTotal.WithLabelValues(service).Inc()
	}
}

// recordAuthRejected records a credential rejection.
func recordAuthRejected(service string) {
	authRejectedTotal.WithLabelValues(service).Inc()
}
