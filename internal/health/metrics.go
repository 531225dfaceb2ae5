package health

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// serviceHealthy reports the last probed status per service
	// (1 healthy, 0 unhealthy).
	serviceHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_service_healthy",
			Help: "Last probed health of a backend service (1 healthy, 0 unhealthy)",
		},
		[]string{"service"},
	)

	// probeDuration measures probe latency.
	probeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_health_probe_duration_seconds",
			Help:    "Duration of health probes in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"service", "status"},
	)
)

// recordProbe records the outcome of one probe.
func recordProbe(service string, status Status, latency time.Duration) {
	value := 0.0
	if status == StatusHealthy {
		value = 1.0
	}
	serviceHealthy.WithLabelValues(service).Set(value)
	probeDuration.WithLabelValues(service, string(status)).Observe(latency.Seconds())
}
