package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "certforge",
			Subsystem: "render",
			Name:      "renders_total",
			Help:      "Render attempts by backend, format and outcome.",
		},
		[]string{"backend", "format", "outcome"},
	)

	renderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "certforge",
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "Render duration per backend attempt.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "format"},
	)
)

// ObserveRender records one backend attempt.
func ObserveRender(backend, format string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	renderTotal.WithLabelValues(backend, format, outcome).Inc()
	renderDuration.WithLabelValues(backend, format).Observe(elapsed.Seconds())
}
