package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		providerAttemptsTotal,
		providerLatencySeconds,
		generationRequestsTotal,
	)
}

var (
	// outcome: success|unconfigured|unauthorized|remote_error|timeout|no_output
	providerAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_provider_attempts_total",
			Help: "Image provider attempts by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	providerLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_provider_latency_seconds",
			Help:    "Latency of attempted image provider calls, including polling.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120, 300},
		},
		[]string{"provider", "outcome"},
	)

	// result: success|invalid|failed
	generationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_requests_total",
			Help: "Generation requests by result and winning provider.",
		},
		[]string{"result", "provider"},
	)
)

// ObserveProviderAttempt records one attempt. Skipped providers report zero duration
// and are counted but not observed in the latency histogram.
func ObserveProviderAttempt(provider, outcome string, d time.Duration) {
	providerAttemptsTotal.WithLabelValues(norm(provider), norm(outcome)).Inc()
	if d > 0 {
		providerLatencySeconds.WithLabelValues(norm(provider), norm(outcome)).Observe(d.Seconds())
	}
}

func IncGeneration(result, provider string) {
	generationRequestsTotal.WithLabelValues(norm(result), norm(provider)).Inc()
}
