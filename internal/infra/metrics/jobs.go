package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(renderJobsTotal, renderSegmentsTotal, rateLimitTotal) }

var (
	renderJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "render_jobs_processed_total",
			Help: "Total number of render jobs processed, labeled by status.",
		},
		[]string{"status"}, // 'completed', 'failed', 'requeued'
	)

	renderSegmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "render_segments_total",
			Help: "Per-segment clip encodes by result.",
		},
		[]string{"result"}, // 'ok', 'skipped'
	)

	rateLimitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_decisions_total",
			Help: "Rate limiter decisions for inbound requests.",
		},
		[]string{"result"}, // 'allowed', 'limited', 'error'
	)
)

func IncRenderJob(status string) {
	renderJobsTotal.WithLabelValues(norm(status)).Inc()
}

func IncRenderSegment(result string) {
	renderSegmentsTotal.WithLabelValues(norm(result)).Inc()
}

func IncRateLimit(result string) {
	rateLimitTotal.WithLabelValues(norm(result)).Inc()
}

func AddRenderJobs(status string, n int) {
	renderJobsTotal.WithLabelValues(norm(status)).Add(float64(n))
}
