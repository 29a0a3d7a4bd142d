package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolConns, renderQueueDepth) }

var (
	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_conns",
			Help: "Postgres pool connections by state.",
		},
		[]string{"state"}, // 'total', 'idle', 'acquired'
	)

	renderQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "render_queue_depth",
			Help: "Render tasks waiting for a free worker.",
		},
	)
)

func SetDBPoolConns(total, idle, acquired int32) {
	dbPoolConns.WithLabelValues("total").Set(float64(total))
	dbPoolConns.WithLabelValues("idle").Set(float64(idle))
	dbPoolConns.WithLabelValues("acquired").Set(float64(acquired))
}

func SetRenderQueueDepth(n int) {
	renderQueueDepth.Set(float64(n))
}
