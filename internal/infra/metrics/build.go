package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(buildInfo, providersConfigured)
}

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "A constant metric with labels for version and commit hash.",
		},
		[]string{"version", "commit"},
	)

	providersConfigured = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "image_provider_configured",
			Help: "1 when the provider has a credential, 0 otherwise.",
		},
		[]string{"provider"},
	)
)

func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit).Set(1)
}

func SetProviderConfigured(provider string, ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	providersConfigured.WithLabelValues(norm(provider)).Set(v)
}
