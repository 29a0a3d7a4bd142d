package imagegen

import (
	"net/http"
	"strings"

	"github.com/samber/lo"

	"reelforge/internal/config"
	"reelforge/internal/domain/ports/adapter"
	"reelforge/internal/infra/metrics"
)

// BuildProviders constructs the providers named in cfg.Order, in that order.
// Unconfigured providers are kept so the chain can report them; the placeholder
// is appended last when enabled.
func BuildProviders(cfg *config.AIConfig, hc *http.Client) []adapter.ImageProvider {
	if hc == nil {
		hc = NewHTTPClient(cfg.RequestTimeout)
	}
	order := lo.Uniq(lo.Map(cfg.Order, func(n string, _ int) string {
		return strings.ToLower(strings.TrimSpace(n))
	}))

	out := make([]adapter.ImageProvider, 0, len(order)+1)
	for _, name := range order {
		pc, ok := cfg.Provider(name)
		if !ok {
			continue
		}
		p := newProvider(name, pc, hc, cfg)
		if p == nil {
			continue
		}
		metrics.SetProviderConfigured(name, p.Configured())
		out = append(out, NewLimitedProvider(p, cfg.ConcurrentLimit))
	}
	if cfg.Placeholder {
		out = append(out, NewPlaceholderProvider())
	}
	return out
}

func newProvider(name string, pc config.ProviderConfig, hc *http.Client, cfg *config.AIConfig) adapter.ImageProvider {
	if pc.Name == "" {
		pc.Name = name
	}
	switch name {
	case "replicate":
		return NewReplicateProvider(pc, hc, cfg.PollInterval, cfg.PollAttempts)
	case "together":
		return NewTogetherProvider(pc, hc)
	case "fal":
		return NewFALProvider(pc, hc)
	case "stability":
		return NewStabilityProvider(pc, hc)
	case "openai":
		return NewOpenAIProvider(pc, hc)
	case "imagen":
		return NewImagenProvider(pc, hc)
	case "webui":
		return NewWebUIProvider(pc, hc)
	}
	return nil
}

// Available lists the names of providers that can be attempted.
func Available(providers []adapter.ImageProvider) []string {
	return lo.FilterMap(providers, func(p adapter.ImageProvider, _ int) (string, bool) {
		return p.Name(), p.Configured()
	})
}
