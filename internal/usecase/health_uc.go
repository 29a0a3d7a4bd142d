package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"reelforge/internal/domain/ports/adapter"
	"reelforge/internal/domain/ports/repository"
)

// Compile-time check
var _ HealthUseCase = (*healthUC)(nil)

const probeTimeout = 2 * time.Second

type HealthUseCase interface {
	Report(ctx context.Context) *HealthReport
}

type ProviderStatus struct {
	Name       string `json:"name"`
	Model      string `json:"model"`
	Configured bool   `json:"configured"`
}

type HealthReport struct {
	Status             string           `json:"status"`
	Ready              bool             `json:"ready"`
	AvailableProviders []string         `json:"available_providers"`
	Providers          []ProviderStatus `json:"providers"`
	WebUIAvailable     bool             `json:"webui_available"`
	Device             string           `json:"device"`
	Served             map[string]int   `json:"served,omitempty"`
}

type healthUC struct {
	providers []adapter.ImageProvider
	logs      repository.GenerationLogRepository
	log       *zerolog.Logger
}

// NewHealthUseCase reports on the ordered provider list. logs may be nil.
func NewHealthUseCase(providers []adapter.ImageProvider, logs repository.GenerationLogRepository, logger *zerolog.Logger) *healthUC {
	return &healthUC{providers: providers, logs: logs, log: logger}
}

// Report is always "healthy"; Ready tells whether any provider can be attempted.
func (h *healthUC) Report(ctx context.Context) *HealthReport {
	available := lo.FilterMap(h.providers, func(p adapter.ImageProvider, _ int) (string, bool) {
		return p.Model(), p.Configured()
	})
	rep := &HealthReport{
		Status:             "healthy",
		Ready:              len(available) > 0,
		AvailableProviders: available,
		Providers: lo.Map(h.providers, func(p adapter.ImageProvider, _ int) ProviderStatus {
			return ProviderStatus{Name: p.Name(), Model: p.Model(), Configured: p.Configured()}
		}),
		Device: "remote",
	}

	for _, p := range h.providers {
		prober, ok := p.(adapter.Prober)
		if !ok || !p.Configured() {
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := prober.Probe(pctx)
		cancel()
		if err != nil {
			h.log.Debug().Err(err).Str("provider", p.Name()).Msg("probe failed")
			continue
		}
		rep.WebUIAvailable = true
		rep.Device = "local"
	}

	if h.logs != nil {
		if served, err := h.logs.CountByProvider(ctx, repository.NoTX); err == nil {
			rep.Served = served
		} else {
			h.log.Warn().Err(err).Msg("failed to count generations")
		}
	}
	return rep
}
