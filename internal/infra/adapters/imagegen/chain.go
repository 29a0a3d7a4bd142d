package imagegen

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/adapter"
	"reelforge/internal/infra/logging"
	"reelforge/internal/infra/metrics"
)

var _ adapter.ImageGenerator = (*Chain)(nil)

// Chain tries providers strictly in order and returns the first success.
// Each provider is attempted at most once per call.
type Chain struct {
	providers []adapter.ImageProvider
	log       *zerolog.Logger
}

func NewChain(log *zerolog.Logger, providers ...adapter.ImageProvider) *Chain {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Chain{providers: providers, log: log}
}

// Providers returns the chain order.
func (c *Chain) Providers() []adapter.ImageProvider {
	return append([]adapter.ImageProvider(nil), c.providers...)
}

// Generate fails only with *domain.AllProvidersFailedError.
func (c *Chain) Generate(ctx context.Context, prompt string) (*model.GenerationResult, error) {
	ctx, span := tracer.Start(ctx, "chain_generate")
	defer span.End()

	failed := &domain.AllProvidersFailedError{}
	for _, p := range c.providers {
		out := c.attempt(ctx, p, prompt)
		if out.Succeeded() {
			span.SetAttributes(attribute.String("imagegen.provider", out.Provider))
			return out.Result, nil
		}
		failed.AppendFailure(out.Provider, out.Err)
	}
	span.RecordError(failed)
	return nil, failed
}

func (c *Chain) attempt(ctx context.Context, p adapter.ImageProvider, prompt string) model.AttemptOutcome {
	out := model.AttemptOutcome{Provider: p.Name()}
	log := logging.With(logging.WithProvider(ctx, p.Name()), c.log)

	if !p.Configured() {
		out.Skipped = true
		out.Err = domain.NewProviderError(p.Name(), domain.ErrUnconfigured, nil)
		metrics.ObserveProviderAttempt(out.Provider, outcomeLabel(out.Err), 0)
		log.Debug().Msg("provider skipped: not configured")
		return out
	}

	start := time.Now()
	res, err := p.Generate(ctx, prompt)
	out.Duration = time.Since(start)

	if err == nil && (res == nil || len(res.Image) == 0) {
		err = domain.NewProviderError(p.Name(), domain.ErrNoOutput, errors.New("empty result"))
	}
	if err != nil {
		out.Err = err
		var pe *domain.ProviderError
		if errors.As(err, &pe) {
			out.RetryAfter = pe.RetryAfter
		}
		metrics.ObserveProviderAttempt(out.Provider, outcomeLabel(err), out.Duration)
		ev := log.Warn().Err(err).Dur("duration", out.Duration)
		if out.RetryAfter > 0 {
			ev = ev.Dur("retry_after", out.RetryAfter)
		}
		ev.Msg("provider failed, trying next")
		return out
	}

	out.Result = res
	metrics.ObserveProviderAttempt(out.Provider, outcomeLabel(nil), out.Duration)
	log.Info().Str("model", res.Model).Int("bytes", len(res.Image)).Dur("duration", out.Duration).Msg("provider succeeded")
	return out
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrUnconfigured):
		return "unconfigured"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrNoOutput):
		return "no_output"
	default:
		return "remote_error"
	}
}
