package imagegen

import (
	"context"

	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/adapter"
)

// Compile-time check
var (
	_ adapter.ImageProvider = (*limitedProvider)(nil)
	_ adapter.Prober        = (*limitedProber)(nil)
)

// limitedProvider caps in-flight calls to one provider across all requests.
type limitedProvider struct {
	adapter.ImageProvider
	sem chan struct{}
}

func NewLimitedProvider(inner adapter.ImageProvider, maxConcurrent int) adapter.ImageProvider {
	if maxConcurrent <= 0 {
		return inner
	}
	l := &limitedProvider{
		ImageProvider: inner,
		sem:           make(chan struct{}, maxConcurrent),
	}
	if p, ok := inner.(adapter.Prober); ok {
		return &limitedProber{limitedProvider: l, prober: p}
	}
	return l
}

func (l *limitedProvider) Generate(ctx context.Context, prompt string) (*model.GenerationResult, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, domain.NewProviderError(l.Name(), domain.ErrTimeout, ctx.Err())
	}
	defer func() { <-l.sem }()
	return l.ImageProvider.Generate(ctx, prompt)
}

// limitedProber keeps the Prober capability of the wrapped provider visible.
// Probes bypass the semaphore.
type limitedProber struct {
	*limitedProvider
	prober adapter.Prober
}

func (l *limitedProber) Probe(ctx context.Context) error { return l.prober.Probe(ctx) }
