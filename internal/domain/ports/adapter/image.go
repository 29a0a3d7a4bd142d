package adapter

import (
	"context"

	"reelforge/internal/domain/model"
)

// ImageProvider is the port for one text-to-image backend.
// Generate fails with a *domain.ProviderError whose Kind is one of
// ErrUnconfigured, ErrUnauthorized, ErrRemote, ErrTimeout or ErrNoOutput.
type ImageProvider interface {
	Name() string
	Model() string
	// Configured reports whether a credential is present. An unconfigured
	// provider must not be called.
	Configured() bool
	Generate(ctx context.Context, prompt string) (*model.GenerationResult, error)
}

// Prober is implemented by providers backed by a local endpoint that can be
// checked for liveness.
type Prober interface {
	Probe(ctx context.Context) error
}

// ImageGenerator is the port the request handler depends on.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*model.GenerationResult, error)
}
