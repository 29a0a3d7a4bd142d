package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/adapter"
	"reelforge/internal/domain/ports/repository"
	"reelforge/internal/infra/logging"
	"reelforge/internal/infra/metrics"
)

// Compile-time check
var _ GenerateUseCase = (*generateUC)(nil)

type GenerateUseCase interface {
	Generate(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error)
}

type generateUC struct {
	images  adapter.ImageGenerator
	logs    repository.GenerationLogRepository
	enhance bool
	dev     bool

	log *zerolog.Logger
}

// NewGenerateUseCase wires the provider chain behind request validation.
// logs may be nil.
func NewGenerateUseCase(images adapter.ImageGenerator, logs repository.GenerationLogRepository, enhance, dev bool, logger *zerolog.Logger) *generateUC {
	return &generateUC{images: images, logs: logs, enhance: enhance, dev: dev, log: logger}
}

func (g *generateUC) Generate(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error) {
	log := logging.With(ctx, g.log)
	defer logging.TraceDuration(log, "GenerateUC.Generate")()

	if !req.Valid() {
		metrics.IncGeneration("invalid", "")
		return nil, domain.ErrInvalidRequest
	}
	prompt := strings.TrimSpace(req.Prompt)
	log.Info().Str("prompt", logging.Redact(prompt, g.dev)).Msg("generation requested")
	if g.enhance {
		prompt = EnhancePrompt(prompt)
	}

	start := time.Now()
	res, err := g.images.Generate(ctx, prompt)
	elapsed := time.Since(start)

	entry := &model.GenerationLog{
		Prompt:     logging.Redact(prompt, g.dev),
		Success:    err == nil,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  start,
	}
	if err != nil {
		entry.Error = err.Error()
		metrics.IncGeneration("failed", "")
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("generation failed")
	} else {
		entry.Provider, entry.Model = res.Provider, res.Model
		metrics.IncGeneration("success", res.Provider)
		log.Info().Str("provider", res.Provider).Int("bytes", len(res.Image)).Dur("elapsed", elapsed).Msg("generation succeeded")
	}
	g.record(ctx, entry, log)

	if err != nil {
		return nil, err
	}
	return res, nil
}

// record persists request metadata; a storage failure never fails the request.
func (g *generateUC) record(ctx context.Context, entry *model.GenerationLog, log *zerolog.Logger) {
	if g.logs == nil {
		return
	}
	if err := g.logs.Save(ctx, repository.NoTX, entry); err != nil {
		log.Warn().Err(err).Msg("failed to record generation")
	}
}
