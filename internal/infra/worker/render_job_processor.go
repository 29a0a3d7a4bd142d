package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"reelforge/internal/domain"
	"reelforge/internal/domain/ports/repository"
	"reelforge/internal/domain/ports/usecase"
	"reelforge/internal/infra/logging"
)

// RenderJobProcessor claims pending render jobs from the repository and runs
// them on the pool. Jobs survive restarts when the repository is durable.
type RenderJobProcessor struct {
	jobs     repository.RenderJobRepository
	renderer usecase.RenderProcessor
	log      *zerolog.Logger
	interval time.Duration
	kick     chan struct{}
}

func NewRenderJobProcessor(jobs repository.RenderJobRepository, renderer usecase.RenderProcessor, log *zerolog.Logger) *RenderJobProcessor {
	return &RenderJobProcessor{
		jobs:     jobs,
		renderer: renderer,
		log:      log,
		interval: 500 * time.Millisecond,
		kick:     make(chan struct{}, 1),
	}
}

// Kick asks for an immediate claim attempt instead of waiting for the next tick.
func (p *RenderJobProcessor) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Start runs the claim loop until ctx is done. Run it in a goroutine.
func (p *RenderJobProcessor) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Msg("render job processor started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("render job processor stopping")
			return
		case <-ticker.C:
		case <-p.kick:
		}
		if !pool.Idle() {
			continue
		}
		_ = pool.Submit(func(ctx context.Context) error {
			if p.processOne(ctx) {
				p.Kick()
			}
			return nil
		})
	}
}

// processOne reports whether a job was claimed.
func (p *RenderJobProcessor) processOne(ctx context.Context) bool {
	job, err := p.jobs.FetchAndMarkProcessing(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.log.Error().Err(err).Msg("failed to fetch render job")
		}
		return false
	}

	log := logging.With(logging.WithJobID(ctx, job.ID), p.log)
	log.Info().Int("segments", len(job.Manifest.Segments)).Msg("render job claimed")
	if err := p.renderer.Process(logging.WithJobID(ctx, job.ID), job); err != nil {
		log.Warn().Err(err).Msg("render job failed")
	}
	return true
}
