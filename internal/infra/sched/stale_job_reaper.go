package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"reelforge/internal/domain/ports/repository"
	"reelforge/internal/infra/metrics"
)

// StaleJobReaper periodically returns render jobs stuck in processing to the
// queue, e.g. after a worker process died mid-render.
type StaleJobReaper struct {
	interval time.Duration
	maxAge   time.Duration
	jobs     repository.RenderJobRepository
	requeued func()
	log      *zerolog.Logger
}

// NewStaleJobReaper builds a reaper; onRequeue, when not nil, runs after jobs were moved.
func NewStaleJobReaper(interval, maxAge time.Duration, jobs repository.RenderJobRepository, onRequeue func(), logger *zerolog.Logger) *StaleJobReaper {
	if interval <= 0 {
		interval = time.Minute
	}
	reapLog := logger.With().Str("component", "StaleJobReaper").Logger()
	return &StaleJobReaper{
		interval: interval,
		maxAge:   maxAge,
		jobs:     jobs,
		requeued: onRequeue,
		log:      &reapLog,
	}
}

func (w *StaleJobReaper) Run(ctx context.Context) error {
	w.log.Info().Dur("max_age", w.maxAge).Msg("Starting stale job reaper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stale job reaper")
			return ctx.Err()
		case <-ticker.C:
			w.reap(ctx, time.Now())
		}
	}
}

func (w *StaleJobReaper) reap(ctx context.Context, now time.Time) int {
	n, err := w.jobs.RequeueStale(ctx, now.Add(-w.maxAge))
	if err != nil {
		w.log.Error().Err(err).Msg("stale job reaper error")
		return 0
	}
	if n > 0 {
		metrics.AddRenderJobs("requeued", n)
		w.log.Warn().Int("count", n).Msg("stale render jobs requeued")
		if w.requeued != nil {
			w.requeued()
		}
	}
	return n
}
