package repository

import (
	"context"
	"time"

	"reelforge/internal/domain/model"
)

type RenderJobRepository interface {
	// Save inserts or updates the job by ID.
	Save(ctx context.Context, tx Tx, job *model.RenderJob) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.RenderJob, error)
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.RenderJob, error)
	// FetchAndMarkProcessing atomically claims the oldest pending job and marks it
	// as processing. It returns domain.ErrNotFound when nothing is pending.
	FetchAndMarkProcessing(ctx context.Context) (*model.RenderJob, error)
	// RequeueStale returns processing jobs last updated before olderThan to
	// pending and reports how many were moved.
	RequeueStale(ctx context.Context, olderThan time.Time) (int, error)
	// Heartbeat bumps updated_at of a job that is still processing.
	Heartbeat(ctx context.Context, id string) error
}
