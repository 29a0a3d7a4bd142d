package usecase

import (
	"context"

	"reelforge/internal/domain/model"
)

// RenderProcessor runs one claimed render job to a terminal state.
type RenderProcessor interface {
	Process(ctx context.Context, job *model.RenderJob) error
}
