package adapter

import (
	"context"

	"reelforge/internal/domain/model"
)

// VideoAssembler turns a manifest into a single encoded video file.
type VideoAssembler interface {
	Assemble(ctx context.Context, m model.RenderManifest) (*model.RenderReport, error)
}
