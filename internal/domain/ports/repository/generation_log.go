package repository

import (
	"context"

	"reelforge/internal/domain/model"
)

// GenerationLogRepository stores request metadata only, never image bytes.
type GenerationLogRepository interface {
	Save(ctx context.Context, tx Tx, entry *model.GenerationLog) error
	CountByProvider(ctx context.Context, tx Tx) (map[string]int, error)
}
