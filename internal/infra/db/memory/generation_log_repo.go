package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/repository"
)

var _ repository.GenerationLogRepository = (*GenerationLogRepo)(nil)

// GenerationLogRepo is a bounded ring of recent generation entries.
type GenerationLogRepo struct {
	mu      sync.Mutex
	entries []model.GenerationLog
	max     int
}

func NewGenerationLogRepo(max int) *GenerationLogRepo {
	if max <= 0 {
		max = 1000
	}
	return &GenerationLogRepo{max: max}
}

func (r *GenerationLogRepo) Save(_ context.Context, _ repository.Tx, e *model.GenerationLog) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *e)
	if over := len(r.entries) - r.max; over > 0 {
		r.entries = append(r.entries[:0:0], r.entries[over:]...)
	}
	return nil
}

func (r *GenerationLogRepo) CountByProvider(_ context.Context, _ repository.Tx) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{}
	for _, e := range r.entries {
		if e.Success {
			out[e.Provider]++
		}
	}
	return out, nil
}
