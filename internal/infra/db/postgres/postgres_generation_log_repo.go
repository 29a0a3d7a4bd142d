package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/repository"
)

var _ repository.GenerationLogRepository = (*generationLogRepo)(nil)

type generationLogRepo struct {
	pool *pgxpool.Pool
}

func NewGenerationLogRepo(pool *pgxpool.Pool) *generationLogRepo {
	return &generationLogRepo{pool: pool}
}

func (r *generationLogRepo) Save(ctx context.Context, tx repository.Tx, e *model.GenerationLog) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO generations (id, prompt, provider, model, success, error, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	_, err := execSQL(ctx, r.pool, tx, q,
		e.ID, e.Prompt, e.Provider, e.Model, e.Success, e.Error, e.DurationMs, e.CreatedAt)
	return err
}

func (r *generationLogRepo) CountByProvider(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT provider, count(*) FROM generations WHERE success GROUP BY provider`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			provider string
			n        int
		)
		if err := rows.Scan(&provider, &n); err != nil {
			return nil, scanErr(err)
		}
		out[provider] = n
	}
	return out, rows.Err()
}
