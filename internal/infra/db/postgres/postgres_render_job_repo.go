package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/repository"
)

var _ repository.RenderJobRepository = (*renderJobRepo)(nil)

type renderJobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewRenderJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *renderJobRepo {
	return &renderJobRepo{pool: pool, tm: tm}
}

const renderJobColumns = `id, status, manifest, video_url, clips, skipped, last_error, created_at, updated_at`

func (r *renderJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.RenderJob) error {
	if job.ID == "" {
		return domain.ErrInvalidArgument
	}
	job.UpdatedAt = time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = job.UpdatedAt
	}
	manifest, err := json.Marshal(job.Manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	const q = `
INSERT INTO render_jobs (` + renderJobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  video_url = EXCLUDED.video_url,
  clips = EXCLUDED.clips,
  skipped = EXCLUDED.skipped,
  last_error = EXCLUDED.last_error,
  updated_at = EXCLUDED.updated_at;`

	_, err = execSQL(ctx, r.pool, tx, q,
		job.ID, string(job.Status), manifest, job.VideoURL, job.Clips, job.Skipped, job.LastError, job.CreatedAt, job.UpdatedAt)
	return err
}

func (r *renderJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RenderJob, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+renderJobColumns+` FROM render_jobs WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return scanRenderJob(row)
}

func (r *renderJobRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.RenderJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+renderJobColumns+` FROM render_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.RenderJob
	for rows.Next() {
		job, err := scanRenderJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *renderJobRepo) FetchAndMarkProcessing(ctx context.Context) (*model.RenderJob, error) {
	var job *model.RenderJob

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const q = `
SELECT ` + renderJobColumns + `
FROM render_jobs
WHERE status = 'pending'
ORDER BY created_at
LIMIT 1
FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, r.pool, tx, q)
		if err != nil {
			return err
		}
		fetched, err := scanRenderJob(row)
		if err != nil {
			return err
		}

		fetched.Status = model.RenderJobProcessing
		if err := r.Save(ctx, tx, fetched); err != nil {
			return err
		}
		job = fetched
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

func (r *renderJobRepo) RequeueStale(ctx context.Context, olderThan time.Time) (int, error) {
	const q = `
UPDATE render_jobs
SET status = 'pending', updated_at = NOW()
WHERE status = 'processing' AND updated_at < $1;`

	tag, err := execSQL(ctx, r.pool, repository.NoTX, q, olderThan)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *renderJobRepo) Heartbeat(ctx context.Context, id string) error {
	const q = `
UPDATE render_jobs
SET updated_at = NOW()
WHERE id = $1 AND status = 'processing';`

	_, err := execSQL(ctx, r.pool, repository.NoTX, q, id)
	return err
}

func scanRenderJob(row pgx.Row) (*model.RenderJob, error) {
	var (
		job      model.RenderJob
		status   string
		manifest []byte
	)
	if err := row.Scan(&job.ID, &status, &manifest, &job.VideoURL, &job.Clips, &job.Skipped,
		&job.LastError, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	job.Status = model.RenderJobStatus(status)
	if err := json.Unmarshal(manifest, &job.Manifest); err != nil {
		return nil, errors.Join(domain.ErrReadDatabaseRow, err)
	}
	return &job, nil
}
