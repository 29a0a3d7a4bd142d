package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/repository"
)

var _ repository.RenderJobRepository = (*RenderJobRepo)(nil)

// RenderJobRepo keeps render jobs in process memory. Jobs are lost on restart.
type RenderJobRepo struct {
	mu   sync.Mutex
	jobs map[string]model.RenderJob
}

func NewRenderJobRepo() *RenderJobRepo {
	return &RenderJobRepo{jobs: map[string]model.RenderJob{}}
}

func (r *RenderJobRepo) Save(_ context.Context, _ repository.Tx, job *model.RenderJob) error {
	if job.ID == "" {
		return domain.ErrInvalidArgument
	}
	job.UpdatedAt = time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = job.UpdatedAt
	}
	r.mu.Lock()
	r.jobs[job.ID] = cloneJob(*job)
	r.mu.Unlock()
	return nil
}

func (r *RenderJobRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.RenderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneJob(j)
	return &out, nil
}

func (r *RenderJobRepo) ListRecent(_ context.Context, _ repository.Tx, limit int) ([]*model.RenderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.RenderJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		c := cloneJob(j)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *RenderJobRepo) FetchAndMarkProcessing(_ context.Context) (*model.RenderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var oldest *model.RenderJob
	for id := range r.jobs {
		j := r.jobs[id]
		if j.Status != model.RenderJobPending {
			continue
		}
		if oldest == nil || j.CreatedAt.Before(oldest.CreatedAt) {
			oldest = &j
		}
	}
	if oldest == nil {
		return nil, domain.ErrNotFound
	}
	oldest.Status = model.RenderJobProcessing
	oldest.UpdatedAt = time.Now()
	r.jobs[oldest.ID] = cloneJob(*oldest)
	out := cloneJob(*oldest)
	return &out, nil
}

func (r *RenderJobRepo) RequeueStale(_ context.Context, olderThan time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, j := range r.jobs {
		if j.Status != model.RenderJobProcessing || !j.UpdatedAt.Before(olderThan) {
			continue
		}
		j.Status = model.RenderJobPending
		j.UpdatedAt = time.Now()
		r.jobs[id] = j
		n++
	}
	return n, nil
}

func (r *RenderJobRepo) Heartbeat(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Status == model.RenderJobProcessing {
		j.UpdatedAt = time.Now()
		r.jobs[id] = j
	}
	return nil
}

func cloneJob(j model.RenderJob) model.RenderJob {
	j.Manifest.Segments = append([]string(nil), j.Manifest.Segments...)
	j.Manifest.Images = append([]string(nil), j.Manifest.Images...)
	return j
}
