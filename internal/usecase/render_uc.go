package usecase

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/adapter"
	"reelforge/internal/domain/ports/repository"
	ucport "reelforge/internal/domain/ports/usecase"
	"reelforge/internal/infra/logging"
	"reelforge/internal/infra/metrics"
)

// Compile-time check
var (
	_ RenderUseCase          = (*renderUC)(nil)
	_ ucport.RenderProcessor = (*renderUC)(nil)
)

const (
	videoContentType = "video/mp4"
	defaultListLimit = 20
	defaultHeartbeat = time.Minute
)

type RenderUseCase interface {
	Submit(ctx context.Context, m model.RenderManifest) (*model.RenderJob, error)
	Get(ctx context.Context, id string) (*model.RenderJob, error)
	List(ctx context.Context, limit int) ([]*model.RenderJob, error)
	Process(ctx context.Context, job *model.RenderJob) error
}

// Kicker is notified after a job is queued.
type Kicker interface {
	Kick()
}

// RenderOptions bounds what submitted jobs may touch and how long they may run.
type RenderOptions struct {
	InputDir  string
	OutputDir string
	// Timeout caps one job's assembly and upload; zero means no cap.
	Timeout time.Duration
	// Heartbeat is how often a running job refreshes its claim.
	Heartbeat time.Duration
}

type renderUC struct {
	jobs      repository.RenderJobRepository
	assembler adapter.VideoAssembler
	storage   adapter.ObjectStorage
	kicker    Kicker
	opts      RenderOptions

	log *zerolog.Logger
}

// NewRenderUseCase creates the render job flow. storage may be nil, in which
// case finished videos stay at their output path.
func NewRenderUseCase(jobs repository.RenderJobRepository, assembler adapter.VideoAssembler, storage adapter.ObjectStorage, opts RenderOptions, logger *zerolog.Logger) *renderUC {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}
	return &renderUC{jobs: jobs, assembler: assembler, storage: storage, opts: opts, log: logger}
}

// SetKicker registers the worker to wake on Submit.
func (r *renderUC) SetKicker(k Kicker) { r.kicker = k }

func (r *renderUC) Submit(ctx context.Context, m model.RenderManifest) (*model.RenderJob, error) {
	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	if err := m.Confine(r.opts.InputDir, r.opts.OutputDir); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	now := time.Now()
	job := &model.RenderJob{
		ID:        ulid.Make().String(),
		Status:    model.RenderJobPending,
		Manifest:  m,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.jobs.Save(ctx, repository.NoTX, job); err != nil {
		return nil, err
	}
	logging.With(logging.WithJobID(ctx, job.ID), r.log).Info().Int("clips", m.ClipCount()).Msg("render job queued")
	if r.kicker != nil {
		r.kicker.Kick()
	}
	return job, nil
}

func (r *renderUC) Get(ctx context.Context, id string) (*model.RenderJob, error) {
	return r.jobs.FindByID(ctx, repository.NoTX, id)
}

func (r *renderUC) List(ctx context.Context, limit int) ([]*model.RenderJob, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return r.jobs.ListRecent(ctx, repository.NoTX, limit)
}

// Process runs a claimed job and persists its terminal state.
func (r *renderUC) Process(ctx context.Context, job *model.RenderJob) error {
	if job.Status != model.RenderJobProcessing {
		return domain.ErrInvalidState
	}
	log := logging.With(logging.WithJobID(ctx, job.ID), r.log)
	defer logging.TraceDuration(log, "RenderUC.Process")()

	stop := r.heartbeat(ctx, job.ID, log)
	err := r.run(ctx, job)
	stop()
	if err != nil {
		job.Status = model.RenderJobFailed
		job.LastError = err.Error()
	} else {
		job.Status = model.RenderJobCompleted
		job.LastError = ""
	}
	job.UpdatedAt = time.Now()
	metrics.IncRenderJob(string(job.Status))

	if serr := r.jobs.Save(ctx, repository.NoTX, job); serr != nil {
		log.Error().Err(serr).Msg("failed to persist render job")
		if err == nil {
			err = serr
		}
	}
	if err == nil {
		log.Info().Int("clips", job.Clips).Int("skipped", job.Skipped).Str("video_url", job.VideoURL).Msg("render job completed")
	}
	return err
}

// heartbeat keeps the job's claim fresh until the returned func is called.
func (r *renderUC) heartbeat(ctx context.Context, id string, log *zerolog.Logger) func() {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(r.opts.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.jobs.Heartbeat(ctx, id); err != nil && ctx.Err() == nil {
					log.Warn().Err(err).Msg("render job heartbeat failed")
				}
			}
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func (r *renderUC) run(ctx context.Context, job *model.RenderJob) error {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}
	rep, err := r.assembler.Assemble(ctx, job.Manifest)
	if err != nil {
		return err
	}
	job.Clips = rep.Clips
	job.Skipped = len(rep.Skipped)

	if r.storage == nil {
		return nil
	}
	key := path.Join("renders", job.ID+".mp4")
	url, err := r.storage.UploadFile(ctx, key, rep.OutputPath, videoContentType)
	if err != nil {
		return fmt.Errorf("upload video: %w", err)
	}
	job.VideoURL = url
	return nil
}
