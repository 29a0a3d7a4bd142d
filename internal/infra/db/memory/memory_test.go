//go:build !integration

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
)

func TestRenderJobRepo_FetchOldestPendingOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewRenderJobRepo()
	now := time.Now()

	jobs := []*model.RenderJob{
		{ID: "new", Status: model.RenderJobPending, CreatedAt: now},
		{ID: "old", Status: model.RenderJobPending, CreatedAt: now.Add(-time.Minute)},
		{ID: "done", Status: model.RenderJobCompleted, CreatedAt: now.Add(-time.Hour)},
	}
	for _, j := range jobs {
		if err := repo.Save(ctx, nil, j); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	for _, want := range []string{"old", "new"} {
		got, err := repo.FetchAndMarkProcessing(ctx)
		if err != nil || got.ID != want || got.Status != model.RenderJobProcessing {
			t.Fatalf("expected %s processing, got %+v err=%v", want, got, err)
		}
	}
	if _, err := repo.FetchAndMarkProcessing(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	stored, _ := repo.FindByID(ctx, nil, "old")
	if stored.Status != model.RenderJobProcessing {
		t.Fatalf("claim not persisted: %s", stored.Status)
	}
}

func TestRenderJobRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewRenderJobRepo()
	job := &model.RenderJob{ID: "a", Status: model.RenderJobPending, Manifest: model.RenderManifest{Segments: []string{"x"}}}
	_ = repo.Save(ctx, nil, job)

	got, _ := repo.FindByID(ctx, nil, "a")
	got.Manifest.Segments[0] = "mutated"
	got.Status = model.RenderJobFailed

	again, _ := repo.FindByID(ctx, nil, "a")
	if again.Manifest.Segments[0] != "x" || again.Status != model.RenderJobPending {
		t.Fatalf("stored job was mutated through a returned pointer: %+v", again)
	}
}

func TestGenerationLogRepo_BoundedAndCounts(t *testing.T) {
	ctx := context.Background()
	repo := NewGenerationLogRepo(2)
	for _, p := range []string{"fal", "together", "together"} {
		_ = repo.Save(ctx, nil, &model.GenerationLog{Provider: p, Success: true})
	}
	_ = repo.Save(ctx, nil, &model.GenerationLog{Success: false})

	counts, _ := repo.CountByProvider(ctx, nil)
	if counts["together"] != 1 || counts["fal"] != 0 {
		t.Fatalf("expected only the two most recent entries kept, got %v", counts)
	}
}

func TestRenderJobRepo_RequeueStale(t *testing.T) {
	ctx := context.Background()
	repo := NewRenderJobRepo()
	for _, j := range []*model.RenderJob{
		{ID: "stuck", Status: model.RenderJobProcessing},
		{ID: "failed", Status: model.RenderJobFailed},
	} {
		if err := repo.Save(ctx, nil, j); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	if n, _ := repo.RequeueStale(ctx, time.Now().Add(-time.Hour)); n != 0 {
		t.Fatalf("recent job requeued: %d", n)
	}
	n, err := repo.RequeueStale(ctx, time.Now().Add(time.Second))
	if err != nil || n != 1 {
		t.Fatalf("expected 1 requeued, got %d err=%v", n, err)
	}
	claimed, err := repo.FetchAndMarkProcessing(ctx)
	if err != nil || claimed.ID != "stuck" {
		t.Fatalf("requeued job should be claimable: %+v %v", claimed, err)
	}
}

func TestRenderJobRepo_HeartbeatOnlyTouchesProcessing(t *testing.T) {
	ctx := context.Background()
	repo := NewRenderJobRepo()
	if err := repo.Save(ctx, nil, &model.RenderJob{ID: "run", Status: model.RenderJobProcessing}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Save(ctx, nil, &model.RenderJob{ID: "done", Status: model.RenderJobCompleted}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	before, _ := repo.FindByID(ctx, nil, "done")

	time.Sleep(2 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(2 * time.Millisecond)
	if err := repo.Heartbeat(ctx, "run"); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if err := repo.Heartbeat(ctx, "done"); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if n, _ := repo.RequeueStale(ctx, cutoff); n != 0 {
		t.Fatalf("job with fresh heartbeat requeued: %d", n)
	}
	after, _ := repo.FindByID(ctx, nil, "done")
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatal("heartbeat touched a finished job")
	}
	if err := repo.Heartbeat(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
