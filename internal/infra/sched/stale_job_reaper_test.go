//go:build !integration

package sched

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"reelforge/internal/domain/model"
	"reelforge/internal/infra/db/memory"
	"reelforge/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(nil)
	return &l
}

func TestStaleJobReaper_RequeuesOnlyStaleProcessing(t *testing.T) {
	ctx := context.Background()
	jobs := memory.NewRenderJobRepo()
	for _, j := range []*model.RenderJob{
		{ID: "stuck", Status: model.RenderJobProcessing},
		{ID: "done", Status: model.RenderJobCompleted},
		{ID: "queued", Status: model.RenderJobPending},
	} {
		if err := jobs.Save(ctx, nil, j); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	kicks := 0
	r := NewStaleJobReaper(time.Minute, 10*time.Minute, jobs, func() { kicks++ }, newTestLogger())

	if n := r.reap(ctx, time.Now()); n != 0 {
		t.Fatalf("fresh processing job must stay claimed, requeued %d", n)
	}
	if n := r.reap(ctx, time.Now().Add(11*time.Minute)); n != 1 || kicks != 1 {
		t.Fatalf("expected 1 requeue and 1 kick, got %d / %d", n, kicks)
	}

	got, _ := jobs.FindByID(ctx, nil, "stuck")
	if got.Status != model.RenderJobPending {
		t.Fatalf("expected pending, got %s", got.Status)
	}
	done, _ := jobs.FindByID(ctx, nil, "done")
	if done.Status != model.RenderJobCompleted {
		t.Fatalf("completed job touched: %s", done.Status)
	}
}

func TestStaleJobReaper_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewStaleJobReaper(time.Millisecond, time.Minute, memory.NewRenderJobRepo(), nil, newTestLogger())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context error")
		}
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}

type blockingAssembler struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingAssembler) Assemble(_ context.Context, m model.RenderManifest) (*model.RenderReport, error) {
	close(b.started)
	<-b.release
	return &model.RenderReport{OutputPath: m.OutputPath, Clips: 1}, nil
}

func TestStaleJobReaper_KeepsRunningJobClaimed(t *testing.T) {
	ctx := context.Background()
	jobs := memory.NewRenderJobRepo()
	asm := &blockingAssembler{started: make(chan struct{}), release: make(chan struct{})}
	uc := usecase.NewRenderUseCase(jobs, asm, nil, usecase.RenderOptions{Heartbeat: 5 * time.Millisecond}, newTestLogger())

	queued, err := uc.Submit(ctx, model.RenderManifest{Segments: []string{"1: a"}, Images: []string{"a.png"}, OutputPath: "a.mp4"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	claimed, err := jobs.FetchAndMarkProcessing(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- uc.Process(ctx, claimed) }()
	<-asm.started

	// The render outlives maxAge several times over.
	r := NewStaleJobReaper(time.Minute, 100*time.Millisecond, jobs, nil, newTestLogger())
	time.Sleep(300 * time.Millisecond)
	if n := r.reap(ctx, time.Now()); n != 0 {
		t.Fatalf("running job requeued (%d)", n)
	}
	if _, err := jobs.FetchAndMarkProcessing(ctx); err == nil {
		t.Fatal("running job handed to a second worker")
	}

	close(asm.release)
	if err := <-done; err != nil {
		t.Fatalf("Process: %v", err)
	}
	got, _ := jobs.FindByID(ctx, nil, queued.ID)
	if got.Status != model.RenderJobCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}
