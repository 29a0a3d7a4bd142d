package usecase_test

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

// --- Mock ImageGenerator
type MockImageGenerator struct {
	mu      sync.Mutex
	prompts []string

	GenerateFunc func(ctx context.Context, prompt string) (*model.GenerationResult, error)
}

func (m *MockImageGenerator) Generate(ctx context.Context, prompt string) (*model.GenerationResult, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return nil, errors.New("GenerateFunc not implemented")
}

func (m *MockImageGenerator) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// --- Mock GenerationLogRepository
type MockGenerationLogRepo struct {
	mu      sync.Mutex
	entries []model.GenerationLog

	SaveErr  error
	CountErr error
}

func (m *MockGenerationLogRepo) Save(_ context.Context, _ repository.Tx, e *model.GenerationLog) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *MockGenerationLogRepo) CountByProvider(context.Context, repository.Tx) (map[string]int, error) {
	if m.CountErr != nil {
		return nil, m.CountErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, e := range m.entries {
		if e.Success {
			out[e.Provider]++
		}
	}
	return out, nil
}

func (m *MockGenerationLogRepo) Entries() []model.GenerationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.GenerationLog(nil), m.entries...)
}

// --- Mock ImageProvider
type MockProvider struct {
	name, model string
	configured  bool
	probeErr    error
}

func (m *MockProvider) Name() string     { return m.name }
func (m *MockProvider) Model() string    { return m.model }
func (m *MockProvider) Configured() bool { return m.configured }
func (m *MockProvider) Generate(context.Context, string) (*model.GenerationResult, error) {
	return nil, errors.New("not used")
}

type MockProbingProvider struct {
	MockProvider
	probes int
}

func (m *MockProbingProvider) Probe(ctx context.Context) error {
	m.probes++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("probe without deadline")
	}
	return m.probeErr
}

// --- Mock VideoAssembler
type MockAssembler struct {
	AssembleFunc func(ctx context.Context, m model.RenderManifest) (*model.RenderReport, error)
}

func (m *MockAssembler) Assemble(ctx context.Context, manifest model.RenderManifest) (*model.RenderReport, error) {
	return m.AssembleFunc(ctx, manifest)
}

// --- Mock ObjectStorage
type MockStorage struct {
	keys []string
	Err  error
}

func (m *MockStorage) UploadFile(_ context.Context, key, path, _ string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.keys = append(m.keys, key)
	return "http://minio:9000/videos/" + key, nil
}

type MockKicker struct{ kicks int }

func (m *MockKicker) Kick() { m.kicks++ }
