package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"reelforge/internal/config"
	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/adapter"
)

var _ adapter.ImageProvider = (*ReplicateProvider)(nil)

const (
	replicateBaseURL = "https://api.replicate.com/v1"
	// black-forest-labs/flux-dev
	replicateVersion = "ac732df83cea7fff18b8472768c88ad041fa750ff7682a21affe81863cbe77e4"
	replicateLabel   = "Flux.1-dev"

	DefaultPollInterval = 5 * time.Second
	DefaultPollAttempts = 60
)

// ReplicateProvider submits a prediction and polls it until it reaches a terminal state.
type ReplicateProvider struct {
	httpProvider
	baseURL  string
	version  string
	interval time.Duration
	attempts int
}

func NewReplicateProvider(p config.ProviderConfig, hc *http.Client, interval time.Duration, attempts int) *ReplicateProvider {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}
	return &ReplicateProvider{
		httpProvider: newHTTPProvider(p, replicateLabel, hc),
		baseURL:      endpointOr(p, replicateBaseURL),
		version:      modelOr(p, replicateVersion),
		interval:     interval,
		attempts:     attempts,
	}
}

type replicateInput struct {
	Prompt            string  `json:"prompt"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumOutputs        int     `json:"num_outputs"`
	GuidanceScale     float64 `json:"guidance_scale"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	OutputFormat      string  `json:"output_format"`
	OutputQuality     int     `json:"output_quality"`
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
}

func (r *ReplicateProvider) Generate(ctx context.Context, prompt string) (*model.GenerationResult, error) {
	if !r.Configured() {
		return nil, r.unconfigured()
	}
	ctx, span := tracer.Start(ctx, "replicate_generate")
	defer span.End()

	job, err := r.submit(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("replicate.prediction_id", job.ID))

	if !job.Terminal() {
		if err := r.poll(ctx, job); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}
	if job.Status == model.PendingJobFailed {
		msg := job.Error
		if msg == "" {
			msg = "prediction failed"
		}
		return nil, r.fail(domain.ErrRemote, errors.New(msg))
	}
	if len(job.Output) == 0 || job.Output[0] == "" {
		return nil, r.fail(domain.ErrNoOutput, fmt.Errorf("prediction %s has no output", job.ID))
	}

	img, err := r.download(ctx, job.Output[0])
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return model.NewGenerationResult(r.name, r.label, img), nil
}

func (r *ReplicateProvider) submit(ctx context.Context, prompt string) (*model.PendingJob, error) {
	body := map[string]any{
		"version": r.version,
		"input": replicateInput{
			Prompt:            prompt,
			Width:             1024,
			Height:            1024,
			NumOutputs:        1,
			GuidanceScale:     3.5,
			NumInferenceSteps: 28,
			OutputFormat:      "png",
			OutputQuality:     100,
		},
	}
	var pred replicatePrediction
	if err := r.doJSON(ctx, http.MethodPost, r.baseURL+"/predictions", r.authHeader(), body, &pred); err != nil {
		return nil, err
	}
	if pred.ID == "" {
		return nil, r.fail(domain.ErrNoOutput, errors.New("prediction id missing"))
	}
	job := &model.PendingJob{ID: pred.ID, CreatedAt: time.Now()}
	applyPrediction(job, &pred)
	return job, nil
}

// poll waits one interval before each status check. A non-2xx status consumes
// an attempt; rejected credentials end the loop at once.
func (r *ReplicateProvider) poll(ctx context.Context, job *model.PendingJob) error {
	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for attempt := 1; attempt <= r.attempts; attempt++ {
		select {
		case <-ctx.Done():
			return r.transportError(ctx.Err())
		case <-timer.C:
		}

		pred, err := r.status(ctx, job.ID)
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			return err
		case err == nil:
			applyPrediction(job, pred)
			if job.Terminal() {
				return nil
			}
		}
		timer.Reset(r.interval)
	}
	return r.fail(domain.ErrTimeout, fmt.Errorf("prediction %s still %s after %d polls", job.ID, job.Status, r.attempts))
}

func (r *ReplicateProvider) status(ctx context.Context, id string) (*replicatePrediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/predictions/"+id, nil)
	if err != nil {
		return nil, r.fail(domain.ErrRemote, err)
	}
	req.Header = r.authHeader()
	resp, err := r.hc.Do(req)
	if err != nil {
		return nil, r.transportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, r.statusError(resp)
	}
	var pred replicatePrediction
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&pred); err != nil {
		return nil, r.fail(domain.ErrRemote, fmt.Errorf("decode prediction: %w", err))
	}
	return &pred, nil
}

func (r *ReplicateProvider) authHeader() http.Header {
	return http.Header{"Authorization": {"Token " + r.credential}}
}

func applyPrediction(job *model.PendingJob, pred *replicatePrediction) {
	switch pred.Status {
	case "starting":
		job.Status = model.PendingJobQueued
	case "processing":
		job.Status = model.PendingJobRunning
	case "succeeded":
		job.Status = model.PendingJobSucceeded
		job.Output = predictionOutput(pred.Output)
	case "failed", "canceled":
		job.Status = model.PendingJobFailed
		job.Error = predictionError(pred.Error)
		if job.Error == "" && pred.Status == "canceled" {
			job.Error = "prediction canceled"
		}
	default:
		job.Status = model.PendingJobRunning
	}
}

// predictionOutput accepts either a list of URLs or a single URL.
func predictionOutput(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil && one != "" {
		return []string{one}
	}
	return nil
}

func predictionError(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
