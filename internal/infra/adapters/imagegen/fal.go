package imagegen

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"reelforge/internal/config"
	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/adapter"
)

var _ adapter.ImageProvider = (*FALProvider)(nil)

const (
	falBaseURL = "https://fal.run"
	falModel   = "fal-ai/flux/dev"
	falLabel   = "Flux-FAL"
)

// FALProvider runs a model synchronously and re-fetches the returned image URL.
type FALProvider struct {
	httpProvider
	baseURL string
	model   string
}

func NewFALProvider(p config.ProviderConfig, hc *http.Client) *FALProvider {
	return &FALProvider{
		httpProvider: newHTTPProvider(p, falLabel, hc),
		baseURL:      endpointOr(p, falBaseURL),
		model:        strings.Trim(modelOr(p, falModel), "/"),
	}
}

type falRequest struct {
	Prompt            string  `json:"prompt"`
	ImageSize         string  `json:"image_size"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	NumImages         int     `json:"num_images"`
}

type falResponse struct {
	Images []struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
	} `json:"images"`
}

func (f *FALProvider) Generate(ctx context.Context, prompt string) (*model.GenerationResult, error) {
	if !f.Configured() {
		return nil, f.unconfigured()
	}
	ctx, span := tracer.Start(ctx, "fal_generate")
	defer span.End()

	req := falRequest{
		Prompt:            prompt,
		ImageSize:         "landscape_4_3",
		NumInferenceSteps: 28,
		GuidanceScale:     3.5,
		NumImages:         1,
	}
	header := http.Header{"Authorization": {"Key " + f.credential}}
	var out falResponse
	if err := f.doJSON(ctx, http.MethodPost, f.baseURL+"/"+f.model, header, req, &out); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(out.Images) == 0 || out.Images[0].URL == "" {
		return nil, f.fail(domain.ErrNoOutput, errors.New("no images in response"))
	}

	img, err := f.download(ctx, out.Images[0].URL)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return model.NewGenerationResult(f.name, f.label, img), nil
}
