package imagegen

import (
	"context"
	"net/http"

	"reelforge/internal/config"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/adapter"
)

var _ adapter.ImageProvider = (*StabilityProvider)(nil)

const (
	stabilityBaseURL = "https://api.stability.ai/v1"
	stabilityEngine  = "stable-diffusion-xl-1024-v1-0"
	stabilityLabel   = "Stability SDXL"
)

type StabilityProvider struct {
	httpProvider
	baseURL string
	engine  string
}

func NewStabilityProvider(p config.ProviderConfig, hc *http.Client) *StabilityProvider {
	return &StabilityProvider{
		httpProvider: newHTTPProvider(p, stabilityLabel, hc),
		baseURL:      endpointOr(p, stabilityBaseURL),
		engine:       modelOr(p, stabilityEngine),
	}
}

type stabilityPrompt struct {
	Text string `json:"text"`
}

type stabilityRequest struct {
	TextPrompts []stabilityPrompt `json:"text_prompts"`
	CfgScale    float64           `json:"cfg_scale"`
	Height      int               `json:"height"`
	Width       int               `json:"width"`
	Steps       int               `json:"steps"`
	Samples     int               `json:"samples"`
	StylePreset string            `json:"style_preset"`
}

type stabilityResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		FinishReason string `json:"finishReason"`
	} `json:"artifacts"`
}

func (s *StabilityProvider) Generate(ctx context.Context, prompt string) (*model.GenerationResult, error) {
	if !s.Configured() {
		return nil, s.unconfigured()
	}
	ctx, span := tracer.Start(ctx, "stability_generate")
	defer span.End()

	req := stabilityRequest{
		TextPrompts: []stabilityPrompt{{Text: prompt}},
		CfgScale:    7,
		Height:      1024,
		Width:       1024,
		Steps:       30,
		Samples:     1,
		StylePreset: "photographic",
	}
	header := bearer(s.credential)
	header.Set("Accept", "application/json")

	var out stabilityResponse
	url := s.baseURL + "/generation/" + s.engine + "/text-to-image"
	if err := s.doJSON(ctx, http.MethodPost, url, header, req, &out); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var payload string
	if len(out.Artifacts) > 0 {
		payload = out.Artifacts[0].Base64
	}
	img, err := s.decodeBase64(payload)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return model.NewGenerationResult(s.name, s.label, img), nil
}
