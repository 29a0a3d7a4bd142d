package imagegen

import (
	"context"
	"net/http"

	"reelforge/internal/config"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/adapter"
)

var _ adapter.ImageProvider = (*TogetherProvider)(nil)

const (
	togetherBaseURL = "https://api.together.xyz/v1"
	togetherModel   = "black-forest-labs/FLUX.1-schnell"
	togetherLabel   = "Flux.1-schnell"
)

// TogetherProvider calls the synchronous images endpoint and reads the inline payload.
type TogetherProvider struct {
	httpProvider
	baseURL string
	model   string
}

func NewTogetherProvider(p config.ProviderConfig, hc *http.Client) *TogetherProvider {
	return &TogetherProvider{
		httpProvider: newHTTPProvider(p, togetherLabel, hc),
		baseURL:      endpointOr(p, togetherBaseURL),
		model:        modelOr(p, togetherModel),
	}
}

type togetherRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Steps          int    `json:"steps"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type togetherResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}

func (t *TogetherProvider) Generate(ctx context.Context, prompt string) (*model.GenerationResult, error) {
	if !t.Configured() {
		return nil, t.unconfigured()
	}
	ctx, span := tracer.Start(ctx, "together_generate")
	defer span.End()

	req := togetherRequest{
		Model:          t.model,
		Prompt:         prompt,
		Width:          1024,
		Height:         1024,
		Steps:          4,
		N:              1,
		ResponseFormat: "b64_json",
	}
	var out togetherResponse
	if err := t.doJSON(ctx, http.MethodPost, t.baseURL+"/images/generations", bearer(t.credential), req, &out); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var b64, url string
	if len(out.Data) > 0 {
		b64, url = out.Data[0].B64JSON, out.Data[0].URL
	}
	var (
		img []byte
		err error
	)
	if b64 == "" && url != "" {
		img, err = t.download(ctx, url)
	} else {
		img, err = t.decodeBase64(b64)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return model.NewGenerationResult(t.name, t.label, img), nil
}
