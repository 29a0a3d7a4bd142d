package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"reelforge/internal/config"
	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/adapter"
)

var (
	_ adapter.ImageProvider = (*WebUIProvider)(nil)
	_ adapter.Prober        = (*WebUIProvider)(nil)
)

const (
	webUILabel     = "Automatic1111 WebUI"
	webUIProbeWait = 2 * time.Second
	webUINegative  = "blurry, low quality, distorted, watermark"
)

// WebUIProvider talks to a locally hosted Automatic1111 web UI.
// Its endpoint doubles as the credential.
type WebUIProvider struct {
	httpProvider
	endpoint string
}

func NewWebUIProvider(p config.ProviderConfig, hc *http.Client) *WebUIProvider {
	return &WebUIProvider{
		httpProvider: newHTTPProvider(p, webUILabel, hc),
		endpoint:     endpointOr(p, ""),
	}
}

type webUIRequest struct {
	Prompt           string  `json:"prompt"`
	NegativePrompt   string  `json:"negative_prompt"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	Steps            int     `json:"steps"`
	CfgScale         float64 `json:"cfg_scale"`
	SamplerName      string  `json:"sampler_name"`
	Seed             int     `json:"seed"`
	BatchSize        int     `json:"batch_size"`
	NIter            int     `json:"n_iter"`
	RestoreFaces     bool    `json:"restore_faces"`
	Tiling           bool    `json:"tiling"`
	DoNotSaveSamples bool    `json:"do_not_save_samples"`
	DoNotSaveGrid    bool    `json:"do_not_save_grid"`
}

type webUIResponse struct {
	Images []string `json:"images"`
}

func (w *WebUIProvider) Generate(ctx context.Context, prompt string) (*model.GenerationResult, error) {
	if !w.Configured() || w.endpoint == "" {
		return nil, w.unconfigured()
	}
	ctx, span := tracer.Start(ctx, "webui_generate")
	defer span.End()

	req := webUIRequest{
		Prompt:           prompt,
		NegativePrompt:   webUINegative,
		Width:            1024,
		Height:           1024,
		Steps:            25,
		CfgScale:         7,
		SamplerName:      "DPM++ 2M Karras",
		Seed:             -1,
		BatchSize:        1,
		NIter:            1,
		RestoreFaces:     true,
		DoNotSaveSamples: true,
		DoNotSaveGrid:    true,
	}
	var out webUIResponse
	if err := w.doJSON(ctx, http.MethodPost, w.endpoint+"/sdapi/v1/txt2img", nil, req, &out); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(out.Images) == 0 {
		return nil, w.fail(domain.ErrNoOutput, errors.New("no images in response"))
	}
	img, err := w.decodeBase64(out.Images[0])
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return model.NewGenerationResult(w.name, w.label, img), nil
}

// Probe checks that the web UI answers within two seconds.
func (w *WebUIProvider) Probe(ctx context.Context) error {
	if w.endpoint == "" {
		return w.unconfigured()
	}
	ctx, cancel := context.WithTimeout(ctx, webUIProbeWait)
	defer cancel()

	if err := w.doJSON(ctx, http.MethodGet, w.endpoint+"/sdapi/v1/memory", nil, nil, nil); err != nil {
		return fmt.Errorf("webui probe: %w", err)
	}
	return nil
}
