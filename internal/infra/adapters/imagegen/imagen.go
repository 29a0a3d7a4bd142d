package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"reelforge/internal/config"
	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/adapter"
)

var _ adapter.ImageProvider = (*ImagenProvider)(nil)

const (
	imagenModel = "imagen-3.0-generate-002"
	imagenLabel = "Imagen 3"
)

// ImagenProvider generates through the Gemini API. A client is built per call.
type ImagenProvider struct {
	httpProvider
	baseURL string
	model   string
}

func NewImagenProvider(p config.ProviderConfig, hc *http.Client) *ImagenProvider {
	return &ImagenProvider{
		httpProvider: newHTTPProvider(p, imagenLabel, hc),
		baseURL:      p.Endpoint,
		model:        modelOr(p, imagenModel),
	}
}

func (g *ImagenProvider) Generate(ctx context.Context, prompt string) (*model.GenerationResult, error) {
	if !g.Configured() {
		return nil, g.unconfigured()
	}
	ctx, span := tracer.Start(ctx, "imagen_generate")
	defer span.End()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     g.credential,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.hc,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: g.baseURL,
		},
	})
	if err != nil {
		span.RecordError(err)
		return nil, g.fail(domain.ErrRemote, fmt.Errorf("genai client: %w", err))
	}

	resp, err := client.Models.GenerateImages(ctx, g.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		span.RecordError(err)
		return nil, g.classify(err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, g.fail(domain.ErrNoOutput, errors.New("no images in response"))
	}
	gen := resp.GeneratedImages[0]
	if gen == nil || gen.Image == nil || len(gen.Image.ImageBytes) == 0 {
		reason := "empty image"
		if gen != nil && gen.RAIFilteredReason != "" {
			reason = gen.RAIFilteredReason
		}
		return nil, g.fail(domain.ErrNoOutput, errors.New(reason))
	}

	res := model.NewGenerationResult(g.name, g.label, gen.Image.ImageBytes)
	if gen.Image.MIMEType != "" {
		res.MediaType = gen.Image.MIMEType
	}
	return res, nil
}

func (g *ImagenProvider) classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		pe := statusError(g.name, apiErr.Code, nil, nil)
		pe.Err = err
		return pe
	}
	return g.transportError(err)
}
