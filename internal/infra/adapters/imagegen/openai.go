package imagegen

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"reelforge/internal/config"
	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/adapter"
)

var _ adapter.ImageProvider = (*OpenAIProvider)(nil)

const openAILabel = "DALL-E 3"

// OpenAIProvider uses the Images API through the official SDK.
// SDK retries are disabled; the chain moves on instead.
type OpenAIProvider struct {
	httpProvider
	client openai.Client
	model  string
}

func NewOpenAIProvider(p config.ProviderConfig, hc *http.Client) *OpenAIProvider {
	base := newHTTPProvider(p, openAILabel, hc)
	opts := []option.RequestOption{
		option.WithAPIKey(p.Credential),
		option.WithHTTPClient(base.hc),
		option.WithMaxRetries(0),
	}
	if p.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(p.Endpoint))
	}
	return &OpenAIProvider{
		httpProvider: base,
		client:       openai.NewClient(opts...),
		model:        modelOr(p, string(openai.ImageModelDallE3)),
	}
}

func (o *OpenAIProvider) Generate(ctx context.Context, prompt string) (*model.GenerationResult, error) {
	if !o.Configured() {
		return nil, o.unconfigured()
	}
	ctx, span := tracer.Start(ctx, "openai_generate")
	defer span.End()

	resp, err := o.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(o.model),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		Quality:        openai.ImageGenerateParamsQualityHD,
		Style:          openai.ImageGenerateParamsStyleNatural,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		span.RecordError(err)
		return nil, o.classify(err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, o.fail(domain.ErrNoOutput, errors.New("no images in response"))
	}

	first := resp.Data[0]
	var img []byte
	if first.URL != "" {
		img, err = o.download(ctx, first.URL)
	} else {
		img, err = o.decodeBase64(first.B64JSON)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return model.NewGenerationResult(o.name, o.label, img), nil
}

func (o *OpenAIProvider) classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		var header http.Header
		if apiErr.Response != nil {
			header = apiErr.Response.Header
		}
		pe := statusError(o.name, apiErr.StatusCode, header, nil)
		pe.Err = err
		return pe
	}
	return o.transportError(err)
}
