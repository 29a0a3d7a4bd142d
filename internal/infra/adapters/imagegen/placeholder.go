package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/adapter"
)

var _ adapter.ImageProvider = (*PlaceholderProvider)(nil)

const (
	PlaceholderName  = "placeholder"
	placeholderLabel = "Demo Placeholder"
	placeholderSize  = 1024
)

// PlaceholderProvider renders a vertical blue gradient locally. It is only
// added to the chain in demo mode and never fails for a non-empty prompt.
type PlaceholderProvider struct {
	size int
}

func NewPlaceholderProvider() *PlaceholderProvider {
	return &PlaceholderProvider{size: placeholderSize}
}

func (p *PlaceholderProvider) Name() string     { return PlaceholderName }
func (p *PlaceholderProvider) Model() string    { return placeholderLabel }
func (p *PlaceholderProvider) Configured() bool { return true }

func (p *PlaceholderProvider) Generate(ctx context.Context, _ string) (*model.GenerationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewProviderError(PlaceholderName, domain.ErrTimeout, err)
	}
	img := image.NewRGBA(image.Rect(0, 0, p.size, p.size))
	for y := 0; y < p.size; y++ {
		v := 255 * y / p.size
		c := color.RGBA{R: uint8(v / 3), G: uint8(v / 2), B: uint8(v), A: 255}
		for x := 0; x < p.size; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, domain.NewProviderError(PlaceholderName, domain.ErrNoOutput, fmt.Errorf("encode png: %w", err))
	}
	return model.NewGenerationResult(PlaceholderName, placeholderLabel, buf.Bytes()), nil
}
