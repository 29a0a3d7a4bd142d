package model

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

const DefaultMediaType = "image/png"

type GenerationRequest struct {
	Prompt string `json:"prompt"`
}

// Valid reports whether the prompt carries any non-whitespace text.
func (r GenerationRequest) Valid() bool {
	return strings.TrimSpace(r.Prompt) != ""
}

// GenerationResult is a raw image produced by one provider. It is never persisted.
type GenerationResult struct {
	Image     []byte
	MediaType string
	Provider  string
	Model     string
}

// NewGenerationResult tags img with its sniffed media type, defaulting to PNG.
func NewGenerationResult(provider, model string, img []byte) *GenerationResult {
	return &GenerationResult{
		Image:     img,
		MediaType: SniffMediaType(img),
		Provider:  provider,
		Model:     model,
	}
}

// DataURL encodes the image exactly once into a data: URL.
func (r *GenerationResult) DataURL() string {
	mt := r.MediaType
	if mt == "" {
		mt = DefaultMediaType
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(r.Image)
}

func SniffMediaType(img []byte) string {
	mt := http.DetectContentType(img)
	if strings.HasPrefix(mt, "image/") {
		return mt
	}
	return DefaultMediaType
}

// AttemptOutcome is the result of trying one provider: success iff Err is nil.
type AttemptOutcome struct {
	Provider   string
	Result     *GenerationResult
	Err        error
	RetryAfter time.Duration
	Duration   time.Duration
	Skipped    bool // not attempted because unconfigured
}

func (o AttemptOutcome) Succeeded() bool { return o.Err == nil && o.Result != nil }

// GenerationLog is the persisted metadata of a /generate call; it never holds image bytes.
type GenerationLog struct {
	ID         string
	Prompt     string
	Provider   string
	Model      string
	Success    bool
	Error      string
	DurationMs int64
	CreatedAt  time.Time
}
