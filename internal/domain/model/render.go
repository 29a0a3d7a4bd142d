package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultFrameWidth        = 1080
	DefaultFrameHeight       = 1920
	DefaultSegmentSeconds    = 6.0
	DefaultTransitionSeconds = 0.5
	MaxSegmentTextRunes      = 120
	segmentTextEllipsis      = "..."
)

// RenderManifest describes one short vertical video.
// Segments and Images are zipped; extra entries on either side are ignored.
type RenderManifest struct {
	Segments           []string `json:"segments"`
	Images             []string `json:"images"`
	AudioFile          string   `json:"audio_file,omitempty"`
	OutputPath         string   `json:"output_path"`
	Width              int      `json:"width,omitempty"`
	Height             int      `json:"height,omitempty"`
	SegmentDuration    float64  `json:"segment_duration,omitempty"`
	Transition         bool     `json:"transition,omitempty"`
	TransitionDuration float64  `json:"transition_duration,omitempty"`
	TempDir            string   `json:"-"`
}

func (m *RenderManifest) ApplyDefaults() {
	if m.Width <= 0 {
		m.Width = DefaultFrameWidth
	}
	if m.Height <= 0 {
		m.Height = DefaultFrameHeight
	}
	if m.SegmentDuration <= 0 {
		m.SegmentDuration = DefaultSegmentSeconds
	}
	if m.TransitionDuration <= 0 {
		m.TransitionDuration = DefaultTransitionSeconds
	}
}

func (m *RenderManifest) Validate() error {
	if strings.TrimSpace(m.OutputPath) == "" {
		return errors.New("output_path is required")
	}
	if m.ClipCount() == 0 {
		return errors.New("at least one segment with a matching image is required")
	}
	if m.Transition && m.TransitionDuration >= m.SegmentDuration {
		return errors.New("transition_duration must be shorter than segment_duration")
	}
	return nil
}

// Confine resolves every file the manifest names under the given roots.
// Paths must be relative and stay inside their root; absolute paths and ".."
// segments are rejected. Inputs go under inputDir, the output under outputDir.
func (m *RenderManifest) Confine(inputDir, outputDir string) error {
	out, err := confinePath(outputDir, m.OutputPath)
	if err != nil {
		return fmt.Errorf("output_path: %w", err)
	}
	images := make([]string, len(m.Images))
	for i, img := range m.Images {
		if images[i], err = confinePath(inputDir, img); err != nil {
			return fmt.Errorf("images[%d]: %w", i, err)
		}
	}
	audio := ""
	if m.AudioFile != "" {
		if audio, err = confinePath(inputDir, m.AudioFile); err != nil {
			return fmt.Errorf("audio_file: %w", err)
		}
	}
	m.OutputPath, m.Images, m.AudioFile = out, images, audio
	m.TempDir = ""
	return nil
}

func confinePath(root, p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", errors.New("path is required")
	}
	if filepath.IsAbs(p) || !filepath.IsLocal(p) {
		return "", fmt.Errorf("path %q must be relative and stay inside its directory", p)
	}
	return filepath.Join(root, p), nil
}

// ClipCount is the number of (segment, image) pairs that will be rendered.
func (m *RenderManifest) ClipCount() int {
	return min(len(m.Segments), len(m.Images))
}

// SegmentText normalizes a script segment for on-screen display.
func SegmentText(segment string) string {
	text := strings.ReplaceAll(segment, `"`, "")
	if _, after, ok := strings.Cut(text, ":"); ok {
		text = after
	}
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > MaxSegmentTextRunes {
		text = string(r[:MaxSegmentTextRunes]) + segmentTextEllipsis
	}
	return text
}

type RenderJobStatus string

const (
	RenderJobPending    RenderJobStatus = "pending"
	RenderJobProcessing RenderJobStatus = "processing"
	RenderJobCompleted  RenderJobStatus = "completed"
	RenderJobFailed     RenderJobStatus = "failed"
)

type RenderJob struct {
	ID        string          `json:"id"`
	Status    RenderJobStatus `json:"status"`
	Manifest  RenderManifest  `json:"manifest"`
	VideoURL  string          `json:"video_url,omitempty"`
	Clips     int             `json:"clips"`
	Skipped   int             `json:"skipped"`
	LastError string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RenderReport summarizes one assembler run.
type RenderReport struct {
	OutputPath string
	Clips      int
	Skipped    []int
}
