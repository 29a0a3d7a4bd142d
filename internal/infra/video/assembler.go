package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"reelforge/internal/config"
	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
	"reelforge/internal/domain/ports/adapter"
	"reelforge/internal/infra/logging"
	"reelforge/internal/infra/metrics"
)

var (
	_ adapter.VideoAssembler = (*Assembler)(nil)

	tracer = otel.Tracer("video")
)

// Runner executes an external binary and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Assembler renders one clip per (segment, image) pair and joins them.
// A failing clip is skipped; zero clips fails the whole render.
type Assembler struct {
	ffmpeg  string
	font    string
	tempDir string
	runner  Runner
	log     *zerolog.Logger
}

func NewAssembler(cfg config.RenderConfig, runner Runner, log *zerolog.Logger) *Assembler {
	if runner == nil {
		runner = ExecRunner{}
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	ffmpeg := cfg.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Assembler{ffmpeg: ffmpeg, font: cfg.FontFile, tempDir: cfg.TempDir, runner: runner, log: log}
}

func (a *Assembler) Assemble(ctx context.Context, m model.RenderManifest) (*model.RenderReport, error) {
	ctx, span := tracer.Start(ctx, "video_assemble")
	defer span.End()
	log := logging.With(ctx, a.log)

	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	span.SetAttributes(attribute.Int("video.segments", m.ClipCount()))

	base := m.TempDir
	if base == "" {
		base = a.tempDir
	}
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
	}
	work, err := os.MkdirTemp(base, "render-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(work)

	report := &model.RenderReport{OutputPath: m.OutputPath}
	var clips []string
	for i := 0; i < m.ClipCount(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clip := filepath.Join(work, fmt.Sprintf("clip_%03d.mp4", i))
		args := SegmentArgs(SegmentSpec{
			Index:    i,
			Text:     m.Segments[i],
			Image:    m.Images[i],
			Output:   clip,
			Width:    m.Width,
			Height:   m.Height,
			Duration: m.SegmentDuration,
			FontFile: a.font,
		})
		if out, err := a.runner.Run(ctx, a.ffmpeg, args...); err != nil {
			metrics.IncRenderSegment("skipped")
			report.Skipped = append(report.Skipped, i)
			log.Warn().Err(err).Int("segment", i).Str("stderr", tail(out)).Msg("clip failed, skipping")
			continue
		}
		metrics.IncRenderSegment("ok")
		clips = append(clips, clip)
		log.Debug().Int("segment", i+1).Int("of", m.ClipCount()).Msg("clip created")
	}
	if len(clips) == 0 {
		span.RecordError(domain.ErrNoClips)
		return nil, domain.ErrNoClips
	}

	audio := a.audioInput(m.AudioFile, log)
	if dir := filepath.Dir(m.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	var args []string
	if m.Transition && len(clips) > 1 {
		args = CrossfadeArgs(clips, audio, m.OutputPath, m.SegmentDuration, m.TransitionDuration)
	} else {
		list := filepath.Join(work, "concat_list.txt")
		if err := os.WriteFile(list, []byte(ConcatList(clips)), 0o644); err != nil {
			return nil, fmt.Errorf("write concat list: %w", err)
		}
		args = ConcatArgs(list, audio, m.OutputPath)
	}

	if out, err := a.runner.Run(ctx, a.ffmpeg, args...); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("final assembly failed: %w: %s", err, tail(out))
	}
	report.Clips = len(clips)
	log.Info().Int("clips", report.Clips).Ints("skipped", report.Skipped).Str("output", m.OutputPath).Msg("video assembled")
	return report, nil
}

// audioInput drops an audio file that does not exist.
func (a *Assembler) audioInput(path string, log *zerolog.Logger) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("audio", path).Msg("audio file missing, rendering without audio")
		} else {
			log.Warn().Err(err).Str("audio", path).Msg("audio file unreadable, rendering without audio")
		}
		return ""
	}
	return path
}

func tail(out []byte) string {
	const keep = 512
	s := strings.TrimSpace(string(out))
	if len(s) > keep {
		s = "..." + s[len(s)-keep:]
	}
	return s
}
