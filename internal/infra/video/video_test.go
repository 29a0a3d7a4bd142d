//go:build !integration

package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"reelforge/internal/config"
	"reelforge/internal/domain"
	"reelforge/internal/domain/model"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(nil)
	return &l
}

type fakeRunner struct {
	mu       sync.Mutex
	calls    [][]string
	failWhen func(args []string) bool
	lists    []string
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, args)
	for i, a := range args {
		if a == "concat" && i+4 < len(args) {
			b, _ := os.ReadFile(args[i+4])
			f.lists = append(f.lists, string(b))
		}
	}
	if f.failWhen != nil && f.failWhen(args) {
		return []byte("Error opening input"), errors.New("exit status 1")
	}
	return nil, nil
}

func hasArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func manifest(t *testing.T, n int) model.RenderManifest {
	t.Helper()
	dir := t.TempDir()
	m := model.RenderManifest{OutputPath: filepath.Join(dir, "out", "final.mp4"), TempDir: dir}
	for i := 0; i < n; i++ {
		m.Segments = append(m.Segments, "Quote: line")
		m.Images = append(m.Images, filepath.Join(dir, "img"+string(rune('a'+i))+".png"))
	}
	return m
}

func TestSegmentArgs(t *testing.T) {
	args := SegmentArgs(SegmentSpec{
		Index: 2, Text: `Quote three: "Stay hungry"`, Image: "in.png", Output: "clip.mp4",
		Width: 1080, Height: 1920, Duration: 6, FontFile: "/f.ttf",
	})
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-loop 1 -i in.png",
		"-t 6",
		"scale=1188:2112:force_original_aspect_ratio=increase",
		"crop=1080:1920:(iw-ow)/2:(ih-oh)/2",
		"drawtext=text='3'",
		"drawtext=text='Stay hungry'",
		"fontsize=140",
		"y=h*0.12",
		`alpha='min(1\,max(0\,(t-0.3)*4))'`,
		"fontfile=/f.ttf",
		"-c:v libx264 -preset medium -crf 18 -pix_fmt yuv420p -r 30 clip.mp4",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("segment args missing %q:\n%s", want, joined)
		}
	}
}

func TestEscapeDrawtext(t *testing.T) {
	got := EscapeDrawtext(`it's 100% a:b\c`)
	if got != `it’s 100\% a\:b\\c` {
		t.Fatalf("unexpected escape %q", got)
	}
}

func TestConcatArgsWithAudio(t *testing.T) {
	args := ConcatArgs("list.txt", "voice.mp3", "out.mp4")
	joined := strings.Join(args, " ")
	if !strings.HasPrefix(joined, "-y -f concat -safe 0 -i list.txt -i voice.mp3 -c:a aac -b:a 128k -shortest") {
		t.Fatalf("unexpected concat args %s", joined)
	}
	if !strings.HasSuffix(joined, "-movflags +faststart -r 30 out.mp4") {
		t.Fatalf("unexpected concat tail %s", joined)
	}
	if ConcatList([]string{"/a/it's.mp4"}) != "file '/a/it'\\''s.mp4'\n" {
		t.Fatalf("unexpected concat list %q", ConcatList([]string{"/a/it's.mp4"}))
	}
}

func TestCrossfadeArgs(t *testing.T) {
	args := CrossfadeArgs([]string{"a.mp4", "b.mp4", "c.mp4"}, "", "out.mp4", 6, 0.5)
	joined := strings.Join(args, " ")
	want := "[0:v][1:v]xfade=transition=fade:duration=0.5:offset=5.5[fade1];[fade1][2:v]xfade=transition=fade:duration=0.5:offset=11[fade2]"
	if !strings.Contains(joined, want) || !strings.Contains(joined, "-map [fade2]") {
		t.Fatalf("unexpected crossfade args %s", joined)
	}
}

func TestAssemble_SkipsFailedSegment(t *testing.T) {
	m := manifest(t, 3)
	m.Segments = append(m.Segments, "extra segment without image")
	bad := m.Images[1]
	runner := &fakeRunner{failWhen: func(args []string) bool { return hasArg(args, bad) }}

	rep, err := NewAssembler(config.RenderConfig{}, runner, newTestLogger()).Assemble(context.Background(), m)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if rep.Clips != 2 || len(rep.Skipped) != 1 || rep.Skipped[0] != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if len(runner.calls) != 4 {
		t.Fatalf("expected 3 clip passes and 1 final pass, got %d", len(runner.calls))
	}
	if len(runner.lists) != 1 || strings.Count(runner.lists[0], "file '") != 2 {
		t.Fatalf("concat list should hold 2 clips: %q", runner.lists)
	}
	if _, err := os.Stat(filepath.Dir(m.OutputPath)); err != nil {
		t.Fatalf("output dir not created: %v", err)
	}
}

func TestAssemble_NoClipsIsFatal(t *testing.T) {
	m := manifest(t, 2)
	runner := &fakeRunner{failWhen: func([]string) bool { return true }}

	_, err := NewAssembler(config.RenderConfig{}, runner, newTestLogger()).Assemble(context.Background(), m)
	if !errors.Is(err, domain.ErrNoClips) {
		t.Fatalf("expected ErrNoClips, got %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("final pass must not run, got %d calls", len(runner.calls))
	}
}

func TestAssemble_TransitionAndAudio(t *testing.T) {
	m := manifest(t, 2)
	m.Transition = true
	m.AudioFile = filepath.Join(m.TempDir, "voice.mp3")
	if err := os.WriteFile(m.AudioFile, []byte("id3"), 0o644); err != nil {
		t.Fatal(err)
	}
	runner := &fakeRunner{}

	if _, err := NewAssembler(config.RenderConfig{}, runner, newTestLogger()).Assemble(context.Background(), m); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	final := runner.calls[len(runner.calls)-1]
	if !hasArg(final, "-filter_complex") || !hasArg(final, m.AudioFile) || !hasArg(final, "2:a") {
		t.Fatalf("expected crossfade with audio, got %v", final)
	}
}

func TestAssemble_MissingAudioIgnored(t *testing.T) {
	m := manifest(t, 1)
	m.AudioFile = filepath.Join(m.TempDir, "missing.mp3")
	runner := &fakeRunner{}

	if _, err := NewAssembler(config.RenderConfig{}, runner, newTestLogger()).Assemble(context.Background(), m); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if hasArg(runner.calls[len(runner.calls)-1], m.AudioFile) {
		t.Fatal("missing audio must not be passed to ffmpeg")
	}
}

func TestAssemble_InvalidManifest(t *testing.T) {
	_, err := NewAssembler(config.RenderConfig{}, &fakeRunner{}, newTestLogger()).
		Assemble(context.Background(), model.RenderManifest{Segments: []string{"a"}})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
