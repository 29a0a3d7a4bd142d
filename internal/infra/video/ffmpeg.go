package video

import (
	"fmt"
	"strconv"
	"strings"

	"reelforge/internal/domain/model"
)

const (
	// Encoder settings shared by clip and final passes.
	videoCodec = "libx264"
	preset     = "medium"
	crf        = "18"
	pixFmt     = "yuv420p"
	frameRate  = "30"

	audioCodec   = "aac"
	audioBitrate = "128k"
)

// SegmentSpec is everything needed to render one clip.
type SegmentSpec struct {
	Index    int
	Text     string
	Image    string
	Output   string
	Width    int
	Height   int
	Duration float64
	FontFile string
}

// SegmentArgs builds the ffmpeg arguments for one still-image clip with a
// number overlay, a fading caption and its drop shadow.
func SegmentArgs(s SegmentSpec) []string {
	number := strconv.Itoa(s.Index + 1)
	text := EscapeDrawtext(model.SegmentText(s.Text))
	font := EscapeDrawtext(s.FontFile)

	filters := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", s.Width*11/10, s.Height*11/10),
		fmt.Sprintf("crop=%d:%d:(iw-ow)/2:(ih-oh)/2", s.Width, s.Height),
		drawtext(number, font, "fontsize=140:fontcolor=white:borderw=8:bordercolor=black@0.9",
			"(w-text_w)/2", "h*0.12", 0.3, 1, 4),
		drawtext(text, font, "fontsize=68:fontcolor=white:borderw=5:bordercolor=black@0.85",
			"(w-text_w)/2", "(h-text_h)/2+20", 0.8, 1, 3),
		drawtext(text, font, "fontsize=68:fontcolor=black@0.4",
			"(w-text_w)/2+4", "(h-text_h)/2+24", 0.85, 0.7, 4),
	}

	return []string{
		"-y",
		"-loop", "1", "-i", s.Image,
		"-t", formatSeconds(s.Duration),
		"-vf", strings.Join(filters, ","),
		"-c:v", videoCodec,
		"-preset", preset,
		"-crf", crf,
		"-pix_fmt", pixFmt,
		"-r", frameRate,
		s.Output,
	}
}

// drawtext fades the text in from start at the given rate, capped at maxAlpha.
func drawtext(text, font, style, x, y string, start, maxAlpha, rate float64) string {
	parts := []string{
		"drawtext=text='" + text + "'",
		style,
		"x=" + x,
		"y=" + y,
		fmt.Sprintf("enable='gte(t,%s)'", formatSeconds(start)),
		fmt.Sprintf(`alpha='min(%s\,max(0\,(t-%s)*%s))'`, formatSeconds(maxAlpha), formatSeconds(start), formatSeconds(rate)),
	}
	if font != "" {
		parts = append(parts, "fontfile="+font)
	}
	return strings.Join(parts, ":")
}

// ConcatArgs joins clips listed in listFile, muxing audio when given.
func ConcatArgs(listFile, audio, output string) []string {
	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listFile}
	if audio != "" {
		args = append(args, "-i", audio, "-c:a", audioCodec, "-b:a", audioBitrate, "-shortest")
	}
	return append(args,
		"-c:v", videoCodec,
		"-preset", preset,
		"-crf", crf,
		"-pix_fmt", pixFmt,
		"-movflags", "+faststart",
		"-r", frameRate,
		output,
	)
}

// CrossfadeArgs chains xfade filters between consecutive clips. Each fade
// overlaps the previous output by transition seconds.
func CrossfadeArgs(clips []string, audio, output string, segment, transition float64) []string {
	args := []string{"-y"}
	for _, c := range clips {
		args = append(args, "-i", c)
	}
	if audio != "" {
		args = append(args, "-i", audio)
	}

	var graph []string
	last := "[0:v]"
	for i := 1; i < len(clips); i++ {
		label := fmt.Sprintf("[fade%d]", i)
		offset := float64(i) * (segment - transition)
		graph = append(graph, fmt.Sprintf("%s[%d:v]xfade=transition=fade:duration=%s:offset=%s%s",
			last, i, formatSeconds(transition), formatSeconds(offset), label))
		last = label
	}

	if len(graph) > 0 {
		args = append(args, "-filter_complex", strings.Join(graph, ";"), "-map", last)
	} else {
		args = append(args, "-map", "0:v")
	}
	if audio != "" {
		args = append(args, "-map", fmt.Sprintf("%d:a", len(clips)),
			"-c:a", audioCodec, "-b:a", audioBitrate, "-shortest")
	}
	return append(args,
		"-c:v", videoCodec,
		"-preset", preset,
		"-crf", crf,
		"-pix_fmt", pixFmt,
		"-movflags", "+faststart",
		"-r", frameRate,
		output,
	)
}

// ConcatList renders the concat demuxer input for clips.
func ConcatList(clips []string) string {
	var b strings.Builder
	for _, c := range clips {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(c, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

var drawtextEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, "’",
	`:`, `\:`,
	`%`, `\%`,
)

// EscapeDrawtext makes s safe inside a single-quoted drawtext option.
func EscapeDrawtext(s string) string {
	return drawtextEscaper.Replace(s)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
