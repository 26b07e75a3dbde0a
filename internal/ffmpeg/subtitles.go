package ffmpeg

import (
	"context"
	"errors"
	"strings"

	"github.com/video-stream/clipper/internal/engine"
)

// Transcoder burns subtitle tracks into clips with ffmpeg.
type Transcoder struct {
	binary string
	run    engine.Runner
}

var _ engine.Transcoder = (*Transcoder)(nil)

func NewTranscoder(binary string, runner engine.Runner) *Transcoder {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Transcoder{binary: binary, run: runner}
}

func (t *Transcoder) Binary() string { return t.binary }

// BurnSubtitles renders spec.SubtitlePath onto the video stream of spec.InputPath.
// Audio is copied untouched.
func (t *Transcoder) BurnSubtitles(ctx context.Context, spec engine.TranscodeSpec) error {
	args, err := BurnInArgs(spec)
	if err != nil {
		return err
	}
	_, err = t.run.Run(ctx, t.binary, args...)
	return err
}

// BurnInArgs builds the ffmpeg arguments for a subtitle burn-in.
func BurnInArgs(spec engine.TranscodeSpec) ([]string, error) {
	if spec.InputPath == "" || spec.SubtitlePath == "" || spec.OutputPath == "" {
		return nil, errors.New("ffmpeg: input, subtitle and output paths are required")
	}

	filter := "subtitles=" + escapeFilterPath(spec.SubtitlePath)
	lower := strings.ToLower(spec.SubtitlePath)
	if strings.HasSuffix(lower, ".ass") || strings.HasSuffix(lower, ".ssa") {
		filter = "ass=" + escapeFilterPath(spec.SubtitlePath)
	}

	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-i", spec.InputPath,
		"-vf", filter,
		"-c:a", "copy",
		"-movflags", "+faststart",
		"-y", spec.OutputPath,
	}, nil
}

// escapeFilterPath quotes a path for use as a filtergraph option value.
func escapeFilterPath(p string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`,`, `\,`,
		`[`, `\[`,
		`]`, `\]`,
		`;`, `\;`,
	)
	return r.Replace(p)
}
