package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/video-stream/clipper/internal/engine"
)

type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

type ProbeFormat struct {
	Filename string `json:"filename"`
	Duration string `json:"duration"`
	Size     string `json:"size"`
	BitRate  string `json:"bit_rate"`
}

type ProbeStream struct {
	Index     int               `json:"index"`
	CodecName string            `json:"codec_name"`
	CodecType string            `json:"codec_type"` // video, audio, subtitle
	Width     int               `json:"width,omitempty"`
	Height    int               `json:"height,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// Prober reads container metadata with ffprobe.
type Prober struct {
	binary string
	run    engine.Runner
}

var _ engine.Prober = (*Prober)(nil)

func NewProber(binary string, runner engine.Runner) *Prober {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary, run: runner}
}

func (p *Prober) Binary() string { return p.binary }

func (p *Prober) Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	output, err := p.run.Run(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	if err != nil {
		return nil, err
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}
	return &result, nil
}

// Duration returns the container duration of filePath.
func (p *Prober) Duration(ctx context.Context, filePath string) (time.Duration, error) {
	res, err := p.Probe(ctx, filePath)
	if err != nil {
		return 0, err
	}
	return parseSeconds(res.Format.Duration)
}

func parseSeconds(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "N/A" {
		return 0, fmt.Errorf("duration unavailable")
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
