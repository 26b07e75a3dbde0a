package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/video-stream/clipper/internal/engine"
)

// Capabilities is what the installed ffmpeg build can do for subtitle burn-in.
type Capabilities struct {
	Filters      map[string]bool `json:"-"`
	Subtitles    bool            `json:"subtitles"` // libass "subtitles" filter
	ASS          bool            `json:"ass"`
	VideoEncoder string          `json:"video_encoder,omitempty"`
}

// CanBurnIn reports whether BurnSubtitles can work with this build.
func (c Capabilities) CanBurnIn() bool {
	return c.Subtitles && c.VideoEncoder != ""
}

// burnInEncoders are tried in order; burn-in re-encodes the video stream.
var burnInEncoders = []string{"libx264", "libopenh264", "mpeg4"}

// DetectCapabilities asks ffmpeg for its filter list and test-encodes a frame with each
// candidate encoder until one works.
func DetectCapabilities(ctx context.Context, binary string, runner engine.Runner) (Capabilities, error) {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	out, err := runner.Run(ctx, binary, "-hide_banner", "-filters")
	if err != nil {
		return Capabilities{}, err
	}

	caps := Capabilities{Filters: parseFilters(out)}
	caps.Subtitles = caps.Filters["subtitles"]
	caps.ASS = caps.Filters["ass"]

	for _, enc := range burnInEncoders {
		if testEncoder(ctx, binary, runner, enc) {
			caps.VideoEncoder = enc
			break
		}
	}
	return caps, nil
}

// parseFilters reads `ffmpeg -filters` output. Filter lines look like
// " ... subtitles         V->V       Render text subtitles onto input video using the libass library."
func parseFilters(out []byte) map[string]bool {
	filters := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		// legend lines ("T.. = Timeline support") never carry an "->" signature
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		filters[fields[1]] = true
	}
	return filters
}

// testEncoder checks if an encoder is available in this FFmpeg build.
func testEncoder(ctx context.Context, binary string, runner engine.Runner, encoder string) bool {
	_, err := runner.Run(ctx, binary,
		"-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "nullsrc=s=256x256:d=0.1:r=1",
		"-c:v", encoder,
		"-frames:v", "1",
		"-f", "null", "-",
	)
	return err == nil
}
