// Package ytdlp adapts the yt-dlp command line tool to the engine.Fetcher contract.
package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/video-stream/clipper/internal/engine"
)

const defaultBinary = "yt-dlp"

// Client drives yt-dlp through an engine.Runner.
type Client struct {
	binary string
	run    engine.Runner
}

var _ engine.Fetcher = (*Client)(nil)

func NewClient(binary string, runner engine.Runner) *Client {
	if strings.TrimSpace(binary) == "" {
		binary = defaultBinary
	}
	return &Client{binary: binary, run: runner}
}

// Binary returns the executable the client invokes.
func (c *Client) Binary() string { return c.binary }

// Fetch runs one yt-dlp invocation built from spec.
func (c *Client) Fetch(ctx context.Context, spec engine.FetchSpec) error {
	args, err := BuildArgs(spec)
	if err != nil {
		return err
	}
	if _, err := c.run.Run(ctx, c.binary, args...); err != nil {
		return err
	}
	return nil
}

// BuildArgs translates spec into yt-dlp arguments. The source URL always comes last,
// after "--", so a URL starting with a dash is never read as a flag.
func BuildArgs(spec engine.FetchSpec) ([]string, error) {
	if strings.TrimSpace(spec.SourceURL) == "" {
		return nil, errors.New("ytdlp: source url is required")
	}
	if strings.TrimSpace(spec.OutputTemplate) == "" {
		return nil, errors.New("ytdlp: output template is required")
	}

	args := []string{
		"--no-playlist",
		"--no-progress",
		"--no-colors",
		"-o", spec.OutputTemplate,
	}

	if spec.SubtitlesOnly {
		if len(spec.Languages) == 0 {
			return nil, errors.New("ytdlp: subtitle fetch needs at least one language")
		}
		args = append(args,
			"--skip-download",
			"--write-subs",
			"--write-auto-subs",
			"--sub-langs", strings.Join(spec.Languages, ","),
		)
		if spec.SubtitleFormat != "" {
			args = append(args,
				"--sub-format", fmt.Sprintf("%s/best", spec.SubtitleFormat),
				"--convert-subs", spec.SubtitleFormat,
			)
		}
	}

	if spec.Section != "" {
		args = append(args, "--download-sections", spec.Section)
	}
	if spec.RemuxFormat != "" {
		args = append(args, "--remux-video", spec.RemuxFormat)
	}
	if spec.Overwrite {
		args = append(args, "--force-overwrites")
	}
	if spec.CookiesFile != "" {
		args = append(args, "--cookies", spec.CookiesFile)
	}

	args = append(args, "--", spec.SourceURL)
	return args, nil
}
