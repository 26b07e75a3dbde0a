// Package engine defines the contracts for the external media tools the pipeline drives
// (a fetch engine and a transcode engine) and the process runner both adapters share.
package engine

import (
	"context"
	"time"
)

// FetchSpec describes one fetch engine invocation.
type FetchSpec struct {
	SourceURL      string
	OutputTemplate string   // absolute path or template understood by the engine
	Languages      []string // subtitle languages, empty when not fetching subtitles
	SubtitlesOnly  bool     // skip media download, write human and auto subtitles
	SubtitleFormat string   // e.g. "vtt"
	Section        string   // section selector, e.g. "*00:00:10-00:00:25"
	CookiesFile    string   // materialised credential bundle, empty when absent
	Overwrite      bool
	RemuxFormat    string // e.g. "mp4"
}

// TranscodeSpec describes a subtitle burn-in.
type TranscodeSpec struct {
	InputPath    string
	SubtitlePath string
	OutputPath   string
}

// Fetcher resolves a source URL and writes the requested streams to disk.
type Fetcher interface {
	Fetch(ctx context.Context, spec FetchSpec) error
}

// Transcoder burns a subtitle track into a video.
type Transcoder interface {
	BurnSubtitles(ctx context.Context, spec TranscodeSpec) error
}

// Prober reads the duration of a media file.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}
