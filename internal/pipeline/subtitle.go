package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/video-stream/clipper/internal/db/models"
	"github.com/video-stream/clipper/internal/engine"
	xlog "github.com/video-stream/clipper/internal/log"
	"github.com/video-stream/clipper/internal/storage"
	"github.com/video-stream/clipper/internal/subtitle"
)

// subtitleFormat is the only format subtitle artifacts are produced in.
const subtitleFormat = "vtt"

// ExtractSubtitle fetches the human or auto-generated subtitle track for req.Language.
// The artifact is named after a fresh request id, so concurrent requests for the same
// language never share a file and an old file is never returned as a new result.
func (s *Service) ExtractSubtitle(ctx context.Context, req FetchRequest) (art storage.Artifact, err error) {
	req = req.normalize()

	id := s.newID()
	name := SubtitleName(id, req.Language)

	r := s.begin(ctx, id, models.RunSubtitle, StageSubtitle, req.SourceURL, req.Language, name)
	defer func() { r.finish(ctx, art.Name, err) }()

	if verr := req.Validate(); verr != nil {
		return storage.Artifact{}, stageError(StageSubtitle, ErrInvalidRequest, verr, "")
	}

	release, err := s.ws.Claim(name)
	if err != nil {
		return storage.Artifact{}, stageError(StageSubtitle, ErrBusy, err, "")
	}
	defer release()

	cookies, cleanup, err := s.materializeCredentials()
	if err != nil {
		return storage.Artifact{}, stageError(StageSubtitle, ErrWorkspaceIO, err, "")
	}
	defer cleanup()

	spec := engine.FetchSpec{
		SourceURL:      req.SourceURL,
		OutputTemplate: filepath.Join(s.ws.Root(), subtitleBase(id)+".%(ext)s"),
		Languages:      []string{req.Language},
		SubtitlesOnly:  true,
		SubtitleFormat: subtitleFormat,
		CookiesFile:    cookies,
	}
	r.logger.Debug().Str(xlog.FieldSource, req.SourceURL).Str(xlog.FieldLanguage, req.Language).
		Msg("fetching subtitles")

	if ferr := s.fetcher.Fetch(ctx, spec); ferr != nil {
		return storage.Artifact{}, stageError(StageSubtitle, ErrFetchFailed, ferr, "")
	}

	art, err = s.ws.Stat(name)
	if err != nil {
		if isNotExist(err) {
			return storage.Artifact{}, stageError(StageSubtitle, ErrSubtitleNotFound, nil,
				"Subtitle not found.")
		}
		return storage.Artifact{}, stageError(StageSubtitle, ErrWorkspaceIO, err, "")
	}

	// unusable tracks are removed so they are never served as results
	discard := func(what string) {
		if rmErr := os.Remove(art.Path); rmErr != nil {
			r.logger.Warn().Err(rmErr).Str(xlog.FieldArtifact, name).Msg("remove " + what + " subtitle track")
		}
	}
	sum, err := subtitle.Inspect(art.Path)
	if err != nil {
		discard("unreadable")
		return storage.Artifact{}, stageError(StageSubtitle, ErrFetchFailed, err, "engine wrote an unreadable subtitle track")
	}
	if sum.Cues == 0 {
		discard("empty")
		return storage.Artifact{}, stageError(StageSubtitle, ErrSubtitleNotFound, nil, "Subtitle not found.")
	}
	art.Duration = sum.Span
	r.logger.Debug().Int("cues", sum.Cues).Dur("span", sum.Span).Msg("subtitle track written")
	return art, nil
}
