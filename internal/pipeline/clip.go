package pipeline

import (
	"context"

	"github.com/video-stream/clipper/internal/db/models"
	"github.com/video-stream/clipper/internal/engine"
	xlog "github.com/video-stream/clipper/internal/log"
	"github.com/video-stream/clipper/internal/storage"
)

// clipContainer is the container every clip is remuxed into.
const clipContainer = "mp4"

// ExtractClip downloads only the [Start, End] span of the source into OutputName,
// replacing any artifact already there. Running the same request twice leaves one file.
func (s *Service) ExtractClip(ctx context.Context, req ClipRequest) (art storage.Artifact, err error) {
	req = req.normalize()

	r := s.begin(ctx, s.newID(), models.RunClip, StageClip, req.SourceURL, req.Section(), req.OutputName)
	defer func() { r.finish(ctx, art.Name, err) }()

	if verr := req.Validate(); verr != nil {
		return storage.Artifact{}, stageError(StageClip, ErrInvalidRequest, verr, "")
	}

	path, err := s.ws.Resolve(req.OutputName)
	if err != nil {
		return storage.Artifact{}, stageError(StageClip, ErrInvalidRequest, err, "")
	}
	release, err := s.ws.Claim(req.OutputName)
	if err != nil {
		return storage.Artifact{}, stageError(StageClip, ErrBusy, err, "")
	}
	defer release()

	cookies, cleanup, err := s.materializeCredentials()
	if err != nil {
		return storage.Artifact{}, stageError(StageClip, ErrWorkspaceIO, err, "")
	}
	defer cleanup()

	spec := engine.FetchSpec{
		SourceURL:      req.SourceURL,
		OutputTemplate: path,
		Section:        req.Section(),
		CookiesFile:    cookies,
		Overwrite:      true,
		RemuxFormat:    clipContainer,
	}
	r.logger.Debug().Str(xlog.FieldSource, req.SourceURL).Str(xlog.FieldSection, spec.Section).
		Str(xlog.FieldArtifact, req.OutputName).Msg("extracting clip")

	if ferr := s.fetcher.Fetch(ctx, spec); ferr != nil {
		return storage.Artifact{}, stageError(StageClip, ErrClipExtractionFailed, ferr, "")
	}

	art, err = s.ws.Stat(req.OutputName)
	if err != nil {
		if isNotExist(err) {
			return storage.Artifact{}, stageError(StageClip, ErrClipExtractionFailed, err,
				"engine reported success but produced no output")
		}
		return storage.Artifact{}, stageError(StageClip, ErrWorkspaceIO, err, "")
	}

	if s.prober != nil {
		if d, perr := s.prober.Duration(ctx, art.Path); perr == nil {
			art.Duration = d
		} else {
			r.logger.Debug().Err(perr).Msg("probe clip duration")
		}
	}
	return art, nil
}
