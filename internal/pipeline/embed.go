package pipeline

import (
	"context"
	"fmt"

	"github.com/video-stream/clipper/internal/db/models"
	"github.com/video-stream/clipper/internal/engine"
	"github.com/video-stream/clipper/internal/storage"
)

// EmbedSubtitles burns subtitleName into clipName, writing EmbeddedName(clipName).
// Both inputs must already exist; the transcoder is not started otherwise.
func (s *Service) EmbedSubtitles(ctx context.Context, clipName, subtitleName string) (art storage.Artifact, err error) {
	outName := EmbeddedName(clipName)

	r := s.begin(ctx, s.newID(), models.RunEmbed, StageEmbed, "", clipName+" + "+subtitleName, outName)
	defer func() { r.finish(ctx, art.Name, err) }()

	for _, n := range []string{clipName, subtitleName} {
		if verr := storage.ValidateName(n); verr != nil {
			return storage.Artifact{}, stageError(StageEmbed, ErrInvalidRequest, verr, "")
		}
	}
	if storage.KindOf(clipName) != storage.KindVideo {
		return storage.Artifact{}, stageError(StageEmbed, ErrInvalidRequest, nil,
			fmt.Sprintf("clipPath %q is not a video", clipName))
	}
	if storage.KindOf(subtitleName) != storage.KindSubtitle {
		return storage.Artifact{}, stageError(StageEmbed, ErrInvalidRequest, nil,
			fmt.Sprintf("subtitlePath %q is not a subtitle file", subtitleName))
	}

	releaseInputs, err := s.ws.Acquire(clipName, subtitleName)
	if err != nil {
		return storage.Artifact{}, stageError(StageEmbed, ErrBusy, err, "")
	}
	defer releaseInputs()

	clip, err := s.ws.Stat(clipName)
	if err != nil {
		return storage.Artifact{}, s.missingInput(clipName, err)
	}
	sub, err := s.ws.Stat(subtitleName)
	if err != nil {
		return storage.Artifact{}, s.missingInput(subtitleName, err)
	}

	outPath, err := s.ws.Resolve(outName)
	if err != nil {
		return storage.Artifact{}, stageError(StageEmbed, ErrInvalidRequest, err, "")
	}
	releaseOut, err := s.ws.Claim(outName)
	if err != nil {
		return storage.Artifact{}, stageError(StageEmbed, ErrBusy, err, "")
	}
	defer releaseOut()

	spec := engine.TranscodeSpec{
		InputPath:    clip.Path,
		SubtitlePath: sub.Path,
		OutputPath:   outPath,
	}
	if terr := s.transcoder.BurnSubtitles(ctx, spec); terr != nil {
		return storage.Artifact{}, stageError(StageEmbed, ErrEmbedFailed, terr, "")
	}

	art, err = s.ws.Stat(outName)
	if err != nil {
		if isNotExist(err) {
			return storage.Artifact{}, stageError(StageEmbed, ErrEmbedFailed, err,
				"transcoder reported success but produced no output")
		}
		return storage.Artifact{}, stageError(StageEmbed, ErrWorkspaceIO, err, "")
	}
	return art, nil
}

func (s *Service) missingInput(name string, err error) error {
	if isNotExist(err) {
		return stageError(StageEmbed, ErrInputMissing, err, fmt.Sprintf("%s does not exist", name))
	}
	return stageError(StageEmbed, ErrWorkspaceIO, err, "")
}
