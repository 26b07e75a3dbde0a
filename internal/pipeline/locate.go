package pipeline

import (
	"errors"
	"fmt"
	"os"

	"github.com/video-stream/clipper/internal/storage"
)

// Download is an open artifact. The workspace keeps a shared hold on it until Close, so
// a concurrent purge or rewrite cannot pull the file out from under the reader.
type Download struct {
	Artifact storage.Artifact
	File     *os.File
	release  func()
}

func (d *Download) Close() error {
	err := d.File.Close()
	d.release()
	return err
}

// Locate opens the artifact called name, which must be of the given kind.
func (s *Service) Locate(name string, kind storage.Kind) (*Download, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, stageError(StageLocate, ErrInvalidRequest, err, "")
	}
	if storage.KindOf(name) != kind {
		return nil, stageError(StageLocate, ErrArtifactNotFound, nil, fmt.Sprintf("%s is not a %s", name, kind))
	}

	release, err := s.ws.Acquire(name)
	if err != nil {
		return nil, stageError(StageLocate, ErrBusy, err, "")
	}

	art, err := s.ws.Stat(name)
	if err != nil {
		release()
		if isNotExist(err) {
			return nil, stageError(StageLocate, ErrArtifactNotFound, err, fmt.Sprintf("%s not found", name))
		}
		return nil, stageError(StageLocate, ErrWorkspaceIO, err, "")
	}

	f, err := os.Open(art.Path)
	if err != nil {
		release()
		if errors.Is(err, os.ErrNotExist) {
			return nil, stageError(StageLocate, ErrArtifactNotFound, err, fmt.Sprintf("%s not found", name))
		}
		return nil, stageError(StageLocate, ErrWorkspaceIO, err, "")
	}
	return &Download{Artifact: art, File: f, release: release}, nil
}

// List returns every artifact currently in the workspace.
func (s *Service) List() ([]storage.Artifact, error) {
	arts, err := s.ws.List()
	if err != nil {
		return nil, stageError(StageLocate, ErrWorkspaceIO, err, "")
	}
	return arts, nil
}
