package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/video-stream/clipper/internal/pipeline"
	"github.com/video-stream/clipper/internal/storage"
)

type ArtifactHandler struct {
	svc Pipeline
}

func NewArtifactHandler(svc Pipeline) *ArtifactHandler {
	return &ArtifactHandler{svc: svc}
}

// ServeSubtitle streams a subtitle artifact as WebVTT.
func (h *ArtifactHandler) ServeSubtitle(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, storage.KindSubtitle, "text/vtt; charset=utf-8", "Subtitle not found")
}

// ServeClip streams a video artifact. Range requests are supported.
func (h *ArtifactHandler) ServeClip(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, storage.KindVideo, "video/mp4", "Clip not found")
}

func (h *ArtifactHandler) serve(w http.ResponseWriter, r *http.Request, kind storage.Kind, contentType, notFound string) {
	name := chi.URLParam(r, "filename")

	dl, err := h.svc.Locate(name, kind)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrArtifactNotFound):
			jsonError(w, notFound, http.StatusNotFound)
		case errors.Is(err, pipeline.ErrInvalidRequest):
			jsonResponse(w, errorBody{Error: notFound, Code: pipeline.Code(err)}, http.StatusBadRequest)
		default:
			stageErrorResponse(w, err)
		}
		return
	}
	defer dl.Close()

	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, dl.Artifact.Name, dl.Artifact.ModifiedAt, dl.File)
}

// List returns every artifact in the workspace.
func (h *ArtifactHandler) List(w http.ResponseWriter, r *http.Request) {
	arts, err := h.svc.List()
	if err != nil {
		stageErrorResponse(w, err)
		return
	}
	jsonResponse(w, arts, http.StatusOK)
}
