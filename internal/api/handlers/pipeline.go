package handlers

import (
	"context"
	"net/http"

	"github.com/video-stream/clipper/internal/pipeline"
	"github.com/video-stream/clipper/internal/storage"
)

// Pipeline is the part of pipeline.Service the HTTP surface drives.
type Pipeline interface {
	ExtractSubtitle(ctx context.Context, req pipeline.FetchRequest) (storage.Artifact, error)
	ExtractClip(ctx context.Context, req pipeline.ClipRequest) (storage.Artifact, error)
	EmbedSubtitles(ctx context.Context, clipName, subtitleName string) (storage.Artifact, error)
	Locate(name string, kind storage.Kind) (*pipeline.Download, error)
	List() ([]storage.Artifact, error)
	Purge(ctx context.Context) (storage.PurgeReport, error)
}

type PipelineHandler struct {
	svc        Pipeline
	publicBase string
}

func NewPipelineHandler(svc Pipeline, publicBase string) *PipelineHandler {
	return &PipelineHandler{svc: svc, publicBase: publicBase}
}

type subtitleRequest struct {
	VideoURL string `json:"videoUrl"`
	Lang     string `json:"lang"`
}

type subtitleResponse struct {
	SubtitleURL string `json:"subtitleUrl"`
	VideoURL    string `json:"videoUrl"`
	FileName    string `json:"fileName"`
}

// DownloadSubtitle fetches one subtitle track and returns where to retrieve it.
func (h *PipelineHandler) DownloadSubtitle(w http.ResponseWriter, r *http.Request) {
	var req subtitleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	art, err := h.svc.ExtractSubtitle(r.Context(), pipeline.FetchRequest{SourceURL: req.VideoURL, Language: req.Lang})
	if err != nil {
		stageErrorResponse(w, err)
		return
	}

	jsonResponse(w, subtitleResponse{
		SubtitleURL: artifactURL(baseURL(r, h.publicBase), "subtitles", art.Name),
		VideoURL:    req.VideoURL,
		FileName:    art.Name,
	}, http.StatusOK)
}

type clipRequest struct {
	VideoURL   string `json:"videoUrl"`
	Start      string `json:"start"`
	End        string `json:"end"`
	OutputName string `json:"outputName"`
}

type clipResponse struct {
	ClipURL    string  `json:"clipUrl"`
	OutputName string  `json:"outputName"`
	Duration   float64 `json:"duration,omitempty"`
}

// DownloadClip extracts a section of the source into the requested output name.
func (h *PipelineHandler) DownloadClip(w http.ResponseWriter, r *http.Request) {
	var req clipRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	art, err := h.svc.ExtractClip(r.Context(), pipeline.ClipRequest{
		SourceURL:  req.VideoURL,
		Start:      req.Start,
		End:        req.End,
		OutputName: req.OutputName,
	})
	if err != nil {
		stageErrorResponse(w, err)
		return
	}

	jsonResponse(w, clipResponse{
		ClipURL:    artifactURL(baseURL(r, h.publicBase), "clips", art.Name),
		OutputName: art.Name,
		Duration:   art.Duration.Seconds(),
	}, http.StatusOK)
}

type embedRequest struct {
	ClipPath     string `json:"clipPath"`
	SubtitlePath string `json:"subtitlePath"`
}

type embedResponse struct {
	FinalClipPath string `json:"finalClipPath"`
	FinalClipURL  string `json:"finalClipUrl"`
}

// AddSubtitles burns a previously fetched subtitle into a previously extracted clip.
func (h *PipelineHandler) AddSubtitles(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	art, err := h.svc.EmbedSubtitles(r.Context(), artifactName(req.ClipPath), artifactName(req.SubtitlePath))
	if err != nil {
		stageErrorResponse(w, err)
		return
	}

	jsonResponse(w, embedResponse{
		FinalClipPath: art.Name,
		FinalClipURL:  artifactURL(baseURL(r, h.publicBase), "clips", art.Name),
	}, http.StatusOK)
}

type cleanupResponse struct {
	Deleted []string          `json:"deleted"`
	Skipped []string          `json:"skipped"`
	Status  string            `json:"status"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Cleanup purges the workspace. It always answers 200; failed deletions are listed.
func (h *PipelineHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Purge(r.Context())

	resp := cleanupResponse{
		Deleted: report.Deleted,
		Skipped: report.Skipped,
		Status:  "all cleaned",
	}
	if resp.Deleted == nil {
		resp.Deleted = []string{}
	}
	if resp.Skipped == nil {
		resp.Skipped = []string{}
	}
	if err != nil {
		resp.Status = "partially cleaned"
		resp.Errors = make(map[string]string, len(report.Failed))
		for name, ferr := range report.Failed {
			resp.Errors[name] = ferr.Error()
		}
		if len(resp.Errors) == 0 {
			resp.Errors["workspace"] = pipeline.Detail(err)
		}
	}
	jsonResponse(w, resp, http.StatusOK)
}
