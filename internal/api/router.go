package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/video-stream/clipper/internal/api/handlers"
	"github.com/video-stream/clipper/internal/api/middleware"
	"github.com/video-stream/clipper/internal/config"
)

// NewRouter wires the HTTP surface. runs may be nil when run history is disabled.
func NewRouter(cfg *config.Config, svc handlers.Pipeline, runs handlers.RunStore) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Handlers
	pipelineHandler := handlers.NewPipelineHandler(svc, cfg.PublicBaseURL)
	artifactHandler := handlers.NewArtifactHandler(svc)

	r.Get("/", handlers.Root)
	r.Get("/healthz", handlers.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	// Retrieval
	r.Get("/subtitles/{filename}", artifactHandler.ServeSubtitle)
	r.Get("/clips/{filename}", artifactHandler.ServeClip)
	r.Get("/artifacts", artifactHandler.List)

	// Pipeline: each call holds its request for the whole engine run
	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))
		r.Use(middleware.RateLimit(cfg.RateLimit, time.Minute))

		r.Post("/download-subtitle", pipelineHandler.DownloadSubtitle)
		r.Post("/download-clip", pipelineHandler.DownloadClip)
		r.Post("/add-subtitles", pipelineHandler.AddSubtitles)
	})

	r.Get("/cleanup", pipelineHandler.Cleanup)
	r.Post("/cleanup", pipelineHandler.Cleanup)

	if runs != nil {
		runHandler := handlers.NewRunHandler(runs)
		r.Get("/runs", runHandler.ListRuns)
		r.Get("/runs/{id}", runHandler.GetRun)
	}

	return r
}
