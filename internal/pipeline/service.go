// Package pipeline turns subtitle and clip requests into artifacts in the workspace.
//
// Each stage is a single synchronous call into an injected engine (engine.Fetcher,
// engine.Transcoder) so tests can substitute doubles. Stages never retry and never
// panic past their boundary: every failure comes back as a *StageError.
package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/video-stream/clipper/internal/credentials"
	"github.com/video-stream/clipper/internal/db/models"
	"github.com/video-stream/clipper/internal/engine"
	xlog "github.com/video-stream/clipper/internal/log"
	"github.com/video-stream/clipper/internal/metrics"
	"github.com/video-stream/clipper/internal/storage"
)

// Stage names used in errors, logs and metrics.
const (
	StageSubtitle = "subtitle"
	StageClip     = "clip"
	StageEmbed    = "embed"
	StageLocate   = "locate"
	StagePurge    = "purge"
)

// RunRecorder keeps a history of pipeline runs. Recording failures are logged and never
// fail the request.
type RunRecorder interface {
	StartRun(ctx context.Context, run models.Run) error
	FinishRun(ctx context.Context, id string, status models.RunStatus, artifact, errKind, errMsg string) error
}

type Service struct {
	ws         *storage.Workspace
	fetcher    engine.Fetcher
	transcoder engine.Transcoder
	prober     engine.Prober
	creds      *credentials.Bundle
	credDir    string
	recorder   RunRecorder
	logger     zerolog.Logger
	newID      func() string
}

type Option func(*Service)

// WithProber enables clip duration reporting.
func WithProber(p engine.Prober) Option {
	return func(s *Service) { s.prober = p }
}

// WithCredentials hands the cookie bundle to every fetch. Per-invocation copies are
// written to dir, which must not be the workspace.
func WithCredentials(b *credentials.Bundle, dir string) Option {
	return func(s *Service) {
		s.creds = b
		s.credDir = dir
	}
}

func WithRecorder(r RunRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithIDGenerator replaces the request id source.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

func New(ws *storage.Workspace, fetcher engine.Fetcher, transcoder engine.Transcoder, opts ...Option) *Service {
	s := &Service{
		ws:         ws,
		fetcher:    fetcher,
		transcoder: transcoder,
		logger:     xlog.WithComponent("pipeline"),
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workspace exposes the workspace the service writes to.
func (s *Service) Workspace() *storage.Workspace { return s.ws }

// run tracks one stage execution for logs, metrics and the history table.
type run struct {
	s      *Service
	id     string
	kind   models.RunKind
	stage  string
	start  time.Time
	logger zerolog.Logger
}

func (s *Service) begin(ctx context.Context, id string, kind models.RunKind, stage, source, params, artifact string) *run {
	r := &run{
		s:     s,
		id:    id,
		kind:  kind,
		stage: stage,
		start: time.Now(),
	}
	r.logger = xlog.WithContext(ctx, s.logger).With().
		Str(xlog.FieldRunID, r.id).
		Str(xlog.FieldStage, stage).
		Logger()

	if s.recorder != nil {
		err := s.recorder.StartRun(context.WithoutCancel(ctx), models.Run{
			ID:        r.id,
			Kind:      kind,
			Status:    models.StatusRunning,
			SourceURL: source,
			Params:    params,
			Artifact:  artifact,
			CreatedAt: r.start,
		})
		if err != nil {
			r.logger.Warn().Err(err).Msg("record run start")
		}
	}
	return r
}

func (r *run) finish(ctx context.Context, artifact string, err error) {
	metrics.ObserveStage(r.stage, r.start, err)

	status := models.StatusSucceeded
	var code, detail string
	if err != nil {
		status = models.StatusFailed
		code = Code(err)
		detail = Detail(err)
		r.logger.Warn().Str("error_kind", code).Str("detail", detail).
			Dur("elapsed", time.Since(r.start)).Msg("stage failed")
	} else {
		r.logger.Info().Str(xlog.FieldArtifact, artifact).
			Dur("elapsed", time.Since(r.start)).Msg("stage finished")
	}

	if r.s.recorder != nil {
		if rerr := r.s.recorder.FinishRun(context.WithoutCancel(ctx), r.id, status, artifact, code, detail); rerr != nil {
			r.logger.Warn().Err(rerr).Msg("record run finish")
		}
	}
}

// materializeCredentials writes a private cookie copy for one fetch.
func (s *Service) materializeCredentials() (string, func(), error) {
	return s.creds.Materialize(s.credDir)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
