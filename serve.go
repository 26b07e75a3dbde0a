package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/video-stream/clipper/internal/api"
	"github.com/video-stream/clipper/internal/api/handlers"
	"github.com/video-stream/clipper/internal/config"
	"github.com/video-stream/clipper/internal/credentials"
	"github.com/video-stream/clipper/internal/db"
	"github.com/video-stream/clipper/internal/deps"
	"github.com/video-stream/clipper/internal/engine"
	"github.com/video-stream/clipper/internal/ffmpeg"
	xlog "github.com/video-stream/clipper/internal/log"
	"github.com/video-stream/clipper/internal/pipeline"
	"github.com/video-stream/clipper/internal/storage"
	"github.com/video-stream/clipper/internal/ytdlp"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(runCtx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := xlog.WithComponent("main")

	// The workspace must exist before anything else; this is the only fatal error.
	ws := storage.NewWorkspace(cfg.WorkspaceDir, cfg.LockPath())
	if err := ws.EnsureReady(); err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	if err := ws.TryLock(); err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	defer ws.Unlock()

	for _, st := range deps.CheckBinaries(deps.Tools(cfg.YtDlpPath, cfg.FFmpegPath, cfg.FFprobePath)) {
		if !st.Available {
			logger.Warn().Str(xlog.FieldTool, st.Name).Str("detail", st.Detail).Msg("external tool unavailable")
		}
	}

	bundle := loadCredentials(cfg.CookiesFile, logger)

	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}

	opts := []pipeline.Option{}
	var runs handlers.RunStore
	if database, err := db.NewSQLite(cfg.DBPath); err != nil {
		logger.Warn().Err(err).Str(xlog.FieldPath, cfg.DBPath).Msg("run history disabled")
	} else {
		runs = database
		defer database.Close()
		opts = append(opts, pipeline.WithRecorder(database))
	}

	runner := &engine.ExecRunner{Timeout: cfg.EngineTimeout.Std(), Logger: xlog.WithComponent("engine")}
	transcoder := ffmpeg.NewTranscoder(cfg.FFmpegPath, runner)
	opts = append(opts,
		pipeline.WithProber(ffmpeg.NewProber(cfg.FFprobePath, runner)),
		pipeline.WithCredentials(bundle, cfg.DataPath),
	)
	svc := pipeline.New(ws, ytdlp.NewClient(cfg.YtDlpPath, runner), transcoder, opts...)

	if caps, err := ffmpeg.DetectCapabilities(ctx, cfg.FFmpegPath, runner); err != nil {
		logger.Warn().Err(err).Msg("ffmpeg capability probe failed")
	} else if !caps.CanBurnIn() {
		logger.Warn().Bool("subtitles_filter", caps.Subtitles).Str("encoder", caps.VideoEncoder).
			Msg("ffmpeg cannot burn in subtitles; /add-subtitles will fail")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewRouter(cfg, svc, runs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("workspace", ws.Root()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// loadCredentials never fails the startup: any problem with the bundle means fetching
// without cookies.
func loadCredentials(path string, logger zerolog.Logger) *credentials.Bundle {
	bundle, err := credentials.Load(path)
	switch {
	case errors.Is(err, credentials.ErrEmptyBundle):
		logger.Warn().Str(xlog.FieldPath, path).Msg("credential bundle is empty, fetching without cookies")
		return nil
	case err != nil:
		logger.Warn().Err(err).Msg("credential bundle unreadable, fetching without cookies")
		return nil
	case bundle == nil:
		logger.Info().Str(xlog.FieldPath, path).Msg("no credential bundle, fetching without cookies")
		return nil
	}
	logger.Info().Str(xlog.FieldPath, bundle.Source()).Int("entries", bundle.Entries()).Msg("credential bundle loaded")
	return bundle
}
