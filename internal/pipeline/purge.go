package pipeline

import (
	"context"
	"time"

	xlog "github.com/video-stream/clipper/internal/log"
	"github.com/video-stream/clipper/internal/metrics"
	"github.com/video-stream/clipper/internal/storage"
)

// Purge deletes every workspace file not held by an in-flight request. The report is
// always returned; the error joins the individual deletion failures.
func (s *Service) Purge(ctx context.Context) (storage.PurgeReport, error) {
	start := time.Now()
	logger := xlog.WithContext(ctx, s.logger).With().Str(xlog.FieldStage, StagePurge).Logger()

	report, err := s.ws.PurgeAll()
	metrics.PurgedFiles.Add(float64(len(report.Deleted)))
	metrics.ObserveStage(StagePurge, start, err)

	evt := logger.Info()
	if err != nil {
		evt = logger.Warn().Err(err)
	}
	evt.Int("deleted", len(report.Deleted)).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failed)).
		Msg("workspace purged")

	if err != nil {
		return report, &StageError{Stage: StagePurge, Kind: ErrWorkspaceIO, Detail: err.Error(), Err: err}
	}
	return report, nil
}
