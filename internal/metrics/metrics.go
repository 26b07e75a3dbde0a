// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// StageRuns counts pipeline stage executions by outcome.
	StageRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipper_stage_runs_total",
		Help: "Pipeline stage executions",
	}, []string{"stage", "outcome"})

	// StageDuration tracks how long each stage holds its request, engine time included.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clipper_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17m
	}, []string{"stage"})

	// PurgedFiles counts files removed from the workspace.
	PurgedFiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipper_workspace_purged_files_total",
		Help: "Files removed by workspace cleanup",
	})

	// HTTPRequestDuration tracks request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clipper_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

// ObserveStage records one stage execution.
func ObserveStage(stage string, start time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	StageRuns.WithLabelValues(stage, outcome).Inc()
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
