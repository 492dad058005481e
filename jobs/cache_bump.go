package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/consigna/backoffice/internal/jobs"
)

// CacheInvalidator drops every cached report.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// CacheBumpJob bumps the report cache version after external writes.
type CacheBumpJob struct {
	Reports CacheInvalidator
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCacheBumpJob constructs the cache bump handler.
func NewCacheBumpJob(reports CacheInvalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheBumpJob {
	return &CacheBumpJob{Reports: reports, Logger: logger, Metrics: metrics}
}

// Handle processes cache bump tasks.
func (j *CacheBumpJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("cache bump: handler not configured")
	}
	var payload CacheBumpPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskCacheBump)

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskCacheBump), slog.String("run_id", payload.RunID))

	if err := j.Reports.Invalidate(ctx); err != nil {
		logger.Error("bump report cache", slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Info("report cache bumped", slog.String("reason", payload.Reason))
	return tracker.End(nil)
}
