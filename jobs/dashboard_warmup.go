package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/consigna/backoffice/internal/jobs"
	"github.com/consigna/backoffice/internal/reporting"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DashboardService computes the combined dashboard payload.
type DashboardService interface {
	Dashboard(ctx context.Context, req reporting.Request) (reporting.Dashboard, error)
}

// DashboardWarmupJob computes the dashboard for the windows a user opens
// first, so those reads are served from the report cache.
type DashboardWarmupJob struct {
	Reports DashboardService
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	timeout time.Duration
	clock   func() time.Time
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(reports DashboardService, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{
		Reports: reports,
		Logger:  logger,
		Metrics: metrics,
		timeout: 30 * time.Second,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type warmupWindow struct {
	label string
	req   reporting.Request
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowDays <= 0 {
		payload.WindowDays = DefaultWarmupWindowDays
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("run_id", payload.RunID), slog.Int("window_days", payload.WindowDays))
	logger.Info("starting dashboard warmup")

	start := j.now()
	for _, window := range warmupWindows(start, payload.WindowDays) {
		if err := j.warm(ctx, window.req); err != nil {
			resultErr = fmt.Errorf("warm %s: %w", window.label, err)
			logger.Error("warm dashboard", slog.String("window", window.label), slog.Any("error", err))
			return resultErr
		}
		j.metrics().AddWarmed(window.label, 1)
	}

	logger.Info("completed dashboard warmup", slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *DashboardWarmupJob) warm(ctx context.Context, req reporting.Request) error {
	timeout := j.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	warmCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := j.Reports.Dashboard(warmCtx, req)
	return err
}

// warmupWindows returns the trailing window of days ending today and the
// current month to date.
func warmupWindows(now time.Time, days int) []warmupWindow {
	now = now.UTC()
	today := now.Format(reporting.DateLayout)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	trailingStart := now.AddDate(0, 0, -(days - 1))
	return []warmupWindow{
		{
			label: "trailing",
			req: reporting.Request{
				StartDate:   trailingStart.Format(reporting.DateLayout),
				EndDate:     today,
				Granularity: string(reporting.GranularityDay),
			},
		},
		{
			label: "month_to_date",
			req: reporting.Request{
				StartDate:   monthStart.Format(reporting.DateLayout),
				EndDate:     today,
				Granularity: string(reporting.GranularityDay),
			},
		},
	}
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DashboardWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
