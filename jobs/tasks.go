package jobs

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup precomputes dashboard reports into the cache.
	TaskDashboardWarmup = "reporting:dashboard_warmup"
	// TaskCacheBump invalidates every cached report.
	TaskCacheBump = "reporting:cache_bump"
)

// DefaultWarmupWindowDays is used when a warmup payload carries no window.
const DefaultWarmupWindowDays = 30

// DashboardWarmupPayload configures a warmup run.
type DashboardWarmupPayload struct {
	RunID      string `json:"run_id"`
	WindowDays int    `json:"window_days"`
}

// CacheBumpPayload records why the report cache was invalidated.
type CacheBumpPayload struct {
	RunID  string `json:"run_id"`
	Reason string `json:"reason,omitempty"`
}

// NewDashboardWarmupTask constructs a warmup task over the trailing windowDays.
func NewDashboardWarmupTask(windowDays int) (*asynq.Task, error) {
	if windowDays < 0 {
		return nil, errors.New("dashboard warmup: negative window")
	}
	if windowDays == 0 {
		windowDays = DefaultWarmupWindowDays
	}
	body, err := json.Marshal(DashboardWarmupPayload{RunID: uuid.NewString(), WindowDays: windowDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, body, asynq.Queue(QueueDefault)), nil
}

// NewCacheBumpTask constructs a cache invalidation task.
func NewCacheBumpTask(reason string) (*asynq.Task, error) {
	body, err := json.Marshal(CacheBumpPayload{RunID: uuid.NewString(), Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheBump, body, asynq.Queue(QueueDefault)), nil
}
