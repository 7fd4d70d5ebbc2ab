package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/Dinesh-Das/QR-sub002/internal/jobs"
	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
)

// AccessWarmupJob preloads access snapshots for recently active
// accounts so their first request after a cache flush does not pay the
// primary-store round trip.
type AccessWarmupJob struct {
	Access  *rbac.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAccessWarmupJob wires dependencies for the warmup handler.
func NewAccessWarmupJob(access *rbac.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *AccessWarmupJob {
	return &AccessWarmupJob{
		Access:  access,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes access:warmup tasks.
func (j *AccessWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Access == nil {
		return errors.New("access warmup: handler not configured")
	}
	var payload AccessWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.WindowHours <= 0 {
		payload.WindowHours = 24
	}
	if payload.Limit <= 0 {
		payload.Limit = 200
	}

	tracker := j.metrics().Track(TaskAccessWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.Int("window_hours", payload.WindowHours),
		slog.Int("limit", payload.Limit))
	logger.Info("starting access warmup")

	since := j.now().Add(-time.Duration(payload.WindowHours) * time.Hour)
	usernames, err := j.Access.RecentUsernames(ctx, since, payload.Limit)
	if err != nil {
		resultErr = err
		logger.Error("load recent accounts", slog.Any("error", err))
		return resultErr
	}
	if len(usernames) == 0 {
		logger.Info("no recently active accounts")
		return resultErr
	}

	warmed := j.Access.Warm(ctx, usernames)
	logger.Info("completed access warmup",
		slog.Int("accounts", len(usernames)),
		slog.Int("warmed", warmed))
	return resultErr
}

func (j *AccessWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAccessWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAccessWarmup))
}

func (j *AccessWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AccessWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
