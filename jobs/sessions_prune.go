package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/Dinesh-Das/QR-sub002/internal/jobs"
)

// SessionPruner removes expired session records.
type SessionPruner interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// SessionsPruneJob clears login session rows whose expiry has passed.
// Redis forgets them on its own; the audit copy in Postgres needs this
// sweep.
type SessionsPruneJob struct {
	Sessions SessionPruner
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewSessionsPruneJob wires dependencies for the prune handler.
func NewSessionsPruneJob(sessions SessionPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionsPruneJob {
	return &SessionsPruneJob{
		Sessions: sessions,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes sessions:prune tasks.
func (j *SessionsPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sessions == nil {
		return errors.New("sessions prune: handler not configured")
	}

	tracker := j.metrics().Track(TaskSessionsPrune)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	removed, err := j.Sessions.DeleteExpiredSessions(ctx, j.now())
	if err != nil {
		resultErr = err
		j.logger().Error("prune sessions", slog.Any("error", err))
		return resultErr
	}
	j.logger().Info("completed session prune", slog.Int64("removed", removed))
	return resultErr
}

func (j *SessionsPruneJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSessionsPrune))
	}
	return slog.Default().With(slog.String("job", TaskSessionsPrune))
}

func (j *SessionsPruneJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SessionsPruneJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
