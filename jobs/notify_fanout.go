package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/Dinesh-Das/QR-sub002/internal/jobs"
	"github.com/Dinesh-Das/QR-sub002/internal/workflow"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// RecipientSource resolves the usernames behind a team audience. The
// plant code narrows the audience only for the plant team; other teams
// are notified regardless of plant.
type RecipientSource interface {
	Recipients(ctx context.Context, team, plantCode string) ([]string, error)
}

// NotifyFanoutJob expands one workflow event into per-recipient
// notifications. Delivery is a structured log line; the record is the
// integration point for a mail or chat channel.
type NotifyFanoutJob struct {
	Source  RecipientSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewNotifyFanoutJob wires dependencies for the fan-out handler.
func NewNotifyFanoutJob(source RecipientSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotifyFanoutJob {
	return &NotifyFanoutJob{Source: source, Logger: logger, Metrics: metrics}
}

// Handle processes notify:fanout tasks.
func (j *NotifyFanoutJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("notify fanout: handler not configured")
	}
	var payload NotifyFanoutPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Kind == "" || payload.Team == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskNotifyFanout)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("kind", payload.Kind),
		slog.String("team", payload.Team),
		slog.Int64("workflow_id", payload.WorkflowID))

	// Only the plant team is narrowed to the event's plant; the other
	// teams review every plant.
	plantScope := ""
	if payload.Team == workflow.TeamPlant {
		plantScope = payload.PlantCode
	}
	recipients, err := j.Source.Recipients(ctx, payload.Team, plantScope)
	if err != nil {
		resultErr = err
		logger.Error("resolve recipients", slog.Any("error", err))
		return resultErr
	}
	if len(recipients) == 0 {
		logger.Info("no recipients for event")
		return resultErr
	}

	for _, username := range recipients {
		if username == payload.Actor {
			continue
		}
		logger.Info("notification delivered",
			slog.String("recipient", username),
			slog.String("plant", payload.PlantCode),
			slog.Int64("query_id", payload.QueryID))
	}
	j.metrics().AddDeliveries(payload.Kind, payload.Team, len(recipients))
	logger.Info("completed fan-out", slog.Int("recipients", len(recipients)))
	return resultErr
}

func (j *NotifyFanoutJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskNotifyFanout))
	}
	return slog.Default().With(slog.String("job", TaskNotifyFanout))
}

func (j *NotifyFanoutJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
