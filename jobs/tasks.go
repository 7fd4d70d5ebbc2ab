package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/Dinesh-Das/QR-sub002/internal/workflow"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotifyFanout delivers a workflow event to its team audience.
	TaskNotifyFanout = "notify:fanout"
	// TaskAccessWarmup preloads access snapshots for recently active
	// accounts.
	TaskAccessWarmup = "access:warmup"
	// TaskSessionsPrune removes expired session rows from the store.
	TaskSessionsPrune = "sessions:prune"
)

// NotifyFanoutPayload carries one workflow event to the worker.
type NotifyFanoutPayload struct {
	Kind       string `json:"kind"`
	WorkflowID int64  `json:"workflow_id"`
	QueryID    int64  `json:"query_id,omitempty"`
	PlantCode  string `json:"plant_code"`
	Team       string `json:"team,omitempty"`
	Actor      string `json:"actor"`
}

// NewNotifyFanoutTask constructs the fan-out task for a workflow event.
func NewNotifyFanoutTask(event workflow.FanoutEvent) (*asynq.Task, error) {
	data, err := json.Marshal(NotifyFanoutPayload{
		Kind:       event.Kind,
		WorkflowID: event.WorkflowID,
		QueryID:    event.QueryID,
		PlantCode:  event.PlantCode,
		Team:       event.Team,
		Actor:      event.Actor,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyFanout, data), nil
}

// AccessWarmupPayload bounds one warmup run. Zero values fall back to
// the job defaults.
type AccessWarmupPayload struct {
	WindowHours int `json:"window_hours,omitempty"`
	Limit       int `json:"limit,omitempty"`
}

// NewAccessWarmupTask constructs an access warmup task.
func NewAccessWarmupTask(payload AccessWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccessWarmup, data), nil
}

// NewSessionsPruneTask constructs a session prune task.
func NewSessionsPruneTask() *asynq.Task {
	return asynq.NewTask(TaskSessionsPrune, nil)
}
