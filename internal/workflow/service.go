package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	ListWorkflows(ctx context.Context) ([]MaterialWorkflow, error)
	GetWorkflow(ctx context.Context, id int64) (MaterialWorkflow, error)
	CreateWorkflow(ctx context.Context, materialCode, plantCode string, state WorkflowState, initiatedBy string) (MaterialWorkflow, error)
	ListQueries(ctx context.Context, workflowID *int64) ([]WorkflowQuery, error)
	CreateQuery(ctx context.Context, q WorkflowQuery) (WorkflowQuery, error)
}

// PlantChecker validates plant codes against the plant master.
type PlantChecker interface {
	IsActiveCode(ctx context.Context, code string) (bool, error)
}

// Notifier hands a fan-out event to the background queue. Enqueue
// failures are logged, never surfaced to the caller.
type Notifier interface {
	EnqueueFanout(ctx context.Context, event FanoutEvent) error
}

// FilterMetrics counts rows hidden from list responses by the plant
// filter.
type FilterMetrics interface {
	PlantFilterRemoved(entity string, removed int)
}

// Plant scoping for the workflow surface, declared once per operation
// shape. Reads hide out-of-scope rows; single fetches and writes
// produce a typed denial the handler maps to a status.
var (
	workflowListScope   = rbac.ListScope("plant_code")
	workflowSingleScope = rbac.SingleScope("plant_code")
	queryListScope      = rbac.ListScope("plant_code")
)

type Service struct {
	repo    RepositoryPort
	plants  PlantChecker
	notify  Notifier
	metrics FilterMetrics
	logger  *slog.Logger
}

func NewService(repo RepositoryPort, plants PlantChecker, notify Notifier, metrics FilterMetrics, logger *slog.Logger) *Service {
	return &Service{repo: repo, plants: plants, notify: notify, metrics: metrics, logger: logger}
}

// ListWorkflows returns the workflows visible to the caller. Callers
// with a plant-restricted role see only their assigned plants.
func (s *Service) ListWorkflows(ctx context.Context) ([]MaterialWorkflow, error) {
	items, err := s.repo.ListWorkflows(ctx)
	if err != nil {
		return nil, err
	}
	visible := rbac.FilterList(rbac.AuthFromContext(ctx), workflowListScope, items)
	s.countRemoved("workflow", len(items)-len(visible))
	return visible, nil
}

// GetWorkflow returns one workflow. A plant-restricted caller asking
// for a workflow outside their assignment gets a PlantAccessDeniedError.
func (s *Service) GetWorkflow(ctx context.Context, id int64) (MaterialWorkflow, error) {
	w, err := s.repo.GetWorkflow(ctx, id)
	if err != nil {
		return MaterialWorkflow{}, err
	}
	if err := rbac.CheckSingle(rbac.AuthFromContext(ctx), workflowSingleScope, w); err != nil {
		return MaterialWorkflow{}, err
	}
	return w, nil
}

// CreateWorkflow starts a questionnaire run for a material at a plant.
// The run opens waiting on the JVC team and the audience is notified in
// the background.
func (s *Service) CreateWorkflow(ctx context.Context, materialCode, plantCode string) (MaterialWorkflow, error) {
	material := strings.TrimSpace(materialCode)
	plant := strings.TrimSpace(plantCode)

	active, err := s.plants.IsActiveCode(ctx, plant)
	if err != nil {
		return MaterialWorkflow{}, fmt.Errorf("check plant %s: %w", plant, err)
	}
	if !active {
		return MaterialWorkflow{}, ErrInactivePlant
	}

	w, err := s.repo.CreateWorkflow(ctx, material, plant, StateJVCPending, actorName(ctx))
	if err != nil {
		return MaterialWorkflow{}, err
	}
	s.fanout(ctx, FanoutEvent{
		Kind:       EventWorkflowCreated,
		WorkflowID: w.ID,
		PlantCode:  w.Plant,
		Team:       TeamJVC,
		Actor:      w.InitiatedBy,
	})
	return w, nil
}

// ListQueries returns clarification queries, optionally narrowed to one
// workflow, with the same plant scoping as workflow lists.
func (s *Service) ListQueries(ctx context.Context, workflowID *int64) ([]WorkflowQuery, error) {
	items, err := s.repo.ListQueries(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	visible := rbac.FilterList(rbac.AuthFromContext(ctx), queryListScope, items)
	s.countRemoved("query", len(items)-len(visible))
	return visible, nil
}

// RaiseQuery opens a clarification against a workflow and assigns it to
// a team. The query inherits the workflow's plant, so a plant-restricted
// caller can only raise queries inside their assignment.
func (s *Service) RaiseQuery(ctx context.Context, workflowID int64, team, question string) (WorkflowQuery, error) {
	team = strings.ToUpper(strings.TrimSpace(team))
	if _, ok := validTeams[team]; !ok {
		return WorkflowQuery{}, fmt.Errorf("%w: %s", ErrUnknownTeam, team)
	}

	w, err := s.repo.GetWorkflow(ctx, workflowID)
	if err != nil {
		return WorkflowQuery{}, err
	}
	if err := rbac.CheckSingle(rbac.AuthFromContext(ctx), workflowSingleScope, w); err != nil {
		return WorkflowQuery{}, err
	}

	q, err := s.repo.CreateQuery(ctx, WorkflowQuery{
		WorkflowID:   w.ID,
		Plant:        w.Plant,
		RaisedBy:     actorName(ctx),
		AssignedTeam: team,
		Question:     strings.TrimSpace(question),
		Status:       QueryOpen,
	})
	if err != nil {
		return WorkflowQuery{}, err
	}
	s.fanout(ctx, FanoutEvent{
		Kind:       EventQueryRaised,
		WorkflowID: w.ID,
		QueryID:    q.ID,
		PlantCode:  q.Plant,
		Team:       team,
		Actor:      q.RaisedBy,
	})
	return q, nil
}

func (s *Service) countRemoved(entity string, removed int) {
	if s.metrics != nil && removed > 0 {
		s.metrics.PlantFilterRemoved(entity, removed)
	}
}

func (s *Service) fanout(ctx context.Context, event FanoutEvent) {
	if s.notify == nil {
		return
	}
	if err := s.notify.EnqueueFanout(ctx, event); err != nil {
		s.logger.Warn("notification fan-out enqueue failed",
			slog.String("kind", event.Kind),
			slog.Int64("workflow_id", event.WorkflowID),
			slog.Any("error", err))
	}
}

func actorName(ctx context.Context) string {
	if ac := rbac.AuthFromContext(ctx); ac != nil {
		return ac.Username
	}
	return ""
}
