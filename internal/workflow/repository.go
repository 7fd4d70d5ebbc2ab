package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists workflows and queries in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const workflowColumns = `id, material_code, plant_code, state, initiated_by, created_at, updated_at`

const queryColumns = `id, workflow_id, plant_code, raised_by, assigned_team, question, status, created_at, resolved_at`

// ListWorkflows returns every workflow ordered newest first. Plant
// scoping happens in the service layer, not in SQL.
func (r *Repository) ListWorkflows(ctx context.Context) ([]MaterialWorkflow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+workflowColumns+`
		FROM material_workflows
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var items []MaterialWorkflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("list workflows: %w", err)
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

func (r *Repository) GetWorkflow(ctx context.Context, id int64) (MaterialWorkflow, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+workflowColumns+`
		FROM material_workflows
		WHERE id = $1
	`, id)
	w, err := scanWorkflow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return MaterialWorkflow{}, ErrNotFound
	}
	if err != nil {
		return MaterialWorkflow{}, fmt.Errorf("get workflow %d: %w", id, err)
	}
	return w, nil
}

func (r *Repository) CreateWorkflow(ctx context.Context, materialCode, plantCode string, state WorkflowState, initiatedBy string) (MaterialWorkflow, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO material_workflows (material_code, plant_code, state, initiated_by)
		VALUES ($1, $2, $3, $4)
		RETURNING `+workflowColumns+`
	`, materialCode, plantCode, state, initiatedBy)
	w, err := scanWorkflow(row)
	if err != nil {
		return MaterialWorkflow{}, fmt.Errorf("create workflow: %w", err)
	}
	return w, nil
}

// ListQueries returns clarification queries, optionally narrowed to one
// workflow, ordered newest first.
func (r *Repository) ListQueries(ctx context.Context, workflowID *int64) ([]WorkflowQuery, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+queryColumns+`
		FROM workflow_queries
		WHERE $1::bigint IS NULL OR workflow_id = $1
		ORDER BY created_at DESC, id DESC
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()

	var items []WorkflowQuery
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("list queries: %w", err)
		}
		items = append(items, q)
	}
	return items, rows.Err()
}

func (r *Repository) CreateQuery(ctx context.Context, q WorkflowQuery) (WorkflowQuery, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO workflow_queries (workflow_id, plant_code, raised_by, assigned_team, question, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+queryColumns+`
	`, q.WorkflowID, q.Plant, q.RaisedBy, q.AssignedTeam, q.Question, q.Status)
	created, err := scanQuery(row)
	if err != nil {
		return WorkflowQuery{}, fmt.Errorf("create query: %w", err)
	}
	return created, nil
}

func scanWorkflow(row pgx.Row) (MaterialWorkflow, error) {
	var w MaterialWorkflow
	err := row.Scan(&w.ID, &w.MaterialCode, &w.Plant, &w.State, &w.InitiatedBy, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func scanQuery(row pgx.Row) (WorkflowQuery, error) {
	var q WorkflowQuery
	err := row.Scan(&q.ID, &q.WorkflowID, &q.Plant, &q.RaisedBy, &q.AssignedTeam, &q.Question, &q.Status, &q.CreatedAt, &q.ResolvedAt)
	return q, err
}
