// Package workflow carries the material safety questionnaire workflows
// and the clarification queries raised against them. It is the
// plant-scoped business surface: every read passes through the plant
// data filter and every write checks the caller's plant assignment.
package workflow

import (
	"errors"
	"time"
)

// WorkflowState tracks which team a workflow is waiting on.
type WorkflowState string

// Workflow states in processing order.
const (
	StateJVCPending   WorkflowState = "JVC_PENDING"
	StateCQSPending   WorkflowState = "CQS_PENDING"
	StateTechPending  WorkflowState = "TECH_PENDING"
	StatePlantPending WorkflowState = "PLANT_PENDING"
	StateCompleted    WorkflowState = "COMPLETED"
)

// QueryStatus tracks whether a clarification query is outstanding.
type QueryStatus string

const (
	QueryOpen     QueryStatus = "OPEN"
	QueryResolved QueryStatus = "RESOLVED"
)

// Teams a query may be assigned to.
const (
	TeamJVC   = "JVC"
	TeamCQS   = "CQS"
	TeamTech  = "TECH"
	TeamPlant = "PLANT"
)

var validTeams = map[string]struct{}{
	TeamJVC:   {},
	TeamCQS:   {},
	TeamTech:  {},
	TeamPlant: {},
}

var (
	// ErrNotFound is returned when no workflow or query matches.
	ErrNotFound = errors.New("workflow not found")
	// ErrUnknownTeam is returned when a query targets a team that does
	// not exist.
	ErrUnknownTeam = errors.New("unknown team")
	// ErrInactivePlant is returned when a workflow is initiated for a
	// plant missing from the master or retired.
	ErrInactivePlant = errors.New("plant is not active")
)

// MaterialWorkflow is one questionnaire run for a material at a plant.
type MaterialWorkflow struct {
	ID           int64         `json:"id"`
	MaterialCode string        `json:"material_code"`
	Plant        string        `json:"plant_code"`
	State        WorkflowState `json:"state"`
	InitiatedBy  string        `json:"initiated_by"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// PlantCode implements the plant scoping contract.
func (w MaterialWorkflow) PlantCode() string { return w.Plant }

// WorkflowQuery is a clarification raised against a workflow and
// assigned to one team. It inherits the workflow's plant.
type WorkflowQuery struct {
	ID           int64       `json:"id"`
	WorkflowID   int64       `json:"workflow_id"`
	Plant        string      `json:"plant_code"`
	RaisedBy     string      `json:"raised_by"`
	AssignedTeam string      `json:"assigned_team"`
	Question     string      `json:"question"`
	Status       QueryStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	ResolvedAt   *time.Time  `json:"resolved_at,omitempty"`
}

// PlantCode implements the plant scoping contract.
func (q WorkflowQuery) PlantCode() string { return q.Plant }

// FanoutEvent describes a workflow change whose audience must be
// notified in the background.
type FanoutEvent struct {
	Kind       string `json:"kind"`
	WorkflowID int64  `json:"workflow_id"`
	QueryID    int64  `json:"query_id,omitempty"`
	PlantCode  string `json:"plant_code"`
	Team       string `json:"team,omitempty"`
	Actor      string `json:"actor"`
}

// Fan-out event kinds.
const (
	EventWorkflowCreated = "workflow_created"
	EventQueryRaised     = "query_raised"
)
