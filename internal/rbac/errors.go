package rbac

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthenticationRequired is raised when an operation demanding a
	// principal is reached without one. The text is the user-facing
	// message and is returned before any role comparison runs.
	ErrAuthenticationRequired = errors.New("Authentication required to access this resource")

	// ErrNotFound is returned by stores when the requested row does not
	// exist.
	ErrNotFound = errors.New("rbac: not found")

	// ErrUnknownRoleType is returned when a value outside the RoleType
	// enumeration is parsed.
	ErrUnknownRoleType = errors.New("rbac: unknown role type")
)

// InsufficientRoleError is the typed denial produced when a caller fails
// an access policy. Message is the user-facing text built by
// DenialMessage.
type InsufficientRoleError struct {
	Required   []RoleType
	UserRole   RoleType
	RequireAll bool
	Message    string
}

func (e *InsufficientRoleError) Error() string { return e.Message }

// NewInsufficientRoleError builds the typed denial for a failed policy
// evaluation.
func NewInsufficientRoleError(policy AccessPolicy, ctx *AuthContext) *InsufficientRoleError {
	e := &InsufficientRoleError{
		Required:   policy.Roles,
		RequireAll: policy.RequireAll,
		Message:    DenialMessage(policy),
	}
	if ctx != nil {
		e.UserRole = ctx.PrimaryRole
	}
	return e
}

// PlantAccessDeniedError is the typed denial produced when a requested
// entity belongs to a plant outside the caller's assignment.
type PlantAccessDeniedError struct {
	RequestedPlant string
	AssignedPlants []string
}

func (e *PlantAccessDeniedError) Error() string {
	if len(e.AssignedPlants) == 0 {
		return fmt.Sprintf("Access denied. Plant %s is not accessible: no plants assigned", e.RequestedPlant)
	}
	return fmt.Sprintf("Access denied. Plant %s is not among assigned plants [%s]",
		e.RequestedPlant, strings.Join(e.AssignedPlants, ", "))
}

// RoleResolutionError is produced when a principal cannot be mapped to
// any role, making every decision impossible.
type RoleResolutionError struct {
	Username string
	Reason   string
}

func (e *RoleResolutionError) Error() string {
	if e.Username == "" {
		return "rbac: role resolution failed: " + e.Reason
	}
	return fmt.Sprintf("rbac: role resolution failed for %s: %s", e.Username, e.Reason)
}

// OperationalError wraps a collaborator failure (store or cache lookup)
// encountered while building a decision. It is the only error kind in
// this package a caller may retry.
type OperationalError struct {
	Code    string
	Message string
	Err     error
}

func (e *OperationalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rbac: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("rbac: %s: %s", e.Code, e.Message)
}

func (e *OperationalError) Unwrap() error { return e.Err }
