// Package users manages accounts and their role and plant assignments.
// All mutations invalidate the account's cached access snapshot so the
// next authorization decision sees the new assignment.
package users

import (
	"errors"
	"time"

	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
)

var (
	// ErrNotFound is returned when no account matches the requested ID.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrUnknownRole is returned when a role assignment references a
	// role missing from the catalog.
	ErrUnknownRole = errors.New("unknown role in assignment")
	// ErrUnknownPlant is returned when a plant assignment references a
	// plant missing from the plant master.
	ErrUnknownPlant = errors.New("unknown plant in assignment")
	// ErrNotPlantScoped is returned when plants are assigned to an
	// account that holds no plant-scoping role.
	ErrNotPlantScoped = errors.New("account holds no plant-scoped role")
)

// Account is the management view of a user: the stored row plus role
// and plant assignments.
type Account struct {
	ID           int64
	Username     string
	Email        string
	FullName     string
	Active       bool
	PrimaryRole  rbac.RoleType
	PrimaryPlant string
	Roles        []AssignedRole
	Plants       []string
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AssignedRole is one catalog role granted to an account.
type AssignedRole struct {
	ID      int64
	Name    string
	Type    rbac.RoleType
	Enabled bool
}

// HoldsType reports whether any enabled assigned role carries the role
// type.
func (a Account) HoldsType(t rbac.RoleType) bool {
	for _, role := range a.Roles {
		if role.Enabled && role.Type == t {
			return true
		}
	}
	return false
}

// PlantScoped reports whether the account's enabled roles restrict data
// visibility to assigned plants.
func (a Account) PlantScoped() bool {
	for _, role := range a.Roles {
		if role.Enabled && role.Type.SupportsPlantFiltering() {
			return true
		}
	}
	return false
}

// CreateAccountInput carries the fields accepted when creating an
// account.
type CreateAccountInput struct {
	Username     string
	Email        string
	FullName     string
	Password     string
	PrimaryRole  rbac.RoleType
	PrimaryPlant string
}

// UpdateAccountInput carries the editable profile fields.
type UpdateAccountInput struct {
	Email        string
	FullName     string
	PrimaryRole  rbac.RoleType
	PrimaryPlant string
}

// PlantAccessResult answers a plant-access probe for one account.
type PlantAccessResult struct {
	UserID         int64    `json:"user_id"`
	Username       string   `json:"username"`
	PlantCode      string   `json:"plant_code"`
	HasAccess      bool     `json:"has_access"`
	AssignedPlants []string `json:"assigned_plants"`
}
