package rbac

import (
	"fmt"
	"strings"
)

// RoleType is the closed set of role categories recognized by the
// authorization engine. Every access decision, screen table and data-type
// table keys off this one enumeration.
type RoleType string

const (
	RoleAdmin RoleType = "ADMIN"
	RoleJVC   RoleType = "JVC_ROLE"
	RoleCQS   RoleType = "CQS_ROLE"
	RoleTech  RoleType = "TECH_ROLE"
	RolePlant RoleType = "PLANT_ROLE"
)

var roleDisplayNames = map[RoleType]string{
	RoleAdmin: "Administrator",
	RoleJVC:   "JVC Role",
	RoleCQS:   "CQS Role",
	RoleTech:  "Tech Role",
	RolePlant: "Plant Role",
}

// AllRoleTypes returns the enumeration in declaration order.
func AllRoleTypes() []RoleType {
	return []RoleType{RoleAdmin, RoleJVC, RoleCQS, RoleTech, RolePlant}
}

// Valid reports whether t is one of the declared role types.
func (t RoleType) Valid() bool {
	_, ok := roleDisplayNames[t]
	return ok
}

// DisplayName returns the human-readable name used in denial messages
// and admin listings.
func (t RoleType) DisplayName() string {
	if name, ok := roleDisplayNames[t]; ok {
		return name
	}
	return string(t)
}

// SupportsPlantFiltering reports whether data visibility for this role
// is restricted to the user's assigned plants.
func (t RoleType) SupportsPlantFiltering() bool {
	return t == RolePlant
}

// ParseRoleType maps a stored or submitted value onto the enumeration.
func ParseRoleType(raw string) (RoleType, error) {
	t := RoleType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoleType, raw)
	}
	return t, nil
}
