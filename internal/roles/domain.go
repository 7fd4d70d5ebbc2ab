// Package roles manages the role catalog: the assignable permission
// groupings that carry a RoleType category. Catalog changes ripple into
// cached access snapshots, so every mutation invalidates the snapshots
// of the accounts holding the role.
package roles

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrNotFound is returned when no role matches the requested ID.
	ErrNotFound = errors.New("role not found")
	// ErrDuplicateName is returned when a role name is already taken.
	ErrDuplicateName = errors.New("role name already exists")
	// ErrRoleAssigned is returned when deletion is refused because
	// accounts still hold the role. Disable the role instead.
	ErrRoleAssigned = errors.New("role still assigned")
)

var labelCaser = cases.Title(language.English)

// DisplayLabel renders a stored role name for display, turning names
// like "quality_reviewer" into "Quality Reviewer".
func DisplayLabel(name string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(name), "_", " ")
	return labelCaser.String(strings.ToLower(cleaned))
}
