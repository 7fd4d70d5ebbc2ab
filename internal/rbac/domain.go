package rbac

import (
	"context"
	"time"
)

// Role is an assignable permission grouping carrying a RoleType category.
type Role struct {
	ID          int64
	Name        string
	Description string
	Type        RoleType
	Enabled     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserAccess is the hydrated access snapshot for one account: the role
// types granted through enabled roles plus the plant assignment. It is
// immutable once loaded and safe to share across goroutines.
type UserAccess struct {
	UserID       int64      `json:"user_id"`
	Username     string     `json:"username"`
	Roles        []RoleType `json:"roles"`
	PrimaryRole  RoleType   `json:"primary_role"`
	Plants       []string   `json:"plants"`
	PrimaryPlant string     `json:"primary_plant"`
}

// PrincipalName implements Credential so a UserAccess can stand in
// anywhere a generic credential is expected.
func (u *UserAccess) PrincipalName() string { return u.Username }

// Credential is a principal handed over by the identity layer that only
// knows its account name; the access snapshot must be reloaded from the
// store before any decision can be made.
type Credential interface {
	PrincipalName() string
}

// AuthContext is the normalized per-request view of the caller, built
// exactly once per request and consumed by the gate, the data filter and
// the gatekeeper alike. It is discarded when the request ends.
type AuthContext struct {
	Username    string
	Roles       []RoleType
	PrimaryRole RoleType
	Plants      []string
	IsAdmin     bool
}

// HasRole reports whether the caller holds the given role type.
func (c *AuthContext) HasRole(t RoleType) bool {
	for _, r := range c.Roles {
		if r == t {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the caller holds at least one of the given
// role types.
func (c *AuthContext) HasAnyRole(types ...RoleType) bool {
	for _, t := range types {
		if c.HasRole(t) {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether the caller holds every given role type.
func (c *AuthContext) HasAllRoles(types ...RoleType) bool {
	for _, t := range types {
		if !c.HasRole(t) {
			return false
		}
	}
	return true
}

// HasPlant reports whether plantCode is among the caller's assigned
// plants. An empty assignment grants access to no plant.
func (c *AuthContext) HasPlant(plantCode string) bool {
	for _, p := range c.Plants {
		if p == plantCode {
			return true
		}
	}
	return false
}

// PlantScoped reports whether any of the caller's roles restricts data
// visibility to assigned plants.
func (c *AuthContext) PlantScoped() bool {
	for _, r := range c.Roles {
		if r.SupportsPlantFiltering() {
			return true
		}
	}
	return false
}

type authContextKey struct{}

// ContextWithAuth stores the resolved AuthContext for the remainder of
// the request.
func ContextWithAuth(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// AuthFromContext returns the AuthContext resolved earlier in the
// request, or nil when none has been built yet.
func AuthFromContext(ctx context.Context) *AuthContext {
	ac, _ := ctx.Value(authContextKey{}).(*AuthContext)
	return ac
}

type principalContextKey struct{}

// ContextWithPrincipal stores the raw principal produced by the identity
// layer. The value takes one of three shapes: *UserAccess, Credential,
// or a bare username string.
func ContextWithPrincipal(ctx context.Context, principal any) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext returns the raw principal stored for this
// request, or nil when the request is unauthenticated.
func PrincipalFromContext(ctx context.Context) any {
	return ctx.Value(principalContextKey{})
}
