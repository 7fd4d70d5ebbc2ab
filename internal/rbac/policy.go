package rbac

import "context"

// AccessPolicy declares the roles an operation requires. Policies are
// attached at route registration and immutable afterwards; when both a
// group and an individual route declare one, the route's policy is the
// only one composed around that operation.
type AccessPolicy struct {
	Roles            []RoleType
	RequireAll       bool
	AllowAdminBypass bool
	Message          string
}

// RequireRole declares a policy satisfied by the single given role.
func RequireRole(role RoleType) AccessPolicy {
	return AccessPolicy{Roles: []RoleType{role}, AllowAdminBypass: true}
}

// RequireAnyRole declares a policy satisfied by any one of the given
// roles.
func RequireAnyRole(roles ...RoleType) AccessPolicy {
	return AccessPolicy{Roles: dedupeRoles(roles), AllowAdminBypass: true}
}

// RequireAllRoles declares a policy satisfied only when the caller holds
// every given role.
func RequireAllRoles(roles ...RoleType) AccessPolicy {
	return AccessPolicy{Roles: dedupeRoles(roles), RequireAll: true, AllowAdminBypass: true}
}

// WithMessage overrides the synthesized denial message.
func (p AccessPolicy) WithMessage(msg string) AccessPolicy {
	p.Message = msg
	return p
}

// WithoutAdminBypass requires even administrators to match the declared
// roles.
func (p AccessPolicy) WithoutAdminBypass() AccessPolicy {
	p.AllowAdminBypass = false
	return p
}

func dedupeRoles(roles []RoleType) []RoleType {
	seen := make(map[RoleType]struct{}, len(roles))
	out := make([]RoleType, 0, len(roles))
	for _, r := range roles {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// FilterType selects how a DataScopePolicy treats an operation's return
// value.
type FilterType string

const (
	// ListFilter retains only the elements the caller's plants cover.
	ListFilter FilterType = "LIST"
	// SingleFilter denies the call outright when the one returned entity
	// belongs to a plant outside the caller's assignment.
	SingleFilter FilterType = "SINGLE"
)

// DataScopePolicy declares plant scoping for an operation's result.
// EntityField names the plant-code field for audit and diagnostics; the
// value itself is read through the PlantScoped interface.
type DataScopePolicy struct {
	EntityField   string
	Type          FilterType
	PlantRoleOnly bool
}

// ListScope declares an order-preserving plant filter over a returned
// list. Scoping applies to plant-restricted roles only.
func ListScope(entityField string) DataScopePolicy {
	return DataScopePolicy{EntityField: entityField, Type: ListFilter, PlantRoleOnly: true}
}

// SingleScope declares a plant check over a single returned entity.
// Scoping applies to plant-restricted roles only.
func SingleScope(entityField string) DataScopePolicy {
	return DataScopePolicy{EntityField: entityField, Type: SingleFilter, PlantRoleOnly: true}
}

// ForAllRoles extends the scope to every non-admin caller regardless of
// role, filtering by whatever plants they have assigned.
func (p DataScopePolicy) ForAllRoles() DataScopePolicy {
	p.PlantRoleOnly = false
	return p
}

type policyContextKey struct{}

// ContextWithPolicy records the effective access policy composed around
// the matched operation.
func ContextWithPolicy(ctx context.Context, p AccessPolicy) context.Context {
	return context.WithValue(ctx, policyContextKey{}, p)
}

// PolicyFromContext returns the effective access policy for the matched
// operation. The second result is false on routes without one.
func PolicyFromContext(ctx context.Context) (AccessPolicy, bool) {
	p, ok := ctx.Value(policyContextKey{}).(AccessPolicy)
	return p, ok
}
