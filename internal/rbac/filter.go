package rbac

// PlantScoped is implemented by entities owned by a single plant.
type PlantScoped interface {
	PlantCode() string
}

// FilterList applies a list-scoped policy to an operation's result,
// retaining only elements whose plant the caller is assigned to. The
// input order is preserved; the input slice is never mutated. Callers
// outside the policy's scope receive the list unchanged.
func FilterList[T PlantScoped](ctx *AuthContext, policy DataScopePolicy, items []T) []T {
	if !scopingApplies(ctx, policy) {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if ctx.HasPlant(item.PlantCode()) {
			out = append(out, item)
		}
	}
	return out
}

// CheckSingle applies a single-entity scope to an operation's result.
// It returns a PlantAccessDeniedError when the entity's plant is outside
// the caller's assignment, and nil otherwise. How the denial surfaces
// (explicit 403 or not-found) is fixed per endpoint by the boundary.
func CheckSingle[T PlantScoped](ctx *AuthContext, policy DataScopePolicy, item T) error {
	if !scopingApplies(ctx, policy) {
		return nil
	}
	code := item.PlantCode()
	if ctx.HasPlant(code) {
		return nil
	}
	return &PlantAccessDeniedError{
		RequestedPlant: code,
		AssignedPlants: append([]string(nil), ctx.Plants...),
	}
}

// scopingApplies decides whether the policy restricts this caller at
// all. Administrators always pass; plant-role-only policies skip callers
// without a plant-restricted role.
func scopingApplies(ctx *AuthContext, policy DataScopePolicy) bool {
	if ctx == nil || ctx.IsAdmin {
		return false
	}
	if policy.PlantRoleOnly && !ctx.PlantScoped() {
		return false
	}
	return true
}
