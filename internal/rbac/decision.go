package rbac

import (
	"fmt"
	"strings"
)

// Grant reasons recorded in the audit trail.
const (
	ReasonAdminBypass    = "Admin bypass"
	ReasonRolesSatisfied = "Role requirements satisfied"
)

// Decision is the outcome of evaluating an access policy against a
// caller. Reason carries the audit-ready grant reason or the
// user-facing denial message.
type Decision struct {
	Allowed bool
	Reason  string
}

// Satisfies reports whether the caller meets the policy's role
// requirements. Pure: reads only the given context and policy.
func Satisfies(ctx *AuthContext, policy AccessPolicy) bool {
	if ctx == nil {
		return false
	}
	if ctx.IsAdmin && policy.AllowAdminBypass {
		return true
	}
	if policy.RequireAll {
		return ctx.HasAllRoles(policy.Roles...)
	}
	return ctx.HasAnyRole(policy.Roles...)
}

// Evaluate applies the role policy to the caller and produces the
// decision with its reason. Callers raise errors; evaluation itself
// never fails.
func Evaluate(ctx *AuthContext, policy AccessPolicy) Decision {
	if ctx != nil && ctx.IsAdmin && policy.AllowAdminBypass {
		return Decision{Allowed: true, Reason: ReasonAdminBypass}
	}
	if Satisfies(ctx, policy) {
		return Decision{Allowed: true, Reason: ReasonRolesSatisfied}
	}
	return Decision{Allowed: false, Reason: DenialMessage(policy)}
}

// DenialMessage builds the user-facing text for a failed policy. A
// policy message set at declaration time is used verbatim; otherwise the
// text is synthesized from the role display names.
func DenialMessage(policy AccessPolicy) string {
	if policy.Message != "" {
		return policy.Message
	}
	names := make([]string, len(policy.Roles))
	for i, r := range policy.Roles {
		names[i] = r.DisplayName()
	}
	if len(names) == 1 {
		return "Access denied. Required role: " + names[0]
	}
	conjunction := "one of"
	if policy.RequireAll {
		conjunction = "all of"
	}
	return fmt.Sprintf("Access denied. Required %s: [%s]", conjunction, strings.Join(names, ", "))
}
