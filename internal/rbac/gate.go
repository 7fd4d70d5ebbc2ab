package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dinesh-Das/QR-sub002/internal/audit"
	"github.com/Dinesh-Das/QR-sub002/internal/platform/httpx"
)

// DecisionMetrics counts authorization outcomes per component.
type DecisionMetrics interface {
	AuthzDecision(component, outcome string)
}

// Gate composes declarative role policies around protected operations.
// A policy is attached exactly once per operation at route registration;
// sibling operations in the same group may carry different policies, and
// the one composed closest to the operation is the only one that runs.
type Gate struct {
	Resolver Resolver
	Audit    audit.Recorder
	Logger   *slog.Logger
	Metrics  DecisionMetrics
}

// Require returns middleware enforcing the policy on every request it
// wraps. Unauthenticated requests are rejected before any role
// comparison; every evaluation appends exactly one audit record.
func (g Gate) Require(policy AccessPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := g.Resolver.ResolveRequest(r)
			if err != nil {
				g.fail(w, r, policy, err)
				return
			}
			decision := Evaluate(ac, policy)
			g.record(r, ac.Username, decision.Allowed, decision.Reason, policy)
			if !decision.Allowed {
				g.count("gate", "deny")
				httpx.Error(w, http.StatusForbidden, httpx.CodeAccessDenied, decision.Reason)
				return
			}
			g.count("gate", "allow")
			ctx := ContextWithPolicy(ContextWithAuth(r.Context(), ac), policy)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates an operation on a single role.
func (g Gate) RequireRole(role RoleType) func(http.Handler) http.Handler {
	return g.Require(RequireRole(role))
}

// RequireAny gates an operation on holding at least one of the roles.
func (g Gate) RequireAny(roles ...RoleType) func(http.Handler) http.Handler {
	return g.Require(RequireAnyRole(roles...))
}

// RequireAll gates an operation on holding every one of the roles.
func (g Gate) RequireAll(roles ...RoleType) func(http.Handler) http.Handler {
	return g.Require(RequireAllRoles(roles...))
}

func (g Gate) fail(w http.ResponseWriter, r *http.Request, policy AccessPolicy, err error) {
	var resErr *RoleResolutionError
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		g.record(r, "anonymous", false, ErrAuthenticationRequired.Error(), policy)
		g.count("gate", "unauthenticated")
		httpx.Error(w, http.StatusForbidden, httpx.CodeAuthRequired, ErrAuthenticationRequired.Error())
	case errors.As(err, &resErr):
		g.record(r, resErr.Username, false, resErr.Error(), policy)
		g.count("gate", "deny")
		httpx.Error(w, http.StatusForbidden, httpx.CodeAccessDenied, "Access denied. No valid role assignment for this account")
	default:
		if g.Logger != nil {
			g.Logger.Error("authorization gate failed",
				slog.String("path", r.URL.Path),
				slog.Any("error", err))
		}
		g.record(r, "unknown", false, err.Error(), policy)
		g.count("gate", "error")
		httpx.Error(w, http.StatusInternalServerError, httpx.CodeAuthorizationError, "Authorization check failed")
	}
}

func (g Gate) record(r *http.Request, actor string, granted bool, reason string, policy AccessPolicy) {
	if g.Audit == nil {
		return
	}
	if actor == "" {
		actor = "anonymous"
	}
	roles := make([]string, len(policy.Roles))
	for i, role := range policy.Roles {
		roles[i] = string(role)
	}
	g.Audit.Record(r.Context(), audit.Record{
		Actor:    actor,
		Resource: r.URL.Path,
		Action:   "RequireRole",
		Granted:  granted,
		Reason:   reason,
		Context: map[string]any{
			"method":         r.Method,
			"required_roles": roles,
			"require_all":    policy.RequireAll,
		},
	})
}

func (g Gate) count(component, outcome string) {
	if g.Metrics != nil {
		g.Metrics.AuthzDecision(component, outcome)
	}
}
