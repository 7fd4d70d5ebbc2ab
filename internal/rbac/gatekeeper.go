package rbac

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Dinesh-Das/QR-sub002/internal/audit"
	"github.com/Dinesh-Das/QR-sub002/internal/platform/httpx"
)

const adminRoutePrefix = "/api/v1/admin/"

// DefaultExemptPrefixes lists the paths that bypass the gatekeeper
// entirely: authentication, health, metrics and static assets.
var DefaultExemptPrefixes = []string{
	"/api/v1/auth/",
	"/healthz",
	"/metrics",
	"/static/",
	"/favicon.ico",
}

// Verdict is the gatekeeper's decision for one request.
type Verdict struct {
	Allow     bool
	Reason    string
	Screen    string
	DataType  DataType
	PlantCode string
}

// Gatekeeper re-validates every inbound API request ahead of routing,
// independent of whatever policy is composed around the matched
// operation further in.
type Gatekeeper struct {
	Resolver Resolver
	Audit    audit.Recorder
	Logger   *slog.Logger
	Metrics  DecisionMetrics
	Exempt   []string // path prefixes; DefaultExemptPrefixes when nil
}

// Middleware returns the request filter. Any unexpected failure inside
// the decision path becomes a 500, never a silent allow; every decided
// request appends exactly one audit record.
func (k Gatekeeper) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if k.exemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			ac, verdict, err := k.decide(r)
			switch {
			case err != nil:
				k.failClosed(w, r, err)
			case !verdict.Allow:
				k.recordVerdict(r, ac, verdict)
				k.count("gatekeeper", "deny")
				httpx.Error(w, http.StatusForbidden, httpx.CodeAccessDenied, verdict.Reason)
			default:
				k.recordVerdict(r, ac, verdict)
				k.count("gatekeeper", "allow")
				next.ServeHTTP(w, r.WithContext(ContextWithAuth(r.Context(), ac)))
			}
		})
	}
}

// Decide evaluates screen, data-type and plant access for one request.
// Pure: the outcome depends only on the arguments, so the same caller,
// path and parameters always decide the same way.
func Decide(ac *AuthContext, method, path string, query url.Values) Verdict {
	if ac.IsAdmin {
		return Verdict{Allow: true, Reason: "Admin access"}
	}
	if rest, ok := strings.CutPrefix(path, adminRoutePrefix); ok {
		return decideAdminScreen(ac, rest, path, query)
	}
	return decideDataAccess(ac, path, query)
}

// decideAdminScreen checks the role to screen table, then the plant
// qualifier when the primary role is plant-restricted. A request with
// no plant qualifier falls through to the bare screen decision.
func decideAdminScreen(ac *AuthContext, rest, fullPath string, query url.Values) Verdict {
	segment := firstSegment(rest)
	role := ac.PrimaryRole
	sc, ok := adminScreens[segment]
	if !ok || !sc.allows(role) {
		return Verdict{
			Allow:  false,
			Screen: segment,
			Reason: "Access denied. Admin screen not permitted for role: " + role.DisplayName(),
		}
	}
	if role.SupportsPlantFiltering() {
		if code, found := sc.extractPlant(fullPath, query); found {
			if !ac.HasPlant(code) {
				denied := &PlantAccessDeniedError{RequestedPlant: code, AssignedPlants: ac.Plants}
				return Verdict{Allow: false, Screen: sc.name, PlantCode: code, Reason: denied.Error()}
			}
			return Verdict{Allow: true, Screen: sc.name, PlantCode: code, Reason: "Screen and plant access granted"}
		}
	}
	return Verdict{Allow: true, Screen: sc.name, Reason: "Screen access granted"}
}

// decideDataAccess checks the role to data-type table for ordinary
// routes, with the plant qualifier check for plant-restricted primary
// roles on plant-owned data.
func decideDataAccess(ac *AuthContext, path string, query url.Values) Verdict {
	dt, ok := classifyPath(path)
	if !ok {
		return Verdict{Allow: true, Reason: "No data classification for route"}
	}
	role := ac.PrimaryRole
	if !roleCanAccess(role, dt) {
		return Verdict{
			Allow:    false,
			DataType: dt,
			Reason:   fmt.Sprintf("Access denied. %s data is not accessible for role: %s", dt, role.DisplayName()),
		}
	}
	if plantOwned[dt] && role.SupportsPlantFiltering() {
		if code, found := queryPlantCode(query); found {
			if !ac.HasPlant(code) {
				denied := &PlantAccessDeniedError{RequestedPlant: code, AssignedPlants: ac.Plants}
				return Verdict{Allow: false, DataType: dt, PlantCode: code, Reason: denied.Error()}
			}
			return Verdict{Allow: true, DataType: dt, PlantCode: code, Reason: "Data and plant access granted"}
		}
	}
	return Verdict{Allow: true, DataType: dt, Reason: "Data access granted"}
}

func (k Gatekeeper) exemptPath(path string) bool {
	prefixes := k.Exempt
	if prefixes == nil {
		prefixes = DefaultExemptPrefixes
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// decide wraps principal resolution and the pure decision with a panic
// guard so a decision failure can never slip a request through.
func (k Gatekeeper) decide(r *http.Request) (ac *AuthContext, verdict Verdict, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &OperationalError{Code: "gatekeeper_panic", Message: fmt.Sprintf("%v", rec)}
		}
	}()
	ac, err = k.Resolver.ResolveRequest(r)
	if err != nil {
		return nil, Verdict{}, err
	}
	return ac, Decide(ac, r.Method, r.URL.Path, r.URL.Query()), nil
}

func (k Gatekeeper) failClosed(w http.ResponseWriter, r *http.Request, err error) {
	var resErr *RoleResolutionError
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		k.record(r, "anonymous", false, ErrAuthenticationRequired.Error(), nil)
		k.count("gatekeeper", "unauthenticated")
		httpx.Error(w, http.StatusForbidden, httpx.CodeAuthRequired, ErrAuthenticationRequired.Error())
	case errors.As(err, &resErr):
		k.record(r, resErr.Username, false, resErr.Error(), nil)
		k.count("gatekeeper", "deny")
		httpx.Error(w, http.StatusForbidden, httpx.CodeAccessDenied, "Access denied. No valid role assignment for this account")
	default:
		if k.Logger != nil {
			k.Logger.Error("gatekeeper decision failed",
				slog.String("path", r.URL.Path),
				slog.Any("error", err))
		}
		k.record(r, "unknown", false, err.Error(), nil)
		k.count("gatekeeper", "error")
		httpx.Error(w, http.StatusInternalServerError, httpx.CodeAuthorizationError, "Authorization check failed")
	}
}

func (k Gatekeeper) recordVerdict(r *http.Request, ac *AuthContext, verdict Verdict) {
	extra := map[string]any{}
	if verdict.Screen != "" {
		extra["screen"] = verdict.Screen
	}
	if verdict.DataType != "" {
		extra["data_type"] = string(verdict.DataType)
	}
	if verdict.PlantCode != "" {
		extra["plant_code"] = verdict.PlantCode
	}
	k.record(r, ac.Username, verdict.Allow, verdict.Reason, extra)
}

func (k Gatekeeper) record(r *http.Request, actor string, granted bool, reason string, extra map[string]any) {
	if k.Audit == nil {
		return
	}
	if actor == "" {
		actor = "anonymous"
	}
	recCtx := map[string]any{"method": r.Method}
	for key, val := range extra {
		recCtx[key] = val
	}
	k.Audit.Record(r.Context(), audit.Record{
		Actor:    actor,
		Resource: r.URL.Path,
		Action:   "Gatekeeper",
		Granted:  granted,
		Reason:   reason,
		Context:  recCtx,
	})
}

func (k Gatekeeper) count(component, outcome string) {
	if k.Metrics != nil {
		k.Metrics.AuthzDecision(component, outcome)
	}
}
