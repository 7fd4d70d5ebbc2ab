package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Dinesh-Das/QR-sub002/internal/auth"
	"github.com/Dinesh-Das/QR-sub002/internal/observability"
	"github.com/Dinesh-Das/QR-sub002/internal/plants"
	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
	"github.com/Dinesh-Das/QR-sub002/internal/roles"
	"github.com/Dinesh-Das/QR-sub002/internal/shared"
	"github.com/Dinesh-Das/QR-sub002/internal/users"
	"github.com/Dinesh-Das/QR-sub002/internal/workflow"
	"github.com/Dinesh-Das/QR-sub002/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler     *auth.Handler
	RolesHandler    *roles.Handler
	UsersHandler    *users.Handler
	PlantsHandler   *plants.Handler
	WorkflowHandler *workflow.Handler
	JobHandler      *jobs.Handler

	Gate       rbac.Gate
	Gatekeeper rbac.Gatekeeper
	Metrics    *observability.Metrics
}

// NewRouter constructs the chi.Router with the full middleware chain and
// every API surface mounted.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	trustedHeader := ""
	if params.Config != nil {
		trustedHeader = params.Config.TrustedUserHeader
	}

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
		Principal:      auth.PrincipalMiddleware(trustedHeader),
		Gatekeeper:     params.Gatekeeper.Middleware(),
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1/auth", params.AuthHandler.MountRoutes)
	r.Route("/api/v1/workflows", params.WorkflowHandler.MountRoutes)

	r.Route("/api/v1/admin/roles", params.RolesHandler.MountRoutes)
	r.Route("/api/v1/admin/users", params.UsersHandler.MountRoutes)
	r.Route("/api/v1/admin/plants", params.PlantsHandler.MountRoutes)
	r.Route("/api/v1/admin/plant-access", params.UsersHandler.MountPlantAccessRoutes)
	if params.JobHandler != nil {
		r.Route("/api/v1/admin/jobs", func(r chi.Router) {
			r.Use(params.Gate.RequireRole(rbac.RoleAdmin))
			params.JobHandler.MountRoutes(r)
		})
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
