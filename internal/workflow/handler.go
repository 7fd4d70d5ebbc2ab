package workflow

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Dinesh-Das/QR-sub002/internal/platform/httpx"
	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
)

// Handler serves the workflow and query endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      rbac.Gate
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, gate rbac.Gate) *Handler {
	return &Handler{logger: logger, service: service, gate: gate, validator: validator.New()}
}

// MountRoutes registers the workflow surface. Reads are open to every
// business role, creating a workflow is a JVC operation and raising a
// query belongs to the reviewing teams. Administrators pass every gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAny(rbac.RoleJVC, rbac.RoleCQS, rbac.RoleTech, rbac.RolePlant))
		r.Get("/", h.listWorkflows)
		r.Get("/queries", h.listQueries)
		r.Get("/{id}", h.showWorkflow)
		r.Get("/{id}/queries", h.listWorkflowQueries)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireRole(rbac.RoleJVC))
		r.Post("/", h.createWorkflow)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAny(rbac.RoleCQS, rbac.RoleTech, rbac.RolePlant))
		r.Post("/{id}/queries", h.raiseQuery)
	})
}

type createWorkflowRequest struct {
	MaterialCode string `json:"material_code" validate:"required,min=3,max=64"`
	PlantCode    string `json:"plant_code" validate:"required,len=4,numeric"`
}

type raiseQueryRequest struct {
	Team     string `json:"team" validate:"required"`
	Question string `json:"question" validate:"required,min=5,max=2000"`
}

func (h *Handler) listWorkflows(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListWorkflows(r.Context())
	if err != nil {
		h.respondError(w, err, "list workflows", false)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"workflows": items})
}

func (h *Handler) showWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := h.workflowID(w, r)
	if !ok {
		return
	}
	item, err := h.service.GetWorkflow(r.Context(), id)
	if err != nil {
		// Reads hide out-of-scope workflows instead of confirming they
		// exist.
		h.respondError(w, err, "get workflow", true)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var req createWorkflowRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeBadRequest, "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "material_code and a 4-digit plant_code are required")
		return
	}
	item, err := h.service.CreateWorkflow(r.Context(), req.MaterialCode, req.PlantCode)
	if err != nil {
		h.respondError(w, err, "create workflow", false)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) listQueries(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListQueries(r.Context(), nil)
	if err != nil {
		h.respondError(w, err, "list queries", false)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queries": items})
}

func (h *Handler) listWorkflowQueries(w http.ResponseWriter, r *http.Request) {
	id, ok := h.workflowID(w, r)
	if !ok {
		return
	}
	// Confirm visibility of the parent before listing its queries.
	if _, err := h.service.GetWorkflow(r.Context(), id); err != nil {
		h.respondError(w, err, "get workflow", true)
		return
	}
	items, err := h.service.ListQueries(r.Context(), &id)
	if err != nil {
		h.respondError(w, err, "list workflow queries", false)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queries": items})
}

func (h *Handler) raiseQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := h.workflowID(w, r)
	if !ok {
		return
	}
	var req raiseQueryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeBadRequest, "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "team and question are required")
		return
	}
	item, err := h.service.RaiseQuery(r.Context(), id, req.Team, req.Question)
	if err != nil {
		h.respondError(w, err, "raise query", false)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) workflowID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeBadRequest, "invalid workflow ID")
		return 0, false
	}
	return id, true
}

// respondError maps service errors onto the envelope. hideDenied turns
// a plant-scope denial into a 404 so read endpoints do not reveal that
// the workflow exists; writes keep the explicit 403.
func (h *Handler) respondError(w http.ResponseWriter, err error, action string, hideDenied bool) {
	var denied *rbac.PlantAccessDeniedError
	switch {
	case errors.As(err, &denied):
		if hideDenied {
			httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "workflow not found")
			return
		}
		httpx.Error(w, http.StatusForbidden, httpx.CodeAccessDenied, denied.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "workflow not found")
	case errors.Is(err, ErrUnknownTeam):
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, err.Error())
	case errors.Is(err, ErrInactivePlant):
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "plant is not active")
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
	}
}
