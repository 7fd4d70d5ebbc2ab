package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Dinesh-Das/QR-sub002/internal/platform/httpx"
	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
)

// Handler manages role catalog endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      rbac.Gate
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate rbac.Gate) *Handler {
	return &Handler{logger: logger, service: service, gate: gate, validator: validator.New()}
}

// MountRoutes registers role catalog routes. The whole surface is
// restricted to administrators.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireRole(rbac.RoleAdmin))
		r.Get("/", h.listRoles)
		r.Post("/", h.createRole)
		r.Get("/{id}", h.showRole)
		r.Put("/{id}", h.updateRole)
		r.Post("/{id}/enable", h.enableRole)
		r.Post("/{id}/disable", h.disableRole)
		r.Delete("/{id}", h.deleteRole)
	})
}

type roleRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=64"`
	Description string `json:"description" validate:"max=255"`
	Type        string `json:"type" validate:"required"`
	Enabled     bool   `json:"enabled"`
}

type roleView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	TypeLabel   string    `json:"type_label"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toView(role rbac.Role) roleView {
	return roleView{
		ID:          role.ID,
		Name:        role.Name,
		Label:       DisplayLabel(role.Name),
		Description: role.Description,
		Type:        string(role.Type),
		TypeLabel:   role.Type.DisplayName(),
		Enabled:     role.Enabled,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.respondError(w, err, "list roles")
		return
	}
	views := make([]roleView, 0, len(roles))
	for _, role := range roles {
		views = append(views, toView(role))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": views})
}

func (h *Handler) showRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "get role")
		return
	}
	httpx.JSON(w, http.StatusOK, toView(role))
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	req, roleType, ok := h.decodeRole(w, r)
	if !ok {
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description, roleType, req.Enabled)
	if err != nil {
		h.respondError(w, err, "create role")
		return
	}
	httpx.JSON(w, http.StatusCreated, toView(role))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	req, roleType, ok := h.decodeRole(w, r)
	if !ok {
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description, roleType)
	if err != nil {
		h.respondError(w, err, "update role")
		return
	}
	httpx.JSON(w, http.StatusOK, toView(role))
}

func (h *Handler) enableRole(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

func (h *Handler) disableRole(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *Handler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	if err := h.service.SetRoleEnabled(r.Context(), id, enabled); err != nil {
		h.respondError(w, err, "set role enabled")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.respondError(w, err, "delete role")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) roleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeBadRequest, "invalid role ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) decodeRole(w http.ResponseWriter, r *http.Request) (roleRequest, rbac.RoleType, bool) {
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeBadRequest, "malformed JSON body")
		return req, "", false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "name and type are required")
		return req, "", false
	}
	roleType, err := rbac.ParseRoleType(req.Type)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "unknown role type: "+req.Type)
		return req, "", false
	}
	return req, roleType, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "role not found")
	case errors.Is(err, ErrDuplicateName):
		httpx.Error(w, http.StatusConflict, httpx.CodeDuplicate, "role name already exists")
	case errors.Is(err, ErrRoleAssigned):
		httpx.Error(w, http.StatusConflict, httpx.CodeConflict, "role is still assigned to accounts; disable it instead")
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
	}
}
