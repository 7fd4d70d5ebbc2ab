package plants

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Dinesh-Das/QR-sub002/internal/platform/httpx"
	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
)

// Handler manages plant master endpoints.
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

// MountRoutes registers plant master routes, restricted to
// administrators.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireRole(rbac.RoleAdmin))
		r.Get("/", h.listPlants)
		r.Post("/", h.createPlant)
		r.Get("/{code}", h.showPlant)
		r.Post("/{code}/activate", h.activatePlant)
		r.Post("/{code}/deactivate", h.deactivatePlant)
	})
}

type plantRequest struct {
	Code string `json:"code" validate:"required,len=4,numeric"`
	Name string `json:"name" validate:"required,max=128"`
}

func (h *Handler) listPlants(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	list, err := h.service.ListPlants(r.Context(), activeOnly)
	if err != nil {
		h.respondError(w, err, "list plants")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"plants": list})
}

func (h *Handler) showPlant(w http.ResponseWriter, r *http.Request) {
	plant, err := h.service.GetPlant(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, err, "get plant")
		return
	}
	httpx.JSON(w, http.StatusOK, plant)
}

func (h *Handler) createPlant(w http.ResponseWriter, r *http.Request) {
	var req plantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeBadRequest, "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "code must be four digits and name is required")
		return
	}

	plant, err := h.service.CreatePlant(r.Context(), req.Code, req.Name)
	if err != nil {
		h.respondError(w, err, "create plant")
		return
	}
	httpx.JSON(w, http.StatusCreated, plant)
}

func (h *Handler) activatePlant(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) deactivatePlant(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	if err := h.service.SetPlantActive(r.Context(), chi.URLParam(r, "code"), active); err != nil {
		h.respondError(w, err, "set plant active")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "plant not found")
	case errors.Is(err, ErrDuplicateCode):
		httpx.Error(w, http.StatusConflict, httpx.CodeDuplicate, "plant code already exists")
	case errors.Is(err, ErrInvalidCode):
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "plant code must be four digits")
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
	}
}
