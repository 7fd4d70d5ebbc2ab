package users

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
	"github.com/Dinesh-Das/QR-sub002/internal/shared"
)

// Handler manages account administration endpoints.
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

// MountRoutes registers account administration routes. The whole
// surface is restricted to administrators.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireRole(rbac.RoleAdmin))
		r.Get("/", h.listAccounts)
		r.Post("/", h.createAccount)
		r.Get("/{id}", h.showAccount)
		r.Put("/{id}", h.updateAccount)
		r.Post("/{id}/activate", h.activateAccount)
		r.Post("/{id}/deactivate", h.deactivateAccount)
		r.Put("/{id}/roles", h.assignRoles)
		r.Put("/{id}/plants", h.assignPlants)
	})
}

// MountPlantAccessRoutes registers the plant-access probe. Plant users
// may probe their own plants; the gatekeeper has already checked the
// plant binding in the path before this gate runs.
func (h *Handler) MountPlantAccessRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireRole(rbac.RolePlant))
		r.Get("/user/{id}/has-access/{plantCode}", h.probePlantAccess)
	})
}

type createAccountRequest struct {
	Username     string `json:"username" validate:"required,min=3,max=64"`
	Email        string `json:"email" validate:"required,email"`
	FullName     string `json:"full_name" validate:"required,max=128"`
	Password     string `json:"password" validate:"required,min=8"`
	PrimaryRole  string `json:"primary_role"`
	PrimaryPlant string `json:"primary_plant"`
}

type updateAccountRequest struct {
	Email        string `json:"email" validate:"required,email"`
	FullName     string `json:"full_name" validate:"required,max=128"`
	PrimaryRole  string `json:"primary_role"`
	PrimaryPlant string `json:"primary_plant"`
}

type assignRolesRequest struct {
	RoleIDs []int64 `json:"role_ids" validate:"required"`
}

type assignPlantsRequest struct {
	Plants []string `json:"plants" validate:"required"`
}

type accountView struct {
	ID           int64          `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	FullName     string         `json:"full_name"`
	Active       bool           `json:"active"`
	PrimaryRole  string         `json:"primary_role"`
	PrimaryPlant string         `json:"primary_plant"`
	Roles        []roleRefView  `json:"roles,omitempty"`
	Plants       []string       `json:"plants,omitempty"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type roleRefView struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

func toAccountView(account Account) accountView {
	view := accountView{
		ID:           account.ID,
		Username:     account.Username,
		Email:        account.Email,
		FullName:     account.FullName,
		Active:       account.Active,
		PrimaryRole:  string(account.PrimaryRole),
		PrimaryPlant: account.PrimaryPlant,
		Plants:       account.Plants,
		LastLoginAt:  account.LastLoginAt,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}
	for _, role := range account.Roles {
		view.Roles = append(view.Roles, roleRefView{ID: role.ID, Name: role.Name, Type: string(role.Type), Enabled: role.Enabled})
	}
	return view
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	search := r.URL.Query().Get("search")

	accounts, total, err := h.service.ListAccounts(r.Context(), page, perPage, search)
	if err != nil {
		h.respondError(w, err, "list accounts")
		return
	}

	views := make([]accountView, 0, len(accounts))
	for _, account := range accounts {
		views = append(views, toAccountView(account))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users":      views,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) showAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "get account")
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountView(account))
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	primaryRole, ok := h.optionalRoleType(w, req.PrimaryRole)
	if !ok {
		return
	}

	account, err := h.service.CreateAccount(r.Context(), CreateAccountInput{
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		Password:     req.Password,
		PrimaryRole:  primaryRole,
		PrimaryPlant: req.PrimaryPlant,
	})
	if err != nil {
		h.respondError(w, err, "create account")
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountView(account))
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req updateAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	primaryRole, ok := h.optionalRoleType(w, req.PrimaryRole)
	if !ok {
		return
	}

	account, err := h.service.UpdateAccount(r.Context(), id, UpdateAccountInput{
		Email:        req.Email,
		FullName:     req.FullName,
		PrimaryRole:  primaryRole,
		PrimaryPlant: req.PrimaryPlant,
	})
	if err != nil {
		h.respondError(w, err, "update account")
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountView(account))
}

func (h *Handler) activateAccount(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	if err := h.service.SetAccountActive(r.Context(), id, active); err != nil {
		h.respondError(w, err, "set account active")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) assignRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req assignRolesRequest
	if !h.decode(w, r, &req) {
		return
	}
	account, err := h.service.AssignRoles(r.Context(), id, req.RoleIDs)
	if err != nil {
		h.respondError(w, err, "assign roles")
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountView(account))
}

func (h *Handler) assignPlants(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req assignPlantsRequest
	if !h.decode(w, r, &req) {
		return
	}
	account, err := h.service.AssignPlants(r.Context(), id, req.Plants)
	if err != nil {
		h.respondError(w, err, "assign plants")
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountView(account))
}

func (h *Handler) probePlantAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	plantCode := chi.URLParam(r, "plantCode")
	if plantCode == "" {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeBadRequest, "plant code required")
		return
	}

	result, err := h.service.HasPlantAccess(r.Context(), id, plantCode)
	if err != nil {
		h.respondError(w, err, "probe plant access")
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeBadRequest, "invalid user ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeBadRequest, "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "request failed validation")
		return false
	}
	return true
}

func (h *Handler) optionalRoleType(w http.ResponseWriter, raw string) (rbac.RoleType, bool) {
	if raw == "" {
		return "", true
	}
	roleType, err := rbac.ParseRoleType(raw)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "unknown role type: "+raw)
		return "", false
	}
	return roleType, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "user not found")
	case errors.Is(err, ErrDuplicateUsername):
		httpx.Error(w, http.StatusConflict, httpx.CodeDuplicate, "username already exists")
	case errors.Is(err, ErrUnknownRole):
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "assignment references an unknown role")
	case errors.Is(err, ErrUnknownPlant):
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "assignment references an unknown plant")
	case errors.Is(err, ErrNotPlantScoped):
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "plants can only be assigned to plant-scoped accounts")
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
	}
}
