package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Dinesh-Das/QR-sub002/internal/platform/httpx"
	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
	"github.com/Dinesh-Das/QR-sub002/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	access         rbac.AccessLoader
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance. access is used to prewarm
// the caller's access snapshot right after login.
func NewHandler(logger *slog.Logger, service *Service, access rbac.AccessLoader, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		access:         access,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
	CSRFToken string   `json:"csrf_token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeBadRequest, "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, httpx.CodeValidation, "username and password are required")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.Error(w, http.StatusUnauthorized, httpx.CodeInvalidCredentials, "Invalid username or password")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Error(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
		return
	}
	sess.SetUser(user.Username)

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	csrfToken, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Warn("issue csrf token", slog.Any("error", err))
	}

	resp := loginResponse{Username: user.Username, CSRFToken: csrfToken}
	if h.access != nil {
		// Prewarm the access snapshot so the first authorized call does
		// not pay the store round trip.
		if access, err := h.access.Load(r.Context(), user.Username); err == nil {
			for _, role := range access.Roles {
				resp.Roles = append(resp.Roles, string(role))
			}
		} else if h.logger != nil {
			h.logger.Warn("prewarm access snapshot", slog.Any("error", err))
		}
	}

	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	PrimaryRole string   `json:"primary_role"`
	Plants      []string `json:"plants"`
	IsAdmin     bool     `json:"is_admin"`
}

// handleMe reports the caller's resolved access. The auth prefix is
// exempt from the gatekeeper, so the principal check happens here.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	resolver := rbac.Resolver{Loader: h.access}
	ac, err := resolver.ResolveRequest(r)
	if err != nil {
		if errors.Is(err, rbac.ErrAuthenticationRequired) {
			httpx.Error(w, http.StatusForbidden, httpx.CodeAuthRequired, rbac.ErrAuthenticationRequired.Error())
			return
		}
		var resErr *rbac.RoleResolutionError
		if errors.As(err, &resErr) {
			httpx.Error(w, http.StatusForbidden, httpx.CodeAccessDenied, "Access denied. No valid role assignment for this account")
			return
		}
		h.logger.Error("resolve current principal", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, httpx.CodeAuthorizationError, "Authorization check failed")
		return
	}

	resp := meResponse{
		Username:    ac.Username,
		PrimaryRole: string(ac.PrimaryRole),
		Plants:      ac.Plants,
		IsAdmin:     ac.IsAdmin,
	}
	for _, role := range ac.Roles {
		resp.Roles = append(resp.Roles, string(role))
	}
	httpx.JSON(w, http.StatusOK, resp)
}
