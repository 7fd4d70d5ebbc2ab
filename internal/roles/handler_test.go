package roles_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dinesh-Das/QR-sub002/internal/audit"
	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
	"github.com/Dinesh-Das/QR-sub002/internal/roles"
)

type catalogLoader struct{}

func (catalogLoader) Load(ctx context.Context, username string) (*rbac.UserAccess, error) {
	switch username {
	case "root":
		return &rbac.UserAccess{
			UserID:      1,
			Username:    "root",
			Roles:       []rbac.RoleType{rbac.RoleAdmin},
			PrimaryRole: rbac.RoleAdmin,
		}, nil
	case "carol":
		return &rbac.UserAccess{
			UserID:      2,
			Username:    "carol",
			Roles:       []rbac.RoleType{rbac.RoleCQS},
			PrimaryRole: rbac.RoleCQS,
		}, nil
	}
	return nil, rbac.ErrNotFound
}

func newCatalogServer(t *testing.T) (*chi.Mux, *stubRoleRepo, *recordingInvalidator) {
	t.Helper()
	repo := newStubRoleRepo()
	inv := &recordingInvalidator{}
	svc := roles.NewService(repo, inv, testLogger())
	gate := rbac.Gate{
		Resolver: rbac.Resolver{Loader: catalogLoader{}},
		Audit:    audit.NopRecorder{},
		Logger:   testLogger(),
	}
	handler := roles.NewHandler(testLogger(), svc, gate)

	router := chi.NewRouter()
	router.Route("/api/v1/admin/roles", handler.MountRoutes)
	return router, repo, inv
}

func doAs(t *testing.T, router http.Handler, username, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if username != "" {
		req = req.WithContext(rbac.ContextWithPrincipal(req.Context(), username))
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestCatalogRequiresAdmin(t *testing.T) {
	router, _, _ := newCatalogServer(t)

	res := doAs(t, router, "carol", http.MethodGet, "/api/v1/admin/roles/", "")
	require.Equal(t, http.StatusForbidden, res.Code)

	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &envelope))
	assert.Equal(t, "access_denied", envelope.Error)
	assert.Equal(t, "Access denied. Required role: Administrator", envelope.Message)
}

func TestCatalogCreateAndList(t *testing.T) {
	router, _, _ := newCatalogServer(t)

	res := doAs(t, router, "root", http.MethodPost, "/api/v1/admin/roles/",
		`{"name":"quality_reviewer","description":"reviews MSQ answers","type":"CQS_ROLE","enabled":true}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var created struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		Label     string `json:"label"`
		Type      string `json:"type"`
		TypeLabel string `json:"type_label"`
		Enabled   bool   `json:"enabled"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))
	assert.Equal(t, "quality_reviewer", created.Name)
	assert.Equal(t, "Quality Reviewer", created.Label)
	assert.Equal(t, "CQS_ROLE", created.Type)
	assert.Equal(t, "CQS Role", created.TypeLabel)
	assert.True(t, created.Enabled)

	res = doAs(t, router, "root", http.MethodGet, "/api/v1/admin/roles/", "")
	require.Equal(t, http.StatusOK, res.Code)
	var listed struct {
		Roles []struct {
			Name string `json:"name"`
		} `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &listed))
	require.Len(t, listed.Roles, 1)
	assert.Equal(t, "quality_reviewer", listed.Roles[0].Name)
}

func TestCatalogCreateDuplicate(t *testing.T) {
	router, _, _ := newCatalogServer(t)

	body := `{"name":"auditor","type":"CQS_ROLE","enabled":true}`
	res := doAs(t, router, "root", http.MethodPost, "/api/v1/admin/roles/", body)
	require.Equal(t, http.StatusCreated, res.Code)

	res = doAs(t, router, "root", http.MethodPost, "/api/v1/admin/roles/", body)
	require.Equal(t, http.StatusConflict, res.Code)
	assert.Contains(t, res.Body.String(), "duplicate")
}

func TestCatalogDeleteRefusedWhileAssigned(t *testing.T) {
	router, repo, _ := newCatalogServer(t)
	repo.roles[7] = rbac.Role{ID: 7, Name: "auditor", Type: rbac.RoleCQS, Enabled: true}
	repo.holders[7] = []string{"carol"}

	res := doAs(t, router, "root", http.MethodDelete, "/api/v1/admin/roles/7", "")
	require.Equal(t, http.StatusConflict, res.Code)
	assert.Contains(t, res.Body.String(), "disable it instead")

	// A refused delete leaves the catalog entry in place.
	res = doAs(t, router, "root", http.MethodGet, "/api/v1/admin/roles/7", "")
	require.Equal(t, http.StatusOK, res.Code)
}

func TestCatalogUnknownRoleType(t *testing.T) {
	router, _, _ := newCatalogServer(t)

	res := doAs(t, router, "root", http.MethodPost, "/api/v1/admin/roles/",
		`{"name":"mystery","type":"SUPER_ROLE","enabled":true}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "validation_failed")
	assert.Contains(t, res.Body.String(), "SUPER_ROLE")
}

func TestCatalogShowMissing(t *testing.T) {
	router, _, _ := newCatalogServer(t)

	res := doAs(t, router, "root", http.MethodGet, "/api/v1/admin/roles/99", "")
	require.Equal(t, http.StatusNotFound, res.Code)
	assert.Contains(t, res.Body.String(), "not_found")
}

func TestCatalogDisableInvalidatesHolders(t *testing.T) {
	router, repo, inv := newCatalogServer(t)
	repo.roles[7] = rbac.Role{ID: 7, Name: "operator", Type: rbac.RolePlant, Enabled: true}
	repo.holders[7] = []string{"alice"}

	res := doAs(t, router, "root", http.MethodPost, "/api/v1/admin/roles/7/disable", "")
	require.Equal(t, http.StatusNoContent, res.Code)
	assert.Equal(t, []string{"alice"}, inv.seen())
}

func TestCatalogAnonymousRejected(t *testing.T) {
	router, _, _ := newCatalogServer(t)

	res := doAs(t, router, "", http.MethodGet, "/api/v1/admin/roles/", "")
	require.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "Authentication required to access this resource")
}
