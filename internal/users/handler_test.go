package users_test

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
	"github.com/Dinesh-Das/QR-sub002/internal/users"
)

type adminLoader struct{}

func (adminLoader) Load(ctx context.Context, username string) (*rbac.UserAccess, error) {
	switch username {
	case "root":
		return &rbac.UserAccess{
			UserID:      1,
			Username:    "root",
			Roles:       []rbac.RoleType{rbac.RoleAdmin},
			PrimaryRole: rbac.RoleAdmin,
		}, nil
	case "alice":
		return &rbac.UserAccess{
			UserID:       42,
			Username:     "alice",
			Roles:        []rbac.RoleType{rbac.RolePlant},
			PrimaryRole:  rbac.RolePlant,
			Plants:       []string{"1001"},
			PrimaryPlant: "1001",
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

func newAccountServer(t *testing.T) (*chi.Mux, *stubAccountRepo, *recordingInvalidator) {
	t.Helper()
	repo := newStubAccountRepo()
	inv := &recordingInvalidator{}
	svc := users.NewService(repo, inv, testLogger())
	gate := rbac.Gate{
		Resolver: rbac.Resolver{Loader: adminLoader{}},
		Audit:    audit.NopRecorder{},
		Logger:   testLogger(),
	}
	handler := users.NewHandler(testLogger(), svc, gate)

	router := chi.NewRouter()
	router.Route("/api/v1/admin/users", handler.MountRoutes)
	router.Route("/api/v1/admin/plant-access", handler.MountPlantAccessRoutes)
	return router, repo, inv
}

func requestAs(t *testing.T, router http.Handler, username, method, path, body string) *httptest.ResponseRecorder {
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

func TestAccountAdminRequiresAdmin(t *testing.T) {
	router, _, _ := newAccountServer(t)

	res := requestAs(t, router, "carol", http.MethodGet, "/api/v1/admin/users/", "")
	require.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "Access denied. Required role: Administrator")
}

func TestAccountCreateAndShow(t *testing.T) {
	router, _, _ := newAccountServer(t)

	res := requestAs(t, router, "root", http.MethodPost, "/api/v1/admin/users/",
		`{"username":"dana","email":"dana@plant.local","full_name":"Dana Hale","password":"SuperSecret1","primary_role":"JVC_ROLE"}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var created struct {
		ID          int64  `json:"id"`
		Username    string `json:"username"`
		PrimaryRole string `json:"primary_role"`
		Active      bool   `json:"active"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))
	assert.Equal(t, "dana", created.Username)
	assert.Equal(t, "JVC_ROLE", created.PrimaryRole)
	assert.True(t, created.Active)

	res = requestAs(t, router, "root", http.MethodGet, "/api/v1/admin/users/1", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "dana")
}

func TestAccountCreateDuplicateUsername(t *testing.T) {
	router, _, _ := newAccountServer(t)

	body := `{"username":"dana","email":"dana@plant.local","full_name":"Dana Hale","password":"SuperSecret1"}`
	res := requestAs(t, router, "root", http.MethodPost, "/api/v1/admin/users/", body)
	require.Equal(t, http.StatusCreated, res.Code)

	res = requestAs(t, router, "root", http.MethodPost, "/api/v1/admin/users/", body)
	require.Equal(t, http.StatusConflict, res.Code)
	assert.Contains(t, res.Body.String(), "duplicate")
}

func TestAccountCreateRejectsWeakRequest(t *testing.T) {
	router, _, _ := newAccountServer(t)

	res := requestAs(t, router, "root", http.MethodPost, "/api/v1/admin/users/",
		`{"username":"x","email":"not-an-email","full_name":"","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "validation_failed")
}

func TestAccountAssignPlantsRoute(t *testing.T) {
	router, repo, inv := newAccountServer(t)
	seedAccount(repo, users.Account{
		ID:       42,
		Username: "alice",
		Active:   true,
		Roles:    []users.AssignedRole{{ID: 2, Name: "operator", Type: rbac.RolePlant, Enabled: true}},
	})

	res := requestAs(t, router, "root", http.MethodPut, "/api/v1/admin/users/42/plants",
		`{"plants":["1002","1001"]}`)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	var updated struct {
		Plants []string `json:"plants"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &updated))
	assert.Equal(t, []string{"1002", "1001"}, updated.Plants)
	assert.Equal(t, []string{"alice"}, inv.seen())
}

func TestAccountAssignPlantsNotScoped(t *testing.T) {
	router, repo, _ := newAccountServer(t)
	seedAccount(repo, users.Account{
		ID:       2,
		Username: "carol",
		Active:   true,
		Roles:    []users.AssignedRole{{ID: 3, Name: "auditor", Type: rbac.RoleCQS, Enabled: true}},
	})

	res := requestAs(t, router, "root", http.MethodPut, "/api/v1/admin/users/2/plants",
		`{"plants":["1001"]}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "plant-scoped")
}

func TestPlantAccessProbe(t *testing.T) {
	router, repo, _ := newAccountServer(t)
	seedAccount(repo, users.Account{
		ID:       42,
		Username: "alice",
		Active:   true,
		Roles:    []users.AssignedRole{{ID: 2, Name: "operator", Type: rbac.RolePlant, Enabled: true}},
		Plants:   []string{"1001"},
	})

	res := requestAs(t, router, "root", http.MethodGet, "/api/v1/admin/plant-access/user/42/has-access/1002", "")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	var probe users.PlantAccessResult
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &probe))
	assert.Equal(t, int64(42), probe.UserID)
	assert.Equal(t, "1002", probe.PlantCode)
	assert.False(t, probe.HasAccess)
	assert.Equal(t, []string{"1001"}, probe.AssignedPlants)

	res = requestAs(t, router, "root", http.MethodGet, "/api/v1/admin/plant-access/user/42/has-access/1001", "")
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &probe))
	assert.True(t, probe.HasAccess)
}

func TestPlantAccessProbeOpenToPlantRole(t *testing.T) {
	router, repo, _ := newAccountServer(t)
	seedAccount(repo, users.Account{
		ID:       42,
		Username: "alice",
		Active:   true,
		Roles:    []users.AssignedRole{{ID: 2, Name: "operator", Type: rbac.RolePlant, Enabled: true}},
		Plants:   []string{"1001"},
	})

	// The route gate admits PLANT_ROLE; the path plant binding is the
	// gatekeeper's job and is enforced before routing in production.
	res := requestAs(t, router, "alice", http.MethodGet, "/api/v1/admin/plant-access/user/42/has-access/1001", "")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = requestAs(t, router, "carol", http.MethodGet, "/api/v1/admin/plant-access/user/42/has-access/1001", "")
	require.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, res.Body.String(), "Access denied. Required role: Plant Role")
}
