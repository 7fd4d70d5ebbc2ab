package roles_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
	"github.com/Dinesh-Das/QR-sub002/internal/roles"
)

type stubRoleRepo struct {
	mu      sync.Mutex
	roles   map[int64]rbac.Role
	holders map[int64][]string
	nextID  int64
}

func newStubRoleRepo() *stubRoleRepo {
	return &stubRoleRepo{roles: make(map[int64]rbac.Role), holders: make(map[int64][]string), nextID: 1}
}

func (s *stubRoleRepo) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]rbac.Role, 0, len(s.roles))
	for _, role := range s.roles {
		out = append(out, role)
	}
	return out, nil
}

func (s *stubRoleRepo) GetRole(ctx context.Context, id int64) (rbac.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[id]
	if !ok {
		return rbac.Role{}, roles.ErrNotFound
	}
	return role, nil
}

func (s *stubRoleRepo) CreateRole(ctx context.Context, name, description string, roleType rbac.RoleType, enabled bool) (rbac.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if existing.Name == name {
			return rbac.Role{}, roles.ErrDuplicateName
		}
	}
	role := rbac.Role{ID: s.nextID, Name: name, Description: description, Type: roleType, Enabled: enabled}
	s.roles[role.ID] = role
	s.nextID++
	return role, nil
}

func (s *stubRoleRepo) UpdateRole(ctx context.Context, id int64, name, description string, roleType rbac.RoleType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[id]
	if !ok {
		return roles.ErrNotFound
	}
	role.Name = name
	role.Description = description
	role.Type = roleType
	s.roles[id] = role
	return nil
}

func (s *stubRoleRepo) SetRoleEnabled(ctx context.Context, id int64, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[id]
	if !ok {
		return roles.ErrNotFound
	}
	role.Enabled = enabled
	s.roles[id] = role
	return nil
}

func (s *stubRoleRepo) DeleteRole(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[id]; !ok {
		return roles.ErrNotFound
	}
	if len(s.holders[id]) > 0 {
		return roles.ErrRoleAssigned
	}
	delete(s.roles, id)
	return nil
}

func (s *stubRoleRepo) UsernamesWithRole(ctx context.Context, id int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.holders[id]...), nil
}

type recordingInvalidator struct {
	mu        sync.Mutex
	usernames []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usernames = append(r.usernames, username)
}

func (r *recordingInvalidator) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.usernames...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateRoleTrimsInput(t *testing.T) {
	repo := newStubRoleRepo()
	svc := roles.NewService(repo, nil, testLogger())

	role, err := svc.CreateRole(context.Background(), "  quality_reviewer  ", " reviews MSQ answers ", rbac.RoleCQS, true)
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if role.Name != "quality_reviewer" {
		t.Fatalf("expected trimmed name, got %q", role.Name)
	}
	if role.Description != "reviews MSQ answers" {
		t.Fatalf("expected trimmed description, got %q", role.Description)
	}
}

func TestCreateRoleDuplicateName(t *testing.T) {
	repo := newStubRoleRepo()
	svc := roles.NewService(repo, nil, testLogger())

	if _, err := svc.CreateRole(context.Background(), "auditor", "", rbac.RoleCQS, true); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreateRole(context.Background(), "auditor", "", rbac.RoleTech, true)
	if !errors.Is(err, roles.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestUpdateRoleInvalidatesHolders(t *testing.T) {
	repo := newStubRoleRepo()
	repo.roles[1] = rbac.Role{ID: 1, Name: "operator", Type: rbac.RolePlant, Enabled: true}
	repo.holders[1] = []string{"alice", "bob"}
	inv := &recordingInvalidator{}
	svc := roles.NewService(repo, inv, testLogger())

	role, err := svc.UpdateRole(context.Background(), 1, "operator", "floor operator", rbac.RolePlant)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if role.Description != "floor operator" {
		t.Fatalf("expected updated description, got %q", role.Description)
	}
	seen := inv.seen()
	if len(seen) != 2 || seen[0] != "alice" || seen[1] != "bob" {
		t.Fatalf("expected holders invalidated, got %v", seen)
	}
}

func TestDisableRoleInvalidatesHolders(t *testing.T) {
	repo := newStubRoleRepo()
	repo.roles[2] = rbac.Role{ID: 2, Name: "auditor", Type: rbac.RoleCQS, Enabled: true}
	repo.holders[2] = []string{"carol"}
	inv := &recordingInvalidator{}
	svc := roles.NewService(repo, inv, testLogger())

	if err := svc.SetRoleEnabled(context.Background(), 2, false); err != nil {
		t.Fatalf("disable role: %v", err)
	}
	if got, _ := repo.GetRole(context.Background(), 2); got.Enabled {
		t.Fatalf("role should be disabled")
	}
	if seen := inv.seen(); len(seen) != 1 || seen[0] != "carol" {
		t.Fatalf("expected carol invalidated, got %v", seen)
	}
}

func TestDeleteRoleRefusedWhileAssigned(t *testing.T) {
	repo := newStubRoleRepo()
	repo.roles[3] = rbac.Role{ID: 3, Name: "planner", Type: rbac.RoleJVC, Enabled: true}
	repo.holders[3] = []string{"dave", "erin"}
	svc := roles.NewService(repo, &recordingInvalidator{}, testLogger())

	if err := svc.DeleteRole(context.Background(), 3); !errors.Is(err, roles.ErrRoleAssigned) {
		t.Fatalf("expected ErrRoleAssigned, got %v", err)
	}
	if _, err := svc.GetRole(context.Background(), 3); err != nil {
		t.Fatalf("role must survive a refused delete: %v", err)
	}
}

func TestDeleteRoleUnassigned(t *testing.T) {
	repo := newStubRoleRepo()
	repo.roles[3] = rbac.Role{ID: 3, Name: "planner", Type: rbac.RoleJVC, Enabled: true}
	inv := &recordingInvalidator{}
	svc := roles.NewService(repo, inv, testLogger())

	if err := svc.DeleteRole(context.Background(), 3); err != nil {
		t.Fatalf("delete role: %v", err)
	}
	if _, err := svc.GetRole(context.Background(), 3); !errors.Is(err, roles.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// Nothing held the role, so no snapshots needed invalidation.
	if seen := inv.seen(); len(seen) != 0 {
		t.Fatalf("expected no invalidations, got %v", seen)
	}
}

func TestSetRoleEnabledMissing(t *testing.T) {
	svc := roles.NewService(newStubRoleRepo(), nil, testLogger())
	if err := svc.SetRoleEnabled(context.Background(), 404, true); !errors.Is(err, roles.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDisplayLabel(t *testing.T) {
	cases := map[string]string{
		"quality_reviewer": "Quality Reviewer",
		"  operator ":      "Operator",
		"JVC_COORDINATOR":  "Jvc Coordinator",
	}
	for input, want := range cases {
		if got := roles.DisplayLabel(input); got != want {
			t.Errorf("DisplayLabel(%q) = %q, want %q", input, got, want)
		}
	}
}
