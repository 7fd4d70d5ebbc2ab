package rbac

import (
	"errors"
	"testing"
)

func testCtx(roles ...RoleType) *AuthContext {
	ac := &AuthContext{Username: "tester", Roles: roles}
	if len(roles) > 0 {
		ac.PrimaryRole = roles[0]
	}
	ac.IsAdmin = ac.HasRole(RoleAdmin)
	return ac
}

func TestSatisfies(t *testing.T) {
	cases := []struct {
		name   string
		ctx    *AuthContext
		policy AccessPolicy
		want   bool
	}{
		{"any-of match", testCtx(RoleJVC), RequireAnyRole(RoleAdmin, RoleJVC), true},
		{"any-of no match", testCtx(RoleCQS), RequireAnyRole(RoleAdmin, RoleJVC), false},
		{"single role match", testCtx(RolePlant), RequireRole(RolePlant), true},
		{"single role no match", testCtx(RoleTech), RequireRole(RolePlant), false},
		{"all-of complete", testCtx(RoleCQS, RoleTech), RequireAllRoles(RoleCQS, RoleTech), true},
		{"all-of partial", testCtx(RoleCQS), RequireAllRoles(RoleCQS, RoleTech), false},
		{"admin bypass", testCtx(RoleAdmin), RequireRole(RolePlant), true},
		{"admin bypass disabled", testCtx(RoleAdmin), RequireRole(RolePlant).WithoutAdminBypass(), false},
		{"admin holds role with bypass disabled", testCtx(RoleAdmin, RolePlant), RequireRole(RolePlant).WithoutAdminBypass(), true},
		{"empty any-of denies", testCtx(RoleJVC), AccessPolicy{}, false},
		{"empty all-of allows", testCtx(RoleJVC), AccessPolicy{RequireAll: true}, true},
		{"nil context", nil, RequireRole(RoleJVC), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Satisfies(tc.ctx, tc.policy); got != tc.want {
				t.Fatalf("Satisfies = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluateGrantReasons(t *testing.T) {
	dec := Evaluate(testCtx(RoleAdmin), RequireRole(RolePlant))
	if !dec.Allowed || dec.Reason != ReasonAdminBypass {
		t.Fatalf("admin bypass: got %+v", dec)
	}

	dec = Evaluate(testCtx(RoleJVC), RequireRole(RoleJVC))
	if !dec.Allowed || dec.Reason != ReasonRolesSatisfied {
		t.Fatalf("role match: got %+v", dec)
	}

	// An admin satisfying the roles directly with bypass disabled is a
	// plain role grant, not a bypass.
	dec = Evaluate(testCtx(RoleAdmin, RolePlant), RequireRole(RolePlant).WithoutAdminBypass())
	if !dec.Allowed || dec.Reason != ReasonRolesSatisfied {
		t.Fatalf("admin without bypass: got %+v", dec)
	}
}

func TestEvaluateDenialMessages(t *testing.T) {
	cases := []struct {
		name   string
		ctx    *AuthContext
		policy AccessPolicy
		want   string
	}{
		{
			"single role",
			testCtx(RoleJVC),
			RequireRole(RoleAdmin),
			"Access denied. Required role: Administrator",
		},
		{
			"one of two",
			testCtx(RoleCQS),
			RequireAnyRole(RoleAdmin, RoleJVC),
			"Access denied. Required one of: [Administrator, JVC Role]",
		},
		{
			"all of two",
			testCtx(RoleJVC),
			RequireAllRoles(RoleCQS, RoleTech),
			"Access denied. Required all of: [CQS Role, Tech Role]",
		},
		{
			"custom message verbatim",
			testCtx(RoleJVC),
			RequireRole(RoleAdmin).WithMessage("Administrators only"),
			"Administrators only",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dec := Evaluate(tc.ctx, tc.policy)
			if dec.Allowed {
				t.Fatal("expected denial")
			}
			if dec.Reason != tc.want {
				t.Fatalf("message = %q, want %q", dec.Reason, tc.want)
			}
		})
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	ctx := testCtx(RoleCQS, RolePlant)
	policy := RequireAnyRole(RoleJVC, RolePlant)
	first := Evaluate(ctx, policy)
	for i := 0; i < 3; i++ {
		if got := Evaluate(ctx, policy); got != first {
			t.Fatalf("evaluation %d = %+v, want %+v", i, got, first)
		}
	}
}

func TestRoleTypeDisplayNames(t *testing.T) {
	want := map[RoleType]string{
		RoleAdmin: "Administrator",
		RoleJVC:   "JVC Role",
		RoleCQS:   "CQS Role",
		RoleTech:  "Tech Role",
		RolePlant: "Plant Role",
	}
	for role, name := range want {
		if got := role.DisplayName(); got != name {
			t.Errorf("%s display name = %q, want %q", role, got, name)
		}
	}
}

func TestRoleTypePlantFiltering(t *testing.T) {
	for _, role := range AllRoleTypes() {
		want := role == RolePlant
		if got := role.SupportsPlantFiltering(); got != want {
			t.Errorf("%s SupportsPlantFiltering = %v, want %v", role, got, want)
		}
	}
}

func TestParseRoleType(t *testing.T) {
	role, err := ParseRoleType(" plant_role ")
	if err != nil || role != RolePlant {
		t.Fatalf("ParseRoleType = %v, %v", role, err)
	}
	if _, err := ParseRoleType("SUPERVISOR"); !errors.Is(err, ErrUnknownRoleType) {
		t.Fatalf("expected ErrUnknownRoleType, got %v", err)
	}
}
