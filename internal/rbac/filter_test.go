package rbac

import (
	"errors"
	"testing"
)

type testDoc struct {
	ID    int
	Plant string
}

func (d testDoc) PlantCode() string { return d.Plant }

func plantCtx(plants ...string) *AuthContext {
	return &AuthContext{
		Username:    "plantuser",
		Roles:       []RoleType{RolePlant},
		PrimaryRole: RolePlant,
		Plants:      plants,
	}
}

func TestFilterListPlantScoped(t *testing.T) {
	ctx := plantCtx("1001", "1003")
	items := []testDoc{
		{ID: 1, Plant: "1001"},
		{ID: 2, Plant: "1002"},
		{ID: 3, Plant: "1003"},
		{ID: 4, Plant: "1001"},
	}
	got := FilterList(ctx, ListScope("plant_code"), items)
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	// Input order must be preserved.
	if got[0].ID != 1 || got[1].ID != 3 || got[2].ID != 4 {
		t.Fatalf("order not preserved: %+v", got)
	}
	// The input slice itself stays intact.
	if len(items) != 4 || items[1].ID != 2 {
		t.Fatalf("input mutated: %+v", items)
	}
}

func TestFilterListEmptyAssignmentMeansNoAccess(t *testing.T) {
	got := FilterList(plantCtx(), ListScope("plant_code"), []testDoc{{ID: 1, Plant: "1001"}})
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestFilterListNonPlantRolePassesThrough(t *testing.T) {
	ctx := testCtx(RoleCQS)
	items := []testDoc{{ID: 1, Plant: "1001"}, {ID: 2, Plant: "1002"}}
	got := FilterList(ctx, ListScope("plant_code"), items)
	if len(got) != 2 {
		t.Fatalf("expected pass-through, got %+v", got)
	}
}

func TestFilterListAdminPassesThrough(t *testing.T) {
	items := []testDoc{{ID: 1, Plant: "1001"}, {ID: 2, Plant: "1002"}}
	got := FilterList(testCtx(RoleAdmin), ListScope("plant_code"), items)
	if len(got) != 2 {
		t.Fatalf("expected pass-through for admin, got %+v", got)
	}
}

func TestFilterListForAllRoles(t *testing.T) {
	// With the scope widened to every role, a CQS user with no plants
	// sees nothing.
	ctx := testCtx(RoleCQS)
	items := []testDoc{{ID: 1, Plant: "1001"}}
	got := FilterList(ctx, ListScope("plant_code").ForAllRoles(), items)
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestCheckSingleDenied(t *testing.T) {
	ctx := plantCtx("1001")
	err := CheckSingle(ctx, SingleScope("plant_code"), testDoc{ID: 7, Plant: "1002"})
	if err == nil {
		t.Fatal("expected denial")
	}
	var denied *PlantAccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected PlantAccessDeniedError, got %T", err)
	}
	if denied.RequestedPlant != "1002" {
		t.Fatalf("requested plant = %q", denied.RequestedPlant)
	}
	if len(denied.AssignedPlants) != 1 || denied.AssignedPlants[0] != "1001" {
		t.Fatalf("assigned plants = %v", denied.AssignedPlants)
	}
}

func TestCheckSingleAllowed(t *testing.T) {
	ctx := plantCtx("1001", "1002")
	if err := CheckSingle(ctx, SingleScope("plant_code"), testDoc{ID: 7, Plant: "1002"}); err != nil {
		t.Fatalf("unexpected denial: %v", err)
	}
}

func TestCheckSingleNonPlantRole(t *testing.T) {
	if err := CheckSingle(testCtx(RoleTech), SingleScope("plant_code"), testDoc{ID: 7, Plant: "1002"}); err != nil {
		t.Fatalf("expected no-op for non-plant role, got %v", err)
	}
}

func TestCheckSingleAdmin(t *testing.T) {
	if err := CheckSingle(testCtx(RoleAdmin), SingleScope("plant_code"), testDoc{ID: 7, Plant: "1002"}); err != nil {
		t.Fatalf("expected admin pass-through, got %v", err)
	}
}
