package plants_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Dinesh-Das/QR-sub002/internal/plants"
)

type stubPlantRepo struct {
	plants map[string]plants.Plant
}

func newStubPlantRepo() *stubPlantRepo {
	return &stubPlantRepo{plants: map[string]plants.Plant{
		"1001": {Code: "1001", Name: "Jhagadia", Active: true},
		"1002": {Code: "1002", Name: "Dahej", Active: true},
		"1003": {Code: "1003", Name: "Vadodara", Active: false},
	}}
}

func (s *stubPlantRepo) ListPlants(ctx context.Context, activeOnly bool) ([]plants.Plant, error) {
	var out []plants.Plant
	for _, code := range []string{"1001", "1002", "1003"} {
		p, ok := s.plants[code]
		if !ok {
			continue
		}
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *stubPlantRepo) GetPlant(ctx context.Context, code string) (plants.Plant, error) {
	p, ok := s.plants[code]
	if !ok {
		return plants.Plant{}, plants.ErrNotFound
	}
	return p, nil
}

func (s *stubPlantRepo) CreatePlant(ctx context.Context, code, name string) (plants.Plant, error) {
	if _, ok := s.plants[code]; ok {
		return plants.Plant{}, plants.ErrDuplicateCode
	}
	p := plants.Plant{Code: code, Name: name, Active: true}
	s.plants[code] = p
	return p, nil
}

func (s *stubPlantRepo) SetPlantActive(ctx context.Context, code string, active bool) error {
	p, ok := s.plants[code]
	if !ok {
		return plants.ErrNotFound
	}
	p.Active = active
	s.plants[code] = p
	return nil
}

func TestCreatePlantValidatesCode(t *testing.T) {
	svc := plants.NewService(newStubPlantRepo())

	for _, code := range []string{"", "10", "10015", "10a1", "plant"} {
		if _, err := svc.CreatePlant(context.Background(), code, "Somewhere"); !errors.Is(err, plants.ErrInvalidCode) {
			t.Errorf("CreatePlant(%q) expected ErrInvalidCode, got %v", code, err)
		}
	}

	plant, err := svc.CreatePlant(context.Background(), " 1004 ", " Panoli ")
	if err != nil {
		t.Fatalf("create plant: %v", err)
	}
	if plant.Code != "1004" || plant.Name != "Panoli" {
		t.Fatalf("expected trimmed plant, got %+v", plant)
	}
}

func TestCreatePlantDuplicate(t *testing.T) {
	svc := plants.NewService(newStubPlantRepo())
	if _, err := svc.CreatePlant(context.Background(), "1001", "Again"); !errors.Is(err, plants.ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestListPlantsActiveOnly(t *testing.T) {
	svc := plants.NewService(newStubPlantRepo())

	all, err := svc.ListPlants(context.Background(), false)
	if err != nil {
		t.Fatalf("list plants: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 plants, got %d", len(all))
	}

	active, err := svc.ListPlants(context.Background(), true)
	if err != nil {
		t.Fatalf("list active plants: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active plants, got %d", len(active))
	}
}

func TestIsActiveCode(t *testing.T) {
	svc := plants.NewService(newStubPlantRepo())

	cases := map[string]bool{
		"1001": true,
		"1003": false,
		"9999": false,
	}
	for code, want := range cases {
		got, err := svc.IsActiveCode(context.Background(), code)
		if err != nil {
			t.Fatalf("IsActiveCode(%s): %v", code, err)
		}
		if got != want {
			t.Errorf("IsActiveCode(%s) = %v, want %v", code, got, want)
		}
	}
}
