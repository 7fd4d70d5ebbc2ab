package plants

import (
	"context"
	"errors"
	"strings"
)

// RepositoryPort defines data access methods for the plant master.
type RepositoryPort interface {
	ListPlants(ctx context.Context, activeOnly bool) ([]Plant, error)
	GetPlant(ctx context.Context, code string) (Plant, error)
	CreatePlant(ctx context.Context, code, name string) (Plant, error)
	SetPlantActive(ctx context.Context, code string, active bool) error
}

// Service handles plant master business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListPlants returns the plant master.
func (s *Service) ListPlants(ctx context.Context, activeOnly bool) ([]Plant, error) {
	return s.repo.ListPlants(ctx, activeOnly)
}

// GetPlant returns one plant by code.
func (s *Service) GetPlant(ctx context.Context, code string) (Plant, error) {
	return s.repo.GetPlant(ctx, code)
}

// CreatePlant registers a new plant.
func (s *Service) CreatePlant(ctx context.Context, code, name string) (Plant, error) {
	code = strings.TrimSpace(code)
	if !ValidCode(code) {
		return Plant{}, ErrInvalidCode
	}
	return s.repo.CreatePlant(ctx, code, strings.TrimSpace(name))
}

// SetPlantActive retires or reinstates a plant.
func (s *Service) SetPlantActive(ctx context.Context, code string, active bool) error {
	return s.repo.SetPlantActive(ctx, code, active)
}

// IsActiveCode reports whether code names an active plant. Unknown
// codes are simply inactive.
func (s *Service) IsActiveCode(ctx context.Context, code string) (bool, error) {
	plant, err := s.repo.GetPlant(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return plant.Active, nil
}
