package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
)

// RepositoryPort defines data access methods for accounts.
type RepositoryPort interface {
	ListAccounts(ctx context.Context, page, perPage int, search string) ([]Account, int, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
	CreateAccount(ctx context.Context, input CreateAccountInput, passwordHash string) (Account, error)
	UpdateAccount(ctx context.Context, id int64, input UpdateAccountInput) error
	SetAccountActive(ctx context.Context, id int64, active bool) error
	ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error
	ReplacePlants(ctx context.Context, userID int64, codes []string) error
	UsernameByID(ctx context.Context, id int64) (string, error)
}

// AccessInvalidator drops cached access snapshots after assignment
// changes.
type AccessInvalidator interface {
	Invalidate(ctx context.Context, username string)
}

// Service handles account business logic.
type Service struct {
	repo   RepositoryPort
	access AccessInvalidator
	logger *slog.Logger
}

// NewService builds Service instance. access may be nil when snapshot
// invalidation is not wired.
func NewService(repo RepositoryPort, access AccessInvalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, access: access, logger: logger}
}

// ListAccounts returns one page of accounts.
func (s *Service) ListAccounts(ctx context.Context, page, perPage int, search string) ([]Account, int, error) {
	return s.repo.ListAccounts(ctx, page, perPage, strings.TrimSpace(search))
}

// GetAccount returns one account with assignments.
func (s *Service) GetAccount(ctx context.Context, id int64) (Account, error) {
	return s.repo.GetAccount(ctx, id)
}

// CreateAccount registers a new account with a hashed password.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.FullName = strings.TrimSpace(input.FullName)

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.CreateAccount(ctx, input, string(hashed))
}

// UpdateAccount edits profile fields and invalidates the snapshot,
// since the primary role or plant may have changed.
func (s *Service) UpdateAccount(ctx context.Context, id int64, input UpdateAccountInput) (Account, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.FullName = strings.TrimSpace(input.FullName)

	if err := s.repo.UpdateAccount(ctx, id, input); err != nil {
		return Account{}, err
	}
	s.invalidate(ctx, id)
	return s.repo.GetAccount(ctx, id)
}

// SetAccountActive enables or disables sign-in for the account.
// Deactivation also drops the snapshot so cached access dies with the
// account.
func (s *Service) SetAccountActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetAccountActive(ctx, id, active); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// AssignRoles replaces the account's role set.
func (s *Service) AssignRoles(ctx context.Context, id int64, roleIDs []int64) (Account, error) {
	seen := make(map[int64]struct{}, len(roleIDs))
	deduped := make([]int64, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		if _, ok := seen[roleID]; ok {
			continue
		}
		seen[roleID] = struct{}{}
		deduped = append(deduped, roleID)
	}

	if err := s.repo.ReplaceRoles(ctx, id, deduped); err != nil {
		return Account{}, err
	}
	s.invalidate(ctx, id)
	return s.repo.GetAccount(ctx, id)
}

// AssignPlants replaces the account's ordered plant assignment. Only
// accounts holding a plant-scoped role may carry plants.
func (s *Service) AssignPlants(ctx context.Context, id int64, codes []string) (Account, error) {
	account, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if len(codes) > 0 && !account.PlantScoped() {
		return Account{}, ErrNotPlantScoped
	}

	seen := make(map[string]struct{}, len(codes))
	deduped := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		deduped = append(deduped, code)
	}

	if err := s.repo.ReplacePlants(ctx, id, deduped); err != nil {
		return Account{}, err
	}
	s.invalidate(ctx, id)
	return s.repo.GetAccount(ctx, id)
}

// HasPlantAccess answers the plant-access probe for one account.
// Administrators and accounts without a plant-scoped role pass for any
// plant; plant-scoped accounts pass only for assigned plants.
func (s *Service) HasPlantAccess(ctx context.Context, id int64, plantCode string) (PlantAccessResult, error) {
	account, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return PlantAccessResult{}, err
	}

	result := PlantAccessResult{
		UserID:         account.ID,
		Username:       account.Username,
		PlantCode:      plantCode,
		AssignedPlants: account.Plants,
	}
	switch {
	case account.HoldsType(rbac.RoleAdmin):
		result.HasAccess = true
	case !account.PlantScoped():
		result.HasAccess = true
	default:
		for _, code := range account.Plants {
			if code == plantCode {
				result.HasAccess = true
				break
			}
		}
	}
	return result, nil
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.access == nil {
		return
	}
	username, err := s.repo.UsernameByID(ctx, id)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("resolve username for invalidation", slog.Int64("user_id", id), slog.Any("error", err))
		}
		return
	}
	s.access.Invalidate(ctx, username)
}
