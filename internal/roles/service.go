package roles

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
)

// RepositoryPort defines data access methods for the role catalog.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]rbac.Role, error)
	GetRole(ctx context.Context, id int64) (rbac.Role, error)
	CreateRole(ctx context.Context, name, description string, roleType rbac.RoleType, enabled bool) (rbac.Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string, roleType rbac.RoleType) error
	SetRoleEnabled(ctx context.Context, id int64, enabled bool) error
	DeleteRole(ctx context.Context, id int64) error
	UsernamesWithRole(ctx context.Context, id int64) ([]string, error)
}

// AccessInvalidator drops cached access snapshots after catalog changes.
type AccessInvalidator interface {
	Invalidate(ctx context.Context, username string)
}

// Service handles role catalog business logic.
type Service struct {
	repo   RepositoryPort
	access AccessInvalidator
	logger *slog.Logger
}

// NewService builds a Service instance. access may be nil when snapshot
// invalidation is not wired, for example in offline tooling.
func NewService(repo RepositoryPort, access AccessInvalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, access: access, logger: logger}
}

// ListRoles returns the full catalog.
func (s *Service) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole returns one role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (rbac.Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole registers a new role in the catalog.
func (s *Service) CreateRole(ctx context.Context, name, description string, roleType rbac.RoleType, enabled bool) (rbac.Role, error) {
	return s.repo.CreateRole(ctx, strings.TrimSpace(name), strings.TrimSpace(description), roleType, enabled)
}

// UpdateRole edits a role. Holders of the role get their snapshots
// invalidated because the role type may have changed.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string, roleType rbac.RoleType) (rbac.Role, error) {
	holders := s.holders(ctx, id)
	if err := s.repo.UpdateRole(ctx, id, strings.TrimSpace(name), strings.TrimSpace(description), roleType); err != nil {
		return rbac.Role{}, err
	}
	s.invalidate(ctx, holders)
	return s.repo.GetRole(ctx, id)
}

// SetRoleEnabled flips the enabled flag. Disabled roles stop granting
// their role type, so holder snapshots are invalidated either way.
func (s *Service) SetRoleEnabled(ctx context.Context, id int64, enabled bool) error {
	holders := s.holders(ctx, id)
	if err := s.repo.SetRoleEnabled(ctx, id, enabled); err != nil {
		return err
	}
	s.invalidate(ctx, holders)
	return nil
}

// DeleteRole removes a role from the catalog. Deletion is refused with
// ErrRoleAssigned while accounts still hold the role, so no snapshots
// can depend on a successfully deleted one.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}

func (s *Service) holders(ctx context.Context, id int64) []string {
	usernames, err := s.repo.UsernamesWithRole(ctx, id)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("list role holders", slog.Int64("role_id", id), slog.Any("error", err))
		}
		return nil
	}
	return usernames
}

func (s *Service) invalidate(ctx context.Context, usernames []string) {
	if s.access == nil {
		return
	}
	for _, username := range usernames {
		s.access.Invalidate(ctx, username)
	}
}
