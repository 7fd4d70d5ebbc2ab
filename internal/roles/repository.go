package roles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
	"github.com/Dinesh-Das/QR-sub002/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the role catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, name, description, role_type, enabled, created_at, updated_at`

// ListRoles returns the full catalog ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []rbac.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// GetRole returns one role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (rbac.Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Role{}, ErrNotFound
		}
		return rbac.Role{}, fmt.Errorf("get role %d: %w", id, err)
	}
	return role, nil
}

// CreateRole inserts a new role and returns the stored row.
func (r *Repository) CreateRole(ctx context.Context, name, description string, roleType rbac.RoleType, enabled bool) (rbac.Role, error) {
	now := time.Now()
	role := rbac.Role{
		Name:        name,
		Description: description,
		Type:        roleType,
		Enabled:     enabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, role_type, enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		name, description, string(roleType), enabled, now, now,
	).Scan(&role.ID)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return rbac.Role{}, ErrDuplicateName
		}
		return rbac.Role{}, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

// UpdateRole replaces the editable fields of a role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string, roleType rbac.RoleType) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles SET name = $1, description = $2, role_type = $3, updated_at = $4 WHERE id = $5`,
		name, description, string(roleType), time.Now(), id,
	)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("update role %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRoleEnabled flips the enabled flag of a role.
func (r *Repository) SetRoleEnabled(ctx context.Context, id int64, enabled bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles SET enabled = $1, updated_at = $2 WHERE id = $3`,
		enabled, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set role %d enabled: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRole removes an unassigned role. ErrRoleAssigned is returned
// while accounts still hold it; disable the role to retire it instead.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	// The user_roles foreign key restricts deletion while assignments
	// exist, so a single statement is race-free.
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		if shared.IsForeignKeyViolation(err) {
			return ErrRoleAssigned
		}
		return fmt.Errorf("delete role %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UsernamesWithRole lists accounts whose snapshots depend on the role.
func (r *Repository) UsernamesWithRole(ctx context.Context, id int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.username FROM users u JOIN user_roles ur ON ur.user_id = u.id WHERE ur.role_id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("usernames with role %d: %w", id, err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, err
		}
		usernames = append(usernames, username)
	}
	return usernames, rows.Err()
}

func scanRole(row pgx.Row) (rbac.Role, error) {
	var (
		role     rbac.Role
		roleType string
	)
	err := row.Scan(&role.ID, &role.Name, &role.Description, &roleType, &role.Enabled, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return rbac.Role{}, err
	}
	role.Type = rbac.RoleType(roleType)
	return role, nil
}
