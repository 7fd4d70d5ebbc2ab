package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository loads access snapshots from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetUserAccess assembles the snapshot for an active account: role types
// granted through enabled roles, the plant assignment in its stored
// order, and the primary role and plant. Disabled roles never enter the
// snapshot; a primary role no longer backed by an enabled role is
// dropped.
func (r *PGRepository) GetUserAccess(ctx context.Context, username string) (*UserAccess, error) {
	query := `
		SELECT id, username, COALESCE(primary_role, ''), COALESCE(primary_plant, '')
		FROM users
		WHERE username = $1 AND active
	`
	var (
		access     UserAccess
		rawPrimary string
	)
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&access.UserID, &access.Username, &rawPrimary, &access.PrimaryPlant,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rbac: load user %s: %w", username, err)
	}

	roles, err := r.getEnabledRoleTypes(ctx, access.UserID)
	if err != nil {
		return nil, err
	}
	access.Roles = roles

	if rawPrimary != "" {
		primary, err := ParseRoleType(rawPrimary)
		if err != nil {
			return nil, fmt.Errorf("rbac: user %s: %w", username, err)
		}
		for _, role := range roles {
			if role == primary {
				access.PrimaryRole = primary
				break
			}
		}
	}

	plants, err := r.getAssignedPlants(ctx, access.UserID)
	if err != nil {
		return nil, err
	}
	access.Plants = plants

	return &access, nil
}

// RecentUsernames lists active accounts that signed in since the given
// time, newest first.
func (r *PGRepository) RecentUsernames(ctx context.Context, since time.Time, limit int) ([]string, error) {
	query := `
		SELECT username
		FROM users
		WHERE active AND last_login_at >= $1
		ORDER BY last_login_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("rbac: list recent usernames: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("rbac: scan username: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *PGRepository) getEnabledRoleTypes(ctx context.Context, userID int64) ([]RoleType, error) {
	query := `
		SELECT DISTINCT r.role_type
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND r.enabled
		ORDER BY r.role_type
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: load roles for user %d: %w", userID, err)
	}
	defer rows.Close()

	var roles []RoleType
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("rbac: scan role type: %w", err)
		}
		role, err := ParseRoleType(raw)
		if err != nil {
			return nil, fmt.Errorf("rbac: user %d: %w", userID, err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *PGRepository) getAssignedPlants(ctx context.Context, userID int64) ([]string, error) {
	query := `
		SELECT plant_code
		FROM user_plants
		WHERE user_id = $1
		ORDER BY position, plant_code
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: load plants for user %d: %w", userID, err)
	}
	defer rows.Close()

	var plants []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("rbac: scan plant code: %w", err)
		}
		plants = append(plants, code)
	}
	return plants, rows.Err()
}
