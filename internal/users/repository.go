package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Dinesh-Das/QR-sub002/internal/platform/db"
	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
	"github.com/Dinesh-Das/QR-sub002/internal/shared"
)

// Repository provides PostgreSQL backed persistence for accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, username, email, full_name, active,
	COALESCE(primary_role, ''), COALESCE(primary_plant, ''),
	last_login_at, created_at, updated_at`

// ListAccounts returns one page of accounts matching the search term,
// plus the total match count. Assignments are not hydrated on listings.
func (r *Repository) ListAccounts(ctx context.Context, page, perPage int, search string) ([]Account, int, error) {
	p := shared.NewPagination(page, perPage, 0)

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users
		 WHERE $1 = '' OR username ILIKE '%'||$1||'%' OR full_name ILIKE '%'||$1||'%'`,
		search,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM users
		 WHERE $1 = '' OR username ILIKE '%'||$1||'%' OR full_name ILIKE '%'||$1||'%'
		 ORDER BY username LIMIT $2 OFFSET $3`,
		search, p.PerPage, p.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, total, nil
}

// GetAccount returns one account with its role and plant assignments.
func (r *Repository) GetAccount(ctx context.Context, id int64) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("get account %d: %w", id, err)
	}

	account.Roles, err = r.assignedRoles(ctx, id)
	if err != nil {
		return Account{}, err
	}
	account.Plants, err = r.assignedPlants(ctx, id)
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// CreateAccount inserts a new account row.
func (r *Repository) CreateAccount(ctx context.Context, input CreateAccountInput, passwordHash string) (Account, error) {
	now := time.Now()
	account := Account{
		Username:     input.Username,
		Email:        input.Email,
		FullName:     input.FullName,
		Active:       true,
		PrimaryRole:  input.PrimaryRole,
		PrimaryPlant: input.PrimaryPlant,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, full_name, password_hash, active, primary_role, primary_plant, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, TRUE, NULLIF($5, ''), NULLIF($6, ''), $7, $8) RETURNING id`,
		input.Username, input.Email, input.FullName, passwordHash,
		string(input.PrimaryRole), input.PrimaryPlant, now, now,
	).Scan(&account.ID)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return Account{}, ErrDuplicateUsername
		}
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// UpdateAccount replaces the editable profile fields.
func (r *Repository) UpdateAccount(ctx context.Context, id int64, input UpdateAccountInput) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET email = $1, full_name = $2,
		 primary_role = NULLIF($3, ''), primary_plant = NULLIF($4, ''), updated_at = $5
		 WHERE id = $6`,
		input.Email, input.FullName, string(input.PrimaryRole), input.PrimaryPlant, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update account %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAccountActive flips the active flag.
func (r *Repository) SetAccountActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set account %d active: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceRoles swaps the account's role assignment for the given role
// IDs. IDs missing from the catalog fail the whole call.
func (r *Repository) ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear roles for %d: %w", userID, err)
		}
		if len(roleIDs) == 0 {
			return nil
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id)
			 SELECT $1, r.id FROM roles r WHERE r.id = ANY($2)`,
			userID, roleIDs,
		)
		if err != nil {
			return fmt.Errorf("assign roles for %d: %w", userID, err)
		}
		if int(tag.RowsAffected()) != len(roleIDs) {
			return ErrUnknownRole
		}
		return nil
	})
}

// ReplacePlants swaps the account's plant assignment for the given
// codes, preserving their order in the position column. Codes missing
// from the plant master fail the whole call.
func (r *Repository) ReplacePlants(ctx context.Context, userID int64, codes []string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_plants WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear plants for %d: %w", userID, err)
		}
		if len(codes) == 0 {
			return nil
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO user_plants (user_id, plant_code, position)
			 SELECT $1, p.code, ord.position
			 FROM unnest($2::text[]) WITH ORDINALITY AS ord(code, position)
			 JOIN plants p ON p.code = ord.code`,
			userID, codes,
		)
		if err != nil {
			return fmt.Errorf("assign plants for %d: %w", userID, err)
		}
		if int(tag.RowsAffected()) != len(codes) {
			return ErrUnknownPlant
		}
		return nil
	})
}

// RecipientsByRoleType returns active usernames holding an enabled role
// of the given type. A non-empty plantCode narrows to accounts assigned
// that plant.
func (r *Repository) RecipientsByRoleType(ctx context.Context, roleType, plantCode string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT u.username
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		JOIN roles ro ON ro.id = ur.role_id
		WHERE u.active AND ro.enabled AND ro.role_type = $1
		  AND ($2 = '' OR EXISTS (
			SELECT 1 FROM user_plants up
			WHERE up.user_id = u.id AND up.plant_code = $2
		  ))
		ORDER BY u.username
	`, roleType, plantCode)
	if err != nil {
		return nil, fmt.Errorf("recipients for %s: %w", roleType, err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		usernames = append(usernames, name)
	}
	return usernames, rows.Err()
}

// UsernameByID resolves an account ID to its username, used to target
// snapshot invalidation.
func (r *Repository) UsernameByID(ctx context.Context, id int64) (string, error) {
	var username string
	err := r.pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, id).Scan(&username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("username for %d: %w", id, err)
	}
	return username, nil
}

func (r *Repository) idByUsername(ctx context.Context, username string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM users WHERE username = $1`, username).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("id for %s: %w", username, err)
	}
	return id, nil
}

// PlantsByUsername returns the plant codes assigned to the named
// account, in position order.
func (r *Repository) PlantsByUsername(ctx context.Context, username string) ([]string, error) {
	id, err := r.idByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return r.assignedPlants(ctx, id)
}

// ReplacePlantsByUsername swaps the named account's plant assignment,
// used by operational tooling that works from account names.
func (r *Repository) ReplacePlantsByUsername(ctx context.Context, username string, codes []string) error {
	id, err := r.idByUsername(ctx, username)
	if err != nil {
		return err
	}
	return r.ReplacePlants(ctx, id, codes)
}

func (r *Repository) assignedRoles(ctx context.Context, userID int64) ([]AssignedRole, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, r.role_type, r.enabled
		 FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1 ORDER BY r.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("roles for %d: %w", userID, err)
	}
	defer rows.Close()

	var assigned []AssignedRole
	for rows.Next() {
		var (
			role     AssignedRole
			roleType string
		)
		if err := rows.Scan(&role.ID, &role.Name, &roleType, &role.Enabled); err != nil {
			return nil, err
		}
		role.Type = rbac.RoleType(roleType)
		assigned = append(assigned, role)
	}
	return assigned, rows.Err()
}

func (r *Repository) assignedPlants(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT plant_code FROM user_plants WHERE user_id = $1 ORDER BY position, plant_code`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("plants for %d: %w", userID, err)
	}
	defer rows.Close()

	var plants []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		plants = append(plants, code)
	}
	return plants, rows.Err()
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		account     Account
		primaryRole string
	)
	err := row.Scan(
		&account.ID, &account.Username, &account.Email, &account.FullName, &account.Active,
		&primaryRole, &account.PrimaryPlant,
		&account.LastLoginAt, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return Account{}, err
	}
	account.PrimaryRole = rbac.RoleType(primaryRole)
	return account, nil
}
