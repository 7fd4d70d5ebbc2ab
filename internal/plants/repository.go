package plants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Dinesh-Das/QR-sub002/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the plant
// master.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListPlants returns the plant master ordered by code. When activeOnly
// is set, retired plants are excluded.
func (r *Repository) ListPlants(ctx context.Context, activeOnly bool) ([]Plant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT code, name, active, created_at, updated_at FROM plants
		 WHERE NOT $1 OR active ORDER BY code`,
		activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}
	defer rows.Close()

	var plants []Plant
	for rows.Next() {
		var p Plant
		if err := rows.Scan(&p.Code, &p.Name, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		plants = append(plants, p)
	}
	return plants, rows.Err()
}

// GetPlant returns one plant by code.
func (r *Repository) GetPlant(ctx context.Context, code string) (Plant, error) {
	var p Plant
	err := r.pool.QueryRow(ctx,
		`SELECT code, name, active, created_at, updated_at FROM plants WHERE code = $1`,
		code,
	).Scan(&p.Code, &p.Name, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Plant{}, ErrNotFound
		}
		return Plant{}, fmt.Errorf("get plant %s: %w", code, err)
	}
	return p, nil
}

// CreatePlant inserts a new plant.
func (r *Repository) CreatePlant(ctx context.Context, code, name string) (Plant, error) {
	now := time.Now()
	p := Plant{Code: code, Name: name, Active: true, CreatedAt: now, UpdatedAt: now}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO plants (code, name, active, created_at, updated_at) VALUES ($1, $2, TRUE, $3, $4)`,
		code, name, now, now,
	)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return Plant{}, ErrDuplicateCode
		}
		return Plant{}, fmt.Errorf("create plant %s: %w", code, err)
	}
	return p, nil
}

// SetPlantActive flips the active flag.
func (r *Repository) SetPlantActive(ctx context.Context, code string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE plants SET active = $1, updated_at = $2 WHERE code = $3`,
		active, time.Now(), code,
	)
	if err != nil {
		return fmt.Errorf("set plant %s active: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
