package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore appends records to the audit_records table. Rows are written
// once and never updated or deleted.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a store backed by the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Append inserts one record.
func (s *PGStore) Append(ctx context.Context, rec Record) error {
	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("audit: marshal context: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_records (id, actor, resource, action, granted, reason, context, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Actor, rec.Resource, rec.Action, rec.Granted, rec.Reason, contextJSON, rec.At)
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

// LogStore appends records to the application log. Used in development
// and as a fallback when no database is configured.
type LogStore struct {
	Logger *slog.Logger
}

// Append writes the record as a structured log line.
func (s LogStore) Append(_ context.Context, rec Record) error {
	if s.Logger == nil {
		return nil
	}
	s.Logger.Info("authorization decision",
		slog.String("actor", rec.Actor),
		slog.String("resource", rec.Resource),
		slog.String("action", rec.Action),
		slog.Bool("granted", rec.Granted),
		slog.String("reason", rec.Reason))
	return nil
}
