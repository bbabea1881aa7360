package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresInvalidatedTokenRepository persists revoked token IDs. Rows live
// until the expiry sweep removes them; presence of a row means revoked.
type PostgresInvalidatedTokenRepository struct {
	pool *pgxpool.Pool
}

func NewInvalidatedTokenRepository(pool *pgxpool.Pool) *PostgresInvalidatedTokenRepository {
	return &PostgresInvalidatedTokenRepository{pool: pool}
}

// Revoke is an idempotent upsert; revoking the same jti twice is a no-op.
func (r *PostgresInvalidatedTokenRepository) Revoke(ctx context.Context, jti string, expiry time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO invalidated_tokens (id, expiry_time) VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		jti, expiry)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *PostgresInvalidatedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM invalidated_tokens WHERE id = $1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check token revoked: %w", err)
	}
	return revoked, nil
}

// DeleteExpired reclaims space; tokens past their expiry are rejected on
// expiry alone, so the sweep never affects correctness and is safe to run
// concurrently with verification.
func (r *PostgresInvalidatedTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invalidated_tokens WHERE expiry_time < now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
