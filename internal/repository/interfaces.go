package repository

import (
	"context"
	"time"

	"finflow-identity/internal/model"
)

// UserRepository is the user directory boundary the services depend on.
// Backed by Postgres in production; tests substitute in-memory fakes.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u model.User) (model.User, error)
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
	UpdateProfile(ctx context.Context, userID string, firstName, lastName string, dob *time.Time) error
	SetBiometric(ctx context.Context, userID string, enabled bool) error
	SetLastLogin(ctx context.Context, userID string, at time.Time) error
}

// RoleRepository resolves the role catalogue.
type RoleRepository interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, role model.Role) error
}

// InvalidatedTokenRepository is the blacklist of revoked token IDs.
type InvalidatedTokenRepository interface {
	Revoke(ctx context.Context, jti string, expiry time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}
