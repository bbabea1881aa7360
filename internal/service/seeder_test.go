package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeeder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("seeds roles and the default admin", func(t *testing.T) {
		users := newFakeUserRepo()
		roles := newFakeRoleRepo()

		require.NoError(t, NewSeeder(users, roles, "s3cret").Run(ctx))

		for _, name := range []string{RoleUser, RoleAdmin} {
			exists, err := roles.Exists(ctx, name)
			require.NoError(t, err)
			require.True(t, exists)
		}

		admin, err := users.FindByUsername(ctx, "admin")
		require.NoError(t, err)
		require.Equal(t, "admin@finflow.com", admin.Email)
		require.Equal(t, []string{RoleAdmin}, admin.Roles)
		require.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("s3cret")))
	})

	t.Run("keeps an existing admin untouched", func(t *testing.T) {
		existing := testUser(t, "keep-me")
		existing.Username = "admin"
		users := newFakeUserRepo(existing)

		require.NoError(t, NewSeeder(users, newFakeRoleRepo(), "ignored").Run(ctx))

		admin, err := users.FindByUsername(ctx, "admin")
		require.NoError(t, err)
		require.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("keep-me")))
	})

	t.Run("running twice is idempotent", func(t *testing.T) {
		users := newFakeUserRepo()
		roles := newFakeRoleRepo()
		seeder := NewSeeder(users, roles, "")

		require.NoError(t, seeder.Run(ctx))
		require.NoError(t, seeder.Run(ctx))

		users.mu.Lock()
		count := len(users.users)
		users.mu.Unlock()
		require.Equal(t, 1, count)
	})
}

func TestCleanupSweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	blacklist := newFakeBlacklist()
	require.NoError(t, blacklist.Revoke(ctx, "expired-jti", time.Now().Add(-time.Hour)))
	require.NoError(t, blacklist.Revoke(ctx, "live-jti", time.Now().Add(time.Hour)))

	NewCleanupService(blacklist).Sweep(ctx)

	revoked, err := blacklist.IsRevoked(ctx, "live-jti")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = blacklist.IsRevoked(ctx, "expired-jti")
	require.NoError(t, err)
	require.False(t, revoked)
}
