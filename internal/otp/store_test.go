package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("returns a stored value", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Set(ctx, "alice@example.com", "REGISTER:123456", time.Minute))

		value, err := store.Get(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, "REGISTER:123456", value)
	})

	t.Run("missing key reports not found", func(t *testing.T) {
		store := NewMemoryStore()
		_, err := store.Get(ctx, "nobody@example.com")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set overwrites a prior entry", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Set(ctx, "alice@example.com", "REGISTER:111111", time.Minute))
		require.NoError(t, store.Set(ctx, "alice@example.com", "REGISTER:222222", time.Minute))

		value, err := store.Get(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, "REGISTER:222222", value)
	})

	t.Run("expired entries behave as absent", func(t *testing.T) {
		now := time.Now()
		store := NewMemoryStore().WithClock(func() time.Time { return now })
		require.NoError(t, store.Set(ctx, "alice@example.com", "REGISTER:123456", 5*time.Minute))

		now = now.Add(6 * time.Minute)

		_, err := store.Get(ctx, "alice@example.com")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStoreCompareAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("consumes a matching entry exactly once", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Set(ctx, "alice@example.com", "REGISTER:123456", time.Minute))

		consumed, err := store.CompareAndDelete(ctx, "alice@example.com", "REGISTER:123456")
		require.NoError(t, err)
		require.True(t, consumed)

		consumed, err = store.CompareAndDelete(ctx, "alice@example.com", "REGISTER:123456")
		require.NoError(t, err)
		require.False(t, consumed)
	})

	t.Run("mismatched value leaves the entry in place", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Set(ctx, "alice@example.com", "REGISTER:123456", time.Minute))

		consumed, err := store.CompareAndDelete(ctx, "alice@example.com", "REGISTER:654321")
		require.NoError(t, err)
		require.False(t, consumed)

		value, err := store.Get(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, "REGISTER:123456", value)
	})

	t.Run("expired entry cannot be consumed", func(t *testing.T) {
		now := time.Now()
		store := NewMemoryStore().WithClock(func() time.Time { return now })
		require.NoError(t, store.Set(ctx, "alice@example.com", "REGISTER:123456", 5*time.Minute))

		now = now.Add(6 * time.Minute)

		consumed, err := store.CompareAndDelete(ctx, "alice@example.com", "REGISTER:123456")
		require.NoError(t, err)
		require.False(t, consumed)
	})

	t.Run("concurrent verifications yield a single winner", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Set(ctx, "alice@example.com", "REGISTER:123456", time.Minute))

		const attempts = 16
		results := make([]bool, attempts)
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				consumed, err := store.CompareAndDelete(ctx, "alice@example.com", "REGISTER:123456")
				require.NoError(t, err)
				results[i] = consumed
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, consumed := range results {
			if consumed {
				winners++
			}
		}
		require.Equal(t, 1, winners)
	})
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "alice@example.com", "REGISTER:123456", time.Minute))
	require.NoError(t, store.Delete(ctx, "alice@example.com"))

	_, err := store.Get(ctx, "alice@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}
