package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		store := NewMemorySessionStore(time.Hour)

		sessionID, err := store.Create(ctx, 42)
		require.NoError(t, err)
		require.NotEmpty(t, sessionID)

		userID, found, err := store.Get(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int32(42), userID)
	})

	t.Run("DistinctIDsPerLogin", func(t *testing.T) {
		store := NewMemorySessionStore(time.Hour)

		first, err := store.Create(ctx, 42)
		require.NoError(t, err)
		second, err := store.Create(ctx, 42)
		require.NoError(t, err)

		assert.NotEqual(t, first, second)

		// Both sessions stay valid independently.
		_, found, _ := store.Get(ctx, first)
		assert.True(t, found)
		_, found, _ = store.Get(ctx, second)
		assert.True(t, found)
	})

	t.Run("UnknownSession", func(t *testing.T) {
		store := NewMemorySessionStore(time.Hour)

		_, found, err := store.Get(ctx, "no-such-session")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("ExpiredSessionLooksMissing", func(t *testing.T) {
		store := NewMemorySessionStore(30 * time.Millisecond)

		sessionID, err := store.Create(ctx, 42)
		require.NoError(t, err)

		_, found, err := store.Get(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, found)

		time.Sleep(60 * time.Millisecond)

		_, found, err = store.Get(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("DestroyIsIdempotent", func(t *testing.T) {
		store := NewMemorySessionStore(time.Hour)

		sessionID, err := store.Create(ctx, 42)
		require.NoError(t, err)

		require.NoError(t, store.Destroy(ctx, sessionID))
		_, found, err := store.Get(ctx, sessionID)
		require.NoError(t, err)
		assert.False(t, found)

		// Destroying again, or destroying something that never existed, is fine.
		require.NoError(t, store.Destroy(ctx, sessionID))
		require.NoError(t, store.Destroy(ctx, "no-such-session"))
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		store := NewMemorySessionStore(time.Hour)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(userID int32) {
				defer wg.Done()
				sessionID, err := store.Create(ctx, userID)
				assert.NoError(t, err)

				got, found, err := store.Get(ctx, sessionID)
				assert.NoError(t, err)
				assert.True(t, found)
				assert.Equal(t, userID, got)

				assert.NoError(t, store.Destroy(ctx, sessionID))
			}(int32(i))
		}
		wg.Wait()
	})
}
