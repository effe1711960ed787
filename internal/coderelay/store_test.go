package coderelay

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franciscosanchezn/tg-game-api/internal/models"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func setupMemoryStore(t *testing.T) *MemoryStore {
	store := NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Minute).Truncate(time.Millisecond)
	rec := models.PendingAuthentication{Username: "alice", ExpiresAt: expiresAt}

	t.Run("get missing returns nil", func(t *testing.T) {
		got, err := store.Get(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, rec, time.Minute))

		got, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "alice", got.Username)
		assert.False(t, got.HasCode())
		assert.True(t, got.ExpiresAt.Equal(expiresAt))
	})

	t.Run("attach to missing record", func(t *testing.T) {
		ok, err := store.Attach(ctx, "nobody", "123456", 1)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := store.Get(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("attach keeps expiry", func(t *testing.T) {
		ok, err := store.Attach(ctx, "alice", "123456", 42)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "123456", got.Code)
		assert.Equal(t, int64(42), got.PlatformID)
		assert.True(t, got.ExpiresAt.Equal(expiresAt))
	})

	t.Run("delete if matches rejects stale values", func(t *testing.T) {
		got, err := store.DeleteIfMatches(ctx, "alice", "654321", expiresAt)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = store.DeleteIfMatches(ctx, "alice", "123456", expiresAt.Add(time.Second))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("record failure counts against the live record", func(t *testing.T) {
		n, err := store.RecordFailure(ctx, "alice", expiresAt)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		n, err = store.RecordFailure(ctx, "alice", expiresAt)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		// A replaced window or a missing record is not charged.
		n, err = store.RecordFailure(ctx, "alice", expiresAt.Add(time.Second))
		require.NoError(t, err)
		assert.Zero(t, n)
		n, err = store.RecordFailure(ctx, "nobody", expiresAt)
		require.NoError(t, err)
		assert.Zero(t, n)

		got, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 2, got.Attempts)
		assert.Equal(t, "123456", got.Code)
		assert.True(t, got.ExpiresAt.Equal(expiresAt))
	})

	t.Run("len counts live records", func(t *testing.T) {
		n, err := store.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("delete if matches consumes once", func(t *testing.T) {
		got, err := store.DeleteIfMatches(ctx, "alice", "123456", expiresAt)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(42), got.PlatformID)

		got, err = store.DeleteIfMatches(ctx, "alice", "123456", expiresAt)
		require.NoError(t, err)
		assert.Nil(t, got)

		n, err := store.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("put overwrites", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, rec, time.Minute))
		_, err := store.Attach(ctx, "alice", "111111", 9)
		require.NoError(t, err)

		fresh := models.PendingAuthentication{Username: "alice", ExpiresAt: expiresAt.Add(time.Minute)}
		require.NoError(t, store.Put(ctx, fresh, 2*time.Minute))

		got, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.False(t, got.HasCode())
		assert.Zero(t, got.PlatformID)
		assert.Zero(t, got.Attempts)
		assert.True(t, got.ExpiresAt.Equal(fresh.ExpiresAt))
	})

	t.Run("non-positive ttl removes", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, rec, 0))
		got, err := store.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	storeContract(t, setupMemoryStore(t))
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := setupRedisStore(t)
	storeContract(t, store)
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := setupMemoryStore(t)
	ctx := context.Background()

	rec := models.PendingAuthentication{Username: "kate", ExpiresAt: time.Now().Add(20 * time.Millisecond)}
	require.NoError(t, store.Put(ctx, rec, 20*time.Millisecond))

	assert.Eventually(t, func() bool {
		got, err := store.Get(ctx, "kate")
		return err == nil && got == nil
	}, time.Second, 10*time.Millisecond)
}

func TestRedisStore_NativeTTL(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	rec := models.PendingAuthentication{Username: "liam", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.Put(ctx, rec, time.Minute))

	ok, err := store.Attach(ctx, "liam", "123456", 12)
	require.NoError(t, err)
	require.True(t, ok)

	// HSET from attach must not clear the key TTL.
	assert.Greater(t, mr.TTL("pending_auth:liam"), 50*time.Second)

	mr.FastForward(61 * time.Second)

	got, err := store.Get(ctx, "liam")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAuthenticator_RedisStore(t *testing.T) {
	store, _ := setupRedisStore(t)
	clock := newFakeClock()
	a := NewAuthenticator(store, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, a.Initiate(ctx, "@mia"))
	code, pending, err := a.Attach(ctx, "mia", 77)
	require.NoError(t, err)
	require.True(t, pending)

	id, ok, err := a.VerifyCode(ctx, "mia", code)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(77), id)

	_, ok, err = a.VerifyCode(ctx, "mia", code)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticator_RedisStoreAttemptBudget(t *testing.T) {
	store, mr := setupRedisStore(t)
	a := NewAuthenticator(store, WithMaxAttempts(2), WithCodeGenerator(func() (string, error) {
		return "314159", nil
	}))
	ctx := context.Background()

	require.NoError(t, a.Initiate(ctx, "oscar"))
	_, _, err := a.Attach(ctx, "oscar", 15)
	require.NoError(t, err)

	for _, wrong := range []string{"000000", "111111"} {
		_, ok, err := a.VerifyCode(ctx, "oscar", wrong)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.False(t, mr.Exists("pending_auth:oscar"))

	_, ok, err := a.VerifyCode(ctx, "oscar", "314159")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := setupRedisStore(t)
	mr.Close()

	a := NewAuthenticator(store)
	err := a.Initiate(context.Background(), "nina")
	assert.Error(t, err)

	_, _, err = a.VerifyCode(context.Background(), "nina", "123456")
	assert.Error(t, err)
}
