package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

func redisClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestIdempotencyStore_ClaimsKeyOnce(t *testing.T) {
	store := NewIdempotencyStore(redisClient(t))
	ctx := context.Background()
	key := "test-" + uuid.NewString()
	record := ports.IdempotencyRecord{
		Key:         key,
		Fingerprint: "fp",
		Action:      ports.ActionInboundApprove,
		ExpiresAt:   time.Now().Add(time.Minute),
	}

	existing, err := store.Claim(ctx, record)
	require.NoError(t, err)
	assert.Nil(t, existing)

	held, err := store.Claim(ctx, record)
	require.NoError(t, err)
	require.NotNil(t, held)
	assert.True(t, held.Pending())

	require.NoError(t, store.Complete(ctx, key, "rec-1"))
	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "rec-1", got.AggregateID)

	require.NoError(t, store.Release(ctx, key))
	got, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got, "completed keys survive release")

	record.Fingerprint = "different"
	conflicting, err := store.Claim(ctx, record)
	require.ErrorIs(t, err, ports.ErrIdempotencyConflict)
	assert.Equal(t, "fp", conflicting.Fingerprint)
}

func TestIdempotencyStore_ReleaseFreesPendingKey(t *testing.T) {
	store := NewIdempotencyStore(redisClient(t))
	ctx := context.Background()
	key := "test-" + uuid.NewString()
	record := ports.IdempotencyRecord{Key: key, Fingerprint: "fp", ExpiresAt: time.Now().Add(time.Minute)}

	_, err := store.Claim(ctx, record)
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, key))

	existing, err := store.Claim(ctx, record)
	require.NoError(t, err)
	assert.Nil(t, existing)
}

func TestIdempotencyStore_UnknownKey(t *testing.T) {
	store := NewIdempotencyStore(redisClient(t))

	got, err := store.Get(context.Background(), "missing-"+uuid.NewString())

	require.NoError(t, err)
	assert.Nil(t, got)
}
