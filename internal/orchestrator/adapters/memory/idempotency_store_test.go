package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

func TestIdempotencyStore_ClaimCompleteAndConflict(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	store := NewIdempotencyStore()
	store.WithClock(func() time.Time { return now })
	ctx := context.Background()

	record := ports.IdempotencyRecord{Key: "k1", Fingerprint: "fp", Action: ports.ActionInboundApprove, ExpiresAt: now.Add(time.Hour)}
	existing, err := store.Claim(ctx, record)
	require.NoError(t, err)
	assert.Nil(t, existing)

	held, err := store.Claim(ctx, record)
	require.NoError(t, err)
	require.NotNil(t, held)
	assert.True(t, held.Pending())
	assert.Equal(t, now, held.CreatedAt)

	require.NoError(t, store.Complete(ctx, "k1", "rec-1"))
	done, err := store.Claim(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", done.AggregateID)

	record.Fingerprint = "other"
	conflicting, err := store.Claim(ctx, record)
	require.ErrorIs(t, err, ports.ErrIdempotencyConflict)
	assert.Equal(t, "fp", conflicting.Fingerprint)
}

func TestIdempotencyStore_ConcurrentClaimsHaveOneOwner(t *testing.T) {
	store := NewIdempotencyStore()
	ctx := context.Background()
	record := ports.IdempotencyRecord{Key: "k1", Fingerprint: "fp", ExpiresAt: time.Now().Add(time.Hour)}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		owners int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			existing, err := store.Claim(ctx, record)
			assert.NoError(t, err)
			if existing == nil {
				mu.Lock()
				owners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, owners)
}

func TestIdempotencyStore_ReleaseOnlyDropsPendingClaims(t *testing.T) {
	store := NewIdempotencyStore()
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	_, err := store.Claim(ctx, ports.IdempotencyRecord{Key: "pending", Fingerprint: "a", ExpiresAt: expires})
	require.NoError(t, err)
	_, err = store.Claim(ctx, ports.IdempotencyRecord{Key: "done", Fingerprint: "b", ExpiresAt: expires})
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "done", "agg-1"))

	require.NoError(t, store.Release(ctx, "pending"))
	require.NoError(t, store.Release(ctx, "done"))

	got, err := store.Get(ctx, "pending")
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = store.Get(ctx, "done")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "agg-1", got.AggregateID)
}

func TestIdempotencyStore_ExpiryAndPurge(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	store := NewIdempotencyStore()
	store.WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := store.Claim(ctx, ports.IdempotencyRecord{Key: "old", Fingerprint: "a", ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)
	_, err = store.Claim(ctx, ports.IdempotencyRecord{Key: "new", Fingerprint: "b", ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	got, err := store.Get(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, got)

	// an expired key may be reused for a different command
	existing, err := store.Claim(ctx, ports.IdempotencyRecord{Key: "old", Fingerprint: "c", ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)
	assert.Nil(t, existing)

	removed, err := store.Purge(ctx, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	got, err = store.Get(ctx, "new")
	require.NoError(t, err)
	require.NotNil(t, got)
}
