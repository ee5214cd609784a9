package application

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stockmemory "github.com/Apurer/go-retail-ops/internal/domains/stock/adapters/memory"
	"github.com/Apurer/go-retail-ops/internal/domains/stock/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/stock/ports"
	"github.com/Apurer/go-retail-ops/internal/platform/txn"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

func newTestService(t *testing.T) (*Service, *stockmemory.Repository) {
	t.Helper()
	repo := stockmemory.NewRepository()
	clock := func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }
	runner := txn.NewMemoryRunner[ports.Ledger](&sync.Mutex{}, NewLedger(repo, clock), repo)
	return NewService(runner, repo, WithClock(clock)), repo
}

func TestApplyDelta_CreditAndDebit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "sku-1", 5)
	require.NoError(t, err)

	credit, err := svc.ApplyDelta(ctx, domain.Delta{ProductID: "sku-1", Quantity: 3, Reason: domain.ReasonInboundApproved, CorrelationID: "rec-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), credit.ResultingQuantity)
	assert.NotEmpty(t, credit.ID)

	debit, err := svc.ApplyDelta(ctx, domain.Delta{ProductID: "sku-1", Quantity: -8, Reason: domain.ReasonManualAdjustment, CorrelationID: "adj-1"})
	require.NoError(t, err)
	assert.Zero(t, debit.ResultingQuantity)
}

func TestApplyDelta_InsufficientStockLeavesQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "sku-1", 2)
	require.NoError(t, err)

	_, err = svc.ApplyDelta(ctx, domain.Delta{ProductID: "sku-1", Quantity: -3, Reason: domain.ReasonManualAdjustment, CorrelationID: "adj-1"})

	require.ErrorIs(t, err, failures.ErrInsufficientStock)
	entry, err := svc.GetQuantity(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.Quantity)
}

func TestApplyDelta_UnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ApplyDelta(context.Background(), domain.Delta{ProductID: "ghost", Quantity: 1, Reason: domain.ReasonInboundApproved, CorrelationID: "rec-1"})

	require.ErrorIs(t, err, failures.ErrNotFound)
}

func TestApplyDelta_ReplayIsNoOp(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "sku-1", 0)
	require.NoError(t, err)
	delta := domain.Delta{ProductID: "sku-1", Quantity: 4, Reason: domain.ReasonTicketResolved, CorrelationID: "ticket-1", Line: 0}

	first, err := svc.ApplyDelta(ctx, delta)
	require.NoError(t, err)
	second, err := svc.ApplyDelta(ctx, delta)
	require.NoError(t, err)

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.ID, second.ID)
	entry, err := svc.GetQuantity(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), entry.Quantity)

	movements, err := svc.Movements(ctx, "ticket-1")
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}

func TestApplyDelta_InvalidDelta(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ApplyDelta(context.Background(), domain.Delta{ProductID: "sku-1", Quantity: 0, Reason: domain.ReasonInboundApproved, CorrelationID: "rec-1"})

	require.ErrorIs(t, err, failures.ErrValidation)
	require.ErrorIs(t, err, domain.ErrZeroDelta)
}

func TestRegister_RejectsDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "sku-1", 1)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "sku-1", 1)

	require.ErrorIs(t, err, failures.ErrValidation)
}

func TestApplyDelta_ConcurrentDebitsNeverGoNegative(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "sku-1", 10)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.ApplyDelta(ctx, domain.Delta{ProductID: "sku-1", Quantity: -1, Reason: domain.ReasonManualAdjustment, CorrelationID: "adj", Line: i})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	entry, err := svc.GetQuantity(ctx, "sku-1")
	require.NoError(t, err)
	assert.Zero(t, entry.Quantity)
}

func TestApplyDelta_ReusedKeyWithDifferentQuantityConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "sku-1", 0)
	require.NoError(t, err)
	delta := domain.Delta{ProductID: "sku-1", Quantity: 4, Reason: domain.ReasonInboundApproved, CorrelationID: "rec-1"}
	_, err = svc.ApplyDelta(ctx, delta)
	require.NoError(t, err)

	delta.Quantity = 9
	_, err = svc.ApplyDelta(ctx, delta)

	require.ErrorIs(t, err, failures.ErrConflict)
	require.ErrorIs(t, err, ports.ErrReplayMismatch)
	entry, err := svc.GetQuantity(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), entry.Quantity)
	movements, err := svc.Movements(ctx, "rec-1")
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}

func TestApplyDelta_CreditPastInt64IsRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "sku-1", math.MaxInt64-1)
	require.NoError(t, err)

	_, err = svc.ApplyDelta(ctx, domain.Delta{ProductID: "sku-1", Quantity: 2, Reason: domain.ReasonManualAdjustment, CorrelationID: "adj-1"})

	require.ErrorIs(t, err, failures.ErrValidation)
	require.ErrorIs(t, err, domain.ErrQuantityOverflow)
	entry, err := svc.GetQuantity(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64-1), entry.Quantity)
}

func TestRegister_SurvivesRollbackOfConcurrentUnit(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "sku-1", 1)
	require.NoError(t, err)

	registered := make(chan error, 1)
	err = svc.runner.Do(ctx, func(ctx context.Context, ledger ports.Ledger) error {
		_, err := ledger.ApplyDelta(ctx, domain.Delta{ProductID: "sku-1", Quantity: 2, Reason: domain.ReasonManualAdjustment, CorrelationID: "adj-1"})
		require.NoError(t, err)
		go func() {
			_, err := svc.Register(context.Background(), "sku-2", 7)
			registered <- err
		}()
		select {
		case err := <-registered:
			t.Fatalf("register completed inside another unit: %v", err)
		case <-time.After(50 * time.Millisecond):
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")
	require.NoError(t, <-registered)

	added, err := repo.Get(ctx, "sku-2")
	require.NoError(t, err)
	assert.Equal(t, int64(7), added.Quantity)
	existing, err := repo.Get(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), existing.Quantity)
}
