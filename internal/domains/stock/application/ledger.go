package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/go-retail-ops/internal/domains/stock/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/stock/ports"
)

var _ ports.Ledger = (*Ledger)(nil)

// Ledger applies deltas through a repository already bound to the caller's unit of work.
// It never opens a unit itself.
type Ledger struct {
	repo ports.Repository
	now  func() time.Time
}

// NewLedger binds a ledger to repo. A nil clock falls back to time.Now.
func NewLedger(repo ports.Repository, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{repo: repo, now: now}
}

// GetQuantity returns the current entry for productID.
func (l *Ledger) GetQuantity(ctx context.Context, productID string) (*domain.Entry, error) {
	entry, err := l.repo.Get(ctx, productID)
	if err != nil {
		return nil, mapError(err)
	}
	return entry, nil
}

// ApplyDelta changes the quantity of one product and records the ledger line.
// A delta whose key is already recorded is returned as a replay without touching stock.
func (l *Ledger) ApplyDelta(ctx context.Context, delta domain.Delta) (*domain.Movement, error) {
	if err := delta.Validate(); err != nil {
		return nil, mapError(err)
	}
	// Lock before the replay check so a concurrent writer of the same key is visible.
	entry, err := l.repo.Lock(ctx, delta.ProductID)
	if err != nil {
		return nil, mapError(err)
	}
	existing, err := l.repo.FindMovement(ctx, delta.Key())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Delta != delta.Quantity || existing.Reason != delta.Reason {
			return nil, mapError(fmt.Errorf("%w: recorded %d, requested %d", ports.ErrReplayMismatch, existing.Delta, delta.Quantity))
		}
		replay := *existing
		replay.Replayed = true
		return &replay, nil
	}
	if err := entry.Apply(delta.Quantity, l.now().UTC()); err != nil {
		return nil, mapError(err)
	}
	if err := l.repo.Update(ctx, entry); err != nil {
		return nil, mapError(err)
	}
	id, err := newMovementID()
	if err != nil {
		return nil, err
	}
	movement := domain.NewMovement(id, delta, entry)
	if err := l.repo.AppendMovement(ctx, movement); err != nil {
		return nil, mapError(err)
	}
	return &movement, nil
}

func newMovementID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate movement id: %w", err)
	}
	return id.String(), nil
}
