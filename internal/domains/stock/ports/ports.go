package ports

import (
	"context"
	"errors"

	"github.com/Apurer/go-retail-ops/internal/domains/stock/domain"
)

var (
	ErrNotFound         = errors.New("stock entry not found")
	ErrDuplicateProduct = errors.New("stock entry already registered")
	// ErrDuplicateMovement is returned when a ledger line with the same key was written concurrently.
	ErrDuplicateMovement = errors.New("stock movement already recorded")
	// ErrReplayMismatch is returned when a delta reuses a recorded key with a different change.
	ErrReplayMismatch = errors.New("stock movement key already recorded with a different delta")
)

// Repository persists stock entries and their ledger lines.
type Repository interface {
	Create(ctx context.Context, entry *domain.Entry) error
	Get(ctx context.Context, productID string) (*domain.Entry, error)
	// Lock loads the entry and holds it for the rest of the enclosing unit of work.
	Lock(ctx context.Context, productID string) (*domain.Entry, error)
	Update(ctx context.Context, entry *domain.Entry) error
	FindMovement(ctx context.Context, key domain.MovementKey) (*domain.Movement, error)
	AppendMovement(ctx context.Context, movement domain.Movement) error
	MovementsByCorrelation(ctx context.Context, correlationID string) ([]domain.Movement, error)
}

// Ledger is the narrow view other workflows mutate stock through.
// Calls join the unit of work the ledger was bound to.
type Ledger interface {
	GetQuantity(ctx context.Context, productID string) (*domain.Entry, error)
	ApplyDelta(ctx context.Context, delta domain.Delta) (*domain.Movement, error)
}

// Service exposes stock use cases to adapters. Each call runs in its own unit of work.
type Service interface {
	Ledger
	Register(ctx context.Context, productID string, quantity int64) (*domain.Entry, error)
	Movements(ctx context.Context, correlationID string) ([]domain.Movement, error)
}
