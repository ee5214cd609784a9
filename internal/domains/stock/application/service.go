package application

import (
	"context"
	"time"

	"github.com/Apurer/go-retail-ops/internal/domains/stock/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/stock/ports"
	"github.com/Apurer/go-retail-ops/internal/platform/txn"
)

// Service runs stock use cases, each in its own unit of work.
type Service struct {
	runner txn.Runner[ports.Ledger]
	repo   ports.Repository
	now    func() time.Time
}

// Option customises the service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the stock service. repo serves reads; runner scopes writes.
func NewService(runner txn.Runner[ports.Ledger], repo ports.Repository, opts ...Option) *Service {
	s := &Service{runner: runner, repo: repo, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// GetQuantity returns the entry for productID.
func (s *Service) GetQuantity(ctx context.Context, productID string) (*domain.Entry, error) {
	entry, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, mapError(err)
	}
	return entry, nil
}

// ApplyDelta applies a single delta atomically.
func (s *Service) ApplyDelta(ctx context.Context, delta domain.Delta) (*domain.Movement, error) {
	var movement *domain.Movement
	err := s.runner.Do(ctx, func(ctx context.Context, ledger ports.Ledger) error {
		var err error
		movement, err = ledger.ApplyDelta(ctx, delta)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return movement, nil
}

// Register seeds a catalog entry with its opening quantity.
func (s *Service) Register(ctx context.Context, productID string, quantity int64) (*domain.Entry, error) {
	entry, err := domain.NewEntry(productID, quantity, s.now().UTC())
	if err != nil {
		return nil, mapError(err)
	}
	// Serialized with every other unit over the same stores.
	err = s.runner.Do(ctx, func(ctx context.Context, _ ports.Ledger) error {
		return s.repo.Create(ctx, entry)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return entry, nil
}

// Movements lists the ledger lines written under correlationID.
func (s *Service) Movements(ctx context.Context, correlationID string) ([]domain.Movement, error) {
	movements, err := s.repo.MovementsByCorrelation(ctx, correlationID)
	if err != nil {
		return nil, mapError(err)
	}
	return movements, nil
}

var _ ports.Service = (*Service)(nil)
