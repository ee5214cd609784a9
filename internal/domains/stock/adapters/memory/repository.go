package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Apurer/go-retail-ops/internal/domains/stock/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/stock/ports"
	"github.com/Apurer/go-retail-ops/internal/platform/txn"
)

var (
	_ ports.Repository = (*Repository)(nil)
	_ txn.Snapshotter  = (*Repository)(nil)
)

// Repository keeps stock entries and ledger lines in memory.
// Row locking is provided by the unit-of-work mutex, so Lock is a plain read.
type Repository struct {
	mu        sync.RWMutex
	entries   map[string]domain.Entry
	movements []domain.Movement
	index     map[domain.MovementKey]int
}

func NewRepository() *Repository {
	return &Repository{
		entries: map[string]domain.Entry{},
		index:   map[domain.MovementKey]int{},
	}
}

func (r *Repository) Create(_ context.Context, entry *domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.ProductID]; ok {
		return ports.ErrDuplicateProduct
	}
	r.entries[entry.ProductID] = *entry
	return nil
}

func (r *Repository) Get(_ context.Context, productID string) (*domain.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[strings.TrimSpace(productID)]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &entry, nil
}

func (r *Repository) Lock(ctx context.Context, productID string) (*domain.Entry, error) {
	return r.Get(ctx, productID)
}

func (r *Repository) Update(_ context.Context, entry *domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.ProductID]; !ok {
		return ports.ErrNotFound
	}
	r.entries[entry.ProductID] = *entry
	return nil
}

func (r *Repository) FindMovement(_ context.Context, key domain.MovementKey) (*domain.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[key]
	if !ok {
		return nil, nil
	}
	movement := r.movements[i]
	return &movement, nil
}

func (r *Repository) AppendMovement(_ context.Context, movement domain.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := domain.MovementKey{CorrelationID: movement.CorrelationID, ProductID: movement.ProductID, Line: movement.Line}
	if _, ok := r.index[key]; ok {
		return ports.ErrDuplicateMovement
	}
	movement.Replayed = false
	r.movements = append(r.movements, movement)
	r.index[key] = len(r.movements) - 1
	return nil
}

func (r *Repository) MovementsByCorrelation(_ context.Context, correlationID string) ([]domain.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Movement
	for _, m := range r.movements {
		if m.CorrelationID == correlationID {
			result = append(result, m)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Line < result[j].Line })
	return result, nil
}

// Snapshot captures entries and ledger lines for rollback.
func (r *Repository) Snapshot() func() {
	r.mu.RLock()
	entries := make(map[string]domain.Entry, len(r.entries))
	for k, v := range r.entries {
		entries[k] = v
	}
	movements := append([]domain.Movement(nil), r.movements...)
	index := make(map[domain.MovementKey]int, len(r.index))
	for k, v := range r.index {
		index[k] = v
	}
	r.mu.RUnlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.entries = entries
		r.movements = movements
		r.index = index
	}
}
