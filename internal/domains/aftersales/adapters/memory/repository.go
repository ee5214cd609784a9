package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/application/types"
	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/ports"
	"github.com/Apurer/go-retail-ops/internal/platform/txn"
	"github.com/Apurer/go-retail-ops/internal/shared/projection"
)

var (
	_ ports.Repository = (*Repository)(nil)
	_ txn.Snapshotter  = (*Repository)(nil)
)

type storedTicket struct {
	ticket    *domain.Ticket
	createdAt time.Time
	updatedAt time.Time
	version   int64
}

// Repository is an in-memory ticket store for development and tests.
type Repository struct {
	mu      sync.RWMutex
	tickets map[string]storedTicket
	now     func() time.Time
}

func NewRepository() *Repository {
	return &Repository{tickets: map[string]storedTicket{}, now: time.Now}
}

// WithClock overrides the time source for deterministic testing.
func (r *Repository) WithClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

func (r *Repository) Create(_ context.Context, ticket *domain.Ticket) (*types.TicketProjection, error) {
	if ticket == nil {
		return nil, errors.New("ticket is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; ok {
		return nil, ports.ErrVersionConflict
	}
	now := r.now().UTC()
	r.tickets[ticket.ID] = storedTicket{ticket: ticket.Clone(), createdAt: now, updatedAt: now, version: 1}
	return projection.New(ticket, now, now, 1), nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*types.TicketProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return stored.project(), nil
}

func (r *Repository) Update(_ context.Context, ticket *domain.Ticket, expectedVersion int64) (*types.TicketProjection, error) {
	if ticket == nil {
		return nil, errors.New("ticket is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if stored.version != expectedVersion {
		return nil, ports.ErrVersionConflict
	}
	stored.ticket = ticket.Clone()
	stored.updatedAt = r.now().UTC()
	stored.version++
	r.tickets[ticket.ID] = stored
	return projection.New(ticket, stored.createdAt, stored.updatedAt, stored.version), nil
}

func (r *Repository) List(_ context.Context, filter ports.TicketFilter) ([]*types.TicketProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*types.TicketProjection, 0, len(r.tickets))
	for _, stored := range r.tickets {
		t := stored.ticket
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.AssignedTo != "" && t.AssignedTo != filter.AssignedTo {
			continue
		}
		if filter.OrderID != "" && t.OrderID != filter.OrderID {
			continue
		}
		list = append(list, stored.project())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Entity.ID < list[j].Entity.ID })
	return list, nil
}

// Snapshot captures the ticket map for rollback.
func (r *Repository) Snapshot() func() {
	r.mu.RLock()
	saved := make(map[string]storedTicket, len(r.tickets))
	for id, stored := range r.tickets {
		saved[id] = stored
	}
	r.mu.RUnlock()
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.tickets = saved
	}
}

func (s storedTicket) project() *types.TicketProjection {
	return projection.New(s.ticket.Clone(), s.createdAt, s.updatedAt, s.version)
}
