package ports

import (
	"context"
	"errors"

	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/application/types"
	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/domain"
	stockports "github.com/Apurer/go-retail-ops/internal/domains/stock/ports"
)

var (
	ErrNotFound = errors.New("ticket not found")
	// ErrVersionConflict means the ticket changed after it was read.
	ErrVersionConflict = errors.New("ticket was modified concurrently")
)

// TicketFilter narrows List results.
type TicketFilter struct {
	Status     domain.Status
	AssignedTo string
	OrderID    string
}

// Repository persists tickets with an optimistic version counter.
type Repository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*types.TicketProjection, error)
	GetByID(ctx context.Context, id string) (*types.TicketProjection, error)
	// Update writes ticket when the stored version equals expectedVersion and bumps it.
	// The returned projection wraps the same ticket pointer so pending events survive.
	Update(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) (*types.TicketProjection, error)
	List(ctx context.Context, filter TicketFilter) ([]*types.TicketProjection, error)
}

// UnitScope is what a unit of work hands to the ticket workflow.
type UnitScope struct {
	Tickets Repository
	Ledger  stockports.Ledger
}

// Service exposes the after-sales use cases to adapters. Transitions that already
// happened return the current projection alongside an already-finalized error.
type Service interface {
	Create(ctx context.Context, input types.CreateTicketInput) (*types.TicketProjection, error)
	Assign(ctx context.Context, input types.AssignTicketInput) (*types.TicketProjection, error)
	AttachEvidence(ctx context.Context, input types.AttachEvidenceInput) (*types.TicketProjection, error)
	Resolve(ctx context.Context, input types.ResolveTicketInput) (*types.TicketProjection, error)
	Reject(ctx context.Context, input types.RejectTicketInput) (*types.TicketProjection, error)
	Close(ctx context.Context, input types.CloseTicketInput) (*types.TicketProjection, error)
	Get(ctx context.Context, id string) (*types.TicketProjection, error)
	List(ctx context.Context, input types.ListTicketsInput) ([]*types.TicketProjection, error)
}
