package ports

import (
	"context"
	"errors"

	"github.com/Apurer/go-retail-ops/internal/domains/inbound/application/types"
	"github.com/Apurer/go-retail-ops/internal/domains/inbound/domain"
	stockports "github.com/Apurer/go-retail-ops/internal/domains/stock/ports"
)

var (
	ErrNotFound = errors.New("inbound record not found")
	// ErrVersionConflict means the record changed after it was read.
	ErrVersionConflict = errors.New("inbound record was modified concurrently")
)

// RecordFilter narrows List results.
type RecordFilter struct {
	Status domain.Status
}

// Repository persists inbound records with an optimistic version counter.
type Repository interface {
	Create(ctx context.Context, record *domain.Record) (*types.RecordProjection, error)
	GetByID(ctx context.Context, id string) (*types.RecordProjection, error)
	// Update writes record when the stored version equals expectedVersion and bumps it.
	// The returned projection wraps the same record pointer so pending events survive.
	Update(ctx context.Context, record *domain.Record, expectedVersion int64) (*types.RecordProjection, error)
	List(ctx context.Context, filter RecordFilter) ([]*types.RecordProjection, error)
}

// UnitScope is what a unit of work hands to the inbound workflow.
type UnitScope struct {
	Records Repository
	Ledger  stockports.Ledger
}

// Service exposes the inbound record use cases to adapters.
type Service interface {
	Create(ctx context.Context, input types.CreateRecordInput) (*types.RecordProjection, error)
	// Approve and Reject return the current projection alongside an already-finalized
	// error when the record had left PendingApproval.
	Approve(ctx context.Context, input types.ApproveRecordInput) (*types.RecordProjection, error)
	Reject(ctx context.Context, input types.RejectRecordInput) (*types.RecordProjection, error)
	Get(ctx context.Context, id string) (*types.RecordProjection, error)
	List(ctx context.Context, input types.ListRecordsInput) ([]*types.RecordProjection, error)
}
