package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/go-retail-ops/internal/domains/inbound/application/types"
	"github.com/Apurer/go-retail-ops/internal/domains/inbound/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/inbound/ports"
	stockdomain "github.com/Apurer/go-retail-ops/internal/domains/stock/domain"
	"github.com/Apurer/go-retail-ops/internal/platform/txn"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

// maxAttempts bounds retries after a lost optimistic update.
const maxAttempts = 2

// Service runs the inbound record workflow.
type Service struct {
	records ports.Repository
	units   txn.Runner[ports.UnitScope]
	now     func() time.Time
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

// NewService wires the inbound service. records serves reads and creation;
// units scopes approval so the status change and stock credits commit together.
func NewService(records ports.Repository, units txn.Runner[ports.UnitScope], opts ...Option) *Service {
	s := &Service{records: records, units: units, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create validates the request and stores a record pending approval.
func (s *Service) Create(ctx context.Context, input types.CreateRecordInput) (*types.RecordProjection, error) {
	sourceType, err := domain.ParseSourceType(input.SourceType)
	if err != nil {
		return nil, mapError(err)
	}
	items := make([]domain.Item, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, domain.Item{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate record id: %w", err)
	}
	record, err := domain.NewRecord(id.String(), domain.NewRecordParams{
		SourceType:      sourceType,
		SourceReference: input.SourceReference,
		Items:           items,
		TotalItems:      input.TotalItems,
		Notes:           input.Notes,
		CreatedBy:       input.CreatedBy,
	}, s.now().UTC())
	if err != nil {
		return nil, mapError(err)
	}
	var saved *types.RecordProjection
	err = s.units.Do(ctx, func(ctx context.Context, scope ports.UnitScope) error {
		var err error
		saved, err = scope.Records.Create(ctx, record)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

// Approve finalizes a pending record and credits every item to stock in the same unit.
// A failed credit rolls the whole unit back and names the failing item.
func (s *Service) Approve(ctx context.Context, input types.ApproveRecordInput) (*types.RecordProjection, error) {
	return s.transition(ctx, input.RecordID,
		func(record *domain.Record, now time.Time) error {
			return record.Approve(input.Approver, now)
		},
		creditItems,
	)
}

// Reject finalizes a pending record without touching stock.
func (s *Service) Reject(ctx context.Context, input types.RejectRecordInput) (*types.RecordProjection, error) {
	return s.transition(ctx, input.RecordID,
		func(record *domain.Record, now time.Time) error {
			return record.Reject(input.Approver, input.Reason, now)
		},
		nil,
	)
}

// Get loads a single record.
func (s *Service) Get(ctx context.Context, id string) (*types.RecordProjection, error) {
	result, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// List returns records, optionally filtered by status.
func (s *Service) List(ctx context.Context, input types.ListRecordsInput) ([]*types.RecordProjection, error) {
	var filter ports.RecordFilter
	if input.Status != "" {
		status, err := domain.ParseStatus(input.Status)
		if err != nil {
			return nil, mapError(err)
		}
		filter.Status = status
	}
	result, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

type mutation func(record *domain.Record, now time.Time) error

type effect func(ctx context.Context, scope ports.UnitScope, record *domain.Record) error

// transition loads, mutates and saves a record inside one unit of work, then runs
// the effect in that same unit. A lost update is retried once from a fresh read.
func (s *Service) transition(ctx context.Context, id string, mutate mutation, after effect) (*types.RecordProjection, error) {
	var (
		result  *types.RecordProjection
		current *types.RecordProjection
		err     error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, current, err = s.attempt(ctx, id, mutate, after)
		if !errors.Is(err, ports.ErrVersionConflict) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrFinalized) {
			return current, mapError(err)
		}
		return nil, mapError(err)
	}
	return result, nil
}

func (s *Service) attempt(ctx context.Context, id string, mutate mutation, after effect) (result, current *types.RecordProjection, err error) {
	err = s.units.Do(ctx, func(ctx context.Context, scope ports.UnitScope) error {
		loaded, err := scope.Records.GetByID(ctx, id)
		if err != nil {
			return err
		}
		current = loaded
		record := loaded.Entity.Clone()
		if err := mutate(record, s.now().UTC()); err != nil {
			return err
		}
		saved, err := scope.Records.Update(ctx, record, loaded.Metadata.Version)
		if err != nil {
			return err
		}
		if after != nil {
			if err := after(ctx, scope, record); err != nil {
				return err
			}
		}
		result = saved
		return nil
	})
	return result, current, err
}

// creditItems locks and credits stock entries in product id order.
// Each credit keeps the line of its item.
func creditItems(ctx context.Context, scope ports.UnitScope, record *domain.Record) error {
	lines := make([]int, len(record.Items))
	for i := range lines {
		lines[i] = i
	}
	sort.SliceStable(lines, func(a, b int) bool {
		return record.Items[lines[a]].ProductID < record.Items[lines[b]].ProductID
	})
	for _, line := range lines {
		item := record.Items[line]
		_, err := scope.Ledger.ApplyDelta(ctx, stockdomain.Delta{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			Reason:        stockdomain.ReasonInboundApproved,
			CorrelationID: record.ID,
			Line:          line,
		})
		if err != nil {
			return &failures.PartialFailureError{Step: "credit stock", ProductID: item.ProductID, Line: line, Err: err}
		}
	}
	return nil
}

var _ ports.Service = (*Service)(nil)
