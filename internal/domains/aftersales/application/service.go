package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/application/types"
	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/ports"
	orderdomain "github.com/Apurer/go-retail-ops/internal/domains/orders/domain"
	orderports "github.com/Apurer/go-retail-ops/internal/domains/orders/ports"
	stockdomain "github.com/Apurer/go-retail-ops/internal/domains/stock/domain"
	"github.com/Apurer/go-retail-ops/internal/platform/txn"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

// maxAttempts bounds retries after a lost optimistic update.
const maxAttempts = 2

// Service runs the after-sales ticket workflow.
type Service struct {
	tickets ports.Repository
	orders  orderports.Reader
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

// NewService wires the ticket service. orders is read to validate references, cap
// refunds and size stock credits; units scopes every transition.
func NewService(tickets ports.Repository, orders orderports.Reader, units txn.Runner[ports.UnitScope], opts ...Option) *Service {
	s := &Service{tickets: tickets, orders: orders, units: units, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create opens a pending ticket against an existing order owned by the customer.
func (s *Service) Create(ctx context.Context, input types.CreateTicketInput) (*types.TicketProjection, error) {
	ticketType, err := domain.ParseTicketType(input.Type)
	if err != nil {
		return nil, mapError(err)
	}
	order, err := s.orders.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, mapError(err)
	}
	if input.OrderItemID != "" {
		if _, err := s.orders.GetOrderItem(ctx, input.OrderID, input.OrderItemID); err != nil {
			return nil, mapError(err)
		}
	}
	if order.CustomerID != input.CustomerID {
		return nil, mapError(fmt.Errorf("%w: order %q", ErrCustomerMismatch, input.OrderID))
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate ticket id: %w", err)
	}
	ticket, err := domain.NewTicket(id.String(), domain.NewTicketParams{
		OrderID:          input.OrderID,
		OrderItemID:      input.OrderItemID,
		CustomerID:       input.CustomerID,
		Type:             ticketType,
		Reason:           input.Reason,
		RequestedAction:  input.RequestedAction,
		EvidenceRequired: input.RequiresEvidence(),
	}, s.now().UTC())
	if err != nil {
		return nil, mapError(err)
	}
	var saved *types.TicketProjection
	err = s.units.Do(ctx, func(ctx context.Context, scope ports.UnitScope) error {
		var err error
		saved, err = scope.Tickets.Create(ctx, ticket)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

// Assign hands the ticket to a staff member.
func (s *Service) Assign(ctx context.Context, input types.AssignTicketInput) (*types.TicketProjection, error) {
	return s.transition(ctx, input.TicketID, func(_ context.Context, ticket *domain.Ticket, now time.Time) error {
		return ticket.Assign(input.StaffID, now)
	}, nil)
}

// AttachEvidence adds an evidence file to an open ticket.
func (s *Service) AttachEvidence(ctx context.Context, input types.AttachEvidenceInput) (*types.TicketProjection, error) {
	return s.transition(ctx, input.TicketID, func(_ context.Context, ticket *domain.Ticket, now time.Time) error {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate attachment id: %w", err)
		}
		return ticket.AttachEvidence(domain.Attachment{
			ID:          id.String(),
			FileName:    input.Attachment.FileName,
			URL:         input.Attachment.URL,
			ContentType: input.Attachment.ContentType,
			UploadedBy:  input.UploadedBy,
			UploadedAt:  now,
		})
	}, nil)
}

// Resolve settles the ticket. Return and warranty tickets put the goods back on hand
// in the same unit; refund tickets record the amount granted.
func (s *Service) Resolve(ctx context.Context, input types.ResolveTicketInput) (*types.TicketProjection, error) {
	var credits []creditLine
	mutate := func(ctx context.Context, ticket *domain.Ticket, now time.Time) error {
		credits = nil
		params := domain.ResolveParams{StaffID: input.StaffID, RefundAmount: input.RefundAmount, PolicyNote: input.PolicyNote}
		if !ticket.Status.IsOpen() {
			return ticket.Resolve(params, now)
		}
		plan, err := s.planResolution(ctx, ticket)
		if err != nil {
			return err
		}
		if err := ticket.Resolve(params, now); err != nil {
			return err
		}
		if ticket.RefundAmount != nil && ticket.RefundAmount.GreaterThan(plan.refundCap) {
			return fmt.Errorf("%w: %s > %s", ErrRefundExceedsOrderValue, ticket.RefundAmount.String(), plan.refundCap.String())
		}
		credits = plan.credits
		return nil
	}
	after := func(ctx context.Context, scope ports.UnitScope, ticket *domain.Ticket) error {
		return creditStock(ctx, scope, ticket.ID, credits)
	}
	return s.transition(ctx, input.TicketID, mutate, after)
}

// Reject turns the ticket down without touching stock.
func (s *Service) Reject(ctx context.Context, input types.RejectTicketInput) (*types.TicketProjection, error) {
	return s.transition(ctx, input.TicketID, func(_ context.Context, ticket *domain.Ticket, now time.Time) error {
		return ticket.Reject(input.StaffID, input.Reason, now)
	}, nil)
}

// Close archives a resolved or rejected ticket.
func (s *Service) Close(ctx context.Context, input types.CloseTicketInput) (*types.TicketProjection, error) {
	return s.transition(ctx, input.TicketID, func(_ context.Context, ticket *domain.Ticket, now time.Time) error {
		return ticket.Close(input.StaffID, now)
	}, nil)
}

func (s *Service) Get(ctx context.Context, id string) (*types.TicketProjection, error) {
	result, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (s *Service) List(ctx context.Context, input types.ListTicketsInput) ([]*types.TicketProjection, error) {
	filter := ports.TicketFilter{AssignedTo: input.AssignedTo, OrderID: input.OrderID}
	if input.Status != "" {
		status, err := domain.ParseStatus(input.Status)
		if err != nil {
			return nil, mapError(err)
		}
		filter.Status = status
	}
	result, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

type creditLine struct {
	productID string
	quantity  int64
	line      int
}

type resolutionPlan struct {
	refundCap decimal.Decimal
	credits   []creditLine
}

// planResolution reads the order to find the refund ceiling and, for types that
// return goods, the lines to credit. Lines are keyed by their position in the order.
func (s *Service) planResolution(ctx context.Context, ticket *domain.Ticket) (resolutionPlan, error) {
	order, err := s.orders.GetOrder(ctx, ticket.OrderID)
	if err != nil {
		return resolutionPlan{}, err
	}
	var plan resolutionPlan
	var lines []orderdomain.Item
	if ticket.IsWholeOrder() {
		plan.refundCap = order.Total()
		lines = order.Items
	} else {
		item, ok := order.Item(ticket.OrderItemID)
		if !ok {
			return resolutionPlan{}, failures.Wrap(failures.ErrNotFound,
				fmt.Errorf("%w: %q in order %q", orderports.ErrItemNotFound, ticket.OrderItemID, ticket.OrderID))
		}
		plan.refundCap = item.Total()
		lines = []orderdomain.Item{item}
	}
	if !ticket.Type.CreditsStock() {
		return plan, nil
	}
	for _, item := range lines {
		plan.credits = append(plan.credits, creditLine{productID: item.ProductID, quantity: item.Quantity, line: position(order, item.ID)})
	}
	return plan, nil
}

func position(order *orderdomain.Order, itemID string) int {
	for i, item := range order.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

// creditStock locks and credits stock entries in product id order.
func creditStock(ctx context.Context, scope ports.UnitScope, ticketID string, credits []creditLine) error {
	ordered := make([]creditLine, len(credits))
	copy(ordered, credits)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].productID < ordered[j].productID })
	for _, credit := range ordered {
		_, err := scope.Ledger.ApplyDelta(ctx, stockdomain.Delta{
			ProductID:     credit.productID,
			Quantity:      credit.quantity,
			Reason:        stockdomain.ReasonTicketResolved,
			CorrelationID: ticketID,
			Line:          credit.line,
		})
		if err != nil {
			return &failures.PartialFailureError{Step: "credit returned stock", ProductID: credit.productID, Line: credit.line, Err: err}
		}
	}
	return nil
}

type mutation func(ctx context.Context, ticket *domain.Ticket, now time.Time) error

type effect func(ctx context.Context, scope ports.UnitScope, ticket *domain.Ticket) error

// transition loads, mutates and saves a ticket inside one unit of work, then runs
// the effect in that same unit. A lost update is retried once from a fresh read.
func (s *Service) transition(ctx context.Context, id string, mutate mutation, after effect) (*types.TicketProjection, error) {
	var (
		result  *types.TicketProjection
		current *types.TicketProjection
		err     error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, current, err = s.attempt(ctx, id, mutate, after)
		if !errors.Is(err, ports.ErrVersionConflict) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyInState) {
			return current, mapError(err)
		}
		return nil, mapError(err)
	}
	return result, nil
}

func (s *Service) attempt(ctx context.Context, id string, mutate mutation, after effect) (result, current *types.TicketProjection, err error) {
	err = s.units.Do(ctx, func(ctx context.Context, scope ports.UnitScope) error {
		loaded, err := scope.Tickets.GetByID(ctx, id)
		if err != nil {
			return err
		}
		current = loaded
		ticket := loaded.Entity.Clone()
		if err := mutate(ctx, ticket, s.now().UTC()); err != nil {
			return err
		}
		saved, err := scope.Tickets.Update(ctx, ticket, loaded.Metadata.Version)
		if err != nil {
			return err
		}
		if after != nil {
			if err := after(ctx, scope, ticket); err != nil {
				return err
			}
		}
		result = saved
		return nil
	})
	return result, current, err
}

var _ ports.Service = (*Service)(nil)
