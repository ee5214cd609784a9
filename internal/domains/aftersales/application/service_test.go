package application

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ticketmemory "github.com/Apurer/go-retail-ops/internal/domains/aftersales/adapters/memory"
	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/application/types"
	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/aftersales/ports"
	ordermemory "github.com/Apurer/go-retail-ops/internal/domains/orders/adapters/memory"
	orderapp "github.com/Apurer/go-retail-ops/internal/domains/orders/application"
	orderdomain "github.com/Apurer/go-retail-ops/internal/domains/orders/domain"
	stockmemory "github.com/Apurer/go-retail-ops/internal/domains/stock/adapters/memory"
	stockapp "github.com/Apurer/go-retail-ops/internal/domains/stock/application"
	stockdomain "github.com/Apurer/go-retail-ops/internal/domains/stock/domain"
	stockports "github.com/Apurer/go-retail-ops/internal/domains/stock/ports"
	"github.com/Apurer/go-retail-ops/internal/platform/txn"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

var fixedNow = time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	tickets *ticketmemory.Repository
	stock   *stockmemory.Repository
}

// newFixture seeds order ord-1 for cust-1: line-1 is 2 x A at 19.99, line-2 is 1 x B at 5.00.
func newFixture(t *testing.T, products map[string]int64) fixture {
	t.Helper()
	ctx := context.Background()
	clock := func() time.Time { return fixedNow }

	orders := orderapp.NewService(ordermemory.NewRepository())
	order, err := orderdomain.NewOrder("ord-1", "cust-1", orderdomain.StatusDelivered, []orderdomain.Item{
		{ID: "line-1", ProductID: "A", Quantity: 2, UnitPrice: decimal.RequireFromString("19.99")},
		{ID: "line-2", ProductID: "B", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	}, fixedNow.Add(-48*time.Hour))
	require.NoError(t, err)
	_, err = orders.PlaceOrder(ctx, order)
	require.NoError(t, err)

	tickets := ticketmemory.NewRepository()
	tickets.WithClock(clock)
	stock := stockmemory.NewRepository()
	for id, qty := range products {
		entry, err := stockdomain.NewEntry(id, qty, fixedNow)
		require.NoError(t, err)
		require.NoError(t, stock.Create(ctx, entry))
	}
	scope := ports.UnitScope{Tickets: tickets, Ledger: stockapp.NewLedger(stock, clock)}
	units := txn.NewMemoryRunner[ports.UnitScope](&sync.Mutex{}, scope, tickets, stock)
	return fixture{svc: NewService(tickets, orders, units, WithClock(clock)), tickets: tickets, stock: stock}
}

func (f fixture) quantity(t *testing.T, productID string) int64 {
	t.Helper()
	entry, err := f.stock.Get(context.Background(), productID)
	require.NoError(t, err)
	return entry.Quantity
}

func (f fixture) open(t *testing.T, input types.CreateTicketInput) *types.TicketProjection {
	t.Helper()
	if input.OrderID == "" {
		input.OrderID = "ord-1"
	}
	if input.CustomerID == "" {
		input.CustomerID = "cust-1"
	}
	if input.Reason == "" {
		input.Reason = "arrived broken"
	}
	if input.EvidenceRequired == nil {
		input.EvidenceRequired = flag(false)
	}
	created, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)
	return created
}

func flag(v bool) *bool {
	return &v
}

func amount(raw string) *decimal.Decimal {
	d := decimal.RequireFromString(raw)
	return &d
}

func TestCreate_OpensPendingTicket(t *testing.T) {
	f := newFixture(t, nil)

	created := f.open(t, types.CreateTicketInput{OrderItemID: "line-1", Type: "return"})

	assert.NotEmpty(t, created.Entity.ID)
	assert.Equal(t, domain.StatusPending, created.Entity.Status)
	assert.Equal(t, domain.TypeReturn, created.Entity.Type)
	assert.Equal(t, int64(1), created.Metadata.Version)
	require.Len(t, created.Entity.Events(), 1)
	assert.Equal(t, "aftersales.ticket.created", created.Entity.Events()[0].EventName())
}

func TestCreate_EvidenceRequiredUnlessWaived(t *testing.T) {
	f := newFixture(t, map[string]int64{"A": 0})
	ctx := context.Background()

	created, err := f.svc.Create(ctx, types.CreateTicketInput{OrderID: "ord-1", OrderItemID: "line-1", CustomerID: "cust-1", Type: "return", Reason: "torn"})
	require.NoError(t, err)
	assert.True(t, created.Entity.EvidenceRequired)

	_, err = f.svc.Resolve(ctx, types.ResolveTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1"})
	require.ErrorIs(t, err, failures.ErrEvidenceRequired)

	waived := f.open(t, types.CreateTicketInput{OrderItemID: "line-1", Type: "return", EvidenceRequired: flag(false)})
	assert.False(t, waived.Entity.EvidenceRequired)
}

func TestCreate_ValidatesOrderReferences(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, types.CreateTicketInput{OrderID: "missing", CustomerID: "cust-1", Type: "return", Reason: "x"})
	require.ErrorIs(t, err, failures.ErrNotFound)

	_, err = f.svc.Create(ctx, types.CreateTicketInput{OrderID: "ord-1", OrderItemID: "line-9", CustomerID: "cust-1", Type: "return", Reason: "x"})
	require.ErrorIs(t, err, failures.ErrNotFound)

	_, err = f.svc.Create(ctx, types.CreateTicketInput{OrderID: "ord-1", CustomerID: "someone-else", Type: "return", Reason: "x"})
	require.ErrorIs(t, err, failures.ErrValidation)
	require.ErrorIs(t, err, ErrCustomerMismatch)

	_, err = f.svc.Create(ctx, types.CreateTicketInput{OrderID: "ord-1", CustomerID: "cust-1", Type: "exchange", Reason: "x"})
	require.ErrorIs(t, err, failures.ErrValidation)
}

func TestResolve_RefundAboveLineValueIsRejected(t *testing.T) {
	f := newFixture(t, nil)
	created := f.open(t, types.CreateTicketInput{OrderItemID: "line-1", Type: "refund"})

	_, err := f.svc.Resolve(context.Background(), types.ResolveTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1", RefundAmount: amount("40.00")})

	require.ErrorIs(t, err, failures.ErrValidation)
	require.ErrorIs(t, err, ErrRefundExceedsOrderValue)
	stored, err := f.svc.Get(context.Background(), created.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Entity.Status)
}

func TestResolve_RefundWithinValueLeavesStock(t *testing.T) {
	f := newFixture(t, map[string]int64{"A": 3})
	created := f.open(t, types.CreateTicketInput{OrderItemID: "line-1", Type: "refund"})

	resolved, err := f.svc.Resolve(context.Background(), types.ResolveTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1", RefundAmount: amount("39.98")})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, resolved.Entity.Status)
	require.NotNil(t, resolved.Entity.RefundAmount)
	assert.True(t, resolved.Entity.RefundAmount.Equal(decimal.RequireFromString("39.98")))
	assert.Equal(t, int64(3), f.quantity(t, "A"))
}

func TestResolve_RefundRequiresAmount(t *testing.T) {
	f := newFixture(t, nil)
	created := f.open(t, types.CreateTicketInput{Type: "refund"})

	_, err := f.svc.Resolve(context.Background(), types.ResolveTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1"})

	require.ErrorIs(t, err, failures.ErrValidation)
}

func TestResolve_ReturnNeedsEvidenceThenCreditsLine(t *testing.T) {
	f := newFixture(t, map[string]int64{"A": 5, "B": 1})
	ctx := context.Background()
	created := f.open(t, types.CreateTicketInput{OrderItemID: "line-1", Type: "return", EvidenceRequired: flag(true)})
	_, err := f.svc.Assign(ctx, types.AssignTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1"})
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, types.ResolveTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1"})
	require.ErrorIs(t, err, failures.ErrEvidenceRequired)
	assert.Equal(t, int64(5), f.quantity(t, "A"))

	attached, err := f.svc.AttachEvidence(ctx, types.AttachEvidenceInput{
		TicketID:   created.Entity.ID,
		UploadedBy: "cust-1",
		Attachment: types.AttachmentInput{FileName: "photo.jpg", URL: "https://files.example/photo.jpg", ContentType: "image/jpeg"},
	})
	require.NoError(t, err)
	require.Len(t, attached.Entity.Attachments, 1)
	assert.NotEmpty(t, attached.Entity.Attachments[0].ID)

	resolved, err := f.svc.Resolve(ctx, types.ResolveTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, resolved.Entity.Status)
	assert.Equal(t, int64(4), resolved.Metadata.Version)
	assert.Equal(t, int64(7), f.quantity(t, "A"))
	assert.Equal(t, int64(1), f.quantity(t, "B"))

	movements, err := f.stock.MovementsByCorrelation(ctx, created.Entity.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, stockdomain.ReasonTicketResolved, movements[0].Reason)
}

func TestResolve_WholeOrderWarrantyCreditsEveryLine(t *testing.T) {
	f := newFixture(t, map[string]int64{"A": 0, "B": 0})
	created := f.open(t, types.CreateTicketInput{Type: "warranty"})

	resolved, err := f.svc.Resolve(context.Background(), types.ResolveTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1"})

	require.NoError(t, err)
	assert.Equal(t, "staff-1", resolved.Entity.AssignedTo)
	assert.Equal(t, int64(2), f.quantity(t, "A"))
	assert.Equal(t, int64(1), f.quantity(t, "B"))
}

func TestResolve_SecondCallIsAlreadyFinalized(t *testing.T) {
	f := newFixture(t, map[string]int64{"A": 0})
	ctx := context.Background()
	created := f.open(t, types.CreateTicketInput{OrderItemID: "line-1", Type: "return"})
	_, err := f.svc.Resolve(ctx, types.ResolveTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1"})
	require.NoError(t, err)

	again, err := f.svc.Resolve(ctx, types.ResolveTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1"})

	require.ErrorIs(t, err, failures.ErrAlreadyFinalized)
	require.NotNil(t, again)
	assert.Equal(t, domain.StatusResolved, again.Entity.Status)
	assert.Equal(t, int64(2), f.quantity(t, "A"))
}

func TestResolve_UnknownProductRollsBack(t *testing.T) {
	f := newFixture(t, map[string]int64{"A": 1})
	ctx := context.Background()
	created := f.open(t, types.CreateTicketInput{Type: "return"})

	result, err := f.svc.Resolve(ctx, types.ResolveTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1"})

	require.ErrorIs(t, err, failures.ErrPartialFailure)
	assert.Nil(t, result)
	var partial *failures.PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "B", partial.ProductID)
	assert.Equal(t, 1, partial.Line)

	assert.Equal(t, int64(1), f.quantity(t, "A"))
	stored, err := f.svc.Get(ctx, created.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Entity.Status)
	assert.Equal(t, int64(1), stored.Metadata.Version)
}

func TestResolve_ConcurrentCallsCreditOnce(t *testing.T) {
	f := newFixture(t, map[string]int64{"A": 0})
	created := f.open(t, types.CreateTicketInput{OrderItemID: "line-1", Type: "return"})

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		finalized atomic.Int32
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Resolve(context.Background(), types.ResolveTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1"})
			switch {
			case err == nil:
				succeeded.Add(1)
			case failures.Kind(err) == failures.ErrAlreadyFinalized:
				finalized.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(5), finalized.Load())
	assert.Equal(t, int64(2), f.quantity(t, "A"))
}

func TestReject_ThenCloseFreezesTicket(t *testing.T) {
	f := newFixture(t, map[string]int64{"A": 0})
	ctx := context.Background()
	created := f.open(t, types.CreateTicketInput{OrderItemID: "line-1", Type: "return"})

	rejected, err := f.svc.Reject(ctx, types.RejectTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1", Reason: "outside return window"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Entity.Status)

	_, err = f.svc.Resolve(ctx, types.ResolveTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1"})
	require.ErrorIs(t, err, failures.ErrInvalidTransition)

	closed, err := f.svc.Close(ctx, types.CloseTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, closed.Entity.Status)

	_, err = f.svc.AttachEvidence(ctx, types.AttachEvidenceInput{
		TicketID:   created.Entity.ID,
		UploadedBy: "cust-1",
		Attachment: types.AttachmentInput{FileName: "late.jpg", URL: "https://files.example/late.jpg"},
	})
	require.ErrorIs(t, err, failures.ErrInvalidState)

	_, err = f.svc.Close(ctx, types.CloseTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1"})
	require.ErrorIs(t, err, failures.ErrAlreadyFinalized)
	assert.Equal(t, int64(0), f.quantity(t, "A"))
}

func TestClose_PendingTicketIsInvalidTransition(t *testing.T) {
	f := newFixture(t, nil)
	created := f.open(t, types.CreateTicketInput{Type: "refund"})

	_, err := f.svc.Close(context.Background(), types.CloseTicketInput{TicketID: created.Entity.ID, StaffID: "staff-1"})

	require.ErrorIs(t, err, failures.ErrInvalidTransition)
}

type conflictingRepository struct {
	ports.Repository
	conflicts atomic.Int32
}

func (r *conflictingRepository) Update(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) (*types.TicketProjection, error) {
	if r.conflicts.Add(1) == 1 {
		return nil, ports.ErrVersionConflict
	}
	return r.Repository.Update(ctx, ticket, expectedVersion)
}

func TestAssign_RetriesAfterLostUpdate(t *testing.T) {
	base := newFixture(t, nil)
	flaky := &conflictingRepository{Repository: base.tickets}
	created := base.open(t, types.CreateTicketInput{Type: "refund"})
	units := txn.NewMemoryRunner[ports.UnitScope](nil, ports.UnitScope{Tickets: flaky}, base.tickets)
	svc := NewService(base.tickets, base.svc.orders, units, WithClock(func() time.Time { return fixedNow }))

	assigned, err := svc.Assign(context.Background(), types.AssignTicketInput{TicketID: created.Entity.ID, StaffID: "staff-2"})

	require.NoError(t, err)
	assert.Equal(t, "staff-2", assigned.Entity.AssignedTo)
	assert.Equal(t, int32(2), flaky.conflicts.Load())
}

func TestList_Filters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first := f.open(t, types.CreateTicketInput{Type: "refund"})
	f.open(t, types.CreateTicketInput{Type: "warranty"})
	_, err := f.svc.Assign(ctx, types.AssignTicketInput{TicketID: first.Entity.ID, StaffID: "staff-9"})
	require.NoError(t, err)

	mine, err := f.svc.List(ctx, types.ListTicketsInput{AssignedTo: "staff-9"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.Entity.ID, mine[0].Entity.ID)

	pending, err := f.svc.List(ctx, types.ListTicketsInput{Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	byOrder, err := f.svc.List(ctx, types.ListTicketsInput{OrderID: "ord-1"})
	require.NoError(t, err)
	assert.Len(t, byOrder, 2)

	_, err = f.svc.List(ctx, types.ListTicketsInput{Status: "archived"})
	require.ErrorIs(t, err, failures.ErrValidation)
}

type recordingLedger struct {
	stockports.Ledger
	applied []stockdomain.Delta
}

func (l *recordingLedger) ApplyDelta(_ context.Context, delta stockdomain.Delta) (*stockdomain.Movement, error) {
	l.applied = append(l.applied, delta)
	return &stockdomain.Movement{ProductID: delta.ProductID, Delta: delta.Quantity, Line: delta.Line}, nil
}

func TestCreditStock_LocksEntriesInProductOrder(t *testing.T) {
	ledger := &recordingLedger{}
	credits := []creditLine{
		{productID: "B", quantity: 1, line: 0},
		{productID: "A", quantity: 2, line: 1},
	}

	err := creditStock(context.Background(), ports.UnitScope{Ledger: ledger}, "ticket-1", credits)

	require.NoError(t, err)
	require.Len(t, ledger.applied, 2)
	assert.Equal(t, "A", ledger.applied[0].ProductID)
	assert.Equal(t, 1, ledger.applied[0].Line)
	assert.Equal(t, "B", ledger.applied[1].ProductID)
	assert.Equal(t, 0, ledger.applied[1].Line)
	assert.Equal(t, "B", credits[0].productID)
}
