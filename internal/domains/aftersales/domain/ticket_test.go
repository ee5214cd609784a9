package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func newTicket(t *testing.T, ticketType TicketType, evidence bool) *Ticket {
	t.Helper()
	ticket, err := NewTicket("t-1", NewTicketParams{
		OrderID:          "ord-1",
		OrderItemID:      "line-1",
		CustomerID:       "cust-1",
		Type:             ticketType,
		Reason:           "broken on arrival",
		EvidenceRequired: evidence,
	}, now)
	require.NoError(t, err)
	return ticket
}

func amount(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func evidence() Attachment {
	return Attachment{ID: "att-1", FileName: "photo.jpg", URL: "https://files.example/photo.jpg", UploadedBy: "staff-1", UploadedAt: now}
}

func TestNewTicket_Validation(t *testing.T) {
	cases := []struct {
		name   string
		params NewTicketParams
		err    error
	}{
		{"unknown type", NewTicketParams{OrderID: "o", CustomerID: "c", Type: "exchange", Reason: "r"}, ErrUnknownType},
		{"missing order", NewTicketParams{CustomerID: "c", Type: TypeReturn, Reason: "r"}, ErrEmptyOrder},
		{"missing customer", NewTicketParams{OrderID: "o", Type: TypeReturn, Reason: "r"}, ErrEmptyCustomer},
		{"missing reason", NewTicketParams{OrderID: "o", CustomerID: "c", Type: TypeReturn, Reason: "  "}, ErrEmptyReason},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTicket("t-1", tc.params, now)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestAssign_MovesPendingToInProgress(t *testing.T) {
	ticket := newTicket(t, TypeReturn, false)

	require.NoError(t, ticket.Assign("staff-1", now))
	assert.Equal(t, StatusInProgress, ticket.Status)
	assert.Equal(t, "staff-1", ticket.AssignedTo)

	require.NoError(t, ticket.Assign("staff-2", now))
	assert.Equal(t, "staff-2", ticket.AssignedTo)
}

func TestResolve_RequiresEvidence(t *testing.T) {
	ticket := newTicket(t, TypeReturn, true)

	err := ticket.Resolve(ResolveParams{StaffID: "staff-1"}, now)
	require.ErrorIs(t, err, ErrEvidenceRequired)
	assert.Equal(t, StatusPending, ticket.Status)

	require.NoError(t, ticket.AttachEvidence(evidence()))
	require.NoError(t, ticket.Resolve(ResolveParams{StaffID: "staff-1"}, now))
	assert.Equal(t, StatusResolved, ticket.Status)
	require.NotNil(t, ticket.ResolvedAt)
}

func TestResolve_RefundNeedsAmount(t *testing.T) {
	ticket := newTicket(t, TypeRefund, false)

	require.ErrorIs(t, ticket.Resolve(ResolveParams{StaffID: "staff-1"}, now), ErrMissingRefundAmount)
	require.ErrorIs(t, ticket.Resolve(ResolveParams{StaffID: "staff-1", RefundAmount: amount("-1")}, now), ErrNegativeRefund)

	require.NoError(t, ticket.Resolve(ResolveParams{StaffID: "staff-1", RefundAmount: amount("12.50")}, now))
	require.NotNil(t, ticket.RefundAmount)
	assert.True(t, ticket.RefundAmount.Equal(decimal.RequireFromString("12.5")))
}

func TestResolve_PendingPassesThroughInProgress(t *testing.T) {
	ticket := newTicket(t, TypeWarranty, false)

	require.NoError(t, ticket.Resolve(ResolveParams{StaffID: "staff-1"}, now))

	events := ticket.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "aftersales.ticket.assigned", events[1].EventName())
	assert.Equal(t, "aftersales.ticket.resolved", events[2].EventName())
	assert.Equal(t, "staff-1", ticket.AssignedTo)
}

func TestIllegalTransitions(t *testing.T) {
	type op struct {
		name string
		run  func(*Ticket) error
	}
	ops := []op{
		{"assign", func(tk *Ticket) error { return tk.Assign("staff-9", now) }},
		{"attach", func(tk *Ticket) error { return tk.AttachEvidence(evidence()) }},
		{"resolve", func(tk *Ticket) error { return tk.Resolve(ResolveParams{StaffID: "staff-9"}, now) }},
		{"reject", func(tk *Ticket) error { return tk.Reject("staff-9", "nope", now) }},
		{"close", func(tk *Ticket) error { return tk.Close("staff-9", now) }},
	}
	// expected error per (state, op); nil means the pair is legal.
	expected := map[Status]map[string]error{
		StatusPending:    {"assign": nil, "attach": nil, "resolve": nil, "reject": nil, "close": ErrInvalidTransition},
		StatusInProgress: {"assign": nil, "attach": nil, "resolve": nil, "reject": nil, "close": ErrInvalidTransition},
		StatusResolved:   {"assign": ErrInvalidTransition, "attach": ErrInvalidState, "resolve": ErrAlreadyInState, "reject": ErrInvalidTransition, "close": nil},
		StatusRejected:   {"assign": ErrInvalidTransition, "attach": ErrInvalidState, "resolve": ErrInvalidTransition, "reject": ErrAlreadyInState, "close": nil},
		StatusClosed:     {"assign": ErrInvalidState, "attach": ErrInvalidState, "resolve": ErrInvalidState, "reject": ErrInvalidState, "close": ErrAlreadyInState},
	}
	setups := map[Status]func(*Ticket){
		StatusPending:    func(*Ticket) {},
		StatusInProgress: func(tk *Ticket) { require.NoError(t, tk.Assign("staff-1", now)) },
		StatusResolved:   func(tk *Ticket) { require.NoError(t, tk.Resolve(ResolveParams{StaffID: "staff-1"}, now)) },
		StatusRejected:   func(tk *Ticket) { require.NoError(t, tk.Reject("staff-1", "fraud", now)) },
		StatusClosed: func(tk *Ticket) {
			require.NoError(t, tk.Reject("staff-1", "fraud", now))
			require.NoError(t, tk.Close("staff-1", now))
		},
	}

	for state, byOp := range expected {
		for _, o := range ops {
			want := byOp[o.name]
			t.Run(string(state)+"/"+o.name, func(t *testing.T) {
				ticket := newTicket(t, TypeWarranty, false)
				setups[state](ticket)
				before := ticket.Clone()

				err := o.run(ticket)

				if want == nil {
					require.NoError(t, err)
					return
				}
				require.ErrorIs(t, err, want)
				assert.Equal(t, before, ticket.Clone())
			})
		}
	}
}

func TestClose_FreezesTicket(t *testing.T) {
	ticket := newTicket(t, TypeRefund, false)
	require.NoError(t, ticket.Resolve(ResolveParams{StaffID: "staff-1", RefundAmount: amount("3")}, now))
	require.NoError(t, ticket.Close("staff-1", now))
	before := ticket.Clone()

	require.ErrorIs(t, ticket.AttachEvidence(evidence()), ErrInvalidState)
	require.ErrorIs(t, ticket.Reject("staff-1", "late", now), ErrInvalidState)
	require.ErrorIs(t, ticket.Close("staff-1", now), ErrAlreadyInState)

	assert.Equal(t, before, ticket.Clone())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusInProgress))
	assert.True(t, CanTransition(StatusRejected, StatusClosed))
	assert.False(t, CanTransition(StatusResolved, StatusRejected))
	assert.False(t, CanTransition(StatusClosed, StatusPending))
}
