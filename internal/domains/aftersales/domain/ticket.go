package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TicketType classifies an after-sales case.
type TicketType string

const (
	TypeReturn   TicketType = "return"
	TypeWarranty TicketType = "warranty"
	TypeRefund   TicketType = "refund"
)

// ParseTicketType accepts only the known ticket types; there is no default.
func ParseTicketType(raw string) (TicketType, error) {
	switch t := TicketType(strings.ToLower(strings.TrimSpace(raw))); t {
	case TypeReturn, TypeWarranty, TypeRefund:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
	}
}

// CreditsStock reports whether resolving this type puts goods back on hand.
func (t TicketType) CreditsStock() bool {
	return t == TypeReturn || t == TypeWarranty
}

// Status is the lifecycle state of a ticket.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
	StatusClosed     Status = "closed"
)

// ParseStatus validates a status filter value.
func ParseStatus(raw string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(raw))); st {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected, StatusClosed:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusResolved, StatusRejected},
	StatusResolved:   {StatusClosed},
	StatusRejected:   {StatusClosed},
	StatusClosed:     nil,
}

// CanTransition reports whether from -> to is an edge of the ticket lifecycle.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsOpen reports whether staff may still work the ticket.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusInProgress
}

var (
	ErrEmptyOrder          = errors.New("order id is required")
	ErrEmptyCustomer       = errors.New("customer id is required")
	ErrUnknownType         = errors.New("ticket type is invalid")
	ErrUnknownStatus       = errors.New("ticket status is invalid")
	ErrEmptyReason         = errors.New("reason is required")
	ErrMissingActor        = errors.New("acting staff member is required")
	ErrMissingRefundAmount = errors.New("refund amount is required for refund tickets")
	ErrNegativeRefund      = errors.New("refund amount must not be negative")
	ErrEmptyAttachment     = errors.New("attachment file name and url are required")
	ErrInvalidTransition   = errors.New("ticket transition is not allowed")
	ErrInvalidState        = errors.New("ticket does not accept this change in its current state")
	ErrEvidenceRequired    = errors.New("ticket requires evidence before it can be resolved")
	// ErrAlreadyInState means the requested transition already happened.
	ErrAlreadyInState = errors.New("ticket is already in the requested state")
)

// Attachment is one evidence file on a ticket.
type Attachment struct {
	ID          string
	FileName    string
	URL         string
	ContentType string
	UploadedBy  string
	UploadedAt  time.Time
}

// Ticket is one return, warranty or refund case for an order or a single order line.
type Ticket struct {
	ID               string
	OrderID          string
	OrderItemID      string
	CustomerID       string
	Type             TicketType
	Status           Status
	Reason           string
	RequestedAction  string
	RefundAmount     *decimal.Decimal
	EvidenceRequired bool
	AssignedTo       string
	PolicyViolation  string
	RejectionReason  string
	Attachments      []Attachment
	CreatedAt        time.Time
	ResolvedAt       *time.Time
	ResolvedBy       string
	RejectedAt       *time.Time
	RejectedBy       string
	ClosedAt         *time.Time
	ClosedBy         string

	events []Event
}

// NewTicketParams carries the submission.
type NewTicketParams struct {
	OrderID          string
	OrderItemID      string
	CustomerID       string
	Type             TicketType
	Reason           string
	RequestedAction  string
	EvidenceRequired bool
}

// NewTicket validates params and opens a pending ticket.
func NewTicket(id string, params NewTicketParams, now time.Time) (*Ticket, error) {
	ticketType, err := ParseTicketType(string(params.Type))
	if err != nil {
		return nil, err
	}
	orderID := strings.TrimSpace(params.OrderID)
	if orderID == "" {
		return nil, ErrEmptyOrder
	}
	customerID := strings.TrimSpace(params.CustomerID)
	if customerID == "" {
		return nil, ErrEmptyCustomer
	}
	reason := strings.TrimSpace(params.Reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}
	ticket := &Ticket{
		ID:               id,
		OrderID:          orderID,
		OrderItemID:      strings.TrimSpace(params.OrderItemID),
		CustomerID:       customerID,
		Type:             ticketType,
		Status:           StatusPending,
		Reason:           reason,
		RequestedAction:  strings.TrimSpace(params.RequestedAction),
		EvidenceRequired: params.EvidenceRequired,
		CreatedAt:        now,
	}
	ticket.recordEvent(TicketCreated{
		BaseEvent:  BaseEvent{Timestamp: now},
		TicketID:   id,
		OrderID:    orderID,
		CustomerID: customerID,
		Type:       ticketType,
	})
	return ticket, nil
}

// IsWholeOrder reports whether the ticket covers every line of the order.
func (t *Ticket) IsWholeOrder() bool {
	return t.OrderItemID == ""
}

// Assign hands the ticket to staff and starts work on a pending ticket.
func (t *Ticket) Assign(staffID string, now time.Time) error {
	if err := t.guardOpen(ErrInvalidTransition); err != nil {
		return err
	}
	staffID = strings.TrimSpace(staffID)
	if staffID == "" {
		return ErrMissingActor
	}
	from := t.Status
	t.AssignedTo = staffID
	t.Status = StatusInProgress
	t.recordEvent(TicketAssigned{BaseEvent: BaseEvent{Timestamp: now}, TicketID: t.ID, AssignedTo: staffID, From: from})
	return nil
}

// AttachEvidence adds a file while the ticket is still being worked.
func (t *Ticket) AttachEvidence(attachment Attachment) error {
	if err := t.guardOpen(ErrInvalidState); err != nil {
		return err
	}
	attachment.FileName = strings.TrimSpace(attachment.FileName)
	attachment.URL = strings.TrimSpace(attachment.URL)
	if attachment.FileName == "" || attachment.URL == "" {
		return ErrEmptyAttachment
	}
	attachment.UploadedBy = strings.TrimSpace(attachment.UploadedBy)
	if attachment.UploadedBy == "" {
		return ErrMissingActor
	}
	t.Attachments = append(t.Attachments, attachment)
	t.recordEvent(EvidenceAttached{
		BaseEvent:    BaseEvent{Timestamp: attachment.UploadedAt},
		TicketID:     t.ID,
		AttachmentID: attachment.ID,
		FileName:     attachment.FileName,
		Status:       t.Status,
	})
	return nil
}

// ResolveParams carries the resolution decision.
type ResolveParams struct {
	StaffID      string
	RefundAmount *decimal.Decimal
	PolicyNote   string
}

// Resolve closes the case in the customer's favour. A pending ticket is moved through
// InProgress first. The refund cap against order value is the caller's job.
func (t *Ticket) Resolve(params ResolveParams, now time.Time) error {
	if t.Status == StatusResolved {
		return ErrAlreadyInState
	}
	if err := t.guardOpen(ErrInvalidTransition); err != nil {
		return err
	}
	staffID := strings.TrimSpace(params.StaffID)
	if staffID == "" {
		return ErrMissingActor
	}
	if t.EvidenceRequired && len(t.Attachments) == 0 {
		return ErrEvidenceRequired
	}
	if t.Type == TypeRefund && params.RefundAmount == nil {
		return ErrMissingRefundAmount
	}
	if params.RefundAmount != nil && params.RefundAmount.IsNegative() {
		return ErrNegativeRefund
	}

	if t.Status == StatusPending {
		t.Status = StatusInProgress
		if t.AssignedTo == "" {
			t.AssignedTo = staffID
		}
		t.recordEvent(TicketAssigned{BaseEvent: BaseEvent{Timestamp: now}, TicketID: t.ID, AssignedTo: t.AssignedTo, From: StatusPending})
	}
	at := now
	t.Status = StatusResolved
	t.ResolvedAt = &at
	t.ResolvedBy = staffID
	if params.RefundAmount != nil {
		amount := *params.RefundAmount
		t.RefundAmount = &amount
	}
	t.PolicyViolation = strings.TrimSpace(params.PolicyNote)
	t.recordEvent(TicketResolved{
		BaseEvent:    BaseEvent{Timestamp: now},
		TicketID:     t.ID,
		Type:         t.Type,
		ResolvedBy:   staffID,
		RefundAmount: t.RefundAmount,
	})
	return nil
}

// Reject turns the case down.
func (t *Ticket) Reject(staffID, reason string, now time.Time) error {
	if t.Status == StatusRejected {
		return ErrAlreadyInState
	}
	if err := t.guardOpen(ErrInvalidTransition); err != nil {
		return err
	}
	staffID = strings.TrimSpace(staffID)
	if staffID == "" {
		return ErrMissingActor
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrEmptyReason
	}
	from := t.Status
	at := now
	t.Status = StatusRejected
	t.RejectedAt = &at
	t.RejectedBy = staffID
	t.RejectionReason = reason
	t.recordEvent(TicketRejected{BaseEvent: BaseEvent{Timestamp: now}, TicketID: t.ID, RejectedBy: staffID, Reason: reason, From: from})
	return nil
}

// Close archives a resolved or rejected ticket. Nothing changes after this.
func (t *Ticket) Close(staffID string, now time.Time) error {
	if t.Status == StatusClosed {
		return ErrAlreadyInState
	}
	if !CanTransition(t.Status, StatusClosed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusClosed)
	}
	staffID = strings.TrimSpace(staffID)
	if staffID == "" {
		return ErrMissingActor
	}
	from := t.Status
	at := now
	t.Status = StatusClosed
	t.ClosedAt = &at
	t.ClosedBy = staffID
	t.recordEvent(TicketClosed{BaseEvent: BaseEvent{Timestamp: now}, TicketID: t.ID, ClosedBy: staffID, From: from})
	return nil
}

// guardOpen rejects changes to a closed ticket with ErrInvalidState and to any other
// finished ticket with notOpen.
func (t *Ticket) guardOpen(notOpen error) error {
	if t.Status == StatusClosed {
		return fmt.Errorf("%w: ticket is closed", ErrInvalidState)
	}
	if !t.Status.IsOpen() {
		return fmt.Errorf("%w: ticket is %s", notOpen, t.Status)
	}
	return nil
}

// Clone returns a deep copy without pending events.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Attachments = append([]Attachment(nil), t.Attachments...)
	if t.RefundAmount != nil {
		amount := *t.RefundAmount
		clone.RefundAmount = &amount
	}
	clone.ResolvedAt = cloneTime(t.ResolvedAt)
	clone.RejectedAt = cloneTime(t.RejectedAt)
	clone.ClosedAt = cloneTime(t.ClosedAt)
	clone.events = nil
	return &clone
}

// Events returns the events raised since the last ClearEvents.
func (t *Ticket) Events() []Event {
	return append([]Event(nil), t.events...)
}

// ClearEvents drops pending events.
func (t *Ticket) ClearEvents() {
	t.events = nil
}

func (t *Ticket) recordEvent(e Event) {
	t.events = append(t.events, e)
}

func cloneTime(at *time.Time) *time.Time {
	if at == nil {
		return nil
	}
	v := *at
	return &v
}
