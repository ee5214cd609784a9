package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is the base interface for all domain events.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent provides common event metadata.
type BaseEvent struct {
	Timestamp time.Time
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

type TicketCreated struct {
	BaseEvent
	TicketID   string
	OrderID    string
	CustomerID string
	Type       TicketType
}

func (TicketCreated) EventName() string { return "aftersales.ticket.created" }

func (TicketCreated) StatusTransition() (from, to string) { return "", string(StatusPending) }

type TicketAssigned struct {
	BaseEvent
	TicketID   string
	AssignedTo string
	From       Status
}

func (TicketAssigned) EventName() string { return "aftersales.ticket.assigned" }

func (e TicketAssigned) StatusTransition() (from, to string) {
	return string(e.From), string(StatusInProgress)
}

type EvidenceAttached struct {
	BaseEvent
	TicketID     string
	AttachmentID string
	FileName     string
	Status       Status
}

func (EvidenceAttached) EventName() string { return "aftersales.ticket.evidence_attached" }

func (e EvidenceAttached) StatusTransition() (from, to string) {
	return string(e.Status), string(e.Status)
}

// TicketResolved carries the refund granted, if any.
type TicketResolved struct {
	BaseEvent
	TicketID     string
	Type         TicketType
	ResolvedBy   string
	RefundAmount *decimal.Decimal
}

func (TicketResolved) EventName() string { return "aftersales.ticket.resolved" }

func (TicketResolved) StatusTransition() (from, to string) {
	return string(StatusInProgress), string(StatusResolved)
}

type TicketRejected struct {
	BaseEvent
	TicketID   string
	RejectedBy string
	Reason     string
	From       Status
}

func (TicketRejected) EventName() string { return "aftersales.ticket.rejected" }

func (e TicketRejected) StatusTransition() (from, to string) {
	return string(e.From), string(StatusRejected)
}

type TicketClosed struct {
	BaseEvent
	TicketID string
	ClosedBy string
	From     Status
}

func (TicketClosed) EventName() string { return "aftersales.ticket.closed" }

func (e TicketClosed) StatusTransition() (from, to string) {
	return string(e.From), string(StatusClosed)
}
