package domain

import "time"

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

// RecordCreated is raised when goods are registered for approval.
type RecordCreated struct {
	BaseEvent
	RecordID   string
	SourceType SourceType
	TotalItems int64
	CreatedBy  string
}

func (e RecordCreated) EventName() string { return "inbound.record.created" }

// RecordApproved is raised when a record is approved and its items are credited.
type RecordApproved struct {
	BaseEvent
	RecordID   string
	ApprovedBy string
	Items      []Item
}

func (e RecordApproved) EventName() string { return "inbound.record.approved" }

// RecordRejected is raised when a record is rejected.
type RecordRejected struct {
	BaseEvent
	RecordID   string
	RejectedBy string
	Reason     string
}

func (e RecordRejected) EventName() string { return "inbound.record.rejected" }

// StatusTransition reports the status change carried by each event.
func (e RecordCreated) StatusTransition() (from, to string) { return "", string(StatusPendingApproval) }

func (e RecordApproved) StatusTransition() (from, to string) {
	return string(StatusPendingApproval), string(StatusApproved)
}

func (e RecordRejected) StatusTransition() (from, to string) {
	return string(StatusPendingApproval), string(StatusRejected)
}
