package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// SourceType says where received goods came from.
type SourceType string

const (
	SourceSupplier   SourceType = "supplier"
	SourceReturn     SourceType = "return"
	SourceAdjustment SourceType = "adjustment"
)

// ParseSourceType accepts only the known source types; there is no default.
func ParseSourceType(raw string) (SourceType, error) {
	switch st := SourceType(strings.ToLower(strings.TrimSpace(raw))); st {
	case SourceSupplier, SourceReturn, SourceAdjustment:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSourceType, raw)
	}
}

// RequiresReference reports whether records of this source must cite a reference document.
func (s SourceType) RequiresReference() bool {
	return s == SourceSupplier || s == SourceReturn
}

// Status is the approval state of a record.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

// ParseStatus validates a status filter value.
func ParseStatus(raw string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(raw))); st {
	case StatusPendingApproval, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
}

var (
	ErrNoItems                = errors.New("inbound record needs at least one item")
	ErrEmptyProduct           = errors.New("item product id is required")
	ErrInvalidQuantity        = errors.New("item quantity must be greater than zero")
	ErrTotalMismatch          = errors.New("total items does not match the sum of item quantities")
	ErrTotalOverflow          = errors.New("sum of item quantities is too large")
	ErrUnknownSourceType      = errors.New("source type is invalid")
	ErrUnknownStatus          = errors.New("record status is invalid")
	ErrMissingSourceReference = errors.New("source reference is required for this source type")
	ErrMissingActor           = errors.New("acting user is required")
	ErrMissingReason          = errors.New("rejection reason is required")
	ErrFinalized              = errors.New("inbound record is already approved or rejected")
)

// Item is one received product line.
type Item struct {
	ProductID string
	Quantity  int64
}

// Record is a batch of goods awaiting approval before it counts as stock.
type Record struct {
	ID              string
	SourceType      SourceType
	SourceReference string
	Status          Status
	Items           []Item
	TotalItems      int64
	Notes           string
	CreatedAt       time.Time
	CreatedBy       string
	ApprovedAt      *time.Time
	ApprovedBy      string
	RejectedAt      *time.Time
	RejectedBy      string
	RejectionReason string

	events []Event
}

// NewRecordParams carries the creation request.
type NewRecordParams struct {
	SourceType      SourceType
	SourceReference string
	Items           []Item
	TotalItems      int64
	Notes           string
	CreatedBy       string
}

// NewRecord validates params and builds a record pending approval.
func NewRecord(id string, params NewRecordParams, now time.Time) (*Record, error) {
	sourceType, err := ParseSourceType(string(params.SourceType))
	if err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(params.SourceReference)
	if sourceType.RequiresReference() && reference == "" {
		return nil, ErrMissingSourceReference
	}
	createdBy := strings.TrimSpace(params.CreatedBy)
	if createdBy == "" {
		return nil, ErrMissingActor
	}
	if len(params.Items) == 0 {
		return nil, ErrNoItems
	}
	items := make([]Item, 0, len(params.Items))
	var sum int64
	for i, item := range params.Items {
		productID := strings.TrimSpace(item.ProductID)
		if productID == "" {
			return nil, fmt.Errorf("item %d: %w", i, ErrEmptyProduct)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item %d: %w", i, ErrInvalidQuantity)
		}
		if item.Quantity > math.MaxInt64-sum {
			return nil, fmt.Errorf("item %d: %w", i, ErrTotalOverflow)
		}
		sum += item.Quantity
		items = append(items, Item{ProductID: productID, Quantity: item.Quantity})
	}
	if params.TotalItems != sum {
		return nil, fmt.Errorf("%w: declared %d, counted %d", ErrTotalMismatch, params.TotalItems, sum)
	}
	record := &Record{
		ID:              id,
		SourceType:      sourceType,
		SourceReference: reference,
		Status:          StatusPendingApproval,
		Items:           items,
		TotalItems:      sum,
		Notes:           strings.TrimSpace(params.Notes),
		CreatedAt:       now,
		CreatedBy:       createdBy,
	}
	record.recordEvent(RecordCreated{
		BaseEvent:  BaseEvent{Timestamp: now},
		RecordID:   id,
		SourceType: record.SourceType,
		TotalItems: sum,
		CreatedBy:  createdBy,
	})
	return record, nil
}

// IsFinalized reports whether the record left PendingApproval.
func (r *Record) IsFinalized() bool {
	return r.Status != StatusPendingApproval
}

// Approve finalizes the record as approved. Stock crediting is the caller's job.
func (r *Record) Approve(approver string, now time.Time) error {
	if r.IsFinalized() {
		return ErrFinalized
	}
	approver = strings.TrimSpace(approver)
	if approver == "" {
		return ErrMissingActor
	}
	at := now
	r.Status = StatusApproved
	r.ApprovedAt = &at
	r.ApprovedBy = approver
	r.recordEvent(RecordApproved{BaseEvent: BaseEvent{Timestamp: now}, RecordID: r.ID, ApprovedBy: approver, Items: r.CloneItems()})
	return nil
}

// Reject finalizes the record as rejected.
func (r *Record) Reject(approver, reason string, now time.Time) error {
	if r.IsFinalized() {
		return ErrFinalized
	}
	approver = strings.TrimSpace(approver)
	if approver == "" {
		return ErrMissingActor
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrMissingReason
	}
	at := now
	r.Status = StatusRejected
	r.RejectedAt = &at
	r.RejectedBy = approver
	r.RejectionReason = reason
	r.recordEvent(RecordRejected{BaseEvent: BaseEvent{Timestamp: now}, RecordID: r.ID, RejectedBy: approver, Reason: reason})
	return nil
}

// CloneItems returns a copy of the item lines.
func (r *Record) CloneItems() []Item {
	return append([]Item(nil), r.Items...)
}

// Clone returns a deep copy without pending events.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Items = r.CloneItems()
	if r.ApprovedAt != nil {
		at := *r.ApprovedAt
		clone.ApprovedAt = &at
	}
	if r.RejectedAt != nil {
		at := *r.RejectedAt
		clone.RejectedAt = &at
	}
	clone.events = nil
	return &clone
}

// Events returns the events raised since the last ClearEvents.
func (r *Record) Events() []Event {
	return append([]Event(nil), r.events...)
}

// ClearEvents drops pending events.
func (r *Record) ClearEvents() {
	r.events = nil
}

func (r *Record) recordEvent(e Event) {
	r.events = append(r.events, e)
}
