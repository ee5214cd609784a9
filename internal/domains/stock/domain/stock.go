package domain

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Reason classifies why a stock quantity moved.
type Reason string

const (
	ReasonInboundApproved  Reason = "inbound_approved"
	ReasonTicketResolved   Reason = "ticket_resolved"
	ReasonManualAdjustment Reason = "manual_adjustment"
)

var (
	ErrEmptyProduct       = errors.New("product id is required")
	ErrZeroDelta          = errors.New("stock delta must not be zero")
	ErrMissingCorrelation = errors.New("correlation id is required")
	ErrUnknownReason      = errors.New("stock movement reason is invalid")
	ErrNegativeQuantity   = errors.New("stock quantity must not be negative")
	ErrInsufficientStock  = errors.New("stock would become negative")
	ErrQuantityOverflow   = errors.New("stock quantity would exceed the supported range")
)

// Entry is the on-hand quantity of one product or variant.
type Entry struct {
	ProductID string
	Quantity  int64
	UpdatedAt time.Time
}

// NewEntry registers a product with its opening quantity.
func NewEntry(productID string, quantity int64, now time.Time) (*Entry, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, ErrEmptyProduct
	}
	if quantity < 0 {
		return nil, ErrNegativeQuantity
	}
	return &Entry{ProductID: productID, Quantity: quantity, UpdatedAt: now}, nil
}

// Apply shifts the quantity by delta; a debit below zero or a credit past the int64
// range leaves the entry untouched.
func (e *Entry) Apply(delta int64, now time.Time) error {
	if delta > 0 && e.Quantity > math.MaxInt64-delta {
		return ErrQuantityOverflow
	}
	if e.Quantity+delta < 0 {
		return ErrInsufficientStock
	}
	e.Quantity += delta
	e.UpdatedAt = now
	return nil
}

// Delta is a signed quantity change requested by a workflow.
// (CorrelationID, ProductID, Line) identifies it so replays are detected.
type Delta struct {
	ProductID     string
	Quantity      int64
	Reason        Reason
	CorrelationID string
	Line          int
}

// Validate checks the delta is well formed.
func (d Delta) Validate() error {
	if strings.TrimSpace(d.ProductID) == "" {
		return ErrEmptyProduct
	}
	if d.Quantity == 0 {
		return ErrZeroDelta
	}
	if strings.TrimSpace(d.CorrelationID) == "" {
		return ErrMissingCorrelation
	}
	switch d.Reason {
	case ReasonInboundApproved, ReasonTicketResolved, ReasonManualAdjustment:
		return nil
	default:
		return ErrUnknownReason
	}
}

// Key returns the replay key of the delta.
func (d Delta) Key() MovementKey {
	return MovementKey{CorrelationID: d.CorrelationID, ProductID: d.ProductID, Line: d.Line}
}

// MovementKey identifies a ledger line.
type MovementKey struct {
	CorrelationID string
	ProductID     string
	Line          int
}

// Movement is an applied delta as recorded in the ledger.
type Movement struct {
	ID                string
	ProductID         string
	Delta             int64
	Reason            Reason
	CorrelationID     string
	Line              int
	ResultingQuantity int64
	CreatedAt         time.Time
	// Replayed is set when the delta had already been applied and nothing changed.
	Replayed bool
}

// NewMovement records delta against the entry state after it was applied.
func NewMovement(id string, delta Delta, entry *Entry) Movement {
	return Movement{
		ID:                id,
		ProductID:         delta.ProductID,
		Delta:             delta.Quantity,
		Reason:            delta.Reason,
		CorrelationID:     delta.CorrelationID,
		Line:              delta.Line,
		ResultingQuantity: entry.Quantity,
		CreatedAt:         entry.UpdatedAt,
	}
}
