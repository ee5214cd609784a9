package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates order progression.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusPaid      Status = "paid"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var (
	ErrEmptyID           = errors.New("order id is required")
	ErrEmptyCustomer     = errors.New("customer id is required")
	ErrNoItems           = errors.New("order needs at least one item")
	ErrEmptyItemID       = errors.New("order item id is required")
	ErrDuplicateItemID   = errors.New("order item id is duplicated")
	ErrEmptyProduct      = errors.New("order item product id is required")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrNegativeUnitPrice = errors.New("unit price must not be negative")
	ErrInvalidStatus     = errors.New("order status is invalid")
)

// ParseStatus accepts only known order states.
func ParseStatus(raw string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(raw))); st {
	case StatusPlaced, StatusPaid, StatusDelivered, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// Item is one purchased product line.
type Item struct {
	ID        string
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Total is quantity times unit price.
func (i Item) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// Order is the purchase an after-sales ticket refers to.
type Order struct {
	ID         string
	CustomerID string
	Status     Status
	Items      []Item
	PlacedAt   time.Time
}

// NewOrder validates and constructs an order.
func NewOrder(id, customerID string, status Status, items []Item, placedAt time.Time) (*Order, error) {
	order := &Order{
		ID:         strings.TrimSpace(id),
		CustomerID: strings.TrimSpace(customerID),
		Status:     status,
		Items:      append([]Item(nil), items...),
		PlacedAt:   placedAt,
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate enforces invariants on the aggregate.
func (o *Order) Validate() error {
	if o.ID == "" {
		return ErrEmptyID
	}
	if o.CustomerID == "" {
		return ErrEmptyCustomer
	}
	if _, err := ParseStatus(string(o.Status)); err != nil {
		return err
	}
	if len(o.Items) == 0 {
		return ErrNoItems
	}
	seen := make(map[string]struct{}, len(o.Items))
	for i, item := range o.Items {
		switch {
		case strings.TrimSpace(item.ID) == "":
			return fmt.Errorf("item %d: %w", i, ErrEmptyItemID)
		case strings.TrimSpace(item.ProductID) == "":
			return fmt.Errorf("item %d: %w", i, ErrEmptyProduct)
		case item.Quantity <= 0:
			return fmt.Errorf("item %d: %w", i, ErrInvalidQuantity)
		case item.UnitPrice.IsNegative():
			return fmt.Errorf("item %d: %w", i, ErrNegativeUnitPrice)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("item %q: %w", item.ID, ErrDuplicateItemID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

// Item looks up a line by id.
func (o *Order) Item(itemID string) (Item, bool) {
	for _, item := range o.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return Item{}, false
}

// Total sums every line.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Total())
	}
	return total
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	return &clone
}
