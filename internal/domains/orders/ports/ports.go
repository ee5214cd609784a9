package ports

import (
	"context"
	"errors"

	"github.com/Apurer/go-retail-ops/internal/domains/orders/domain"
)

var (
	ErrNotFound     = errors.New("order not found")
	ErrItemNotFound = errors.New("order item not found")
)

// Repository persists orders.
type Repository interface {
	Save(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

// Reader is the order lookup the after-sales workflow depends on.
type Reader interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetOrderItem(ctx context.Context, orderID, itemID string) (domain.Item, error)
}

// Service exposes order use cases to adapters.
type Service interface {
	Reader
	PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
}
