package mapper

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/go-retail-ops/internal/domains/orders/domain"
)

// Item is the transport shape of an order line. Prices travel as decimal strings.
type Item struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Order is the transport-layer shape used by the order import handlers.
type Order struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customerId"`
	Status     string          `json:"status"`
	Items      []Item          `json:"items"`
	PlacedAt   time.Time       `json:"placedAt"`
	Total      decimal.Decimal `json:"total"`
}

// ToDomainOrder converts a transport order into the domain model.
func ToDomainOrder(order Order, now time.Time) (*domain.Order, error) {
	status, err := domain.ParseStatus(order.Status)
	if err != nil {
		return nil, err
	}
	items := make([]domain.Item, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, domain.Item{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	placedAt := order.PlacedAt
	if placedAt.IsZero() {
		placedAt = now
	}
	return domain.NewOrder(order.ID, order.CustomerID, status, items, placedAt)
}

// FromDomainOrder converts a domain order to the transport representation.
func FromDomainOrder(order *domain.Order) Order {
	if order == nil {
		return Order{}
	}
	out := Order{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Status:     string(order.Status),
		PlacedAt:   order.PlacedAt,
		Total:      order.Total(),
	}
	for _, item := range order.Items {
		out.Items = append(out.Items, Item{ID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	return out
}
