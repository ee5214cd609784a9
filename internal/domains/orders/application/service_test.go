package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-retail-ops/internal/domains/orders/adapters/memory"
	"github.com/Apurer/go-retail-ops/internal/domains/orders/domain"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

func sampleOrder(t *testing.T) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder("ord-1", "cust-1", domain.StatusDelivered, []domain.Item{
		{ID: "line-1", ProductID: "A", Quantity: 2, UnitPrice: decimal.RequireFromString("19.99")},
		{ID: "line-2", ProductID: "B", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	}, time.Now())
	require.NoError(t, err)
	return order
}

func TestPlaceOrder_ValidatesAndPersists(t *testing.T) {
	svc := NewService(memory.NewRepository())

	saved, err := svc.PlaceOrder(context.Background(), sampleOrder(t))
	require.NoError(t, err)
	assert.Equal(t, "ord-1", saved.ID)
	assert.True(t, saved.Total().Equal(decimal.RequireFromString("44.98")))
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	svc := NewService(memory.NewRepository())
	order := sampleOrder(t)
	order.Items[0].Quantity = 0

	_, err := svc.PlaceOrder(context.Background(), order)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	require.ErrorIs(t, err, failures.ErrValidation)
}

func TestGetOrderItem(t *testing.T) {
	svc := NewService(memory.NewRepository())
	ctx := context.Background()
	_, err := svc.PlaceOrder(ctx, sampleOrder(t))
	require.NoError(t, err)

	item, err := svc.GetOrderItem(ctx, "ord-1", "line-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), item.Quantity)
	assert.True(t, item.Total().Equal(decimal.RequireFromString("39.98")))

	_, err = svc.GetOrderItem(ctx, "ord-1", "line-9")
	require.ErrorIs(t, err, failures.ErrNotFound)

	_, err = svc.GetOrder(ctx, "ord-9")
	require.ErrorIs(t, err, failures.ErrNotFound)
}

func TestNewOrder_RejectsDuplicateLines(t *testing.T) {
	_, err := domain.NewOrder("ord-1", "cust-1", domain.StatusPaid, []domain.Item{
		{ID: "line-1", ProductID: "A", Quantity: 1},
		{ID: "line-1", ProductID: "B", Quantity: 1},
	}, time.Now())

	require.ErrorIs(t, err, domain.ErrDuplicateItemID)
}
