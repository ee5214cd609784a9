package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/Apurer/go-retail-ops/internal/domains/orders/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/orders/ports"
)

// Service orchestrates order lookups and the import path that seeds them.
type Service struct {
	repo ports.Repository
}

func NewService(repo ports.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	if err := order.Validate(); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Save(ctx, order)
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

func (s *Service) GetOrderItem(ctx context.Context, orderID, itemID string) (domain.Item, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Item{}, err
	}
	item, ok := order.Item(itemID)
	if !ok {
		return domain.Item{}, mapError(fmt.Errorf("%w: %q in order %q", ports.ErrItemNotFound, itemID, orderID))
	}
	return item, nil
}

var _ ports.Service = (*Service)(nil)
