package application

import (
	"context"
	"errors"

	"github.com/Apurer/go-retail-ops/internal/domains/users/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/users/ports"
)

// Service exposes the user directory use cases.
type Service struct {
	repo ports.Repository
}

func NewService(repo ports.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Register(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}
	if err := user.Validate(); err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

// Exists treats deactivated users as unknown.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ports.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.Active, nil
}

var _ ports.Service = (*Service)(nil)
