package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/Apurer/go-retail-ops/internal/domains/users/domain"
	"github.com/Apurer/go-retail-ops/internal/domains/users/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository keeps directory entries in memory for development and tests.
type Repository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewRepository() *Repository {
	return &Repository{users: map[string]*domain.User{}}
}

func (r *Repository) Save(_ context.Context, user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user.Clone()
	return user.Clone(), nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return user.Clone(), nil
}
