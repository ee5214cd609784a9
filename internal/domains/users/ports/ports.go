package ports

import (
	"context"
	"errors"

	"github.com/Apurer/go-retail-ops/internal/domains/users/domain"
)

var ErrNotFound = errors.New("user not found")

type Repository interface {
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Directory resolves actor identities for the workflows.
type Directory interface {
	// Exists reports whether id names an active user.
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*domain.User, error)
}

// Service exposes the user directory to adapters.
type Service interface {
	Directory
	Register(ctx context.Context, user *domain.User) (*domain.User, error)
}
