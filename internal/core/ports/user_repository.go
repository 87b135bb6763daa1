package ports

import (
	"context"

	"github.com/civil360/civil360-api/internal/core/domain"
)

// UserRepository is the credential store.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// UpdatePassword stores an already hashed password.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, page Page) ([]*domain.User, int64, error)
}
