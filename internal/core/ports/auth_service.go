package ports

import (
	"context"

	"github.com/civil360/civil360-api/internal/core/domain"
)

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
	Role        string
}

// AuthService covers the credential use cases exposed over HTTP.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, *domain.Identity, error)
	Refresh(ctx context.Context, identity *domain.Identity) (string, error)
	ChangePassword(ctx context.Context, identity *domain.Identity, current, next string) error
	MockLogin(ctx context.Context, role string) (string, *domain.Identity, error)
	MockEnabled() bool
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	SetActive(ctx context.Context, id string, active bool) error
	ListUsers(ctx context.Context, page Page) (*PageResult[*domain.User], error)
}

// LoginThrottle counts failed logins per username.
type LoginThrottle interface {
	Blocked(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}
