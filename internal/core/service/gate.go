package service

import (
	"context"
	"net/http"

	"github.com/civil360/civil360-api/internal/core/domain"
)

// IdentityResolver produces the identity behind a request, or nil.
type IdentityResolver interface {
	Resolve(ctx context.Context, req *http.Request) (*domain.Identity, error)
}

// Gate is the single place where "no identity" and "wrong role" become errors.
type Gate struct {
	resolver IdentityResolver
}

func NewGate(resolver IdentityResolver) *Gate {
	return &Gate{resolver: resolver}
}

// RequireAuthenticated resolves the request and fails with
// domain.ErrAuthenticationRequired when nobody is behind it. Store failures are
// passed through unchanged.
func (g *Gate) RequireAuthenticated(ctx context.Context, req *http.Request) (*domain.Identity, error) {
	identity, err := g.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	return identity, nil
}

// RequireRole fails with domain.ErrInsufficientPermissions unless the
// identity's role is listed in allowed.
func (g *Gate) RequireRole(identity *domain.Identity, allowed domain.RoleSet) error {
	if identity == nil {
		return domain.ErrAuthenticationRequired
	}
	if !allowed.Allows(identity.Role) {
		return domain.ErrInsufficientPermissions
	}
	return nil
}
