package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/metrics"
)

const identityKey = "identity"

// Authenticator resolves the identity behind a request or fails.
type Authenticator interface {
	RequireAuthenticated(ctx context.Context, req *http.Request) (*domain.Identity, error)
}

// Authenticate resolves the caller and stores the identity in the echo
// context. Requests without a usable identity stop here with 401; store
// failures propagate as they are.
func Authenticate(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, err := auth.RequireAuthenticated(c.Request().Context(), c.Request())
			if err != nil {
				if errors.Is(err, domain.ErrAuthenticationRequired) {
					metrics.AccessDeniedTotal.WithLabelValues("unauthenticated").Inc()
				}
				return err
			}
			SetIdentity(c, identity)
			return next(c)
		}
	}
}

// SetIdentity stores identity on the context.
func SetIdentity(c echo.Context, identity *domain.Identity) {
	c.Set(identityKey, identity)
}

// IdentityFrom returns the identity stored by Authenticate, or nil.
func IdentityFrom(c echo.Context) *domain.Identity {
	identity, _ := c.Get(identityKey).(*domain.Identity)
	return identity
}
