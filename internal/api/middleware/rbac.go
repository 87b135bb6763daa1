package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/metrics"
)

// RoleChecker decides whether an identity may proceed.
type RoleChecker interface {
	RequireRole(identity *domain.Identity, allowed domain.RoleSet) error
}

// RequireRoles enforces role-based access control on a route that already
// runs behind Authenticate.
func RequireRoles(checker RoleChecker, roles ...domain.Role) echo.MiddlewareFunc {
	allowed := domain.NewRoleSet(roles...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := checker.RequireRole(IdentityFrom(c), allowed); err != nil {
				reason := "forbidden"
				if errors.Is(err, domain.ErrAuthenticationRequired) {
					reason = "unauthenticated"
				}
				metrics.AccessDeniedTotal.WithLabelValues(reason).Inc()
				return err
			}
			return next(c)
		}
	}
}
