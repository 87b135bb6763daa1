package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civil360/civil360-api/internal/api/middleware"
	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
)

// currentIdentity returns the identity injected by the Authenticate
// middleware. Its absence means the route was wired without it, which is
// still reported as an authentication failure rather than a panic.
func currentIdentity(c echo.Context) (*domain.Identity, error) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	return identity, nil
}

// bindAndValidate decodes the body into req and runs the registered
// validator. Malformed bodies are 400; well-formed bodies that fail the
// rules are 422.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.ValidationError("invalid payload")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}

// pageFromQuery reads ?page and ?limit. Bad numbers fall back to defaults.
func pageFromQuery(c echo.Context) ports.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return ports.NewPage(page, limit)
}

// dateQuery parses an RFC 3339 timestamp or a plain YYYY-MM-DD date.
func dateQuery(c echo.Context, name string) (time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, domain.ValidationError("%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", name)
	}
	return t, nil
}
