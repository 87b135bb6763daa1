package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/civil360/civil360-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// codeStatus maps domain error codes to HTTP status codes.
var codeStatus = map[string]int{
	domain.CodeAuthenticationRequired:  http.StatusUnauthorized,
	domain.CodeInsufficientPermissions: http.StatusForbidden,
	domain.CodeMockAuthDisabled:        http.StatusForbidden,
	domain.CodeInvalidCredentials:      http.StatusUnauthorized,
	domain.CodeValidation:              http.StatusBadRequest,
	domain.CodeNotFound:                http.StatusNotFound,
	domain.CodeConflict:                http.StatusConflict,
	domain.CodeInvalidTransition:       http.StatusUnprocessableEntity,
	domain.CodeTooManyAttempts:         http.StatusTooManyRequests,
	domain.CodeUpstreamUnavailable:     http.StatusServiceUnavailable,
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to their HTTP status by code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<CODE>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	var de *domain.Error
	if errors.As(err, &de) {
		status, ok := codeStatus[de.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		if de.Code == domain.CodeUpstreamUnavailable {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("upstream unavailable")
			// The specialised message may name the failing store operation.
			return status, errorResponse{Error: domain.ErrUpstreamUnavailable.Message, Code: de.Code}
		}
		return status, errorResponse{Error: de.Message, Code: de.Code}
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message), Code: httpCode(he.Code)}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"}
}

// httpCode names framework-level failures in the same style as domain codes.
func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.CodeValidation
	case http.StatusUnauthorized:
		return domain.CodeAuthenticationRequired
	case http.StatusForbidden:
		return domain.CodeInsufficientPermissions
	case http.StatusNotFound:
		return domain.CodeNotFound
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return domain.CodeTooManyAttempts
	default:
		return "INTERNAL_ERROR"
	}
}
