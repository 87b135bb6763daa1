package domain

import "fmt"

// Error is a domain failure with a stable machine-readable code. Two errors are
// equal under errors.Is when their codes match, so callers can compare against
// the sentinels below even after the message has been specialised.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

const (
	CodeAuthenticationRequired  = "AUTHENTICATION_REQUIRED"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodeInvalidCredentials      = "INVALID_CREDENTIALS"
	CodeMockAuthDisabled        = "MOCK_AUTH_DISABLED"
	CodeTooManyAttempts         = "TOO_MANY_ATTEMPTS"
	CodeValidation              = "VALIDATION_ERROR"
	CodeNotFound                = "NOT_FOUND"
	CodeConflict                = "CONFLICT"
	CodeInvalidTransition       = "INVALID_TRANSITION"
	CodeUpstreamUnavailable     = "UPSTREAM_UNAVAILABLE"
)

var (
	ErrAuthenticationRequired  = &Error{Code: CodeAuthenticationRequired, Message: "Authentication required"}
	ErrInsufficientPermissions = &Error{Code: CodeInsufficientPermissions, Message: "Insufficient permissions"}
	ErrInvalidCredentials      = &Error{Code: CodeInvalidCredentials, Message: "Invalid credentials"}
	ErrMockAuthDisabled        = &Error{Code: CodeMockAuthDisabled, Message: "Mock authentication is disabled"}
	ErrTooManyAttempts         = &Error{Code: CodeTooManyAttempts, Message: "Too many failed login attempts, try again later"}
	ErrValidation              = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrNotFound                = &Error{Code: CodeNotFound, Message: "resource not found"}
	ErrConflict                = &Error{Code: CodeConflict, Message: "resource already exists"}
	ErrInvalidTransition       = &Error{Code: CodeInvalidTransition, Message: "invalid status transition"}
	ErrUpstreamUnavailable     = &Error{Code: CodeUpstreamUnavailable, Message: "Service temporarily unavailable"}

	ErrUserNotFound         = &Error{Code: CodeNotFound, Message: "user not found"}
	ErrUserExists           = &Error{Code: CodeConflict, Message: "user already exists"}
	ErrEquipmentNotFound    = &Error{Code: CodeNotFound, Message: "equipment not found"}
	ErrEquipmentExists      = &Error{Code: CodeConflict, Message: "equipment code already exists"}
	ErrOrderNotFound        = &Error{Code: CodeNotFound, Message: "purchase order not found"}
	ErrOrderExists          = &Error{Code: CodeConflict, Message: "purchase order already exists"}
	ErrNotificationNotFound = &Error{Code: CodeNotFound, Message: "notification not found"}
)

// ValidationError builds a VALIDATION_ERROR with a specific message.
func ValidationError(format string, args ...any) error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// TransitionError builds an INVALID_TRANSITION describing the rejected move.
func TransitionError(from, to string) error {
	return &Error{Code: CodeInvalidTransition, Message: fmt.Sprintf("invalid status transition from %s to %s", from, to)}
}

// Unavailable wraps a store failure so it surfaces as UPSTREAM_UNAVAILABLE
// while keeping the cause for logs.
func Unavailable(op string, cause error) error {
	return &upstreamError{op: op, cause: cause}
}

type upstreamError struct {
	op    string
	cause error
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.cause)
}

func (e *upstreamError) Unwrap() []error {
	return []error{ErrUpstreamUnavailable, e.cause}
}
