package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
	"github.com/civil360/civil360-api/internal/metrics"
)

// TokenVerifier is the part of TokenService the resolver needs.
type TokenVerifier interface {
	Verify(token string) (*domain.Identity, error)
}

// ResolverOptions tunes SessionResolver.
type ResolverOptions struct {
	// RefetchUser loads the stored record after verification so that a
	// deactivated or deleted account stops resolving immediately.
	RefetchUser bool
	// Mock enables the development identity path. Nil disables it.
	Mock *MockAuth
}

// SessionResolver turns an inbound request into an identity, or none.
type SessionResolver struct {
	tokens  TokenVerifier
	users   ports.UserRepository
	refetch bool
	mock    *MockAuth
	log     zerolog.Logger
}

func NewSessionResolver(tokens TokenVerifier, users ports.UserRepository, opts ResolverOptions, log zerolog.Logger) *SessionResolver {
	return &SessionResolver{
		tokens:  tokens,
		users:   users,
		refetch: opts.RefetchUser,
		mock:    opts.Mock,
		log:     log,
	}
}

// Resolve returns (nil, nil) for a missing or invalid token. The only error it
// returns is a store failure during re-fetch, which must not be reported as an
// authentication problem.
func (r *SessionResolver) Resolve(ctx context.Context, req *http.Request) (*domain.Identity, error) {
	token, ok := BearerToken(req.Header.Get("Authorization"))
	if !ok {
		if r.mock != nil {
			return r.resolveMock(req), nil
		}
		metrics.SessionResolutionsTotal.WithLabelValues("missing").Inc()
		return nil, nil
	}

	identity, err := r.tokens.Verify(token)
	if err != nil {
		var te *domain.TokenError
		reason := "invalid"
		if errors.As(err, &te) {
			reason = te.Reason
		}
		r.log.Debug().Str("reason", reason).Msg("token rejected")
		metrics.SessionResolutionsTotal.WithLabelValues("rejected").Inc()
		return nil, nil
	}

	if r.mock != nil && r.mock.Owns(identity.ID) {
		metrics.SessionResolutionsTotal.WithLabelValues("mock").Inc()
		return identity, nil
	}
	if !r.refetch {
		metrics.SessionResolutionsTotal.WithLabelValues("ok").Inc()
		return identity, nil
	}

	user, err := r.users.FindByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			metrics.SessionResolutionsTotal.WithLabelValues("upstream_error").Inc()
			return nil, err
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			r.log.Info().Str("user_id", identity.ID).Msg("token subject no longer exists")
			metrics.SessionResolutionsTotal.WithLabelValues("account_gone").Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if !user.IsActive {
		r.log.Info().Str("user_id", user.ID).Msg("token subject is deactivated")
		metrics.SessionResolutionsTotal.WithLabelValues("account_inactive").Inc()
		return nil, nil
	}

	metrics.SessionResolutionsTotal.WithLabelValues("ok").Inc()
	return user.Identity(), nil
}

func (r *SessionResolver) resolveMock(req *http.Request) *domain.Identity {
	identity, ok := r.mock.Select(req.Header.Get(MockRoleHeader))
	if !ok {
		metrics.SessionResolutionsTotal.WithLabelValues("rejected").Inc()
		return nil
	}
	metrics.SessionResolutionsTotal.WithLabelValues("mock").Inc()
	return identity
}

// BearerToken extracts the credentials of an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
