package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
	"github.com/civil360/civil360-api/internal/metrics"
)

// TokenIssuer is the part of TokenService the auth use cases need.
type TokenIssuer interface {
	Issue(identity *domain.Identity) (string, error)
}

// SeedUser describes the bootstrap account created at startup.
type SeedUser struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
	Role        domain.Role
}

// AuthService implements login, refresh, password change, account
// administration and mock login.
type AuthService struct {
	repo     ports.UserRepository
	tokens   TokenIssuer
	throttle ports.LoginThrottle
	mock     *MockAuth
	log      zerolog.Logger
	now      func() time.Time
}

// NewAuthService wires the use cases. throttle and mock may be nil.
func NewAuthService(repo ports.UserRepository, tokens TokenIssuer, throttle ports.LoginThrottle, mock *MockAuth, log zerolog.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		tokens:   tokens,
		throttle: throttle,
		mock:     mock,
		log:      log,
		now:      time.Now,
	}
}

// Login verifies credentials and issues a token. Unknown users, inactive users
// and wrong passwords all return domain.ErrInvalidCredentials; only the log
// line tells them apart.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, domain.ValidationError("username and password are required")
	}

	if s.throttle != nil {
		blocked, err := s.throttle.Blocked(ctx, username)
		if err != nil {
			s.log.Warn().Err(err).Msg("login throttle check failed, continuing")
		} else if blocked {
			metrics.LoginAttemptsTotal.WithLabelValues("throttled").Inc()
			return "", nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
			return "", nil, err
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		s.log.Info().Str("username", username).Msg("login failed: unknown username")
		return "", nil, s.failLogin(ctx, username)
	}

	if !ComparePassword(user.PasswordHash, password) {
		s.log.Info().Str("username", username).Msg("login failed: password mismatch")
		return "", nil, s.failLogin(ctx, username)
	}
	if !user.IsActive {
		s.log.Info().Str("username", username).Msg("login failed: account deactivated")
		return "", nil, s.failLogin(ctx, username)
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, username); err != nil {
			s.log.Warn().Err(err).Msg("failed to reset login throttle")
		}
	}

	identity := user.Identity()
	token, err := s.tokens.Issue(identity)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("login").Inc()
	s.log.Info().Str("user_id", identity.ID).Str("role", string(identity.Role)).Msg("login succeeded")
	return token, identity, nil
}

func (s *AuthService) failLogin(ctx context.Context, username string) error {
	metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
	if s.throttle != nil {
		if err := s.throttle.RecordFailure(ctx, username); err != nil {
			s.log.Warn().Err(err).Msg("failed to record login failure")
		}
	}
	return domain.ErrInvalidCredentials
}

// Refresh issues a new token with a fresh expiry for an already resolved
// identity.
func (s *AuthService) Refresh(_ context.Context, identity *domain.Identity) (string, error) {
	if identity == nil {
		return "", domain.ErrAuthenticationRequired
	}
	token, err := s.tokens.Issue(identity)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	return token, nil
}

// ChangePassword replaces the caller's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, identity *domain.Identity, current, next string) error {
	if identity == nil {
		return domain.ErrAuthenticationRequired
	}
	if current == "" || next == "" {
		return domain.ValidationError("current and new password are required")
	}
	if len(next) < MinPasswordLength {
		return domain.ValidationError("new password must be at least %d characters", MinPasswordLength)
	}
	// Canned identities have no stored record, so no current password can match.
	if s.mock != nil && s.mock.Owns(identity.ID) {
		return domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByID(ctx, identity.ID)
	if err != nil {
		return err
	}
	if !ComparePassword(user.PasswordHash, current) {
		return domain.ErrInvalidCredentials
	}

	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

// MockLogin issues a token for the canned identity of role, or of the default
// role when role is empty. It refuses with domain.ErrMockAuthDisabled unless
// mock auth was constructed.
func (s *AuthService) MockLogin(_ context.Context, role string) (string, *domain.Identity, error) {
	if s.mock == nil {
		return "", nil, domain.ErrMockAuthDisabled
	}
	identity, ok := s.mock.Select(role)
	if !ok {
		return "", nil, domain.ValidationError("unknown role %q", role)
	}

	token, err := s.tokens.Issue(identity)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("mock").Inc()
	s.log.Warn().Str("role", string(identity.Role)).Msg("mock login issued")
	return token, identity, nil
}

// MockEnabled reports whether mock login was constructed for this process.
func (s *AuthService) MockEnabled() bool {
	return s.mock != nil
}

// Register creates an active account.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" || in.Role == "" {
		return nil, domain.ValidationError("username, password and role are required")
	}
	role, ok := domain.ParseRole(in.Role)
	if !ok {
		return nil, domain.ValidationError("unknown role %q", in.Role)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, domain.ValidationError("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Str("role", string(role)).Msg("user registered")
	return created, nil
}

// SetActive flips the soft-deactivation flag. Records are never deleted.
func (s *AuthService) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id).Bool("active", active).Msg("user activation changed")
	return nil
}

// ListUsers returns a page of accounts.
func (s *AuthService) ListUsers(ctx context.Context, page ports.Page) (*ports.PageResult[*domain.User], error) {
	users, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, err
	}
	return ports.NewPageResult(users, total, page), nil
}

// EnsureSeedUser creates seed when no account with its username exists yet.
// It reports whether a user was created.
func (s *AuthService) EnsureSeedUser(ctx context.Context, seed SeedUser) (bool, error) {
	if seed.Username == "" || seed.Password == "" {
		return false, nil
	}
	_, err := s.repo.FindByUsername(ctx, seed.Username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return false, err
	}

	role := seed.Role
	if role == "" {
		role = domain.RoleGeneralDirector
	}
	_, err = s.Register(ctx, ports.RegisterInput{
		Username:    seed.Username,
		Password:    seed.Password,
		DisplayName: seed.DisplayName,
		Email:       seed.Email,
		Role:        string(role),
	})
	if errors.Is(err, domain.ErrUserExists) {
		return false, nil
	}
	return err == nil, err
}
