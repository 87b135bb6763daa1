package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
)

func userWithPassword(t *testing.T, id, username, password string, role domain.Role, active bool) *domain.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return &domain.User{ID: id, Username: username, PasswordHash: hash, Role: role, IsActive: active}
}

func newTestAuthService(t *testing.T, repo *stubUserRepo, throttle ports.LoginThrottle, mock *MockAuth) (*AuthService, *TokenService) {
	t.Helper()
	tokens := newTestTokenService(t, nil)
	return NewAuthService(repo, tokens, throttle, mock, zerolog.Nop()), tokens
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubUserRepo(userWithPassword(t, "u-1", "ana", "s3cret!", domain.RolePurchasingManager, true))
	throttle := newStubThrottle(5)
	throttle.failures["ana"] = 2
	svc, tokens := newTestAuthService(t, repo, throttle, nil)

	token, identity, err := svc.Login(context.Background(), " ana ", "s3cret!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if identity.ID != "u-1" || identity.Role != domain.RolePurchasingManager {
		t.Fatalf("identity = %+v", identity)
	}
	verified, err := tokens.Verify(token)
	if err != nil || verified.ID != "u-1" {
		t.Fatalf("issued token does not verify: %+v %v", verified, err)
	}
	if throttle.failures["ana"] != 0 || throttle.resets != 1 {
		t.Fatalf("successful login must reset the throttle")
	}
}

func TestAuthService_Login_FailuresLookIdentical(t *testing.T) {
	repo := newStubUserRepo(
		userWithPassword(t, "u-1", "ana", "s3cret!", domain.RoleWorker, true),
		userWithPassword(t, "u-2", "old", "s3cret!", domain.RoleWorker, false),
	)
	svc, _ := newTestAuthService(t, repo, nil, nil)

	cases := []struct{ username, password string }{
		{"ana", "wrong"},
		{"nobody", "s3cret!"},
		{"old", "s3cret!"},
	}
	var messages []string
	for _, c := range cases {
		token, identity, err := svc.Login(context.Background(), c.username, c.password)
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", c.username, err)
		}
		if token != "" || identity != nil {
			t.Fatalf("%s: failed login must not return a token or identity", c.username)
		}
		messages = append(messages, err.Error())
	}
	for _, m := range messages[1:] {
		if m != messages[0] {
			t.Fatalf("failure messages differ: %q", messages)
		}
	}
}

func TestAuthService_Login_RequiresFields(t *testing.T) {
	svc, _ := newTestAuthService(t, newStubUserRepo(), nil, nil)
	for _, c := range [][2]string{{"", "x"}, {"ana", ""}, {"   ", "x"}} {
		if _, _, err := svc.Login(context.Background(), c[0], c[1]); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Login(%q, %q): expected validation error, got %v", c[0], c[1], err)
		}
	}
}

func TestAuthService_Login_Throttled(t *testing.T) {
	repo := newStubUserRepo(userWithPassword(t, "u-1", "ana", "s3cret!", domain.RoleWorker, true))
	throttle := newStubThrottle(3)
	svc, _ := newTestAuthService(t, repo, throttle, nil)

	for i := 0; i < 3; i++ {
		if _, _, err := svc.Login(context.Background(), "ana", "nope"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	// Even the right password is refused while locked out.
	if _, _, err := svc.Login(context.Background(), "ana", "s3cret!"); !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestAuthService_Login_ThrottleOutageDoesNotBlock(t *testing.T) {
	repo := newStubUserRepo(userWithPassword(t, "u-1", "ana", "s3cret!", domain.RoleWorker, true))
	throttle := newStubThrottle(3)
	throttle.err = errors.New("redis: connection refused")
	svc, _ := newTestAuthService(t, repo, throttle, nil)

	if _, _, err := svc.Login(context.Background(), "ana", "s3cret!"); err != nil {
		t.Fatalf("expected login to succeed without the throttle, got %v", err)
	}
}

func TestAuthService_Login_StoreFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = domain.Unavailable("find user", errors.New("timeout"))
	svc, _ := newTestAuthService(t, repo, nil, nil)

	_, _, err := svc.Login(context.Background(), "ana", "s3cret!")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatal("store failure must not be reported as bad credentials")
	}
}

func TestAuthService_Refresh(t *testing.T) {
	svc, tokens := newTestAuthService(t, newStubUserRepo(), nil, nil)
	identity := &domain.Identity{ID: "u-1", Username: "ana", Role: domain.RoleWorker}

	token, err := svc.Refresh(context.Background(), identity)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got, err := tokens.Verify(token); err != nil || got.ID != "u-1" {
		t.Fatalf("refreshed token invalid: %+v %v", got, err)
	}

	if _, err := svc.Refresh(context.Background(), nil); !errors.Is(err, domain.ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	repo := newStubUserRepo(userWithPassword(t, "u-1", "ana", "old-pass", domain.RoleWorker, true))
	svc, _ := newTestAuthService(t, repo, nil, nil)
	identity := &domain.Identity{ID: "u-1", Username: "ana", Role: domain.RoleWorker}

	if err := svc.ChangePassword(context.Background(), identity, "old-pass", "12345"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("short password: expected validation error, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), identity, "wrong", "new-pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong current: expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), identity, "old-pass", "new-pass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	hash := repo.updated["u-1"]
	if !ComparePassword(hash, "new-pass") || ComparePassword(hash, "old-pass") {
		t.Fatal("stored hash does not match the new password")
	}
	if _, _, err := svc.Login(context.Background(), "ana", "new-pass"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestAuthService_ChangePassword_MockIdentity(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = errors.New("store must not be queried for canned identities")
	svc, _ := newTestAuthService(t, repo, nil, newTestMock(t))
	identity := &domain.Identity{ID: "mock-worker", Username: "mock.worker", Role: domain.RoleWorker}

	if err := svc.ChangePassword(context.Background(), identity, "anything", "new-pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(repo.updated) != 0 {
		t.Fatalf("password stored for a mock identity: %v", repo.updated)
	}
}

func TestAuthService_MockLogin(t *testing.T) {
	disabled, _ := newTestAuthService(t, newStubUserRepo(), nil, nil)
	if disabled.MockEnabled() {
		t.Fatal("MockEnabled without a MockAuth")
	}
	if _, _, err := disabled.MockLogin(context.Background(), "worker"); !errors.Is(err, domain.ErrMockAuthDisabled) {
		t.Fatalf("expected ErrMockAuthDisabled, got %v", err)
	}

	enabled, tokens := newTestAuthService(t, newStubUserRepo(), nil, newTestMock(t))
	if !enabled.MockEnabled() {
		t.Fatal("MockEnabled = false with a MockAuth")
	}
	token, identity, err := enabled.MockLogin(context.Background(), "site_supervisor")
	if err != nil {
		t.Fatalf("MockLogin: %v", err)
	}
	if identity.Role != domain.RoleSiteSupervisor {
		t.Fatalf("identity = %+v", identity)
	}
	if got, err := tokens.Verify(token); err != nil || got.ID != identity.ID {
		t.Fatalf("mock token invalid: %+v %v", got, err)
	}

	if _, identity, err := enabled.MockLogin(context.Background(), ""); err != nil || identity.Role != domain.RoleGeneralDirector {
		t.Fatalf("default role: got %+v %v", identity, err)
	}
	if _, _, err := enabled.MockLogin(context.Background(), "emperor"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown role: expected validation error, got %v", err)
	}
}

func TestAuthService_Register(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(t, repo, nil, nil)

	user, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "luis", Password: "abcdef", Role: "Logistics_Manager", Email: " luis@example.com ",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !user.IsActive || user.Role != domain.RoleLogisticsManager || user.Email != "luis@example.com" {
		t.Fatalf("user = %+v", user)
	}
	if strings.Contains(user.PasswordHash, "abcdef") || !ComparePassword(user.PasswordHash, "abcdef") {
		t.Fatal("password must be stored as a bcrypt hash")
	}

	if _, err := svc.Register(context.Background(), ports.RegisterInput{Username: "luis", Password: "abcdef", Role: "worker"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("duplicate: expected ErrUserExists, got %v", err)
	}

	invalid := []ports.RegisterInput{
		{Password: "abcdef", Role: "worker"},
		{Username: "x", Password: "abc", Role: "worker"},
		{Username: "x", Password: "abcdef", Role: "admin"},
		{Username: "x", Password: "abcdef"},
	}
	for _, in := range invalid {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Register(%+v): expected validation error, got %v", in, err)
		}
	}
}

func TestAuthService_SetActiveAndList(t *testing.T) {
	repo := newStubUserRepo(
		&domain.User{ID: "u-1", Username: "a", Role: domain.RoleWorker, IsActive: true},
		&domain.User{ID: "u-2", Username: "b", Role: domain.RoleWorker, IsActive: true},
		&domain.User{ID: "u-3", Username: "c", Role: domain.RoleWorker, IsActive: true},
	)
	svc, _ := newTestAuthService(t, repo, nil, nil)

	if err := svc.SetActive(context.Background(), "u-2", false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if repo.byID["u-2"].IsActive {
		t.Fatal("user should be deactivated")
	}
	if err := svc.SetActive(context.Background(), "missing", true); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	page, err := svc.ListUsers(context.Background(), ports.NewPage(2, 2))
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 1 || page.Items[0].ID != "u-3" {
		t.Fatalf("page = %+v", page)
	}
}

func TestAuthService_EnsureSeedUser(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(t, repo, nil, nil)
	seed := SeedUser{Username: "director", Password: "change-me"}

	created, err := svc.EnsureSeedUser(context.Background(), seed)
	if err != nil || !created {
		t.Fatalf("first call: created=%v err=%v", created, err)
	}
	u, _ := repo.FindByUsername(context.Background(), "director")
	if u.Role != domain.RoleGeneralDirector {
		t.Fatalf("seed role = %s", u.Role)
	}

	created, err = svc.EnsureSeedUser(context.Background(), seed)
	if err != nil || created {
		t.Fatalf("second call: created=%v err=%v", created, err)
	}

	if created, _ := svc.EnsureSeedUser(context.Background(), SeedUser{}); created {
		t.Fatal("empty seed must be a no-op")
	}
}
