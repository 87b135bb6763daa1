package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/civil360/civil360-api/internal/api/middleware"
	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
)

type stubAuthService struct {
	loginFn          func(ctx context.Context, username, password string) (string, *domain.Identity, error)
	refreshFn        func(ctx context.Context, identity *domain.Identity) (string, error)
	changePasswordFn func(ctx context.Context, identity *domain.Identity, current, next string) error
	mockLoginFn      func(ctx context.Context, role string) (string, *domain.Identity, error)
	registerFn       func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	setActiveFn      func(ctx context.Context, id string, active bool) error
	listUsersFn      func(ctx context.Context, page ports.Page) (*ports.PageResult[*domain.User], error)
	mockDisabled     bool
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (string, *domain.Identity, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, identity *domain.Identity) (string, error) {
	return s.refreshFn(ctx, identity)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, identity *domain.Identity, current, next string) error {
	return s.changePasswordFn(ctx, identity, current, next)
}

func (s *stubAuthService) MockLogin(ctx context.Context, role string) (string, *domain.Identity, error) {
	return s.mockLoginFn(ctx, role)
}

func (s *stubAuthService) MockEnabled() bool {
	return !s.mockDisabled
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) SetActive(ctx context.Context, id string, active bool) error {
	return s.setActiveFn(ctx, id, active)
}

func (s *stubAuthService) ListUsers(ctx context.Context, page ports.Page) (*ports.PageResult[*domain.User], error) {
	return s.listUsersFn(ctx, page)
}

// newJSONContext builds a context on an echo instance with the production
// validator registered.
func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(_ context.Context, username, password string) (string, *domain.Identity, error) {
			if username != "ana" || password != "s3cret!" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return "tok", &domain.Identity{ID: "u-1", Username: "ana", Role: domain.RoleWorker}, nil
		},
	}
	c, rec := newJSONContext(http.MethodPost, "/auth/login", `{"username":"ana","password":"s3cret!"}`)

	if err := NewAuthHandler(stub).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	user, ok := resp["user"].(map[string]any)
	if resp["token"] != "tok" || !ok || user["role"] != "worker" {
		t.Fatalf("unexpected payload: %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response leaks password fields: %s", rec.Body.String())
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (string, *domain.Identity, error) {
			return "", nil, domain.ErrInvalidCredentials
		},
	}
	c, _ := newJSONContext(http.MethodPost, "/auth/login", `{"username":"ana","password":"bad"}`)

	if err := NewAuthHandler(stub).Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_BadPayload(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	c, _ := newJSONContext(http.MethodPost, "/auth/login", `{"username":`)
	if err := h.Login(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("malformed body: expected validation error, got %v", err)
	}

	c, _ = newJSONContext(http.MethodPost, "/auth/login", `{"username":"ana"}`)
	err := h.Login(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing password: expected 422, got %v", err)
	}
	if !strings.Contains(he.Message.(string), "password") {
		t.Fatalf("message should name the json field: %v", he.Message)
	}
}

func TestAuthHandler_MockLogin(t *testing.T) {
	var gotRole string
	stub := &stubAuthService{
		mockLoginFn: func(_ context.Context, role string) (string, *domain.Identity, error) {
			gotRole = role
			return "mock-tok", &domain.Identity{ID: "mock-general_director", Role: domain.RoleGeneralDirector}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/auth/mock-login", "")
	if err := h.MockLogin(c); err != nil {
		t.Fatalf("empty body: %v", err)
	}
	if rec.Code != http.StatusOK || gotRole != "" {
		t.Fatalf("code=%d role=%q", rec.Code, gotRole)
	}

	c, _ = newJSONContext(http.MethodPost, "/auth/mock-login", `{"role":"worker"}`)
	if err := h.MockLogin(c); err != nil || gotRole != "worker" {
		t.Fatalf("with role: err=%v role=%q", err, gotRole)
	}
}

func TestAuthHandler_MockLoginDisabled(t *testing.T) {
	stub := &stubAuthService{
		mockDisabled: true,
		mockLoginFn: func(context.Context, string) (string, *domain.Identity, error) {
			t.Fatal("MockLogin must not be reached while disabled")
			return "", nil, nil
		},
	}

	for _, body := range []string{`{"role":"worker"}`, `{"role":`, `not json`, `{"role":"nope"}`} {
		c, _ := newJSONContext(http.MethodPost, "/auth/mock-login", body)
		if err := NewAuthHandler(stub).MockLogin(c); !errors.Is(err, domain.ErrMockAuthDisabled) {
			t.Fatalf("body %q: expected ErrMockAuthDisabled, got %v", body, err)
		}
	}
}

func TestAuthHandler_MeRequiresIdentity(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	c, _ := newJSONContext(http.MethodGet, "/auth/me", "")
	if err := h.Me(c); !errors.Is(err, domain.ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}

	c, rec := newJSONContext(http.MethodGet, "/auth/me", "")
	middleware.SetIdentity(c, &domain.Identity{ID: "u-1", Username: "ana", Role: domain.RoleSiteSupervisor})
	if err := h.Me(c); err != nil {
		t.Fatalf("Me: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"role":"site_supervisor"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	stub := &stubAuthService{
		refreshFn: func(_ context.Context, identity *domain.Identity) (string, error) {
			return "fresh-" + identity.ID, nil
		},
	}
	c, rec := newJSONContext(http.MethodPost, "/auth/refresh", "")
	middleware.SetIdentity(c, &domain.Identity{ID: "u-1", Role: domain.RoleWorker})

	if err := NewAuthHandler(stub).Refresh(c); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"token":"fresh-u-1"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	called := false
	stub := &stubAuthService{
		changePasswordFn: func(_ context.Context, identity *domain.Identity, current, next string) error {
			called = true
			if identity.ID != "u-1" || current != "old-pass" || next != "new-pass" {
				t.Fatalf("unexpected args: %v %s %s", identity, current, next)
			}
			return nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := newJSONContext(http.MethodPost, "/auth/change-password", `{"current_password":"old-pass","new_password":"new-pass"}`)
	middleware.SetIdentity(c, &domain.Identity{ID: "u-1", Role: domain.RoleWorker})
	if err := h.ChangePassword(c); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if rec.Code != http.StatusNoContent || !called {
		t.Fatalf("code=%d called=%v", rec.Code, called)
	}

	c, _ = newJSONContext(http.MethodPost, "/auth/change-password", `{"current_password":"old-pass","new_password":"123"}`)
	middleware.SetIdentity(c, &domain.Identity{ID: "u-1", Role: domain.RoleWorker})
	var he *echo.HTTPError
	if err := h.ChangePassword(c); !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("short password: expected 422, got %v", err)
	}
}
