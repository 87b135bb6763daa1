package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/civil360/civil360-api/internal/core/domain"
)

type fixedResolver struct {
	identity *domain.Identity
	err      error
}

func (f fixedResolver) Resolve(context.Context, *http.Request) (*domain.Identity, error) {
	return f.identity, f.err
}

func TestGate_RequireAuthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	director := &domain.Identity{ID: "u-1", Role: domain.RoleGeneralDirector}
	storeErr := domain.Unavailable("find user", errors.New("no reachable servers"))

	tests := []struct {
		name     string
		resolver fixedResolver
		want     *domain.Identity
		wantErr  error
	}{
		{"identity", fixedResolver{identity: director}, director, nil},
		{"no identity", fixedResolver{}, nil, domain.ErrAuthenticationRequired},
		{"store failure", fixedResolver{err: storeErr}, nil, domain.ErrUpstreamUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewGate(tc.resolver).RequireAuthenticated(context.Background(), req)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("got (%+v, %v), want %+v", got, err, tc.want)
			}
		})
	}
}

func TestGate_RequireRole(t *testing.T) {
	g := NewGate(nil)
	approvers := domain.NewRoleSet(domain.RoleGeneralDirector, domain.RolePurchasingManager)

	tests := []struct {
		name     string
		identity *domain.Identity
		allowed  domain.RoleSet
		wantErr  error
	}{
		{"member", &domain.Identity{Role: domain.RolePurchasingManager}, approvers, nil},
		{"non member", &domain.Identity{Role: domain.RoleWorker}, approvers, domain.ErrInsufficientPermissions},
		{"unknown role string", &domain.Identity{Role: "admin"}, approvers, domain.ErrInsufficientPermissions},
		{"empty set", &domain.Identity{Role: domain.RoleGeneralDirector}, domain.RoleSet{}, domain.ErrInsufficientPermissions},
		{"nil identity", nil, approvers, domain.ErrAuthenticationRequired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := g.RequireRole(tc.identity, tc.allowed)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
