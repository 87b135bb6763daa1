package service

import (
	"errors"
	"strings"

	"github.com/civil360/civil360-api/internal/core/domain"
)

// MockRoleHeader names the request header that selects the canned identity
// while mock authentication is active.
const MockRoleHeader = "X-Mock-Role"

// EnvProduction is the only environment name in which mock authentication can
// never be constructed.
const EnvProduction = "production"

var ErrMockInProduction = errors.New("mock auth: refusing to enable in production")

// MockAuth maps declared roles to canned identities for local development and
// tests. It exists only when explicitly constructed for a non-production
// environment; a nil *MockAuth means the feature is off.
type MockAuth struct {
	identities  map[domain.Role]domain.Identity
	defaultRole domain.Role
}

// NewMockAuth builds the mapping. identities defaults to DefaultMockIdentities
// and defaultRole to general_director.
func NewMockAuth(env string, defaultRole domain.Role, identities map[domain.Role]domain.Identity) (*MockAuth, error) {
	if strings.EqualFold(strings.TrimSpace(env), EnvProduction) {
		return nil, ErrMockInProduction
	}
	if identities == nil {
		identities = DefaultMockIdentities()
	}
	if defaultRole == "" {
		defaultRole = domain.RoleGeneralDirector
	}
	if _, ok := identities[defaultRole]; !ok {
		return nil, errors.New("mock auth: default role has no identity")
	}
	return &MockAuth{identities: identities, defaultRole: defaultRole}, nil
}

// DefaultMockIdentities returns one canned identity per role.
func DefaultMockIdentities() map[domain.Role]domain.Identity {
	names := map[domain.Role]string{
		domain.RoleGeneralDirector:   "Mock General Director",
		domain.RoleProjectEngineer:   "Mock Project Engineer",
		domain.RolePurchasingManager: "Mock Purchasing Manager",
		domain.RoleLogisticsManager:  "Mock Logistics Manager",
		domain.RoleSiteSupervisor:    "Mock Site Supervisor",
		domain.RoleQualityInspector:  "Mock Quality Inspector",
		domain.RoleWorker:            "Mock Worker",
	}
	out := make(map[domain.Role]domain.Identity, len(names))
	for role, name := range names {
		out[role] = domain.Identity{
			ID:          "mock-" + string(role),
			Username:    "mock." + string(role),
			DisplayName: name,
			Role:        role,
			Email:       string(role) + "@mock.civil360.local",
		}
	}
	return out
}

// IdentityFor returns a copy of the canned identity for role.
func (m *MockAuth) IdentityFor(role domain.Role) (*domain.Identity, bool) {
	id, ok := m.identities[role]
	if !ok {
		return nil, false
	}
	return &id, true
}

// Select resolves the declared role value, using the default when empty.
func (m *MockAuth) Select(declared string) (*domain.Identity, bool) {
	if strings.TrimSpace(declared) == "" {
		return m.IdentityFor(m.defaultRole)
	}
	role, ok := domain.ParseRole(declared)
	if !ok {
		return nil, false
	}
	return m.IdentityFor(role)
}

// Owns reports whether id belongs to one of the canned identities.
func (m *MockAuth) Owns(id string) bool {
	for _, ident := range m.identities {
		if ident.ID == id {
			return true
		}
	}
	return false
}
