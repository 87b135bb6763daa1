package domain

import (
	"errors"
	"strings"
)

// Role is one of the closed set of CIVIL360 job roles. It drives both dashboard
// routing on the client and access gating on the server.
type Role string

const (
	RoleGeneralDirector   Role = "general_director"
	RoleProjectEngineer   Role = "project_engineer"
	RolePurchasingManager Role = "purchasing_manager"
	RoleLogisticsManager  Role = "logistics_manager"
	RoleSiteSupervisor    Role = "site_supervisor"
	RoleQualityInspector  Role = "quality_inspector"
	RoleWorker            Role = "worker"
)

var knownRoles = []Role{
	RoleGeneralDirector,
	RoleProjectEngineer,
	RolePurchasingManager,
	RoleLogisticsManager,
	RoleSiteSupervisor,
	RoleQualityInspector,
	RoleWorker,
}

// Roles returns every defined role in declaration order.
func Roles() []Role {
	out := make([]Role, len(knownRoles))
	copy(out, knownRoles)
	return out
}

// ParseRole normalises s and reports whether it names a defined role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// Valid reports whether r is part of the enumeration.
func (r Role) Valid() bool {
	for _, k := range knownRoles {
		if k == r {
			return true
		}
	}
	return false
}

// RoleSet is the set of roles a protected operation accepts. The zero value
// accepts nobody.
type RoleSet struct {
	roles map[Role]struct{}
}

// NewRoleSet builds a RoleSet from roles. Duplicates are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	m := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		m[r] = struct{}{}
	}
	return RoleSet{roles: m}
}

// Allows reports whether r is a member. Anything not listed is denied,
// including strings outside the enumeration.
func (s RoleSet) Allows(r Role) bool {
	if s.roles == nil {
		return false
	}
	_, ok := s.roles[r]
	return ok
}

// Len returns the number of distinct roles in the set.
func (s RoleSet) Len() int { return len(s.roles) }

// Identity is the authenticated actor behind a single request. It is rebuilt for
// every request and never shared between them.
type Identity struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Role        Role   `json:"role"`
	Email       string `json:"email,omitempty"`
}

// TokenError is the typed outcome of a failed token verification.
type TokenError struct {
	Reason string
}

func (e *TokenError) Error() string {
	return "token " + e.Reason
}

// Is matches the same reason, and every TokenError matches ErrTokenInvalid.
func (e *TokenError) Is(target error) bool {
	if target == ErrTokenInvalid {
		return true
	}
	t, ok := target.(*TokenError)
	return ok && t.Reason == e.Reason
}

var (
	// ErrTokenInvalid collapses every verification failure into one outcome.
	ErrTokenInvalid = errors.New("invalid token")

	ErrTokenMalformed        = &TokenError{Reason: "malformed"}
	ErrTokenExpired          = &TokenError{Reason: "expired"}
	ErrTokenSignatureInvalid = &TokenError{Reason: "signature mismatch"}
)
