package models

import (
	"strings"

	"github.com/anandakmagar/authguard/internal/common"
)

// Role is a single role name, e.g. "ADMIN" or "USER".
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Roles is a set of role names granted to a user. The storage representation
// is a comma-joined string (see ParseRoles/String); membership checks are
// case-sensitive.
type Roles []Role

// ParseRoles parses a comma-separated role list ("ADMIN,USER"). Surrounding
// whitespace around each element is trimmed. An empty input or an empty
// element yields common.ErrorInvalidRoles: every user carries at least one role.
func ParseRoles(s string) (Roles, error) {
	parts := strings.Split(s, ",")
	roles := make(Roles, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			return nil, common.ErrorInvalidRoles
		}
		roles = append(roles, Role(name))
	}
	if len(roles) == 0 {
		return nil, common.ErrorInvalidRoles
	}
	return roles, nil
}

// String renders the set in its storage representation.
func (r Roles) String() string {
	parts := make([]string, len(r))
	for i, role := range r {
		parts[i] = string(role)
	}
	return strings.Join(parts, ",")
}

// Has reports whether the set contains the given role.
func (r Roles) Has(role Role) bool {
	for _, candidate := range r {
		if candidate == role {
			return true
		}
	}
	return false
}

// Intersects reports whether the set shares at least one role with other.
func (r Roles) Intersects(other Roles) bool {
	for _, role := range other {
		if r.Has(role) {
			return true
		}
	}
	return false
}
