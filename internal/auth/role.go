// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"strings"

	"github.com/samber/oops"
)

// Role is an account's authorization level. Roles are totally ordered:
// RoleViewer < RoleEditor < RoleAdmin. A higher role satisfies every
// requirement a lower role does.
type Role uint8

// Declared roles. RoleUnknown is the zero value and satisfies nothing.
const (
	RoleUnknown Role = iota
	RoleViewer
	RoleEditor
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleViewer: "viewer",
	RoleEditor: "editor",
	RoleAdmin:  "admin",
}

// Roles returns all declared roles in ascending order.
func Roles() []Role {
	return []Role{RoleViewer, RoleEditor, RoleAdmin}
}

// ParseRole converts a role name to a Role. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for r, name := range roleNames {
		if name == needle {
			return r, nil
		}
	}
	return RoleUnknown, oops.Code(CodeInvalidInput).
		With("field", "role").
		With("role", s).
		Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// String returns the role name, or "unknown".
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Satisfies reports whether r meets the required role.
// Unknown roles never satisfy anything and are never satisfied.
func (r Role) Satisfies(required Role) bool {
	if !r.Valid() || !required.Valid() {
		return false
	}
	return r >= required
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, oops.Code(CodeInvalidInput).Errorf("cannot encode unknown role")
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
