// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

// Requirement is the role an operation declares. RequireNone marks
// public operations that need no session at all.
type Requirement struct {
	role   Role
	public bool
}

// Requirements for route declarations.
var (
	RequireNone   = Requirement{public: true}
	RequireViewer = Requirement{role: RoleViewer}
	RequireEditor = Requirement{role: RoleEditor}
	RequireAdmin  = Requirement{role: RoleAdmin}
)

// Public reports whether the requirement needs no session.
func (q Requirement) Public() bool { return q.public }

// Role returns the minimum role, or RoleUnknown for public requirements.
func (q Requirement) Role() Role { return q.role }

func (q Requirement) String() string {
	if q.public {
		return "none"
	}
	return q.role.String()
}

// Decision is the outcome of an authorization check.
type Decision bool

// Allow and Deny are the only decisions.
const (
	Allow Decision = true
	Deny  Decision = false
)

// HasRole reports whether the verified claims satisfy the required role.
func HasRole(required Role, claims *Claims) bool {
	if claims == nil {
		return false
	}
	return claims.AccountRole().Satisfies(required)
}

// Authorize decides whether claims may perform an operation with the given
// requirement. Public operations are always allowed; any other requirement
// with nil claims is denied before the role comparison.
func Authorize(claims *Claims, required Requirement) Decision {
	if required.public {
		return Allow
	}
	if claims == nil {
		return Deny
	}
	return Decision(HasRole(required.role, claims))
}
