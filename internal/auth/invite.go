// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Invite authorizes creation of one account with a pre-assigned role.
type Invite struct {
	Code      string
	Email     *string // nil when the invite is not bound to an address
	Role      Role
	Used      bool
	CreatedBy *ulid.ULID
	UsedBy    *ulid.ULID
	UsedAt    *time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsRedeemableAt reports whether the invite is unused and unexpired at now.
func (i *Invite) IsRedeemableAt(now time.Time) bool {
	return !i.Used && !now.After(i.ExpiresAt)
}

// AcceptsEmail reports whether normalizedEmail may register with this invite.
func (i *Invite) AcceptsEmail(normalizedEmail string) bool {
	if i.Email == nil {
		return true
	}
	return strings.EqualFold(*i.Email, normalizedEmail)
}

// InviteView is the admin view of an invite.
type InviteView struct {
	Code      string     `json:"code"`
	Email     *string    `json:"email,omitempty"`
	Role      Role       `json:"role"`
	Used      bool       `json:"is_used"`
	CreatedBy *string    `json:"created_by,omitempty"`
	UsedBy    *string    `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// View returns the admin view of the invite.
func (i *Invite) View() InviteView {
	return InviteView{
		Code:      i.Code,
		Email:     i.Email,
		Role:      i.Role,
		Used:      i.Used,
		CreatedBy: ulidString(i.CreatedBy),
		UsedBy:    ulidString(i.UsedBy),
		UsedAt:    i.UsedAt,
		ExpiresAt: i.ExpiresAt,
		CreatedAt: i.CreatedAt,
	}
}

func ulidString(id *ulid.ULID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// InviteCheck is the result of a non-mutating invite validation.
// Invalid invites carry no detail about why they are invalid.
type InviteCheck struct {
	Valid bool    `json:"valid"`
	Role  *Role   `json:"role,omitempty"`
	Email *string `json:"email,omitempty"`
}

// InviteRepository manages invite persistence.
type InviteRepository interface {
	// Create stores a new invite. Returns ErrConflict on a duplicate code.
	Create(ctx context.Context, invite *Invite) error

	// GetByCode retrieves an invite by code.
	GetByCode(ctx context.Context, code string) (*Invite, error)

	// List returns all invites, newest first.
	List(ctx context.Context) ([]*Invite, error)

	// Claim atomically marks an unused, unexpired invite as used by accountID.
	// Exactly one concurrent caller can win; losers receive ErrAlreadyClaimed.
	Claim(ctx context.Context, code string, accountID ulid.ULID, now time.Time) error

	// Delete removes an unused invite. Returns ErrNotFound if none matched.
	Delete(ctx context.Context, code string) error
}
