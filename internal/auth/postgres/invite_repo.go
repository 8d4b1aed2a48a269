// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/harborlight/harborlight/internal/auth"
)

const inviteSelect = `
	SELECT code, email, role, is_used, created_by, used_by, used_at, expires_at, created_at
	FROM invite_codes`

// InviteRepository implements auth.InviteRepository using PostgreSQL.
type InviteRepository struct {
	pool Pool
}

// NewInviteRepository creates a new InviteRepository.
func NewInviteRepository(pool Pool) *InviteRepository {
	return &InviteRepository{pool: pool}
}

// Create stores a new invite. A duplicate code yields auth.ErrConflict.
func (r *InviteRepository) Create(ctx context.Context, invite *auth.Invite) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO invite_codes (code, email, role, is_used, created_by, expires_at, created_at)
		VALUES ($1, $2, $3, FALSE, $4, $5, $6)
	`, invite.Code, invite.Email, invite.Role.String(), ulidToStringPtr(invite.CreatedBy),
		invite.ExpiresAt, invite.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("INVITE_CREATE_FAILED").With("code", invite.Code).Wrap(auth.ErrConflict)
		}
		return oops.Code("INVITE_CREATE_FAILED").
			With("operation", "insert invite").
			Wrap(err)
	}
	return nil
}

// GetByCode retrieves an invite by code.
func (r *InviteRepository) GetByCode(ctx context.Context, code string) (*auth.Invite, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, inviteSelect+` WHERE code = $1`, code)
	invite, err := scanInvite(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("INVITE_NOT_FOUND").With("code", code).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("INVITE_GET_FAILED").With("code", code).Wrap(err)
	}
	return invite, nil
}

// List returns all invites, newest first.
func (r *InviteRepository) List(ctx context.Context) ([]*auth.Invite, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, inviteSelect+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, oops.Code("INVITE_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()

	var invites []*auth.Invite
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, oops.Code("INVITE_LIST_FAILED").With("operation", "scan").Wrap(err)
		}
		invites = append(invites, invite)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("INVITE_LIST_FAILED").Wrap(err)
	}
	return invites, nil
}

// Claim marks an unused, unexpired invite as used by accountID. The
// conditional update makes concurrent claims race safely: exactly one
// caller updates the row and the rest get auth.ErrAlreadyClaimed.
func (r *InviteRepository) Claim(ctx context.Context, code string, accountID ulid.ULID, now time.Time) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE invite_codes
		SET is_used = TRUE, used_by = $2, used_at = $3
		WHERE code = $1 AND is_used = FALSE AND expires_at >= $3
	`, code, accountID.String(), now)
	if err != nil {
		return oops.Code("INVITE_CLAIM_FAILED").With("code", code).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("INVITE_CLAIM_FAILED").With("code", code).Wrap(auth.ErrAlreadyClaimed)
	}
	return nil
}

// Delete removes an invite.
func (r *InviteRepository) Delete(ctx context.Context, code string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM invite_codes WHERE code = $1`, code)
	if err != nil {
		return oops.Code("INVITE_DELETE_FAILED").With("code", code).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("INVITE_NOT_FOUND").With("code", code).Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanInvite(row pgx.Row) (*auth.Invite, error) {
	var (
		invite            auth.Invite
		role              string
		createdBy, usedBy *string
	)
	if err := row.Scan(&invite.Code, &invite.Email, &role, &invite.Used, &createdBy, &usedBy,
		&invite.UsedAt, &invite.ExpiresAt, &invite.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if invite.Role, err = auth.ParseRole(role); err != nil {
		return nil, err
	}
	if invite.CreatedBy, err = parseOptionalULID(createdBy, "created_by"); err != nil {
		return nil, err
	}
	if invite.UsedBy, err = parseOptionalULID(usedBy, "used_by"); err != nil {
		return nil, err
	}
	return &invite, nil
}

var _ auth.InviteRepository = (*InviteRepository)(nil)
