// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/harborlight/harborlight/pkg/errutil"
)

// inviteCodeAttempts bounds retries when a generated code collides.
const inviteCodeAttempts = 3

// Registration is the input to invite-based account creation.
type Registration struct {
	Code     string
	Name     string
	Email    string
	Password string
}

// RegistrationService manages invite codes and invite-based registration.
type RegistrationService struct {
	accounts AccountRepository
	invites  InviteRepository
	tx       Transactor
	hasher   PasswordHasher
	sessions *SessionIssuer
	mailer   Mailer
	links    Links
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(
	accounts AccountRepository,
	invites InviteRepository,
	tx Transactor,
	hasher PasswordHasher,
	sessions *SessionIssuer,
	mailer Mailer,
	links Links,
) (*RegistrationService, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if invites == nil {
		return nil, oops.Errorf("invite repository is required")
	}
	if tx == nil {
		return nil, oops.Errorf("transactor is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session issuer is required")
	}
	if mailer == nil {
		return nil, oops.Errorf("mailer is required")
	}
	return &RegistrationService{
		accounts: accounts,
		invites:  invites,
		tx:       tx,
		hasher:   hasher,
		sessions: sessions,
		mailer:   mailer,
		links:    links,
	}, nil
}

// CreateInvite issues a new invite code for role. When email is non-empty the
// invite is bound to that address and the code is mailed to it. A delivery
// failure is logged; the invite is still returned so an admin can share it.
func (s *RegistrationService) CreateInvite(ctx context.Context, createdBy *ulid.ULID, role Role, email string) (*Invite, error) {
	if !role.Valid() {
		return nil, errInvalidInput("role", "role is not valid")
	}

	var bound *string
	if strings.TrimSpace(email) != "" {
		normalized, err := NormalizeEmail(email)
		if err != nil {
			return nil, err
		}
		bound = &normalized
	}

	now := time.Now()
	invite := &Invite{
		Email:     bound,
		Role:      role,
		CreatedBy: createdBy,
		ExpiresAt: now.Add(InviteExpiry),
		CreatedAt: now,
	}

	var err error
	for range inviteCodeAttempts {
		invite.Code, err = GenerateInviteCode()
		if err != nil {
			return nil, err
		}
		err = s.invites.Create(ctx, invite)
		if !errors.Is(err, ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, oops.Code("INVITE_CREATE_FAILED").
			With("role", role.String()).
			Wrap(err)
	}

	if bound != nil {
		if err := s.sendInvite(ctx, invite); err != nil {
			errutil.LogError(slog.Default(), "invite delivery failed", err)
		}
	}
	return invite, nil
}

func (s *RegistrationService) sendInvite(ctx context.Context, invite *Invite) error {
	body, err := render(inviteTmpl, map[string]string{
		"Role":      invite.Role.String(),
		"Code":      invite.Code,
		"ExpiresAt": invite.ExpiresAt.UTC().Format(time.RFC1123),
		"Link":      s.links.Register(invite.Code),
	})
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, *invite.Email, "You're invited to Harborlight", body); err != nil {
		return oops.Code("INVITE_MAIL_FAILED").With("code", invite.Code).Wrap(err)
	}
	return nil
}

// ValidateInvite reports whether code can currently be redeemed. It never
// fails; lookup errors are logged and reported as an invalid code.
func (s *RegistrationService) ValidateInvite(ctx context.Context, code string) InviteCheck {
	code = strings.TrimSpace(code)
	if code == "" {
		return InviteCheck{}
	}
	invite, err := s.invites.GetByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			errutil.LogError(slog.Default(), "invite lookup failed", err)
		}
		return InviteCheck{}
	}
	if !invite.IsRedeemableAt(time.Now()) {
		return InviteCheck{}
	}
	role := invite.Role
	return InviteCheck{Valid: true, Role: &role, Email: invite.Email}
}

// Register creates an account from an invite and signs it in. Account
// creation and invite consumption commit together; if another registration
// consumed the invite first, nothing is written.
func (s *RegistrationService) Register(ctx context.Context, reg Registration) (*Session, error) {
	code := strings.TrimSpace(reg.Code)
	if code == "" {
		return nil, errInvalidInvite()
	}
	email, err := NormalizeEmail(reg.Email)
	if err != nil {
		return nil, err
	}
	if err := ValidateName(reg.Name); err != nil {
		return nil, err
	}
	if err := ValidatePassword(reg.Password); err != nil {
		return nil, err
	}

	invite, err := s.invites.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errInvalidInvite()
		}
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "get invite").
			Wrap(err)
	}
	if !invite.IsRedeemableAt(time.Now()) || !invite.AcceptsEmail(email) {
		return nil, errInvalidInvite()
	}

	hashed, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}
	account, err := NewAccount(email, reg.Name, hashed, invite.Role)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, account); err != nil {
			if errors.Is(err, ErrConflict) {
				return errEmailTaken()
			}
			return oops.Code("REGISTER_FAILED").
				With("operation", "create account").
				Wrap(err)
		}
		if err := s.invites.Claim(ctx, code, account.ID, time.Now()); err != nil {
			if errors.Is(err, ErrAlreadyClaimed) || errors.Is(err, ErrNotFound) {
				return errInvalidInvite()
			}
			return oops.Code("REGISTER_FAILED").
				With("operation", "claim invite").
				Wrap(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return issueSession(s.sessions, account)
}

// ListInvites returns all invites, newest first.
func (s *RegistrationService) ListInvites(ctx context.Context) ([]*Invite, error) {
	invites, err := s.invites.List(ctx)
	if err != nil {
		return nil, oops.Code("INVITE_LIST_FAILED").Wrap(err)
	}
	return invites, nil
}

// RevokeInvite deletes an invite code.
func (s *RegistrationService) RevokeInvite(ctx context.Context, code string) error {
	if err := s.invites.Delete(ctx, code); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeInviteNotFound).With("code", code).Errorf("invite not found")
		}
		return oops.Code("INVITE_REVOKE_FAILED").With("code", code).Wrap(err)
	}
	return nil
}
