// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Session is the result of a successful login or registration.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Account   Summary   `json:"user"`
}

// ProfileUpdate holds the fields of a self-service profile edit.
// A nil field is left unchanged. Setting NewPassword requires CurrentPassword.
type ProfileUpdate struct {
	Name            *string
	Email           *string
	CurrentPassword string
	NewPassword     string
}

// Service provides authentication operations for admin accounts.
type Service struct {
	accounts AccountRepository
	tx       Transactor
	hasher   PasswordHasher
	sessions *SessionIssuer
}

// NewAuthService creates a new Service.
func NewAuthService(accounts AccountRepository, tx Transactor, hasher PasswordHasher, sessions *SessionIssuer) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
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
	return &Service{
		accounts: accounts,
		tx:       tx,
		hasher:   hasher,
		sessions: sessions,
	}, nil
}

// dummyPasswordHash is verified against when the account doesn't exist so the
// response time does not reveal whether an email is registered. It is a
// well-formed hash that no password derives.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
var dummyPasswordHash = strings.Repeat("0", 2*pbkdf2SaltLen) + hashDelimiter + strings.Repeat("0", 2*pbkdf2KeyLen)

// Login authenticates an account by email and password and issues a session token.
// Unknown emails, wrong passwords and inactive accounts return the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	account, lookupErr := s.accounts.GetByEmail(ctx, normalized)

	var targetHash string
	var exists bool
	switch {
	case lookupErr == nil:
		targetHash = account.PasswordHash
		exists = true
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = dummyPasswordHash
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get account by email").
			Wrap(lookupErr)
	}

	// Always verify so both branches cost one key derivation.
	valid := s.hasher.Verify(password, targetHash)

	if !exists || !valid || !account.Active {
		return nil, errInvalidCredentials()
	}

	return s.issue(account)
}

// Me returns the account behind verified claims.
func (s *Service) Me(ctx context.Context, claims *Claims) (*Account, error) {
	if claims == nil {
		return nil, oops.Code(CodeUnauthorized).Errorf("authentication required")
	}
	id, err := claims.AccountID()
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errAccountNotFound(id)
		}
		return nil, oops.Code("AUTH_ME_FAILED").
			With("account_id", id.String()).
			Wrap(err)
	}
	if !account.Active {
		return nil, oops.Code(CodeUnauthorized).
			With("account_id", id.String()).
			Errorf("account is deactivated")
	}
	return account, nil
}

// UpdateProfile applies a self-service edit and returns a fresh session so the
// token reflects the new email.
func (s *Service) UpdateProfile(ctx context.Context, claims *Claims, update ProfileUpdate) (*Session, error) {
	account, err := s.Me(ctx, claims)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		if err := ValidateName(*update.Name); err != nil {
			return nil, err
		}
		account.Name = strings.TrimSpace(*update.Name)
	}
	if update.Email != nil {
		normalized, err := NormalizeEmail(*update.Email)
		if err != nil {
			return nil, err
		}
		account.Email = normalized
	}

	var newHash string
	if update.NewPassword != "" {
		if !s.hasher.Verify(update.CurrentPassword, account.PasswordHash) {
			return nil, oops.Code(CodeWrongCurrentPassword).Errorf("current password is incorrect")
		}
		if err := ValidatePassword(update.NewPassword); err != nil {
			return nil, err
		}
		newHash, err = s.hasher.Hash(update.NewPassword)
		if err != nil {
			return nil, oops.Code("AUTH_PROFILE_UPDATE_FAILED").
				With("operation", "hash password").
				Wrap(err)
		}
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.Update(ctx, account); err != nil {
			if errors.Is(err, ErrConflict) {
				return errEmailTaken()
			}
			return oops.Code("AUTH_PROFILE_UPDATE_FAILED").
				With("operation", "update account").
				Wrap(err)
		}
		if newHash == "" {
			return nil
		}
		if err := s.accounts.UpdatePassword(ctx, account.ID, newHash); err != nil {
			return oops.Code("AUTH_PROFILE_UPDATE_FAILED").
				With("operation", "update password").
				Wrap(err)
		}
		account.PasswordHash = newHash
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.issue(account)
}

func (s *Service) issue(account *Account) (*Session, error) {
	return issueSession(s.sessions, account)
}

func issueSession(issuer *SessionIssuer, account *Account) (*Session, error) {
	token, err := issuer.Issue(account)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		ExpiresAt: issuer.now().Add(issuer.ttl),
		Account:   account.Summary(),
	}, nil
}
