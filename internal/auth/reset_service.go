// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// PasswordResetService handles forgotten-password recovery.
type PasswordResetService struct {
	accounts AccountRepository
	tokens   TokenRepository
	tx       Transactor
	hasher   PasswordHasher
	mailer   Mailer
	links    Links
	delivery delivery
}

// NewPasswordResetService creates a new PasswordResetService.
func NewPasswordResetService(
	accounts AccountRepository,
	tokens TokenRepository,
	tx Transactor,
	hasher PasswordHasher,
	mailer Mailer,
	links Links,
	opts ...DeliveryOption,
) (*PasswordResetService, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token repository is required")
	}
	if tx == nil {
		return nil, oops.Errorf("transactor is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if mailer == nil {
		return nil, oops.Errorf("mailer is required")
	}
	return &PasswordResetService{
		accounts: accounts,
		tokens:   tokens,
		tx:       tx,
		hasher:   hasher,
		mailer:   mailer,
		links:    links,
		delivery: newDelivery(opts),
	}, nil
}

// RequestReset emails a reset link if an active account has the given email.
// The outcome is not observable by the caller: unknown emails, inactive
// accounts and delivery failures all return nil after the same lookup, and
// token issuance runs on the dispatcher after the call returns. Only a
// failed account lookup is reported, since nothing was learned about the
// email.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	normalized := strings.ToLower(strings.TrimSpace(email))

	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	if !account.Active {
		return nil
	}

	s.delivery.dispatcher.Go(ctx, "password reset delivery failed", func(ctx context.Context) error {
		return s.sendReset(ctx, account)
	})
	return nil
}

func (s *PasswordResetService) sendReset(ctx context.Context, account *Account) error {
	subject := account.ID.String()

	// Only the most recent link stays valid.
	if err := s.tokens.DeleteBySubject(ctx, PurposePasswordReset, subject); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "delete previous tokens").
			With("account_id", subject).
			Wrap(err)
	}

	token, hash, err := GenerateToken()
	if err != nil {
		return err
	}
	record, err := NewOneTimeToken(PurposePasswordReset, subject, hash, time.Now().Add(ResetTokenExpiry))
	if err != nil {
		return err
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "create token").
			With("account_id", subject).
			Wrap(err)
	}

	body, err := render(resetPasswordTmpl, map[string]string{
		"Name":     account.Name,
		"Link":     s.links.ResetPassword(token),
		"Validity": humanDuration(ResetTokenExpiry),
	})
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, account.Email, "Reset your Harborlight password", body); err != nil {
		return oops.Code("RESET_MAIL_FAILED").
			With("account_id", subject).
			Wrap(err)
	}
	return nil
}

// ResetPassword sets a new password using a reset token. Claiming the token
// and writing the password happen in one transaction, so a token can change
// the password at most once even under concurrent use.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return errInvalidOrExpiredToken()
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	return s.tx.InTransaction(ctx, func(ctx context.Context) error {
		record, err := s.tokens.Claim(ctx, PurposePasswordReset, HashToken(token), time.Now())
		if err != nil {
			if errors.Is(err, ErrAlreadyClaimed) || errors.Is(err, ErrNotFound) {
				return errInvalidOrExpiredToken()
			}
			return oops.Code("RESET_PASSWORD_FAILED").
				With("operation", "claim token").
				Wrap(err)
		}

		accountID, err := ulid.Parse(record.Subject)
		if err != nil {
			return errInvalidOrExpiredToken()
		}
		account, err := s.accounts.GetByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return errInvalidOrExpiredToken()
			}
			return oops.Code("RESET_PASSWORD_FAILED").
				With("operation", "get account").
				Wrap(err)
		}
		if !account.Active {
			return errInvalidOrExpiredToken()
		}

		if err := s.accounts.UpdatePassword(ctx, accountID, hashed); err != nil {
			return oops.Code("RESET_PASSWORD_FAILED").
				With("operation", "update password").
				With("account_id", record.Subject).
				Wrap(err)
		}

		if err := s.tokens.DeleteBySubject(ctx, PurposePasswordReset, record.Subject); err != nil {
			return oops.Code("RESET_PASSWORD_FAILED").
				With("operation", "delete tokens").
				With("account_id", record.Subject).
				Wrap(err)
		}
		return nil
	})
}
