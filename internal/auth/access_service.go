// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// ApplicationDirectory answers whether an applicant email has applications.
type ApplicationDirectory interface {
	HasApplications(ctx context.Context, email string) (bool, error)
}

// CodeStore holds short-lived numeric access codes keyed by email.
type CodeStore interface {
	// Save stores code for email, replacing any code already outstanding.
	Save(ctx context.Context, email, code string, ttl time.Duration) error

	// Consume atomically removes code if it is the live code for email and
	// reports whether it was. A code is accepted at most once.
	Consume(ctx context.Context, email, code string) (bool, error)
}

// AccessGrant is the opaque applicant token returned after code verification.
type AccessGrant struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ApplicantAccessService implements passwordless applicant access: an email
// receives a six-digit code, which is exchanged for a short-lived token.
type ApplicantAccessService struct {
	directory ApplicationDirectory
	codes     CodeStore
	tokens    TokenRepository
	tx        Transactor
	mailer    Mailer
	delivery  delivery
}

// NewApplicantAccessService creates a new ApplicantAccessService.
func NewApplicantAccessService(
	directory ApplicationDirectory,
	codes CodeStore,
	tokens TokenRepository,
	tx Transactor,
	mailer Mailer,
	opts ...DeliveryOption,
) (*ApplicantAccessService, error) {
	if directory == nil {
		return nil, oops.Errorf("application directory is required")
	}
	if codes == nil {
		return nil, oops.Errorf("code store is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token repository is required")
	}
	if tx == nil {
		return nil, oops.Errorf("transactor is required")
	}
	if mailer == nil {
		return nil, oops.Errorf("mailer is required")
	}
	return &ApplicantAccessService{
		directory: directory,
		codes:     codes,
		tokens:    tokens,
		tx:        tx,
		mailer:    mailer,
		delivery:  newDelivery(opts),
	}, nil
}

// RequestAccess mails a fresh access code if email has applications. Like
// password reset, the caller cannot tell whether a code was sent: the code
// is stored and mailed on the dispatcher after the call returns, and only a
// failed directory lookup is reported.
func (s *ApplicantAccessService) RequestAccess(ctx context.Context, email string) error {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil //nolint:nilerr // malformed addresses get the same outcome as unknown ones
	}

	has, err := s.directory.HasApplications(ctx, normalized)
	if err != nil {
		return oops.Code("ACCESS_REQUEST_FAILED").
			With("operation", "lookup applications").
			Wrap(err)
	}
	if !has {
		return nil
	}

	s.delivery.dispatcher.Go(ctx, "access code delivery failed", func(ctx context.Context) error {
		return s.sendCode(ctx, normalized)
	})
	return nil
}

func (s *ApplicantAccessService) sendCode(ctx context.Context, email string) error {
	code, err := GenerateAccessCode()
	if err != nil {
		return err
	}
	if err := s.codes.Save(ctx, email, code, AccessCodeExpiry); err != nil {
		return oops.Code("ACCESS_REQUEST_FAILED").
			With("operation", "save code").
			Wrap(err)
	}

	body, err := render(accessCodeTmpl, map[string]string{
		"Code":     code,
		"Validity": humanDuration(AccessCodeExpiry),
	})
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, email, "Your Harborlight verification code", body); err != nil {
		return oops.Code("ACCESS_MAIL_FAILED").Wrap(err)
	}
	return nil
}

// VerifyAccessCode consumes a code and issues an applicant token. Wrong,
// expired and already used codes are indistinguishable. Consuming the code
// and storing the token share one transaction, so with the database code
// store a failed token write leaves the code usable.
func (s *ApplicantAccessService) VerifyAccessCode(ctx context.Context, email, code string) (*AccessGrant, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil || !ValidAccessCodeFormat(code) {
		return nil, errInvalidOrExpiredToken()
	}

	token, hash, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(AccessTokenExpiry)
	record, err := NewOneTimeToken(PurposeApplicationAuth, normalized, hash, expiresAt)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.codes.Consume(ctx, normalized, code)
		if err != nil {
			return oops.Code("ACCESS_VERIFY_FAILED").
				With("operation", "consume code").
				Wrap(err)
		}
		if !ok {
			return errInvalidOrExpiredToken()
		}
		if err := s.tokens.Create(ctx, record); err != nil {
			return oops.Code("ACCESS_VERIFY_FAILED").
				With("operation", "create token").
				Wrap(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &AccessGrant{Token: token, ExpiresAt: expiresAt}, nil
}

// ValidateAccessToken returns the applicant email bound to a live token.
// Applicant tokens may be presented repeatedly until they expire.
func (s *ApplicantAccessService) ValidateAccessToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", errInvalidOrExpiredToken()
	}
	record, err := s.tokens.Get(ctx, PurposeApplicationAuth, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", errInvalidOrExpiredToken()
		}
		return "", oops.Code("ACCESS_VALIDATE_FAILED").Wrap(err)
	}
	if !record.IsUsable(time.Now()) {
		return "", errInvalidOrExpiredToken()
	}
	return record.Subject, nil
}

// TokenCodeStore keeps access codes in the one-time token table, hashed and
// bound to the email they were sent to.
type TokenCodeStore struct {
	tokens TokenRepository
	tx     Transactor
}

// NewTokenCodeStore creates a CodeStore backed by tokens.
func NewTokenCodeStore(tokens TokenRepository, tx Transactor) (*TokenCodeStore, error) {
	if tokens == nil {
		return nil, oops.Errorf("token repository is required")
	}
	if tx == nil {
		return nil, oops.Errorf("transactor is required")
	}
	return &TokenCodeStore{tokens: tokens, tx: tx}, nil
}

// Save replaces the outstanding code for email.
func (c *TokenCodeStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	record, err := NewOneTimeToken(PurposeApplicationCode, email, accessCodeHash(email, code), time.Now().Add(ttl))
	if err != nil {
		return err
	}
	return c.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := c.tokens.DeleteBySubject(ctx, PurposeApplicationCode, email); err != nil {
			return err
		}
		return c.tokens.Create(ctx, record)
	})
}

// Consume claims the code for email.
func (c *TokenCodeStore) Consume(ctx context.Context, email, code string) (bool, error) {
	_, err := c.tokens.Claim(ctx, PurposeApplicationCode, accessCodeHash(email, code), time.Now())
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrAlreadyClaimed), errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// accessCodeHash binds a code to its email so equal codes sent to different
// applicants never collide.
func accessCodeHash(email, code string) string {
	return HashToken(email + "\n" + code)
}

var _ CodeStore = (*TokenCodeStore)(nil)
