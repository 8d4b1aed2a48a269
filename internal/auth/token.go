// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Purpose namespaces one-time tokens. A token issued for one purpose never
// authorizes an action under another.
type Purpose string

// Declared purposes.
const (
	PurposePasswordReset   Purpose = "password_reset"
	PurposeApplicationCode Purpose = "application_code"
	PurposeApplicationAuth Purpose = "application_auth"
)

// Valid reports whether p is a declared purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposePasswordReset, PurposeApplicationCode, PurposeApplicationAuth:
		return true
	}
	return false
}

// Token lifetimes.
const (
	TokenBytes        = 32 // 32 bytes = 64 hex chars
	ResetTokenExpiry  = time.Hour
	AccessCodeExpiry  = 15 * time.Minute
	AccessTokenExpiry = 30 * time.Minute
	InviteExpiry      = 7 * 24 * time.Hour
)

// OneTimeToken is a stored single-use or short-lived credential.
// Only the SHA-256 hash of the secret is persisted.
type OneTimeToken struct {
	ID        ulid.ULID
	TokenHash string
	Subject   string // account ID or applicant email
	Purpose   Purpose
	UsedAt    *time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewOneTimeToken creates a validated OneTimeToken.
func NewOneTimeToken(purpose Purpose, subject, tokenHash string, expiresAt time.Time) (*OneTimeToken, error) {
	if !purpose.Valid() {
		return nil, oops.Code("TOKEN_INVALID_PURPOSE").With("purpose", string(purpose)).Errorf("unknown token purpose")
	}
	if subject == "" {
		return nil, oops.Code("TOKEN_INVALID_SUBJECT").Errorf("token subject cannot be empty")
	}
	if tokenHash == "" {
		return nil, oops.Code("TOKEN_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("TOKEN_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &OneTimeToken{
		ID:        ulid.Make(),
		TokenHash: tokenHash,
		Subject:   subject,
		Purpose:   purpose,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpiredAt reports whether the token is expired at now.
func (t *OneTimeToken) IsExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsUsable reports whether the token is unused and unexpired at now.
func (t *OneTimeToken) IsUsable(now time.Time) bool {
	return t.UsedAt == nil && !t.IsExpiredAt(now)
}

// GenerateToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token is sent to the user; the hash is stored.
func GenerateToken() (token, hash string, err error) {
	tokenBytes := make([]byte, TokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	return token, HashToken(token), nil
}

// HashToken computes the hex-encoded SHA-256 hash of a token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// TokenRepository manages one-time token persistence.
type TokenRepository interface {
	// Create stores a new token. Returns ErrConflict on a duplicate hash.
	Create(ctx context.Context, token *OneTimeToken) error

	// Claim atomically marks an unused, unexpired token as used and returns it.
	// Exactly one concurrent caller can win; losers receive ErrAlreadyClaimed.
	Claim(ctx context.Context, purpose Purpose, tokenHash string, now time.Time) (*OneTimeToken, error)

	// Get retrieves a token by purpose and hash without mutating it.
	Get(ctx context.Context, purpose Purpose, tokenHash string) (*OneTimeToken, error)

	// DeleteBySubject removes all tokens of a purpose for a subject.
	DeleteBySubject(ctx context.Context, purpose Purpose, subject string) error

	// DeleteExpired removes expired and used tokens and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Transactor runs fn as a single unit: every repository call made with the
// context passed to fn commits together or not at all.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
