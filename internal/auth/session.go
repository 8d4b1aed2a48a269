// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	DefaultSessionTTL   = 7 * 24 * time.Hour
	MinSessionSecretLen = 32
)

// Claims is the verified payload of a session token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AccountID parses the subject claim.
func (c *Claims) AccountID() (ulid.ULID, error) {
	id, err := ulid.Parse(c.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeUnauthorized).Wrap(err)
	}
	return id, nil
}

// AccountRole returns the role claim. Unknown names map to RoleUnknown.
func (c *Claims) AccountRole() Role {
	r, err := ParseRole(c.Role)
	if err != nil {
		return RoleUnknown
	}
	return r
}

// SessionIssuer signs and verifies stateless session tokens (HS256 JWTs).
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// SessionOption configures a SessionIssuer.
type SessionOption func(*SessionIssuer)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionIssuer) { s.now = now }
}

// NewSessionIssuer creates a SessionIssuer. The secret is required and must be
// at least MinSessionSecretLen bytes; a zero ttl selects DefaultSessionTTL.
func NewSessionIssuer(secret []byte, ttl time.Duration, opts ...SessionOption) (*SessionIssuer, error) {
	if len(secret) < MinSessionSecretLen {
		return nil, oops.Code(CodeConfiguration).
			With("min_length", MinSessionSecretLen).
			Errorf("session secret must be at least %d bytes", MinSessionSecretLen)
	}
	if ttl < 0 {
		return nil, oops.Code(CodeConfiguration).Errorf("session ttl cannot be negative")
	}
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	s := &SessionIssuer{secret: key, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *SessionIssuer) TTL() time.Duration {
	return s.ttl
}

// Issue mints a session token for the account.
func (s *SessionIssuer) Issue(account *Account) (string, error) {
	if account == nil || !account.Role.Valid() {
		return "", oops.Code("AUTH_SESSION_ISSUE_FAILED").Errorf("account with a valid role is required")
	}

	issuedAt := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
		Email: account.Email,
		Role:  account.Role.String(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("AUTH_SESSION_ISSUE_FAILED").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	return token, nil
}

// Verify validates the signature and expiry of a token and returns its claims.
// Every failure yields the same recoverable CodeUnauthorized error.
func (s *SessionIssuer) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, oops.Code(CodeUnauthorized).Errorf("session token is required")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(_ *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, oops.Code(CodeUnauthorized).
			With("reason", verifyReason(err)).
			Errorf("invalid session token")
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, oops.Code(CodeUnauthorized).Errorf("invalid session token")
	}
	return claims, nil
}

func verifyReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
