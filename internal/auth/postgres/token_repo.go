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

const tokenColumns = `id, token_hash, subject, purpose, used_at, expires_at, created_at`

// TokenRepository implements auth.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool Pool
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(pool Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Create stores a new one-time token.
func (r *TokenRepository) Create(ctx context.Context, token *auth.OneTimeToken) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO one_time_tokens (id, token_hash, subject, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, token.ID.String(), token.TokenHash, token.Subject, string(token.Purpose), token.ExpiresAt, token.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("TOKEN_CREATE_FAILED").
				With("purpose", string(token.Purpose)).
				Wrap(auth.ErrConflict)
		}
		return oops.Code("TOKEN_CREATE_FAILED").
			With("operation", "insert token").
			With("purpose", string(token.Purpose)).
			Wrap(err)
	}
	return nil
}

// Claim atomically marks a live token as used and returns it. The
// conditional update is the single point of truth: whichever caller
// updates the row wins, and every later or concurrent caller gets
// auth.ErrAlreadyClaimed. Unknown hashes yield auth.ErrNotFound.
func (r *TokenRepository) Claim(ctx context.Context, purpose auth.Purpose, tokenHash string, now time.Time) (*auth.OneTimeToken, error) {
	q := conn(ctx, r.pool)
	row := q.QueryRow(ctx, `
		UPDATE one_time_tokens
		SET used_at = $3
		WHERE purpose = $1 AND token_hash = $2 AND used_at IS NULL AND expires_at >= $3
		RETURNING `+tokenColumns,
		string(purpose), tokenHash, now)

	token, err := scanToken(row)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_CLAIM_FAILED").With("purpose", string(purpose)).Wrap(err)
	}

	// Distinguish a spent token from one that never existed.
	var exists bool
	if err := q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM one_time_tokens WHERE purpose = $1 AND token_hash = $2)
	`, string(purpose), tokenHash).Scan(&exists); err != nil {
		return nil, oops.Code("TOKEN_CLAIM_FAILED").With("purpose", string(purpose)).Wrap(err)
	}
	if !exists {
		return nil, oops.Code("TOKEN_NOT_FOUND").With("purpose", string(purpose)).Wrap(auth.ErrNotFound)
	}
	return nil, oops.Code("TOKEN_CLAIM_FAILED").With("purpose", string(purpose)).Wrap(auth.ErrAlreadyClaimed)
}

// Get retrieves a token without consuming it.
func (r *TokenRepository) Get(ctx context.Context, purpose auth.Purpose, tokenHash string) (*auth.OneTimeToken, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM one_time_tokens
		WHERE purpose = $1 AND token_hash = $2
	`, string(purpose), tokenHash)

	token, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").With("purpose", string(purpose)).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").With("purpose", string(purpose)).Wrap(err)
	}
	return token, nil
}

// DeleteBySubject removes every token of purpose issued to subject.
func (r *TokenRepository) DeleteBySubject(ctx context.Context, purpose auth.Purpose, subject string) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM one_time_tokens WHERE purpose = $1 AND subject = $2
	`, string(purpose), subject)
	if err != nil {
		return oops.Code("TOKEN_DELETE_FAILED").
			With("purpose", string(purpose)).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes tokens that expired before now or were already used.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM one_time_tokens WHERE expires_at < $1 OR used_at IS NOT NULL
	`, now)
	if err != nil {
		return 0, oops.Code("TOKEN_PRUNE_FAILED").Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func scanToken(row pgx.Row) (*auth.OneTimeToken, error) {
	var (
		token   auth.OneTimeToken
		id      string
		purpose string
	)
	if err := row.Scan(&id, &token.TokenHash, &token.Subject, &purpose,
		&token.UsedAt, &token.ExpiresAt, &token.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return nil, oops.With("operation", "parse id").With("id", id).Wrap(err)
	}
	token.ID = parsed
	token.Purpose = auth.Purpose(purpose)
	return &token, nil
}

var _ auth.TokenRepository = (*TokenRepository)(nil)
