// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlight/harborlight/internal/auth"
	"github.com/harborlight/harborlight/internal/auth/postgres"
)

var tokenCols = []string{"id", "token_hash", "subject", "purpose", "used_at", "expires_at", "created_at"}

func TestTokenRepository_Claim(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	id := ulid.Make()

	t.Run("winner receives the token", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE one_time_tokens\s+SET used_at = \$3\s+WHERE purpose = \$1 AND token_hash = \$2 AND used_at IS NULL AND expires_at >= \$3\s+RETURNING`).
			WithArgs("password_reset", "hash", now).
			WillReturnRows(pgxmock.NewRows(tokenCols).
				AddRow(id.String(), "hash", "subject", "password_reset", &now, now.Add(time.Hour), now))

		got, err := postgres.NewTokenRepository(mock).Claim(ctx, auth.PurposePasswordReset, "hash", now)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "subject", got.Subject)
		require.NotNil(t, got.UsedAt)
	})

	t.Run("spent token", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE one_time_tokens`).
			WithArgs("password_reset", "hash", now).
			WillReturnRows(pgxmock.NewRows(tokenCols))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("password_reset", "hash").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := postgres.NewTokenRepository(mock).Claim(ctx, auth.PurposePasswordReset, "hash", now)
		assert.ErrorIs(t, err, auth.ErrAlreadyClaimed)
	})

	t.Run("unknown token", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE one_time_tokens`).
			WithArgs("application_code", "hash", now).
			WillReturnRows(pgxmock.NewRows(tokenCols))
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("application_code", "hash").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := postgres.NewTokenRepository(mock).Claim(ctx, auth.PurposeApplicationCode, "hash", now)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestTokenRepository_Create(t *testing.T) {
	mock := newMock(t)
	tok, err := auth.NewOneTimeToken(auth.PurposeApplicationAuth, "ada@example.com", "hash", time.Now().Add(time.Hour))
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO one_time_tokens`).
		WithArgs(tok.ID.String(), "hash", "ada@example.com", "application_auth", tok.ExpiresAt, tok.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, postgres.NewTokenRepository(mock).Create(context.Background(), tok))
}

func TestTokenRepository_DeleteExpired(t *testing.T) {
	mock := newMock(t)
	now := time.Now()
	mock.ExpectExec(`DELETE FROM one_time_tokens WHERE expires_at < \$1 OR used_at IS NOT NULL`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := postgres.NewTokenRepository(mock).DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestTokenRepository_DeleteBySubject(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`DELETE FROM one_time_tokens WHERE purpose = \$1 AND subject = \$2`).
		WithArgs("password_reset", "subject").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, postgres.NewTokenRepository(mock).DeleteBySubject(context.Background(), auth.PurposePasswordReset, "subject"))
}
