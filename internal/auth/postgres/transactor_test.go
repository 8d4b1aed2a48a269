// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"

	"github.com/harborlight/harborlight/internal/auth/postgres"
)

func TestTransactor_RepositoriesJoinTheTransaction(t *testing.T) {
	mock := newMock(t)
	id := ulid.Make()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE accounts SET password_hash`).
		WithArgs(id.String(), "new-hash", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	repo := postgres.NewAccountRepository(mock)
	err := postgres.NewTransactor(mock).InTransaction(context.Background(), func(ctx context.Context) error {
		return repo.UpdatePassword(ctx, id, "new-hash")
	})
	assert.NoError(t, err)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := postgres.NewTransactor(mock).InTransaction(context.Background(), func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestTransactor_BeginFailure(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := postgres.NewTransactor(mock).InTransaction(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}
