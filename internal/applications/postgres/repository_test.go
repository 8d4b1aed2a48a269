// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlight/harborlight/internal/applications"
	"github.com/harborlight/harborlight/internal/applications/postgres"
)

var cols = []string{"id", "email", "applicant_name", "opportunity", "status", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestRepository_ExistsForEmail(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM applications WHERE LOWER(email) = LOWER($1))`)).
		WithArgs("robin@example.org").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.ExistsForEmail(context.Background(), "robin@example.org")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepository_ListByStatus(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewRepository(mock)
	now := time.Now()
	id := ulid.Make()

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, email, applicant_name, opportunity, status, created_at, updated_at FROM applications WHERE status = $1 ORDER BY created_at DESC, id DESC`)).
		WithArgs("accepted").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(id.String(), "robin@example.org", "Robin", "Youth Sailing", "accepted", now, now))

	apps, err := repo.List(context.Background(), applications.Filter{Status: applications.StatusAccepted})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, id, apps[0].ID)
	assert.Equal(t, applications.StatusAccepted, apps[0].Status)
}

func TestRepository_ListRejectsCorruptStatus(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewRepository(mock)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM applications ORDER BY`).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(ulid.Make().String(), "robin@example.org", "Robin", "Youth Sailing", "lost", now, now))

	_, err := repo.List(context.Background(), applications.Filter{})
	require.Error(t, err)
}

func TestRepository_GetByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewRepository(mock)
	id := ulid.Make()

	mock.ExpectQuery(`SELECT .* FROM applications WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnRows(pgxmock.NewRows(cols))

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, applications.ErrNotFound)
}

func TestRepository_UpdateStatus(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewRepository(mock)
	now := time.Now()
	id := ulid.Make()

	mock.ExpectQuery(regexp.QuoteMeta(
		`UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3 RETURNING id, email, applicant_name, opportunity, status, created_at, updated_at`)).
		WithArgs("waitlisted", now, id.String()).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(id.String(), "robin@example.org", "Robin", "Youth Sailing", "waitlisted", now, now))

	app, err := repo.UpdateStatus(context.Background(), id, applications.StatusWaitlisted, now)
	require.NoError(t, err)
	assert.Equal(t, applications.StatusWaitlisted, app.Status)
}

func TestRepository_UpdateStatusNotFound(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewRepository(mock)
	now := time.Now()
	id := ulid.Make()

	mock.ExpectQuery(`UPDATE applications SET status`).
		WithArgs("accepted", now, id.String()).
		WillReturnRows(pgxmock.NewRows(cols))

	_, err := repo.UpdateStatus(context.Background(), id, applications.StatusAccepted, now)
	assert.ErrorIs(t, err, applications.ErrNotFound)
}

func TestRepository_CreateFailure(t *testing.T) {
	mock := newMock(t)
	repo := postgres.NewRepository(mock)
	now := time.Now()
	app := &applications.Application{
		ID: ulid.Make(), Email: "robin@example.org", ApplicantName: "Robin",
		Opportunity: "Youth Sailing", Status: applications.StatusSubmitted, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO applications`).
		WithArgs(app.ID.String(), app.Email, app.ApplicantName, app.Opportunity, "submitted", now, now).
		WillReturnError(errors.New("connection reset"))

	assert.Error(t, repo.Create(context.Background(), app))
}
