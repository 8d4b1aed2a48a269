// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package applications_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harborlight/harborlight/internal/applications"
	"github.com/harborlight/harborlight/internal/applications/memory"
	"github.com/harborlight/harborlight/internal/auth"
	"github.com/harborlight/harborlight/internal/auth/mocks"
	"github.com/harborlight/harborlight/pkg/errutil"
)

var links = auth.Links{BaseURL: "https://harborlight.test"}

func seed(t *testing.T, repo *memory.Repository, email, opportunity string, age time.Duration) *applications.Application {
	t.Helper()
	created := time.Now().Add(-age)
	app := &applications.Application{
		ID:            ulid.Make(),
		Email:         email,
		ApplicantName: "Robin Applicant",
		Opportunity:   opportunity,
		Status:        applications.StatusSubmitted,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	require.NoError(t, repo.Create(context.Background(), app))
	return app
}

func newService(t *testing.T) (*applications.Service, *memory.Repository, *mocks.MockMailer) {
	t.Helper()
	repo := memory.NewRepository()
	mailer := mocks.NewMockMailer(t)
	svc, err := applications.NewService(repo, mailer, links)
	require.NoError(t, err)
	return svc, repo, mailer
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := applications.NewService(nil, mocks.NewMockMailer(t), links)
	errutil.AssertErrorCode(t, err, auth.CodeConfiguration)

	_, err = applications.NewService(memory.NewRepository(), nil, links)
	errutil.AssertErrorCode(t, err, auth.CodeConfiguration)
}

func TestParseStatus(t *testing.T) {
	st, err := applications.ParseStatus(" Under_Review ")
	require.NoError(t, err)
	assert.Equal(t, applications.StatusUnderReview, st)

	_, err = applications.ParseStatus("pending")
	errutil.AssertErrorCode(t, err, applications.CodeInvalidStatus)
}

func TestService_HasApplications(t *testing.T) {
	svc, repo, _ := newService(t)
	seed(t, repo, "robin@example.org", "Youth Sailing", time.Hour)
	ctx := context.Background()

	ok, err := svc.HasApplications(ctx, " ROBIN@example.org ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasApplications(ctx, "nobody@example.org")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_ListForApplicant(t *testing.T) {
	svc, repo, _ := newService(t)
	older := seed(t, repo, "robin@example.org", "Youth Sailing", 2*time.Hour)
	newer := seed(t, repo, "robin@example.org", "Boat Building", time.Hour)
	seed(t, repo, "other@example.org", "Youth Sailing", time.Hour)

	views, err := svc.ListForApplicant(context.Background(), "robin@example.org")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, newer.ID.String(), views[0].ID)
	assert.Equal(t, older.ID.String(), views[1].ID)
	assert.Equal(t, "Boat Building", views[0].Opportunity)
}

func TestService_ListFilter(t *testing.T) {
	svc, repo, mailer := newService(t)
	a := seed(t, repo, "a@example.org", "Youth Sailing", time.Hour)
	seed(t, repo, "b@example.org", "Youth Sailing", time.Hour)
	mailer.On("Send", mock.Anything, "a@example.org", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, a.ID, applications.StatusAccepted)
	require.NoError(t, err)

	all, err := svc.List(ctx, applications.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	accepted, err := svc.List(ctx, applications.Filter{Status: applications.StatusAccepted})
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, a.ID, accepted[0].ID)

	_, err = svc.List(ctx, applications.Filter{Status: "bogus"})
	errutil.AssertErrorCode(t, err, applications.CodeInvalidStatus)
}

func TestService_UpdateStatusNotifiesApplicant(t *testing.T) {
	svc, repo, mailer := newService(t)
	app := seed(t, repo, "robin@example.org", "Youth Sailing", time.Hour)

	mailer.On("Send", mock.Anything, "robin@example.org", "Update on your Youth Sailing application",
		mock.MatchedBy(func(body string) bool {
			return strings.Contains(body, "is now: under review") &&
				strings.Contains(body, "https://harborlight.test/apply/status")
		})).Return(nil).Once()

	updated, err := svc.UpdateStatus(context.Background(), app.ID, applications.StatusUnderReview)
	require.NoError(t, err)
	assert.Equal(t, applications.StatusUnderReview, updated.Status)
	assert.True(t, updated.UpdatedAt.After(app.UpdatedAt))
}

func TestService_UpdateStatusSameStatusSendsNothing(t *testing.T) {
	svc, repo, _ := newService(t)
	app := seed(t, repo, "robin@example.org", "Youth Sailing", time.Hour)

	updated, err := svc.UpdateStatus(context.Background(), app.ID, applications.StatusSubmitted)
	require.NoError(t, err)
	assert.Equal(t, app.UpdatedAt, updated.UpdatedAt)
}

func TestService_UpdateStatusMailFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	original := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(original) })

	svc, repo, mailer := newService(t)
	app := seed(t, repo, "robin@example.org", "Youth Sailing", time.Hour)
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	updated, err := svc.UpdateStatus(context.Background(), app.ID, applications.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, applications.StatusRejected, updated.Status)
	assert.Contains(t, buf.String(), "application status email failed")
	assert.Contains(t, buf.String(), "APPLICATION_MAIL_FAILED")
}

func TestService_UpdateStatusErrors(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, ulid.Make(), applications.StatusAccepted)
	errutil.AssertErrorCode(t, err, applications.CodeApplicationNotFound)

	_, err = svc.UpdateStatus(ctx, ulid.Make(), "pending")
	errutil.AssertErrorCode(t, err, applications.CodeInvalidStatus)
}

func TestStatus_Labels(t *testing.T) {
	for _, st := range []applications.Status{
		applications.StatusSubmitted, applications.StatusUnderReview, applications.StatusAccepted,
		applications.StatusWaitlisted, applications.StatusRejected,
	} {
		assert.True(t, st.Valid())
		assert.NotEmpty(t, st.Label())
	}
	assert.False(t, applications.Status("").Valid())
}
