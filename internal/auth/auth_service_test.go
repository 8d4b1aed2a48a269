// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harborlight/harborlight/internal/auth"
	"github.com/harborlight/harborlight/internal/auth/memory"
	"github.com/harborlight/harborlight/internal/auth/mocks"
	"github.com/harborlight/harborlight/pkg/errutil"
)

func TestNewAuthService_NilDependencies(t *testing.T) {
	store := memory.NewStore()
	issuer, err := auth.NewSessionIssuer(testSecret, 0)
	require.NoError(t, err)

	tests := []struct {
		name        string
		accounts    auth.AccountRepository
		tx          auth.Transactor
		hasher      auth.PasswordHasher
		sessions    *auth.SessionIssuer
		expectError string
	}{
		{"nil accounts", nil, store, auth.NewPBKDF2Hasher(), issuer, "account repository is required"},
		{"nil transactor", store.Accounts(), nil, auth.NewPBKDF2Hasher(), issuer, "transactor is required"},
		{"nil hasher", store.Accounts(), store, nil, issuer, "password hasher is required"},
		{"nil issuer", store.Accounts(), store, auth.NewPBKDF2Hasher(), nil, "session issuer is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewAuthService(tt.accounts, tt.tx, tt.hasher, tt.sessions)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials issue a session", func(t *testing.T) {
		f := newFixture(t)
		account := f.seedAccount(t, "ada@example.com", "correct horse", auth.RoleEditor)

		session, err := f.auth.Login(ctx, "ADA@example.com ", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, account.ID.String(), session.Account.ID)

		claims, err := f.issuer.Verify(session.Token)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleEditor, claims.AccountRole())
	})

	t.Run("unknown email, wrong password and inactive account are indistinguishable", func(t *testing.T) {
		f := newFixture(t)
		f.seedAccount(t, "ada@example.com", "correct horse", auth.RoleViewer)
		inactive := f.seedAccount(t, "bob@example.com", "correct horse", auth.RoleViewer)
		inactive.Active = false
		require.NoError(t, f.store.Accounts().Update(ctx, inactive))

		attempts := []struct{ email, password string }{
			{"nobody@example.com", "correct horse"},
			{"ada@example.com", "wrong password"},
			{"bob@example.com", "correct horse"},
		}
		var messages []string
		for _, a := range attempts {
			session, err := f.auth.Login(ctx, a.email, a.password)
			require.Error(t, err)
			assert.Nil(t, session)
			errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
			messages = append(messages, err.Error())
		}
		assert.Equal(t, messages[0], messages[1])
		assert.Equal(t, messages[1], messages[2])
	})

	t.Run("unknown email still verifies against the dummy hash", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := &countingHasher{PasswordHasher: auth.NewPBKDF2Hasher()}
		issuer, err := auth.NewSessionIssuer(testSecret, 0)
		require.NoError(t, err)
		svc, err := auth.NewAuthService(accounts, memory.NewStore(), hasher, issuer)
		require.NoError(t, err)

		accounts.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, auth.ErrNotFound)

		_, err = svc.Login(ctx, "nobody@example.com", "whatever")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
		assert.Equal(t, 1, hasher.verifies)
	})

	t.Run("lookup failure is not reported as bad credentials", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		issuer, err := auth.NewSessionIssuer(testSecret, 0)
		require.NoError(t, err)
		svc, err := auth.NewAuthService(accounts, memory.NewStore(), auth.NewPBKDF2Hasher(), issuer)
		require.NoError(t, err)

		accounts.On("GetByEmail", mock.Anything, "ada@example.com").Return(nil, errors.New("connection refused"))

		_, err = svc.Login(ctx, "ada@example.com", "whatever")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})
}

type countingHasher struct {
	auth.PasswordHasher
	verifies int
}

func (h *countingHasher) Verify(password, stored string) bool {
	h.verifies++
	return h.PasswordHasher.Verify(password, stored)
}

func TestAuthService_Me(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	account := f.seedAccount(t, "ada@example.com", "correct horse", auth.RoleViewer)

	session, err := f.auth.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	claims, err := f.issuer.Verify(session.Token)
	require.NoError(t, err)

	got, err := f.auth.Me(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	_, err = f.auth.Me(ctx, nil)
	errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)

	require.NoError(t, f.store.Accounts().Delete(ctx, account.ID))
	_, err = f.auth.Me(ctx, claims)
	errutil.AssertErrorCode(t, err, auth.CodeAccountNotFound)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctx := context.Background()

	login := func(t *testing.T, f *fixture, email, password string) *auth.Claims {
		t.Helper()
		session, err := f.auth.Login(ctx, email, password)
		require.NoError(t, err)
		claims, err := f.issuer.Verify(session.Token)
		require.NoError(t, err)
		return claims
	}

	t.Run("changes name and email and reissues the token", func(t *testing.T) {
		f := newFixture(t)
		f.seedAccount(t, "ada@example.com", "correct horse", auth.RoleViewer)
		claims := login(t, f, "ada@example.com", "correct horse")

		name, email := "Ada L.", "Lovelace@Example.com"
		session, err := f.auth.UpdateProfile(ctx, claims, auth.ProfileUpdate{Name: &name, Email: &email})
		require.NoError(t, err)
		assert.Equal(t, "lovelace@example.com", session.Account.Email)

		fresh, err := f.issuer.Verify(session.Token)
		require.NoError(t, err)
		assert.Equal(t, "lovelace@example.com", fresh.Email)

		_, err = f.auth.Login(ctx, "lovelace@example.com", "correct horse")
		assert.NoError(t, err)
	})

	t.Run("email already used by another account", func(t *testing.T) {
		f := newFixture(t)
		f.seedAccount(t, "ada@example.com", "correct horse", auth.RoleViewer)
		f.seedAccount(t, "grace@example.com", "correct horse", auth.RoleViewer)
		claims := login(t, f, "ada@example.com", "correct horse")

		email := "GRACE@example.com"
		_, err := f.auth.UpdateProfile(ctx, claims, auth.ProfileUpdate{Email: &email})
		errutil.AssertErrorCode(t, err, auth.CodeEmailTaken)
	})

	t.Run("password change requires the current password", func(t *testing.T) {
		f := newFixture(t)
		f.seedAccount(t, "ada@example.com", "correct horse", auth.RoleViewer)
		claims := login(t, f, "ada@example.com", "correct horse")

		_, err := f.auth.UpdateProfile(ctx, claims, auth.ProfileUpdate{
			CurrentPassword: "wrong",
			NewPassword:     "battery staple",
		})
		errutil.AssertErrorCode(t, err, auth.CodeWrongCurrentPassword)

		_, err = f.auth.UpdateProfile(ctx, claims, auth.ProfileUpdate{
			CurrentPassword: "correct horse",
			NewPassword:     "short",
		})
		errutil.AssertErrorCode(t, err, auth.CodeInvalidInput)

		_, err = f.auth.UpdateProfile(ctx, claims, auth.ProfileUpdate{
			CurrentPassword: "correct horse",
			NewPassword:     "battery staple",
		})
		require.NoError(t, err)

		_, err = f.auth.Login(ctx, "ada@example.com", "correct horse")
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
		_, err = f.auth.Login(ctx, "ada@example.com", "battery staple")
		assert.NoError(t, err)
	})
}
