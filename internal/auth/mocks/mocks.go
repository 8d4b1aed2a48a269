// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

// Package mocks provides testify mocks of the auth interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/harborlight/harborlight/internal/auth"
)

// T is the subset of *testing.T the constructors need.
type T interface {
	mock.TestingT
	Cleanup(func())
}

func register(t T, m *mock.Mock) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

func ptr[V any](args mock.Arguments, i int) *V {
	v, _ := args.Get(i).(*V)
	return v
}

// MockAccountRepository mocks auth.AccountRepository.
type MockAccountRepository struct{ mock.Mock }

// NewMockAccountRepository creates a mock that asserts its expectations on cleanup.
func NewMockAccountRepository(t T) *MockAccountRepository {
	m := &MockAccountRepository{}
	register(t, &m.Mock)
	return m
}

func (m *MockAccountRepository) Create(ctx context.Context, account *auth.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	args := m.Called(ctx, id)
	return ptr[auth.Account](args, 0), args.Error(1)
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	args := m.Called(ctx, email)
	return ptr[auth.Account](args, 0), args.Error(1)
}

func (m *MockAccountRepository) List(ctx context.Context) ([]*auth.Account, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]*auth.Account)
	return out, args.Error(1)
}

func (m *MockAccountRepository) Update(ctx context.Context, account *auth.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

// MockTokenRepository mocks auth.TokenRepository.
type MockTokenRepository struct{ mock.Mock }

// NewMockTokenRepository creates a mock that asserts its expectations on cleanup.
func NewMockTokenRepository(t T) *MockTokenRepository {
	m := &MockTokenRepository{}
	register(t, &m.Mock)
	return m
}

func (m *MockTokenRepository) Create(ctx context.Context, token *auth.OneTimeToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockTokenRepository) Claim(ctx context.Context, purpose auth.Purpose, tokenHash string, now time.Time) (*auth.OneTimeToken, error) {
	args := m.Called(ctx, purpose, tokenHash, now)
	return ptr[auth.OneTimeToken](args, 0), args.Error(1)
}

func (m *MockTokenRepository) Get(ctx context.Context, purpose auth.Purpose, tokenHash string) (*auth.OneTimeToken, error) {
	args := m.Called(ctx, purpose, tokenHash)
	return ptr[auth.OneTimeToken](args, 0), args.Error(1)
}

func (m *MockTokenRepository) DeleteBySubject(ctx context.Context, purpose auth.Purpose, subject string) error {
	return m.Called(ctx, purpose, subject).Error(0)
}

func (m *MockTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

// MockInviteRepository mocks auth.InviteRepository.
type MockInviteRepository struct{ mock.Mock }

// NewMockInviteRepository creates a mock that asserts its expectations on cleanup.
func NewMockInviteRepository(t T) *MockInviteRepository {
	m := &MockInviteRepository{}
	register(t, &m.Mock)
	return m
}

func (m *MockInviteRepository) Create(ctx context.Context, invite *auth.Invite) error {
	return m.Called(ctx, invite).Error(0)
}

func (m *MockInviteRepository) GetByCode(ctx context.Context, code string) (*auth.Invite, error) {
	args := m.Called(ctx, code)
	return ptr[auth.Invite](args, 0), args.Error(1)
}

func (m *MockInviteRepository) List(ctx context.Context) ([]*auth.Invite, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]*auth.Invite)
	return out, args.Error(1)
}

func (m *MockInviteRepository) Claim(ctx context.Context, code string, accountID ulid.ULID, now time.Time) error {
	return m.Called(ctx, code, accountID, now).Error(0)
}

func (m *MockInviteRepository) Delete(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

// MockMailer mocks auth.Mailer.
type MockMailer struct{ mock.Mock }

// NewMockMailer creates a mock that asserts its expectations on cleanup.
func NewMockMailer(t T) *MockMailer {
	m := &MockMailer{}
	register(t, &m.Mock)
	return m
}

func (m *MockMailer) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

// MockApplicationDirectory mocks auth.ApplicationDirectory.
type MockApplicationDirectory struct{ mock.Mock }

// NewMockApplicationDirectory creates a mock that asserts its expectations on cleanup.
func NewMockApplicationDirectory(t T) *MockApplicationDirectory {
	m := &MockApplicationDirectory{}
	register(t, &m.Mock)
	return m
}

func (m *MockApplicationDirectory) HasApplications(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

// MockCodeStore mocks auth.CodeStore.
type MockCodeStore struct{ mock.Mock }

// NewMockCodeStore creates a mock that asserts its expectations on cleanup.
func NewMockCodeStore(t T) *MockCodeStore {
	m := &MockCodeStore{}
	register(t, &m.Mock)
	return m
}

func (m *MockCodeStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	return m.Called(ctx, email, code, ttl).Error(0)
}

func (m *MockCodeStore) Consume(ctx context.Context, email, code string) (bool, error) {
	args := m.Called(ctx, email, code)
	return args.Bool(0), args.Error(1)
}

var (
	_ auth.AccountRepository    = (*MockAccountRepository)(nil)
	_ auth.TokenRepository      = (*MockTokenRepository)(nil)
	_ auth.InviteRepository     = (*MockInviteRepository)(nil)
	_ auth.Mailer               = (*MockMailer)(nil)
	_ auth.ApplicationDirectory = (*MockApplicationDirectory)(nil)
	_ auth.CodeStore            = (*MockCodeStore)(nil)
)
