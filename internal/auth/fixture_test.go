// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harborlight/harborlight/internal/auth"
	"github.com/harborlight/harborlight/internal/auth/memory"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// outbox records delivered mail. Reads first drain the dispatcher that
// services created with delivery() send through.
type outbox struct {
	mu         sync.Mutex
	sent       []sentMail
	err        error
	delay      time.Duration
	dispatcher *auth.Dispatcher
}

func newOutbox() *outbox {
	return &outbox{dispatcher: auth.NewDispatcher(5 * time.Second)}
}

func (o *outbox) delivery() auth.DeliveryOption {
	return auth.WithDispatcher(o.dispatcher)
}

func (o *outbox) Send(ctx context.Context, to, subject, body string) error {
	if o.delay > 0 {
		select {
		case <-time.After(o.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

// settle waits for background deliveries to finish.
func (o *outbox) settle(t *testing.T) {
	t.Helper()
	if o.dispatcher != nil {
		require.NoError(t, o.dispatcher.Wait(context.Background()))
	}
}

func (o *outbox) messages() []sentMail {
	if o.dispatcher != nil {
		_ = o.dispatcher.Wait(context.Background())
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]sentMail(nil), o.sent...)
}

func (o *outbox) last(t *testing.T) sentMail {
	t.Helper()
	msgs := o.messages()
	require.NotEmpty(t, msgs, "expected mail to be sent")
	return msgs[len(msgs)-1]
}

var (
	resetTokenPattern = regexp.MustCompile(`token=([0-9a-f]{64})`)
	accessCodePattern = regexp.MustCompile(`\b([1-9][0-9]{5})\b`)
)

func extract(t *testing.T, re *regexp.Regexp, body string) string {
	t.Helper()
	m := re.FindStringSubmatch(body)
	require.Len(t, m, 2, "pattern %s not found in %q", re, body)
	return m[1]
}

type fixture struct {
	store    *memory.Store
	hasher   *auth.PBKDF2Hasher
	issuer   *auth.SessionIssuer
	mail     *outbox
	links    auth.Links
	auth     *auth.Service
	reset    *auth.PasswordResetService
	register *auth.RegistrationService
	admin    *auth.AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.NewStore(),
		hasher: auth.NewPBKDF2Hasher(),
		mail:   newOutbox(),
	}
	var err error
	f.issuer, err = auth.NewSessionIssuer(testSecret, 0)
	require.NoError(t, err)
	f.links, err = auth.NewLinks("https://harborlight.test")
	require.NoError(t, err)

	f.auth, err = auth.NewAuthService(f.store.Accounts(), f.store, f.hasher, f.issuer)
	require.NoError(t, err)
	f.reset, err = auth.NewPasswordResetService(f.store.Accounts(), f.store.Tokens(), f.store, f.hasher, f.mail, f.links, f.mail.delivery())
	require.NoError(t, err)
	f.register, err = auth.NewRegistrationService(f.store.Accounts(), f.store.Invites(), f.store, f.hasher, f.issuer, f.mail, f.links)
	require.NoError(t, err)
	f.admin, err = auth.NewAccountService(f.store.Accounts(), f.hasher)
	require.NoError(t, err)
	return f
}

// seedAccount stores an active account with the given password.
func (f *fixture) seedAccount(t *testing.T, email, password string, role auth.Role) *auth.Account {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	account, err := auth.NewAccount(email, "Seeded User", hash, role)
	require.NoError(t, err)
	require.NoError(t, f.store.Accounts().Create(context.Background(), account))
	return account
}
