// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

// Package memory provides an in-process credential store. It backs tests and
// single-node development servers started without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/harborlight/harborlight/internal/auth"
)

type txKey struct{}

// Store implements the auth repositories and Transactor over maps.
// Operations are serialized; a transaction holds the lock for its duration
// and restores a snapshot if its function fails.
type Store struct {
	mu       sync.Mutex
	accounts map[ulid.ULID]auth.Account
	invites  map[string]auth.Invite
	tokens   map[ulid.ULID]auth.OneTimeToken
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[ulid.ULID]auth.Account),
		invites:  make(map[string]auth.Invite),
		tokens:   make(map[ulid.ULID]auth.OneTimeToken),
	}
}

// lock acquires the store lock unless ctx already runs inside one of this
// store's transactions.
func (s *Store) lock(ctx context.Context) func() {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// InTransaction runs fn with all-or-nothing semantics. Nested calls join the
// outer transaction.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	accounts map[ulid.ULID]auth.Account
	invites  map[string]auth.Invite
	tokens   map[ulid.ULID]auth.OneTimeToken
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		accounts: make(map[ulid.ULID]auth.Account, len(s.accounts)),
		invites:  make(map[string]auth.Invite, len(s.invites)),
		tokens:   make(map[ulid.ULID]auth.OneTimeToken, len(s.tokens)),
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v
	}
	for k, v := range s.invites {
		snap.invites[k] = v
	}
	for k, v := range s.tokens {
		snap.tokens[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.accounts = snap.accounts
	s.invites = snap.invites
	s.tokens = snap.tokens
}

// Accounts returns the store as an AccountRepository.
func (s *Store) Accounts() auth.AccountRepository { return accountRepo{s} }

// Invites returns the store as an InviteRepository.
func (s *Store) Invites() auth.InviteRepository { return inviteRepo{s} }

// Tokens returns the store as a TokenRepository.
func (s *Store) Tokens() auth.TokenRepository { return tokenRepo{s} }

type accountRepo struct{ s *Store }

func (r accountRepo) Create(ctx context.Context, account *auth.Account) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.accounts {
		if strings.EqualFold(existing.Email, account.Email) {
			return oops.Code("ACCOUNT_CREATE_FAILED").With("email", account.Email).Wrap(auth.ErrConflict)
		}
	}
	if _, ok := r.s.accounts[account.ID]; ok {
		return oops.Code("ACCOUNT_CREATE_FAILED").With("account_id", account.ID.String()).Wrap(auth.ErrConflict)
	}
	r.s.accounts[account.ID] = *account
	return nil
}

func (r accountRepo) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	defer r.s.lock(ctx)()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("account_id", id.String()).Wrap(auth.ErrNotFound)
	}
	return &a, nil
}

func (r accountRepo) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	defer r.s.lock(ctx)()
	for _, a := range r.s.accounts {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
}

func (r accountRepo) List(ctx context.Context) ([]*auth.Account, error) {
	defer r.s.lock(ctx)()
	out := make([]*auth.Account, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r accountRepo) Update(ctx context.Context, account *auth.Account) error {
	defer r.s.lock(ctx)()
	existing, ok := r.s.accounts[account.ID]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("account_id", account.ID.String()).Wrap(auth.ErrNotFound)
	}
	for id, other := range r.s.accounts {
		if id != account.ID && strings.EqualFold(other.Email, account.Email) {
			return oops.Code("ACCOUNT_UPDATE_FAILED").With("email", account.Email).Wrap(auth.ErrConflict)
		}
	}
	existing.Email = account.Email
	existing.Name = account.Name
	existing.Role = account.Role
	existing.Active = account.Active
	existing.UpdatedAt = time.Now()
	account.UpdatedAt = existing.UpdatedAt
	r.s.accounts[account.ID] = existing
	return nil
}

func (r accountRepo) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	defer r.s.lock(ctx)()
	existing, ok := r.s.accounts[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("account_id", id.String()).Wrap(auth.ErrNotFound)
	}
	existing.PasswordHash = passwordHash
	existing.UpdatedAt = time.Now()
	r.s.accounts[id] = existing
	return nil
}

func (r accountRepo) Delete(ctx context.Context, id ulid.ULID) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.accounts[id]; !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("account_id", id.String()).Wrap(auth.ErrNotFound)
	}
	delete(r.s.accounts, id)
	for tid, t := range r.s.tokens {
		if t.Subject == id.String() {
			delete(r.s.tokens, tid)
		}
	}
	// Mirror ON DELETE SET NULL on invite references.
	for code, inv := range r.s.invites {
		if inv.CreatedBy != nil && *inv.CreatedBy == id {
			inv.CreatedBy = nil
		}
		if inv.UsedBy != nil && *inv.UsedBy == id {
			inv.UsedBy = nil
		}
		r.s.invites[code] = inv
	}
	return nil
}

type inviteRepo struct{ s *Store }

func (r inviteRepo) Create(ctx context.Context, invite *auth.Invite) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.invites[invite.Code]; ok {
		return oops.Code("INVITE_CREATE_FAILED").With("code", invite.Code).Wrap(auth.ErrConflict)
	}
	r.s.invites[invite.Code] = *invite
	return nil
}

func (r inviteRepo) GetByCode(ctx context.Context, code string) (*auth.Invite, error) {
	defer r.s.lock(ctx)()
	inv, ok := r.s.invites[code]
	if !ok {
		return nil, oops.Code("INVITE_NOT_FOUND").With("code", code).Wrap(auth.ErrNotFound)
	}
	return &inv, nil
}

func (r inviteRepo) List(ctx context.Context) ([]*auth.Invite, error) {
	defer r.s.lock(ctx)()
	out := make([]*auth.Invite, 0, len(r.s.invites))
	for _, inv := range r.s.invites {
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r inviteRepo) Claim(ctx context.Context, code string, accountID ulid.ULID, now time.Time) error {
	defer r.s.lock(ctx)()
	inv, ok := r.s.invites[code]
	if !ok {
		return oops.Code("INVITE_NOT_FOUND").With("code", code).Wrap(auth.ErrNotFound)
	}
	if !inv.IsRedeemableAt(now) {
		return oops.Code("INVITE_CLAIM_FAILED").With("code", code).Wrap(auth.ErrAlreadyClaimed)
	}
	used := now
	inv.Used = true
	inv.UsedBy = &accountID
	inv.UsedAt = &used
	r.s.invites[code] = inv
	return nil
}

func (r inviteRepo) Delete(ctx context.Context, code string) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.invites[code]; !ok {
		return oops.Code("INVITE_NOT_FOUND").With("code", code).Wrap(auth.ErrNotFound)
	}
	delete(r.s.invites, code)
	return nil
}

type tokenRepo struct{ s *Store }

func (r tokenRepo) Create(ctx context.Context, token *auth.OneTimeToken) error {
	defer r.s.lock(ctx)()
	for _, t := range r.s.tokens {
		if t.Purpose == token.Purpose && t.TokenHash == token.TokenHash {
			return oops.Code("TOKEN_CREATE_FAILED").With("purpose", string(token.Purpose)).Wrap(auth.ErrConflict)
		}
	}
	r.s.tokens[token.ID] = *token
	return nil
}

func (r tokenRepo) find(purpose auth.Purpose, tokenHash string) (auth.OneTimeToken, bool) {
	for _, t := range r.s.tokens {
		if t.Purpose == purpose && t.TokenHash == tokenHash {
			return t, true
		}
	}
	return auth.OneTimeToken{}, false
}

func (r tokenRepo) Claim(ctx context.Context, purpose auth.Purpose, tokenHash string, now time.Time) (*auth.OneTimeToken, error) {
	defer r.s.lock(ctx)()
	t, ok := r.find(purpose, tokenHash)
	if !ok {
		return nil, oops.Code("TOKEN_NOT_FOUND").With("purpose", string(purpose)).Wrap(auth.ErrNotFound)
	}
	if !t.IsUsable(now) {
		return nil, oops.Code("TOKEN_CLAIM_FAILED").With("purpose", string(purpose)).Wrap(auth.ErrAlreadyClaimed)
	}
	used := now
	t.UsedAt = &used
	r.s.tokens[t.ID] = t
	return &t, nil
}

func (r tokenRepo) Get(ctx context.Context, purpose auth.Purpose, tokenHash string) (*auth.OneTimeToken, error) {
	defer r.s.lock(ctx)()
	t, ok := r.find(purpose, tokenHash)
	if !ok {
		return nil, oops.Code("TOKEN_NOT_FOUND").With("purpose", string(purpose)).Wrap(auth.ErrNotFound)
	}
	return &t, nil
}

func (r tokenRepo) DeleteBySubject(ctx context.Context, purpose auth.Purpose, subject string) error {
	defer r.s.lock(ctx)()
	for id, t := range r.s.tokens {
		if t.Purpose == purpose && t.Subject == subject {
			delete(r.s.tokens, id)
		}
	}
	return nil
}

func (r tokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	var n int64
	for id, t := range r.s.tokens {
		if t.IsExpiredAt(now) || t.UsedAt != nil {
			delete(r.s.tokens, id)
			n++
		}
	}
	return n, nil
}

var (
	_ auth.Transactor        = (*Store)(nil)
	_ auth.AccountRepository = accountRepo{}
	_ auth.InviteRepository  = inviteRepo{}
	_ auth.TokenRepository   = tokenRepo{}
)
