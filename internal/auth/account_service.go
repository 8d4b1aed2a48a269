// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// NewAccountInput is the input to admin account creation.
type NewAccountInput struct {
	Email    string
	Name     string
	Password string
	Role     Role
}

// AccountUpdate holds admin edits to another account. Nil fields are unchanged.
type AccountUpdate struct {
	Name   *string
	Role   *Role
	Active *bool
}

// AccountService provides admin management of accounts.
type AccountService struct {
	accounts AccountRepository
	hasher   PasswordHasher
}

// NewAccountService creates a new AccountService.
func NewAccountService(accounts AccountRepository, hasher PasswordHasher) (*AccountService, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &AccountService{accounts: accounts, hasher: hasher}, nil
}

// List returns every account, oldest first.
func (s *AccountService) List(ctx context.Context) ([]*Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").Wrap(err)
	}
	return accounts, nil
}

// Create provisions an account directly, bypassing invites.
func (s *AccountService) Create(ctx context.Context, in NewAccountInput) (*Account, error) {
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}
	account, err := NewAccount(in.Email, in.Name, hashed, in.Role)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, errEmailTaken()
		}
		return nil, oops.Code("ACCOUNT_CREATE_FAILED").
			With("email", account.Email).
			Wrap(err)
	}
	return account, nil
}

// Update applies an admin edit. An actor cannot lower their own role or
// deactivate themselves.
func (s *AccountService) Update(ctx context.Context, actor, id ulid.ULID, update AccountUpdate) (*Account, error) {
	account, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor == id {
		if update.Role != nil && *update.Role < account.Role {
			return nil, errSelfModification("cannot lower your own role")
		}
		if update.Active != nil && !*update.Active {
			return nil, errSelfModification("cannot deactivate your own account")
		}
	}

	if update.Name != nil {
		if err := ValidateName(*update.Name); err != nil {
			return nil, err
		}
		account.Name = strings.TrimSpace(*update.Name)
	}
	if update.Role != nil {
		if !update.Role.Valid() {
			return nil, errInvalidInput("role", "role is not valid")
		}
		account.Role = *update.Role
	}
	if update.Active != nil {
		account.Active = *update.Active
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errAccountNotFound(id)
		}
		return nil, oops.Code("ACCOUNT_UPDATE_FAILED").
			With("account_id", id.String()).
			Wrap(err)
	}
	return account, nil
}

// Delete removes an account. An actor cannot delete themselves.
func (s *AccountService) Delete(ctx context.Context, actor, id ulid.ULID) error {
	if actor == id {
		return errSelfModification("cannot delete your own account")
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errAccountNotFound(id)
		}
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("account_id", id.String()).
			Wrap(err)
	}
	return nil
}

func (s *AccountService) get(ctx context.Context, id ulid.ULID) (*Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errAccountNotFound(id)
		}
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("account_id", id.String()).
			Wrap(err)
	}
	return account, nil
}

func errAccountNotFound(id ulid.ULID) error {
	return oops.Code(CodeAccountNotFound).With("account_id", id.String()).Errorf("account not found")
}

func errSelfModification(msg string) error {
	return oops.Code(CodeSelfModification).Errorf("%s", msg)
}
