// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Name validation constraints.
const (
	MaxNameLength  = 100
	MaxEmailLength = 254
)

// Account represents an admin operator.
type Account struct {
	ID           ulid.ULID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount creates a validated, active Account.
// The email is normalized to lower case.
func NewAccount(email, name, passwordHash string, role Role) (*Account, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if !role.Valid() {
		return nil, errInvalidInput("role", "role is not valid")
	}

	now := time.Now()
	return &Account{
		ID:           ulid.Make(),
		Email:        normalized,
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Summary is the public view of an account. It never carries the hash.
type Summary struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary returns the public view of the account.
func (a *Account) Summary() Summary {
	return Summary{
		ID:        a.ID.String(),
		Email:     a.Email,
		Name:      a.Name,
		Role:      a.Role,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// emailRule is the address grammar shared with the HTTP request bindings.
var emailRule = "email,max=" + strconv.Itoa(MaxEmailLength)

// validate is safe for concurrent use and caches rule parsing.
var validate = validator.New()

// NormalizeEmail validates an address and returns it trimmed and lower-cased.
// It accepts exactly the addresses the API's email bindings accept.
func NormalizeEmail(email string) (string, error) {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return "", errInvalidInput("email", "email cannot be empty")
	}
	if len(trimmed) > MaxEmailLength {
		return "", errInvalidInput("email", "email is too long")
	}
	if err := validate.Var(trimmed, emailRule); err != nil {
		return "", errInvalidInput("email", "email is not a valid address")
	}
	return strings.ToLower(trimmed), nil
}

// ValidateName validates a display name.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errInvalidInput("name", "name cannot be empty")
	}
	if len(trimmed) > MaxNameLength {
		return oops.Code(CodeInvalidInput).
			With("field", "name").
			With("max", MaxNameLength).
			Errorf("name must be at most %d characters", MaxNameLength)
	}
	return nil
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. Returns ErrConflict if the email is taken.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by email (case-insensitive).
	// Returns ErrNotFound if no account has the given email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// List returns all accounts, oldest first.
	List(ctx context.Context) ([]*Account, error)

	// Update writes name, email, role and active flag.
	// Returns ErrConflict if the new email is taken.
	Update(ctx context.Context, account *Account) error

	// UpdatePassword updates only the password hash for an account.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// Delete removes an account and the one-time tokens issued to it.
	Delete(ctx context.Context, id ulid.ULID) error
}
