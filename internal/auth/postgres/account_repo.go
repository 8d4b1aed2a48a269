// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/harborlight/harborlight/internal/auth"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var accountColumns = []string{
	"id", "email", "name", "password_hash", "role", "is_active", "created_at", "updated_at",
}

type accountRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	Active       bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r accountRow) toAccount() (*auth.Account, error) {
	id, err := ulid.Parse(r.ID)
	if err != nil {
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").With("account_id", r.ID).Wrap(err)
	}
	role, err := auth.ParseRole(r.Role)
	if err != nil {
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").With("account_id", r.ID).Wrap(err)
	}
	return &auth.Account{
		ID:           id,
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: r.PasswordHash,
		Role:         role,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create stores a new account. A duplicate email yields auth.ErrConflict.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	query, args, err := psql.Insert("accounts").
		Columns(accountColumns...).
		Values(account.ID.String(), account.Email, account.Name, account.PasswordHash,
			account.Role.String(), account.Active, account.CreatedAt, account.UpdatedAt).
		ToSql()
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").With("operation", "build query").Wrap(err)
	}
	if _, err := conn(ctx, r.pool).Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACCOUNT_CREATE_FAILED").
				With("email", account.Email).
				Wrap(auth.ErrConflict)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	return r.getOne(ctx, sq.Eq{"id": id.String()}, "account_id", id.String())
}

// GetByEmail retrieves an account by email, ignoring case.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return r.getOne(ctx, sq.Expr("LOWER(email) = LOWER(?)", email), "email", email)
}

func (r *AccountRepository) getOne(ctx context.Context, where sq.Sqlizer, key, value string) (*auth.Account, error) {
	query, args, err := psql.Select(accountColumns...).From("accounts").Where(where).ToSql()
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").With("operation", "build query").Wrap(err)
	}

	var row accountRow
	if err := pgxscan.Get(ctx, conn(ctx, r.pool), &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, oops.Code("ACCOUNT_NOT_FOUND").With(key, value).Wrap(auth.ErrNotFound)
		}
		return nil, oops.Code("ACCOUNT_GET_FAILED").With(key, value).Wrap(err)
	}
	return row.toAccount()
}

// List returns all accounts, oldest first.
func (r *AccountRepository) List(ctx context.Context) ([]*auth.Account, error) {
	query, args, err := psql.Select(accountColumns...).From("accounts").OrderBy("created_at ASC").ToSql()
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").With("operation", "build query").Wrap(err)
	}

	var rows []accountRow
	if err := pgxscan.Select(ctx, conn(ctx, r.pool), &rows, query, args...); err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").Wrap(err)
	}

	accounts := make([]*auth.Account, 0, len(rows))
	for _, row := range rows {
		a, err := row.toAccount()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// Update writes the mutable profile fields: email, name, role and active flag.
func (r *AccountRepository) Update(ctx context.Context, account *auth.Account) error {
	now := time.Now()
	query, args, err := psql.Update("accounts").
		Set("email", account.Email).
		Set("name", account.Name).
		Set("role", account.Role.String()).
		Set("is_active", account.Active).
		Set("updated_at", now).
		Where(sq.Eq{"id": account.ID.String()}).
		ToSql()
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("operation", "build query").Wrap(err)
	}

	tag, err := conn(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACCOUNT_UPDATE_FAILED").
				With("email", account.Email).
				Wrap(auth.ErrConflict)
		}
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("account_id", account.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	account.UpdatedAt = now
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PASSWORD_FAILED").
			With("account_id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("account_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes an account and the one-time tokens issued to it. Invite
// references are cleared by the foreign keys.
func (r *AccountRepository) Delete(ctx context.Context, id ulid.ULID) error {
	q := conn(ctx, r.pool)
	if _, err := q.Exec(ctx, `DELETE FROM one_time_tokens WHERE subject = $1`, id.String()); err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "delete tokens").
			With("account_id", id.String()).
			Wrap(err)
	}

	tag, err := q.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("account_id", id.String()).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("account_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

var _ auth.AccountRepository = (*AccountRepository)(nil)
