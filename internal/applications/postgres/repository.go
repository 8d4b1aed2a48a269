// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

// Package postgres provides the PostgreSQL applications.Repository.
package postgres

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/harborlight/harborlight/internal/applications"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var columns = []string{
	"id", "email", "applicant_name", "opportunity", "status", "created_at", "updated_at",
}

// Querier is the subset of *pgxpool.Pool the repository uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type row struct {
	ID            string    `db:"id"`
	Email         string    `db:"email"`
	ApplicantName string    `db:"applicant_name"`
	Opportunity   string    `db:"opportunity"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r row) toApplication() (*applications.Application, error) {
	id, err := ulid.Parse(r.ID)
	if err != nil {
		return nil, oops.Code("APPLICATION_SCAN_FAILED").With("application_id", r.ID).Wrap(err)
	}
	status, err := applications.ParseStatus(r.Status)
	if err != nil {
		return nil, oops.Code("APPLICATION_SCAN_FAILED").With("application_id", r.ID).Wrap(err)
	}
	return &applications.Application{
		ID:            id,
		Email:         r.Email,
		ApplicantName: r.ApplicantName,
		Opportunity:   r.Opportunity,
		Status:        status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

// Repository implements applications.Repository using PostgreSQL.
type Repository struct {
	db Querier
}

// NewRepository creates a new Repository.
func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

// Create stores a new application.
func (r *Repository) Create(ctx context.Context, app *applications.Application) error {
	query, args, err := psql.Insert("applications").
		Columns(columns...).
		Values(app.ID.String(), app.Email, app.ApplicantName, app.Opportunity,
			string(app.Status), app.CreatedAt, app.UpdatedAt).
		ToSql()
	if err != nil {
		return oops.Code("APPLICATION_CREATE_FAILED").With("operation", "build query").Wrap(err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return oops.Code("APPLICATION_CREATE_FAILED").With("application_id", app.ID.String()).Wrap(err)
	}
	return nil
}

// GetByID retrieves an application by ID.
func (r *Repository) GetByID(ctx context.Context, id ulid.ULID) (*applications.Application, error) {
	query, args, err := psql.Select(columns...).From("applications").Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return nil, oops.Code("APPLICATION_GET_FAILED").With("operation", "build query").Wrap(err)
	}
	var rw row
	if err := pgxscan.Get(ctx, r.db, &rw, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, oops.With("application_id", id.String()).Wrap(applications.ErrNotFound)
		}
		return nil, oops.Code("APPLICATION_GET_FAILED").With("application_id", id.String()).Wrap(err)
	}
	return rw.toApplication()
}

// ExistsForEmail reports whether any application uses email, ignoring case.
func (r *Repository) ExistsForEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM applications WHERE LOWER(email) = LOWER($1))`, email,
	).Scan(&exists)
	if err != nil {
		return false, oops.Code("APPLICATION_LOOKUP_FAILED").Wrap(err)
	}
	return exists, nil
}

// ListByEmail returns the applications for email, newest first.
func (r *Repository) ListByEmail(ctx context.Context, email string) ([]*applications.Application, error) {
	return r.list(ctx, psql.Select(columns...).From("applications").
		Where(sq.Expr("LOWER(email) = LOWER(?)", email)))
}

// List returns applications matching filter, newest first.
func (r *Repository) List(ctx context.Context, filter applications.Filter) ([]*applications.Application, error) {
	q := psql.Select(columns...).From("applications")
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": string(filter.Status)})
	}
	return r.list(ctx, q)
}

func (r *Repository) list(ctx context.Context, q sq.SelectBuilder) ([]*applications.Application, error) {
	query, args, err := q.OrderBy("created_at DESC", "id DESC").ToSql()
	if err != nil {
		return nil, oops.Code("APPLICATION_LIST_FAILED").With("operation", "build query").Wrap(err)
	}
	var rows []row
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, oops.Code("APPLICATION_LIST_FAILED").Wrap(err)
	}
	apps := make([]*applications.Application, 0, len(rows))
	for _, rw := range rows {
		app, err := rw.toApplication()
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// UpdateStatus sets the status and returns the updated row.
func (r *Repository) UpdateStatus(ctx context.Context, id ulid.ULID, status applications.Status, now time.Time) (*applications.Application, error) {
	query, args, err := psql.Update("applications").
		Set("status", string(status)).
		Set("updated_at", now).
		Where(sq.Eq{"id": id.String()}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, oops.Code("APPLICATION_UPDATE_FAILED").With("operation", "build query").Wrap(err)
	}
	var rw row
	if err := pgxscan.Get(ctx, r.db, &rw, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, oops.With("application_id", id.String()).Wrap(applications.ErrNotFound)
		}
		return nil, oops.Code("APPLICATION_UPDATE_FAILED").With("application_id", id.String()).Wrap(err)
	}
	return rw.toApplication()
}

var _ applications.Repository = (*Repository)(nil)
