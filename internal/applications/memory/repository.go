// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

// Package memory provides an in-memory applications.Repository for tests
// and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/harborlight/harborlight/internal/applications"
)

// Repository is a concurrency-safe in-memory application store.
type Repository struct {
	mu   sync.RWMutex
	apps map[ulid.ULID]applications.Application
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{apps: make(map[ulid.ULID]applications.Application)}
}

// Create stores a copy of app.
func (r *Repository) Create(_ context.Context, app *applications.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.apps[app.ID]; exists {
		return oops.Code("APPLICATION_CREATE_FAILED").With("application_id", app.ID.String()).Errorf("duplicate id")
	}
	r.apps[app.ID] = *app
	return nil
}

// GetByID retrieves a copy of an application.
func (r *Repository) GetByID(_ context.Context, id ulid.ULID) (*applications.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, oops.With("application_id", id.String()).Wrap(applications.ErrNotFound)
	}
	return &app, nil
}

// ExistsForEmail reports whether any application uses email.
func (r *Repository) ExistsForEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, app := range r.apps {
		if strings.EqualFold(app.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// ListByEmail returns the applications for email, newest first.
func (r *Repository) ListByEmail(_ context.Context, email string) ([]*applications.Application, error) {
	return r.collect(func(app applications.Application) bool {
		return strings.EqualFold(app.Email, email)
	}), nil
}

// List returns applications matching filter, newest first.
func (r *Repository) List(_ context.Context, filter applications.Filter) ([]*applications.Application, error) {
	return r.collect(func(app applications.Application) bool {
		return filter.Status == "" || app.Status == filter.Status
	}), nil
}

// UpdateStatus sets the status and update time.
func (r *Repository) UpdateStatus(_ context.Context, id ulid.ULID, status applications.Status, now time.Time) (*applications.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, oops.With("application_id", id.String()).Wrap(applications.ErrNotFound)
	}
	app.Status = status
	app.UpdatedAt = now
	r.apps[id] = app
	return &app, nil
}

func (r *Repository) collect(match func(applications.Application) bool) []*applications.Application {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*applications.Application, 0)
	for _, app := range r.apps {
		if match(app) {
			out = append(out, &app)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Compare(out[j].ID) > 0
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

var _ applications.Repository = (*Repository)(nil)
