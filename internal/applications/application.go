// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

// Package applications exposes program applications to the credential
// subsystem. Applications are submitted elsewhere; this package looks them
// up by applicant email, lists them for staff and records status changes.
package applications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Status is the review state of an application.
type Status string

// Declared statuses.
const (
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusAccepted    Status = "accepted"
	StatusWaitlisted  Status = "waitlisted"
	StatusRejected    Status = "rejected"
)

var statusLabels = map[Status]string{
	StatusSubmitted:   "submitted",
	StatusUnderReview: "under review",
	StatusAccepted:    "accepted",
	StatusWaitlisted:  "waitlisted",
	StatusRejected:    "not accepted",
}

// Error codes.
const (
	CodeInvalidStatus       = "APPLICATION_INVALID_STATUS"
	CodeApplicationNotFound = "APPLICATION_NOT_FOUND"
)

// ErrNotFound is returned by repositories when no application matches.
var ErrNotFound = errors.New("application not found")

// ParseStatus converts a status name to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", oops.Code(CodeInvalidStatus).
			With("status", s).
			Errorf("unknown application status %q", s)
	}
	return st, nil
}

// Valid reports whether s is a declared status.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label is the wording used in applicant emails.
func (s Status) Label() string {
	return statusLabels[s]
}

// Application is a submitted application.
type Application struct {
	ID            ulid.ULID `json:"id"`
	Email         string    `json:"email"`
	ApplicantName string    `json:"applicant_name"`
	Opportunity   string    `json:"opportunity"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ApplicantView is what an applicant sees about their own application.
type ApplicantView struct {
	ID          string    `json:"id"`
	Opportunity string    `json:"opportunity"`
	Status      Status    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ApplicantView hides staff-only fields.
func (a *Application) ApplicantView() ApplicantView {
	return ApplicantView{
		ID:          a.ID.String(),
		Opportunity: a.Opportunity,
		Status:      a.Status,
		SubmittedAt: a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Status Status
}

// Repository manages application persistence.
type Repository interface {
	// Create stores a new application.
	Create(ctx context.Context, app *Application) error

	// GetByID retrieves an application. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*Application, error)

	// ExistsForEmail reports whether any application uses email, ignoring case.
	ExistsForEmail(ctx context.Context, email string) (bool, error)

	// ListByEmail returns the applications for email, newest first.
	ListByEmail(ctx context.Context, email string) ([]*Application, error)

	// List returns applications matching filter, newest first.
	List(ctx context.Context, filter Filter) ([]*Application, error)

	// UpdateStatus sets the status and returns the updated application.
	UpdateStatus(ctx context.Context, id ulid.ULID, status Status, now time.Time) (*Application, error)
}
