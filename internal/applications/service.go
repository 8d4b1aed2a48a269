// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package applications

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/harborlight/harborlight/internal/auth"
	"github.com/harborlight/harborlight/pkg/errutil"
)

var statusChangedTmpl = template.Must(template.New("status").Parse(`Hello {{.Name}},

The status of your application for {{.Opportunity}} is now: {{.Status}}.

You can check your applications at any time here: {{.Link}}
`))

// Service serves application lookups and status changes.
type Service struct {
	repo   Repository
	mailer auth.Mailer
	links  auth.Links
	now    func() time.Time
}

// NewService creates a Service. The mailer sends status change notices.
func NewService(repo Repository, mailer auth.Mailer, links auth.Links) (*Service, error) {
	if repo == nil {
		return nil, oops.Code(auth.CodeConfiguration).Errorf("application repository is required")
	}
	if mailer == nil {
		return nil, oops.Code(auth.CodeConfiguration).Errorf("mailer is required")
	}
	return &Service{repo: repo, mailer: mailer, links: links, now: time.Now}, nil
}

// HasApplications reports whether the email has submitted any application.
func (s *Service) HasApplications(ctx context.Context, email string) (bool, error) {
	ok, err := s.repo.ExistsForEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return false, oops.Code("APPLICATION_LOOKUP_FAILED").Wrap(err)
	}
	return ok, nil
}

// ListForApplicant returns the applicant's own applications.
func (s *Service) ListForApplicant(ctx context.Context, email string) ([]ApplicantView, error) {
	apps, err := s.repo.ListByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, oops.Code("APPLICATION_LIST_FAILED").Wrap(err)
	}
	views := make([]ApplicantView, 0, len(apps))
	for _, app := range apps {
		views = append(views, app.ApplicantView())
	}
	return views, nil
}

// List returns applications for staff.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Application, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, oops.Code(CodeInvalidStatus).With("status", string(filter.Status)).Errorf("unknown application status")
	}
	apps, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, oops.Code("APPLICATION_LIST_FAILED").Wrap(err)
	}
	if apps == nil {
		apps = []*Application{}
	}
	return apps, nil
}

// UpdateStatus records a new status and emails the applicant when it
// changed. Delivery failures are logged, never returned.
func (s *Service) UpdateStatus(ctx context.Context, id ulid.ULID, status Status) (*Application, error) {
	if !status.Valid() {
		return nil, oops.Code(CodeInvalidStatus).With("status", string(status)).Errorf("unknown application status")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, id, "APPLICATION_UPDATE_FAILED")
	}
	if current.Status == status {
		return current, nil
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status, s.now())
	if err != nil {
		return nil, notFoundOr(err, id, "APPLICATION_UPDATE_FAILED")
	}

	if err := s.notify(ctx, updated); err != nil {
		errutil.LogErrorContext(ctx, slog.Default(), "application status email failed", err)
	}
	return updated, nil
}

func (s *Service) notify(ctx context.Context, app *Application) error {
	var buf bytes.Buffer
	err := statusChangedTmpl.Execute(&buf, map[string]string{
		"Name":        app.ApplicantName,
		"Opportunity": app.Opportunity,
		"Status":      app.Status.Label(),
		"Link":        s.links.ApplicantPortal(),
	})
	if err != nil {
		return oops.Code("MAIL_RENDER_FAILED").Wrap(err)
	}
	subject := "Update on your " + app.Opportunity + " application"
	if err := s.mailer.Send(ctx, app.Email, subject, buf.String()); err != nil {
		return oops.Code("APPLICATION_MAIL_FAILED").With("application_id", app.ID.String()).Wrap(err)
	}
	return nil
}

func notFoundOr(err error, id ulid.ULID, code string) error {
	if errors.Is(err, ErrNotFound) {
		return oops.Code(CodeApplicationNotFound).
			With("application_id", id.String()).
			Errorf("application not found")
	}
	return oops.Code(code).With("application_id", id.String()).Wrap(err)
}

var _ auth.ApplicationDirectory = (*Service)(nil)
