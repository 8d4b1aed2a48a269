// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"bytes"
	"context"
	"net/url"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/samber/oops"
)

// Mailer delivers a plain-text email. Implementations live in internal/mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Links builds the absolute URLs embedded in emails.
type Links struct {
	BaseURL string
}

// NewLinks validates the site base URL.
func NewLinks(baseURL string) (Links, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Links{}, oops.Code(CodeConfiguration).
			With("base_url", baseURL).
			Errorf("site base url must be an absolute url")
	}
	return Links{BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// ResetPassword returns the password reset link for token.
func (l Links) ResetPassword(token string) string {
	return l.BaseURL + "/admin/reset-password?token=" + url.QueryEscape(token)
}

// Register returns the registration link for an invite code.
func (l Links) Register(code string) string {
	return l.BaseURL + "/admin/register?code=" + url.QueryEscape(code)
}

// ApplicantPortal returns the link to the applicant status page.
func (l Links) ApplicantPortal() string {
	return l.BaseURL + "/apply/status"
}

var (
	resetPasswordTmpl = template.Must(template.New("reset").Parse(`Hello {{.Name}},

We received a request to reset the password for your Harborlight admin account.
Use the link below within {{.Validity}} to choose a new password:

{{.Link}}

If you did not request this, you can ignore this email. Your password will not change.
`))

	inviteTmpl = template.Must(template.New("invite").Parse(`Hello,

You have been invited to join the Harborlight admin team as {{.Role}}.
Your invite code is {{.Code}} and it expires on {{.ExpiresAt}}.

Register here: {{.Link}}
`))

	accessCodeTmpl = template.Must(template.New("access").Parse(`Hello,

Your verification code to view your application status is:

    {{.Code}}

The code expires in {{.Validity}}. If you did not request it, you can ignore this email.
`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", oops.Code("MAIL_RENDER_FAILED").With("template", t.Name()).Wrap(err)
	}
	return buf.String(), nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return strconv.Itoa(days) + " days"
	case d >= time.Hour && d%time.Hour == 0:
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return strconv.Itoa(hours) + " hours"
	default:
		minutes := int(d / time.Minute)
		if minutes == 1 {
			return "1 minute"
		}
		return strconv.Itoa(minutes) + " minutes"
	}
}
