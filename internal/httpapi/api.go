// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

// Package httpapi exposes the credential subsystem as a JSON HTTP API.
//
// Every route declares the role it requires with an auth.Requirement.
// Public routes skip authentication. All other routes verify the bearer
// session token first (401 on failure) and compare roles second (403).
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/harborlight/harborlight/internal/applications"
	"github.com/harborlight/harborlight/internal/auth"
)

// Recorder receives request and credential event metrics.
// *observability.Metrics satisfies it.
type Recorder interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
	RecordAuthEvent(event string, success bool)
}

// Deps are the services the API serves.
type Deps struct {
	Sessions     *auth.SessionIssuer
	Auth         *auth.Service
	Reset        *auth.PasswordResetService
	Registration *auth.RegistrationService
	Accounts     *auth.AccountService
	Access       *auth.ApplicantAccessService
	Applications *applications.Service
}

// Options tune API behavior.
type Options struct {
	// Production hides internal error detail from responses.
	Production bool
	// Logger receives request logs. Nil selects slog.Default.
	Logger *slog.Logger
	// Recorder may be nil.
	Recorder Recorder
}

// API is the HTTP handler for all /api routes.
type API struct {
	deps     Deps
	opts     Options
	logger   *slog.Logger
	recorder Recorder
	engine   *gin.Engine
}

// New validates deps and builds the router.
func New(deps Deps, opts Options) (*API, error) {
	switch {
	case deps.Sessions == nil:
		return nil, oops.Code(auth.CodeConfiguration).Errorf("session issuer is required")
	case deps.Auth == nil:
		return nil, oops.Code(auth.CodeConfiguration).Errorf("auth service is required")
	case deps.Reset == nil:
		return nil, oops.Code(auth.CodeConfiguration).Errorf("password reset service is required")
	case deps.Registration == nil:
		return nil, oops.Code(auth.CodeConfiguration).Errorf("registration service is required")
	case deps.Accounts == nil:
		return nil, oops.Code(auth.CodeConfiguration).Errorf("account service is required")
	case deps.Access == nil:
		return nil, oops.Code(auth.CodeConfiguration).Errorf("applicant access service is required")
	case deps.Applications == nil:
		return nil, oops.Code(auth.CodeConfiguration).Errorf("application service is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &API{
		deps:     deps,
		opts:     opts,
		logger:   logger,
		recorder: opts.Recorder,
	}
	a.engine = a.routes()
	return a, nil
}

// Handler returns the router.
func (a *API) Handler() http.Handler {
	return a.engine
}

// route declares one endpoint and the role it requires.
type route struct {
	method  string
	path    string
	require auth.Requirement
	handle  gin.HandlerFunc
}

func (a *API) routes() *gin.Engine {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(a.requestContext(), a.recovery(), a.accessLog())
	engine.NoRoute(func(c *gin.Context) {
		writeJSONError(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	engine.NoMethod(func(c *gin.Context) {
		writeJSONError(c, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	api := engine.Group("/api")
	for _, r := range a.table() {
		handlers := []gin.HandlerFunc{}
		if !r.require.Public() {
			handlers = append(handlers, a.authenticate(), a.authorize(r.require))
		}
		handlers = append(handlers, r.handle)
		api.Handle(r.method, r.path, handlers...)
	}

	// Applicant routes authenticate with an opaque access token, not a session.
	api.GET("/applicant/applications", a.applicantAuth(), a.listMyApplications)

	return engine
}

func (a *API) table() []route {
	return []route{
		{http.MethodPost, "/auth/login", auth.RequireNone, a.login},
		{http.MethodPost, "/auth/register", auth.RequireNone, a.register},
		{http.MethodGet, "/auth/invites/:code", auth.RequireNone, a.validateInvite},
		{http.MethodPost, "/auth/logout", auth.RequireNone, a.logout},
		{http.MethodPost, "/auth/forgot-password", auth.RequireNone, a.requestPasswordReset},
		{http.MethodPost, "/auth/reset-password", auth.RequireNone, a.resetPassword},
		{http.MethodGet, "/auth/me", auth.RequireViewer, a.me},
		{http.MethodPatch, "/auth/me", auth.RequireViewer, a.updateProfile},

		{http.MethodPost, "/applicant/access", auth.RequireNone, a.requestApplicantAccess},
		{http.MethodPost, "/applicant/verify", auth.RequireNone, a.verifyApplicantAccess},

		{http.MethodGet, "/admin/accounts", auth.RequireAdmin, a.listAccounts},
		{http.MethodPost, "/admin/accounts", auth.RequireAdmin, a.createAccount},
		{http.MethodPatch, "/admin/accounts/:id", auth.RequireAdmin, a.updateAccount},
		{http.MethodDelete, "/admin/accounts/:id", auth.RequireAdmin, a.deleteAccount},
		{http.MethodGet, "/admin/invites", auth.RequireAdmin, a.listInvites},
		{http.MethodPost, "/admin/invites", auth.RequireAdmin, a.createInvite},
		{http.MethodDelete, "/admin/invites/:code", auth.RequireAdmin, a.revokeInvite},
		{http.MethodGet, "/admin/applications", auth.RequireViewer, a.listApplications},
		{http.MethodPatch, "/admin/applications/:id/status", auth.RequireEditor, a.updateApplicationStatus},
	}
}

func (a *API) event(name string, success bool) {
	if a.recorder != nil {
		a.recorder.RecordAuthEvent(name, success)
	}
}
