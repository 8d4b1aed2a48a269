// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/harborlight/harborlight/internal/auth"
	"github.com/harborlight/harborlight/internal/logging"
)

// HeaderRequestID carries the request identifier in both directions.
const HeaderRequestID = "X-Request-ID"

// Gin context keys.
const (
	keyClaims         = "harborlight.claims"
	keyApplicantEmail = "harborlight.applicant_email"
)

// requestContext assigns a request ID and attaches it to the log context.
func (a *API) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = ulid.Make().String()
		}
		c.Header(HeaderRequestID, id)
		ctx := logging.WithAttrs(c.Request.Context(), slog.String("request_id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// recovery turns handler panics into a generic 500.
func (a *API) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				a.fail(c, oops.Code("PANIC").With("panic", r).Errorf("handler panicked"))
			}
		}()
		c.Next()
	}
}

// accessLog logs every request and feeds the request metrics. The route
// label is the registered pattern so IDs do not explode cardinality.
func (a *API) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		a.logger.Log(c.Request.Context(), level, "request completed",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency_ms", elapsed.Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if a.recorder != nil {
			a.recorder.ObserveRequest(c.Request.Method, route, status, elapsed)
		}
	}
}

func bearerToken(c *gin.Context) string {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticate verifies the session token. Any failure is a 401 and stops
// the chain before role checks run.
func (a *API) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			writeJSONError(c, http.StatusUnauthorized, auth.CodeUnauthorized, "authentication required")
			return
		}
		claims, err := a.deps.Sessions.Verify(token)
		if err != nil {
			a.logger.DebugContext(c.Request.Context(), "session rejected", "error", err)
			writeJSONError(c, http.StatusUnauthorized, auth.CodeUnauthorized, "invalid or expired session")
			return
		}
		c.Set(keyClaims, claims)
		c.Next()
	}
}

// authorize compares the verified role with the route requirement.
func (a *API) authorize(required auth.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth.Authorize(claimsFrom(c), required) == auth.Deny {
			writeJSONError(c, http.StatusForbidden, auth.CodeForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

// applicantAuth validates an applicant access token.
func (a *API) applicantAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		email, err := a.deps.Access.ValidateAccessToken(c.Request.Context(), bearerToken(c))
		if err != nil {
			a.failWithStatus(c, err, http.StatusUnauthorized)
			return
		}
		c.Set(keyApplicantEmail, email)
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(keyClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// actorID returns the account ID of the authenticated caller.
func actorID(c *gin.Context) (ulid.ULID, error) {
	claims := claimsFrom(c)
	if claims == nil {
		return ulid.ULID{}, oops.Code(auth.CodeUnauthorized).Errorf("authentication required")
	}
	return claims.AccountID()
}
