// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/harborlight/harborlight/internal/applications"
	"github.com/harborlight/harborlight/internal/auth"
	"github.com/harborlight/harborlight/pkg/errutil"
)

// Codes produced by the HTTP layer itself.
const (
	codeInternal   = "INTERNAL_ERROR"
	codeBadRequest = "BAD_REQUEST"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// statusByCode maps error codes that are safe to show callers.
var statusByCode = map[string]int{
	auth.CodeInvalidCredentials:    http.StatusUnauthorized,
	auth.CodeUnauthorized:          http.StatusUnauthorized,
	auth.CodeForbidden:             http.StatusForbidden,
	auth.CodeInvalidOrExpiredToken: http.StatusBadRequest,
	auth.CodeInvalidInvite:         http.StatusBadRequest,
	auth.CodeEmailTaken:            http.StatusBadRequest,
	auth.CodeWrongCurrentPassword:  http.StatusBadRequest,
	auth.CodeInvalidInput:          http.StatusBadRequest,
	auth.CodeSelfModification:      http.StatusBadRequest,
	"AUTH_EMPTY_PASSWORD":          http.StatusBadRequest,
	auth.CodeAccountNotFound:       http.StatusNotFound,
	auth.CodeInviteNotFound:        http.StatusNotFound,

	applications.CodeInvalidStatus:       http.StatusBadRequest,
	applications.CodeApplicationNotFound: http.StatusNotFound,
}

// fail writes err as a JSON error. Known codes carry their own message;
// anything else is logged and answered with a generic 500 whose detail is
// included only outside production.
func (a *API) fail(c *gin.Context, err error) {
	a.failWithStatus(c, err, 0)
}

// failWithStatus is fail with the status for known codes forced to status
// when status is non-zero.
func (a *API) failWithStatus(c *gin.Context, err error, status int) {
	code := errutil.Code(err)
	known, ok := statusByCode[code]
	if !ok {
		errutil.LogErrorContext(c.Request.Context(), a.logger, "request failed", err)
		_ = c.Error(err)
		body := errorBody{Error: codeInternal, Message: "internal server error"}
		if !a.opts.Production {
			body.Detail = err.Error()
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		return
	}
	if status == 0 {
		status = known
	}
	writeJSONError(c, status, code, publicMessage(err))
}

func publicMessage(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Error()
	}
	return err.Error()
}

func writeJSONError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Error: code, Message: msg})
}

// badRequest reports a malformed or invalid request body.
func badRequest(c *gin.Context, err error) {
	writeJSONError(c, http.StatusBadRequest, codeBadRequest, bindingMessage(err))
}
