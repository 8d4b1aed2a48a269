// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) requestApplicantAccess(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := a.deps.Access.RequestAccess(c.Request.Context(), req.Email); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: accessRequestedMessage})
}

// verifyApplicantAccess exchanges a code for an access token. Rejected codes
// are 401 here, unlike reset tokens.
func (a *API) verifyApplicantAccess(c *gin.Context) {
	var req verifyAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	grant, err := a.deps.Access.VerifyAccessCode(c.Request.Context(), req.Email, req.Code)
	a.event("applicant_verify", err == nil)
	if err != nil {
		a.failWithStatus(c, err, http.StatusUnauthorized)
		return
	}
	c.JSON(http.StatusOK, grant)
}

func (a *API) listMyApplications(c *gin.Context) {
	email := c.GetString(keyApplicantEmail)
	views, err := a.deps.Applications.ListForApplicant(c.Request.Context(), email)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": email, "applications": views})
}
