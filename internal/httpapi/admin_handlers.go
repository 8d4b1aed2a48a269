// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/harborlight/harborlight/internal/applications"
	"github.com/harborlight/harborlight/internal/auth"
)

func pathID(c *gin.Context) (ulid.ULID, bool) {
	id, err := ulid.Parse(c.Param("id"))
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, codeBadRequest, "id is not a valid identifier")
		return ulid.ULID{}, false
	}
	return id, true
}

func (a *API) listAccounts(c *gin.Context) {
	accounts, err := a.deps.Accounts.List(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	out := make([]auth.Summary, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, account.Summary())
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) createAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		a.fail(c, err)
		return
	}
	account, err := a.deps.Accounts.Create(c.Request.Context(), auth.NewAccountInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, account.Summary())
}

func (a *API) updateAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	actor, err := actorID(c)
	if err != nil {
		a.fail(c, err)
		return
	}

	update := auth.AccountUpdate{Name: req.Name, Active: req.Active}
	if req.Role != nil {
		role, err := auth.ParseRole(*req.Role)
		if err != nil {
			a.fail(c, err)
			return
		}
		update.Role = &role
	}

	account, err := a.deps.Accounts.Update(c.Request.Context(), actor, id, update)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, account.Summary())
}

func (a *API) deleteAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actor, err := actorID(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	if err := a.deps.Accounts.Delete(c.Request.Context(), actor, id); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) listInvites(c *gin.Context) {
	invites, err := a.deps.Registration.ListInvites(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	out := make([]auth.InviteView, 0, len(invites))
	for _, invite := range invites {
		out = append(out, invite.View())
	}
	c.JSON(http.StatusOK, out)
}

func (a *API) createInvite(c *gin.Context) {
	var req createInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		a.fail(c, err)
		return
	}
	actor, err := actorID(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	invite, err := a.deps.Registration.CreateInvite(c.Request.Context(), &actor, role, req.Email)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, invite.View())
}

func (a *API) revokeInvite(c *gin.Context) {
	if err := a.deps.Registration.RevokeInvite(c.Request.Context(), c.Param("code")); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) listApplications(c *gin.Context) {
	filter := applications.Filter{}
	if s := c.Query("status"); s != "" {
		status, err := applications.ParseStatus(s)
		if err != nil {
			a.fail(c, err)
			return
		}
		filter.Status = status
	}
	apps, err := a.deps.Applications.List(c.Request.Context(), filter)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (a *API) updateApplicationStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status, err := applications.ParseStatus(req.Status)
	if err != nil {
		a.fail(c, err)
		return
	}
	app, err := a.deps.Applications.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}
