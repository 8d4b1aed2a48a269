// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborlight/harborlight/internal/auth"
)

// Canned responses for flows that must not reveal whether an email exists.
const (
	resetRequestedMessage  = "If an account exists for that email, a password reset link has been sent."
	accessRequestedMessage = "If applications exist for that email, a verification code has been sent."
	passwordResetMessage   = "Your password has been reset. You can now sign in."
)

type messageResponse struct {
	Message string `json:"message"`
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, err := a.deps.Auth.Login(c.Request.Context(), req.Email, req.Password)
	a.event("login", err == nil)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (a *API) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, err := a.deps.Registration.Register(c.Request.Context(), auth.Registration{
		Code:     req.Code,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	a.event("register", err == nil)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (a *API) validateInvite(c *gin.Context) {
	c.JSON(http.StatusOK, a.deps.Registration.ValidateInvite(c.Request.Context(), c.Param("code")))
}

// logout is acknowledged only. Sessions are stateless, so the client
// discards its token.
func (a *API) logout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (a *API) me(c *gin.Context) {
	account, err := a.deps.Auth.Me(c.Request.Context(), claimsFrom(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, account.Summary())
}

func (a *API) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, err := a.deps.Auth.UpdateProfile(c.Request.Context(), claimsFrom(c), auth.ProfileUpdate{
		Name:            req.Name,
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// requestPasswordReset always answers with the same body. Only a storage
// outage, which reveals nothing about the email, produces an error.
func (a *API) requestPasswordReset(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := a.deps.Reset.RequestReset(c.Request.Context(), req.Email); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: resetRequestedMessage})
}

func (a *API) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	err := a.deps.Reset.ResetPassword(c.Request.Context(), req.Token, req.Password)
	a.event("password_reset", err == nil)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: passwordResetMessage})
}
