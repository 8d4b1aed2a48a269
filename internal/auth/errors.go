// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Repository outcomes. Implementations wrap these so callers can use errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")

	// ErrAlreadyClaimed is returned when a one-time credential was used,
	// expired, or claimed by a concurrent caller.
	ErrAlreadyClaimed = errors.New("already claimed")
)

// Error codes surfaced to callers. The HTTP layer maps these to statuses.
const (
	CodeInvalidCredentials    = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidOrExpiredToken = "AUTH_INVALID_OR_EXPIRED_TOKEN"
	CodeInvalidInvite         = "AUTH_INVALID_INVITE"
	CodeEmailTaken            = "AUTH_EMAIL_TAKEN"
	CodeUnauthorized          = "AUTH_UNAUTHORIZED"
	CodeForbidden             = "AUTH_FORBIDDEN"
	CodeWrongCurrentPassword  = "AUTH_WRONG_CURRENT_PASSWORD"
	CodeInvalidInput          = "AUTH_INVALID_INPUT"
	CodeAccountNotFound       = "AUTH_ACCOUNT_NOT_FOUND"
	CodeInviteNotFound        = "AUTH_INVITE_NOT_FOUND"
	CodeSelfModification      = "AUTH_SELF_MODIFICATION"
	CodeHashingFailed         = "AUTH_HASHING_FAILED"
	CodeConfiguration         = "CONFIG_INVALID"
)

func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
}

func errInvalidOrExpiredToken() error {
	return oops.Code(CodeInvalidOrExpiredToken).Errorf("token is invalid or has expired")
}

func errInvalidInvite() error {
	return oops.Code(CodeInvalidInvite).Errorf("invite code is invalid or has expired")
}

func errEmailTaken() error {
	return oops.Code(CodeEmailTaken).Errorf("email is already registered")
}

func errInvalidInput(field, msg string) error {
	return oops.Code(CodeInvalidInput).With("field", field).Errorf("%s", msg)
}
