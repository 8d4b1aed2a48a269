// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package httpapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type updateProfileRequest struct {
	Name            *string `json:"name" binding:"omitempty,max=100"`
	Email           *string `json:"email" binding:"omitempty,email"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password" binding:"required_with=CurrentPassword"`
}

type verifyAccessRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type createAccountRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,max=100"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Role     string `json:"role" binding:"required,oneof=viewer editor admin"`
}

type updateAccountRequest struct {
	Name   *string `json:"name" binding:"omitempty,max=100"`
	Role   *string `json:"role" binding:"omitempty,oneof=viewer editor admin"`
	Active *bool   `json:"is_active"`
}

type createInviteRequest struct {
	Role  string `json:"role" binding:"required,oneof=viewer editor admin"`
	Email string `json:"email" binding:"omitempty,email"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// bindingMessage turns a gin binding failure into a short sentence that
// names the offending fields.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "request body is not valid JSON"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fieldMessage(fe))
	}
	return strings.Join(parts, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := jsonName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_with":
		return field + " is required when " + jsonName(fe.Param()) + " is set"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "numeric":
		return field + " must contain only digits"
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return field + " is invalid"
	}
}

// jsonName converts a Go field name such as CurrentPassword to current_password.
func jsonName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
