// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

// Package auth provides authentication and credential lifecycle for Harborlight.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewAccount - creates an Account with a normalized email and validated name
//   - NewOneTimeToken - creates a OneTimeToken with validated purpose and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Credentials
//
// Passwords are hashed with PBKDF2Hasher. Admin sessions are stateless HS256
// tokens minted by SessionIssuer. Reset links, applicant codes and applicant
// tokens are stored only as SHA-256 digests; invite codes are stored as issued
// so admins can list and share them.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - login, current account, profile edits
//   - PasswordResetService - forgotten password recovery
//   - RegistrationService - invite codes and invite-based registration
//   - AccountService - admin account management
//   - ApplicantAccessService - passwordless applicant access
//
// Services are created with New*Service constructors that validate dependencies.
package auth
