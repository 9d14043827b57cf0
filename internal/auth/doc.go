// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

// Package auth provides user accounts, password credentials and refresh
// sessions for kanri.
//
// # Domain Types
//
// Users should be created with NewUser, which lowercases the email and
// validates every field. Every later save runs User.Validate again, so the
// email stays lowercase even when an update does not touch it.
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated users.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - email/password authentication of activated users
//   - SessionManager - issue, rotate and revoke the single refresh session of a user
//   - UserService - registration, activation and profile updates
//
// # Errors
//
// Failures carry oops codes: VALIDATION_FAILED, AUTH_INVALID_CREDENTIALS,
// SESSION_INVALID, PERSISTENCE_FAILED and USER_EMAIL_TAKEN. Transports must
// render AUTH_INVALID_CREDENTIALS and SESSION_INVALID with the same generic
// message.
package auth
