// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package auth

import "crypto/rand"

// NewTokenID returns a random identifier suitable for a JWT "jti" claim.
// It carries 130 bits of entropy as 26 base32 characters.
func NewTokenID() string {
	return rand.Text()
}

// TokenIDGenerator produces refresh session identifiers.
type TokenIDGenerator func() string
