// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package auth

import (
	"fmt"
	"regexp"
)

// Password constraints. MaxPasswordLength matches the bcrypt input limit;
// longer passwords are rejected rather than silently truncated.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// passwordRegex allows ASCII letters, digits, underscore and hyphen.
var passwordRegex = regexp.MustCompile(`^[\w-]+$`)

// ValidatePassword checks a plaintext password against the password policy.
func ValidatePassword(password string) error {
	if msg := passwordProblem(password); msg != "" {
		return validationFailed("password", msg)
	}
	return nil
}

// passwordProblem returns the first policy violation, or "" if none.
func passwordProblem(password string) string {
	switch {
	case password == "":
		return "can't be blank"
	case len(password) < MinPasswordLength:
		return fmt.Sprintf("is too short (minimum is %d characters)", MinPasswordLength)
	case len(password) > MaxPasswordLength:
		return fmt.Sprintf("is too long (maximum is %d characters)", MaxPasswordLength)
	case !passwordRegex.MatchString(password):
		return "may only contain letters, numbers, underscores and hyphens"
	}
	return ""
}

// ValidatePasswordConfirmation checks that confirmation, when supplied,
// equals password exactly. A nil confirmation skips the check.
func ValidatePasswordConfirmation(password string, confirmation *string) error {
	if confirmation == nil || *confirmation == password {
		return nil
	}
	return validationFailed("password_confirmation", "doesn't match password")
}
