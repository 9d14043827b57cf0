// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package auth

import (
	"errors"
	"strings"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned by repositories when a write would leave two
// activated users with the same email.
var ErrDuplicateEmail = errors.New("duplicate activated email")

// Error codes attached to oops errors returned by this package.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeSessionInvalid     = "SESSION_INVALID"
	CodePersistenceFailed  = "PERSISTENCE_FAILED"
	CodeEmailTaken         = "USER_EMAIL_TAKEN"
)

// Reasons recorded in the context of an AUTH_INVALID_CREDENTIALS error.
// They are for logs only; callers must not show them to clients.
const (
	ReasonNotFoundOrInactive = "not_found_or_inactive"
	ReasonBadCredentials     = "bad_credentials"
)

// invalidCredentialsMessage is the only message a client ever sees for a
// failed login, whatever the reason.
const invalidCredentialsMessage = "invalid email or password"

// FieldError describes a single failed field validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

// Error implements error.
func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+" "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Has reports whether field is among the failed fields.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// err returns nil when nothing failed, otherwise the coded oops error.
func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return oops.Code(CodeValidationFailed).
		With("fields", e.fieldNames()).
		Wrap(e)
}

func (e *ValidationError) fieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

func validationFailed(field, message string) error {
	v := &ValidationError{}
	v.add(field, message)
	return v.err()
}

func invalidCredentials(reason string) error {
	return oops.Code(CodeInvalidCredentials).
		With("reason", reason).
		Errorf(invalidCredentialsMessage)
}

func persistenceFailed(operation string, err error) error {
	return oops.Code(CodePersistenceFailed).
		With("operation", operation).
		Wrap(err)
}

// AsValidationError extracts the field list from a VALIDATION_FAILED error.
func AsValidationError(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
