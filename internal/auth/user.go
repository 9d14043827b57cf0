// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package auth

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// MaxNameLength is the longest accepted user name, in characters.
const MaxNameLength = 30

// emailRegex matches local@domain where the domain contains at least one dot.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s.]+(\.[^@\s.]+)+$`)

// User is an account that can own projects and authenticate.
type User struct {
	ID             ulid.ULID
	Name           string
	Email          string
	PasswordDigest string
	Activated      bool
	Admin          bool
	RefreshJTI     *string // nil when the user has no live session
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser creates a validated, inactive User. digest must already be the
// output of a PasswordHasher.
func NewUser(name, email, digest string) (*User, error) {
	now := time.Now()
	u := &User{
		ID:             ulid.Make(),
		Name:           name,
		Email:          email,
		PasswordDigest: digest,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate lowercases the email and then checks every field.
// It runs before every save, so the email is normalized even on updates
// that don't touch it.
func (u *User) Validate() error {
	return u.validate().err()
}

func (u *User) validate() *ValidationError {
	u.Email = strings.ToLower(u.Email)

	v := &ValidationError{}
	switch {
	case u.Name == "":
		v.add("name", "can't be blank")
	case utf8.RuneCountInString(u.Name) > MaxNameLength:
		v.add("name", fmt.Sprintf("is too long (maximum is %d characters)", MaxNameLength))
	}
	switch {
	case u.Email == "":
		v.add("email", "can't be blank")
	case !emailRegex.MatchString(u.Email):
		v.add("email", "is invalid")
	}
	if u.PasswordDigest == "" {
		v.add("password", "can't be blank")
	}
	return v
}

// HasSession reports whether the user holds a live refresh session.
func (u *User) HasSession() bool {
	return u.RefreshJTI != nil
}

// Serialize is the outward projection of a user: id and name merged with
// extra. Email, password digest and refresh JTI are never included.
func Serialize(u *User, extra map[string]any) map[string]any {
	out := make(map[string]any, len(extra)+2)
	out["id"] = u.ID.String()
	out["name"] = u.Name
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// NormalizeEmail returns the stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(email)
}

// UserRepository manages user persistence. Implementations do not validate;
// callers run User.Validate before Create and Update.
type UserRepository interface {
	// Create stores a new user.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// FindActiveByEmail retrieves the activated user with the given
	// (lowercase) email. Returns ErrNotFound when there is none.
	FindActiveByEmail(ctx context.Context, email string) (*User, error)

	// HasActivatedEmailConflict reports whether a user other than user
	// is activated and shares user's email.
	HasActivatedEmailConflict(ctx context.Context, user *User) (bool, error)

	// Update writes the profile columns of an existing user. The refresh
	// JTI is left alone; it changes only through the session methods.
	Update(ctx context.Context, user *User) error

	// SetRefreshJTI stores jti as the user's refresh session, or clears it
	// when jti is nil. No other column is written.
	SetRefreshJTI(ctx context.Context, id ulid.ULID, jti *string, updatedAt time.Time) error

	// SwapRefreshJTI replaces the stored refresh JTI with next only while
	// it still equals current. It reports false when the stored JTI has
	// already moved on.
	SwapRefreshJTI(ctx context.Context, id ulid.ULID, current, next string, updatedAt time.Time) (bool, error)
}
