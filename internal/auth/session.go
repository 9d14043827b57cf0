// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// SessionManager binds at most one live refresh session to a user.
// Issuing a new session overwrites the stored JTI, which invalidates any
// refresh token minted earlier for that user.
type SessionManager struct {
	users  UserRepository
	newID  TokenIDGenerator
	logger *slog.Logger
}

// NewSessionManager creates a SessionManager that generates JTIs with NewTokenID.
func NewSessionManager(users UserRepository) (*SessionManager, error) {
	return NewSessionManagerWithGenerator(users, NewTokenID, slog.Default())
}

// NewSessionManagerWithGenerator creates a SessionManager with an explicit
// JTI generator and logger.
func NewSessionManagerWithGenerator(users UserRepository, gen TokenIDGenerator, logger *slog.Logger) (*SessionManager, error) {
	if users == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID").Errorf("users repository is required")
	}
	if gen == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID").Errorf("token id generator is required")
	}
	if logger == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID").Errorf("logger is required")
	}
	return &SessionManager{users: users, newID: gen, logger: logger}, nil
}

// Remember stores jti as the user's live refresh session. Only the
// refresh JTI column is written.
func (m *SessionManager) Remember(ctx context.Context, user *User, jti string) (*User, error) {
	if err := m.save(ctx, user, &jti, "remember refresh jti"); err != nil {
		return nil, err
	}
	return user, nil
}

// Forget clears the user's refresh session. It is a no-op when the user
// has none.
func (m *SessionManager) Forget(ctx context.Context, user *User) (*User, error) {
	if user.RefreshJTI == nil {
		return user, nil
	}
	if err := m.save(ctx, user, nil, "forget refresh jti"); err != nil {
		return nil, err
	}
	return user, nil
}

// Issue starts a new refresh session for user and returns its JTI.
func (m *SessionManager) Issue(ctx context.Context, user *User) (string, error) {
	jti := m.newID()
	if _, err := m.Remember(ctx, user, jti); err != nil {
		return "", err
	}
	m.logger.DebugContext(ctx, "refresh session issued", "user_id", user.ID.String())
	return jti, nil
}

// Rotate replaces the user's refresh session when presentedJTI matches the
// stored one, returning the new JTI. The replacement is conditional on the
// stored JTI, so of two requests presenting the same token only one wins.
// A mismatch, or a user with no session, yields SESSION_INVALID and leaves
// the stored JTI untouched.
func (m *SessionManager) Rotate(ctx context.Context, user *User, presentedJTI string) (string, error) {
	if !m.matches(user, presentedJTI) {
		return "", m.rejectRotation(ctx, user)
	}
	if v := user.validate(); len(v.Fields) > 0 {
		return "", persistenceFailed("rotate refresh jti", v)
	}

	jti := m.newID()
	now := time.Now()
	swapped, err := m.users.SwapRefreshJTI(ctx, user.ID, presentedJTI, jti, now)
	if err != nil {
		return "", persistenceFailed("rotate refresh jti", err)
	}
	if !swapped {
		return "", m.rejectRotation(ctx, user)
	}
	user.RefreshJTI = &jti
	user.UpdatedAt = now
	m.logger.DebugContext(ctx, "refresh session rotated", "user_id", user.ID.String())
	return jti, nil
}

// Revoke ends the user's refresh session.
func (m *SessionManager) Revoke(ctx context.Context, user *User) error {
	_, err := m.Forget(ctx, user)
	return err
}

func (m *SessionManager) rejectRotation(ctx context.Context, user *User) error {
	m.logger.InfoContext(ctx, "refresh rejected: stale or revoked session",
		"user_id", user.ID.String())
	return oops.Code(CodeSessionInvalid).
		With("user_id", user.ID.String()).
		Errorf("invalid session")
}

func (m *SessionManager) matches(user *User, presentedJTI string) bool {
	if user.RefreshJTI == nil || presentedJTI == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*user.RefreshJTI), []byte(presentedJTI)) == 1
}

// save runs the validation hooks and writes jti as the user's refresh
// session. Both kinds of failure surface as PERSISTENCE_FAILED and leave
// user unchanged.
func (m *SessionManager) save(ctx context.Context, user *User, jti *string, operation string) error {
	if v := user.validate(); len(v.Fields) > 0 {
		return persistenceFailed(operation, v)
	}
	now := time.Now()
	if err := m.users.SetRefreshJTI(ctx, user.ID, jti, now); err != nil {
		return persistenceFailed(operation, err)
	}
	user.RefreshJTI = jti
	user.UpdatedAt = now
	return nil
}
