// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

// Package memory provides an in-process auth.UserRepository for development
// servers and tests. Rows are copied on the way in and out, so callers never
// share state with the store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/kanri/kanri/internal/auth"
)

// UserRepository implements auth.UserRepository in memory.
type UserRepository struct {
	mu    sync.RWMutex
	users map[ulid.ULID]auth.User
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[ulid.ULID]auth.User)}
}

// Create stores a new user.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.ID]; exists {
		return oops.With("id", user.ID.String()).Errorf("user already exists")
	}
	if r.activeEmailTaken(user) {
		return oops.With("id", user.ID.String()).Wrap(auth.ErrDuplicateEmail)
	}
	r.users[user.ID] = clone(user)
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	out := clone(&u)
	return &out, nil
}

// FindActiveByEmail retrieves the activated user with the given email.
func (r *UserRepository) FindActiveByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Activated && u.Email == email {
			out := clone(&u)
			return &out, nil
		}
	}
	return nil, oops.With("email", email).Wrap(auth.ErrNotFound)
}

// HasActivatedEmailConflict reports whether another activated user shares
// user's email.
func (r *UserRepository) HasActivatedEmailConflict(_ context.Context, user *auth.User) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, u := range r.users {
		if id != user.ID && u.Activated && u.Email == user.Email {
			return true, nil
		}
	}
	return false, nil
}

// Update overwrites the profile fields of an existing user, keeping the
// stored refresh JTI.
func (r *UserRepository) Update(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return oops.With("id", user.ID.String()).Wrap(auth.ErrNotFound)
	}
	if r.activeEmailTaken(user) {
		return oops.With("id", user.ID.String()).Wrap(auth.ErrDuplicateEmail)
	}
	next := clone(user)
	next.RefreshJTI = stored.RefreshJTI
	r.users[user.ID] = next
	return nil
}

// SetRefreshJTI stores or clears the refresh JTI of an existing user.
func (r *UserRepository) SetRefreshJTI(_ context.Context, id ulid.ULID, jti *string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	u.RefreshJTI = nil
	if jti != nil {
		v := *jti
		u.RefreshJTI = &v
	}
	u.UpdatedAt = updatedAt
	r.users[id] = u
	return nil
}

// SwapRefreshJTI replaces the refresh JTI only while it still equals
// current.
func (r *UserRepository) SwapRefreshJTI(_ context.Context, id ulid.ULID, current, next string, updatedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.RefreshJTI == nil || *u.RefreshJTI != current {
		return false, nil
	}
	u.RefreshJTI = &next
	u.UpdatedAt = updatedAt
	r.users[id] = u
	return true, nil
}

// activeEmailTaken mirrors the partial unique index on activated emails.
// Callers must hold r.mu.
func (r *UserRepository) activeEmailTaken(user *auth.User) bool {
	if !user.Activated {
		return false
	}
	for id, u := range r.users {
		if id != user.ID && u.Activated && u.Email == user.Email {
			return true
		}
	}
	return false
}

func clone(u *auth.User) auth.User {
	out := *u
	if u.RefreshJTI != nil {
		jti := *u.RefreshJTI
		out.RefreshJTI = &jti
	}
	return out
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
