// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation *string
}

// UpdateInput carries optional profile changes. Nil fields are left as is.
type UpdateInput struct {
	Name                 *string
	Email                *string
	Password             *string
	PasswordConfirmation *string
}

// UserService manages account registration, activation and profile updates.
type UserService struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewUserService creates a new UserService that logs to slog.Default().
func NewUserService(users UserRepository, hasher PasswordHasher) (*UserService, error) {
	return NewUserServiceWithLogger(users, hasher, slog.Default())
}

// NewUserServiceWithLogger creates a new UserService with an explicit logger.
func NewUserServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*UserService, error) {
	if users == nil {
		return nil, oops.Code("USER_SERVICE_INVALID").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("USER_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("USER_SERVICE_INVALID").Errorf("logger is required")
	}
	return &UserService{users: users, hasher: hasher, logger: logger}, nil
}

// Register creates an inactive user.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if err := ValidatePasswordConfirmation(in.Password, in.PasswordConfirmation); err != nil {
		return nil, err
	}
	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded by the hasher
	}
	user, err := NewUser(in.Name, in.Email, digest)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, persistenceFailed("create user", err)
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

// Activate marks the user active. It fails with USER_EMAIL_TAKEN when a
// different activated user already owns the same email.
func (s *UserService) Activate(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Activated {
		return user, nil
	}

	// Normalize before the conflict lookup so it compares stored forms.
	user.Email = NormalizeEmail(user.Email)
	conflict, err := s.users.HasActivatedEmailConflict(ctx, user)
	if err != nil {
		return nil, persistenceFailed("check activated email conflict", err)
	}
	if conflict {
		return nil, emailTaken(user)
	}

	user.Activated = true
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user activated", "user_id", user.ID.String())
	return user, nil
}

// UpdateProfile applies in to the user. Password fields are optional;
// when Password is nil the stored digest is kept.
func (s *UserService) UpdateProfile(ctx context.Context, id ulid.ULID, in UpdateInput) (*User, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Password != nil {
		if err := ValidatePasswordConfirmation(*in.Password, in.PasswordConfirmation); err != nil {
			return nil, err
		}
		digest, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err //nolint:wrapcheck // already coded by the hasher
		}
		user.PasswordDigest = digest
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}
	if user.Activated {
		conflict, err := s.users.HasActivatedEmailConflict(ctx, user)
		if err != nil {
			return nil, persistenceFailed("check activated email conflict", err)
		}
		if conflict {
			return nil, emailTaken(user)
		}
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) get(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("USER_NOT_FOUND").
				With("user_id", id.String()).
				Wrap(err)
		}
		return nil, persistenceFailed("get user by id", err)
	}
	return user, nil
}

func (s *UserService) save(ctx context.Context, user *User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	user.UpdatedAt = time.Now()
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return emailTaken(user)
		}
		return persistenceFailed("update user", err)
	}
	return nil
}

func emailTaken(user *User) error {
	return oops.Code(CodeEmailTaken).
		With("user_id", user.ID.String()).
		Errorf("email has already been taken")
}
