// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Service authenticates users by email and password.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewAuthService creates a new Service that logs to slog.Default().
func NewAuthService(users UserRepository, hasher PasswordHasher) (*Service, error) {
	return NewAuthServiceWithLogger(users, hasher, slog.Default())
}

// NewAuthServiceWithLogger creates a new Service with an explicit logger.
func NewAuthServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("logger is required")
	}
	return &Service{users: users, hasher: hasher, logger: logger}, nil
}

// Authenticate returns the activated user owning email when password
// matches. Unknown emails, inactive users and wrong passwords all fail with
// the same AUTH_INVALID_CREDENTIALS error; only its "reason" context differs.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)

	user, lookupErr := s.users.FindActiveByEmail(ctx, email)
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		return nil, persistenceFailed("find active user by email", lookupErr)
	}

	if user == nil || lookupErr != nil {
		// Burn the same hashing time as a real check; only the cost matters.
		if _, err := s.hasher.Verify(password, s.hasher.DummyDigest()); err != nil {
			s.logger.WarnContext(ctx, "hasher rejected its own dummy digest", "error", err)
		}
		s.logger.InfoContext(ctx, "authentication failed",
			"reason", ReasonNotFoundOrInactive)
		return nil, invalidCredentials(ReasonNotFoundOrInactive)
	}

	valid, err := s.hasher.Verify(password, user.PasswordDigest)
	if err != nil {
		return nil, oops.Code("AUTH_VERIFY_FAILED").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	if !valid {
		s.logger.InfoContext(ctx, "authentication failed",
			"reason", ReasonBadCredentials,
			"user_id", user.ID.String())
		return nil, invalidCredentials(ReasonBadCredentials)
	}

	return user, nil
}
