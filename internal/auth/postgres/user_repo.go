// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/kanri/kanri/internal/auth"
	"github.com/kanri/kanri/internal/store"
)

const userColumns = `id, name, email, password_digest, activated, admin, refresh_jti, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool store.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool store.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (
			id, name, email, password_digest, activated, admin,
			refresh_jti, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		user.ID.String(),
		user.Name,
		user.Email,
		user.PasswordDigest,
		user.Activated,
		user.Admin,
		user.RefreshJTI,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return oops.
			With("operation", "insert user").
			With("id", user.ID.String()).
			Wrap(mapWriteError(err))
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// FindActiveByEmail retrieves the activated user with the given email.
func (r *UserRepository) FindActiveByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1 AND activated
		LIMIT 1
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("email", email).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.
			With("operation", "find active user by email").
			Wrap(err)
	}
	return user, nil
}

// HasActivatedEmailConflict reports whether another activated user shares
// user's email.
func (r *UserRepository) HasActivatedEmailConflict(ctx context.Context, user *auth.User) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE email = $1 AND activated AND id <> $2
		)
	`, user.Email, user.ID.String()).Scan(&exists)
	if err != nil {
		return false, oops.
			With("operation", "check activated email conflict").
			With("id", user.ID.String()).
			Wrap(err)
	}
	return exists, nil
}

// Update writes the profile columns of an existing user.
func (r *UserRepository) Update(ctx context.Context, user *auth.User) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET
			name = $2,
			email = $3,
			password_digest = $4,
			activated = $5,
			admin = $6,
			updated_at = $7
		WHERE id = $1
	`,
		user.ID.String(),
		user.Name,
		user.Email,
		user.PasswordDigest,
		user.Activated,
		user.Admin,
		user.UpdatedAt,
	)
	if err != nil {
		return oops.
			With("operation", "update user").
			With("id", user.ID.String()).
			Wrap(mapWriteError(err))
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", user.ID.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetRefreshJTI stores or clears the refresh JTI of an existing user.
func (r *UserRepository) SetRefreshJTI(ctx context.Context, id ulid.ULID, jti *string, updatedAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET refresh_jti = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), jti, updatedAt)
	if err != nil {
		return oops.
			With("operation", "set refresh jti").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// SwapRefreshJTI replaces the refresh JTI only while it still equals
// current. A row that has moved on, or no longer exists, reports false.
func (r *UserRepository) SwapRefreshJTI(ctx context.Context, id ulid.ULID, current, next string, updatedAt time.Time) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET refresh_jti = $3, updated_at = $4
		WHERE id = $1 AND refresh_jti = $2
	`, id.String(), current, next, updatedAt)
	if err != nil {
		return false, oops.
			With("operation", "swap refresh jti").
			With("id", id.String()).
			Wrap(err)
	}
	return result.RowsAffected() == 1, nil
}

// mapWriteError turns a violation of the active-email unique index into
// auth.ErrDuplicateEmail.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return auth.ErrDuplicateEmail
	}
	return err
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr          string
		name           string
		email          string
		passwordDigest string
		activated      bool
		admin          bool
		refreshJTI     *string
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := row.Scan(
		&idStr,
		&name,
		&email,
		&passwordDigest,
		&activated,
		&admin,
		&refreshJTI,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.With("operation", "scan user").Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.User{
		ID:             id,
		Name:           name,
		Email:          email,
		PasswordDigest: passwordDigest,
		Activated:      activated,
		Admin:          admin,
		RefreshJTI:     refreshJTI,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
