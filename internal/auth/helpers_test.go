// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package auth_test

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kanri/kanri/internal/auth"
	"github.com/kanri/kanri/internal/auth/memory"
)

// plainHasher is a fast deterministic PasswordHasher for tests. It applies
// the real password policy but stores a reversible digest.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	if err := auth.ValidatePassword(password); err != nil {
		return "", err
	}
	return "plain$" + password, nil
}

func (plainHasher) Verify(password, digest string) (bool, error) {
	stored, ok := strings.CutPrefix(digest, "plain$")
	if !ok {
		// Dummy digests from the service land here; they never match.
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1, nil
}

func (plainHasher) DummyDigest() string {
	return "dummy"
}

// sequenceIDs returns a generator yielding jti-1, jti-2, ...
func sequenceIDs() auth.TokenIDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("jti-%d", n)
	}
}

// seedUser registers a user through the in-memory repository and returns it.
func seedUser(t *testing.T, repo *memory.UserRepository, name, email, password string, activated bool) *auth.User {
	t.Helper()
	digest, err := plainHasher{}.Hash(password)
	require.NoError(t, err)
	user, err := auth.NewUser(name, email, digest)
	require.NoError(t, err)
	user.Activated = activated
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func ptr[T any](v T) *T {
	return &v
}
