// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanri/kanri/internal/auth"
	"github.com/kanri/kanri/pkg/errutil"
)

func TestNewUser(t *testing.T) {
	t.Run("creates inactive user without session", func(t *testing.T) {
		user, err := auth.NewUser("Ann", "ann@example.com", "digest")
		require.NoError(t, err)
		assert.NotEqual(t, ulid.ULID{}, user.ID)
		assert.False(t, user.Activated)
		assert.False(t, user.Admin)
		assert.Nil(t, user.RefreshJTI)
		assert.False(t, user.HasSession())
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("stores email lowercased regardless of input casing", func(t *testing.T) {
		for _, email := range []string{"Ann@Example.com", "ANN@EXAMPLE.COM", "ann@example.com", "aNn@eXaMpLe.CoM"} {
			user, err := auth.NewUser("Ann", email, "digest")
			require.NoError(t, err)
			assert.Equal(t, "ann@example.com", user.Email, "input %q", email)
		}
	})

	t.Run("collects every invalid field", func(t *testing.T) {
		_, err := auth.NewUser("", "", "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeValidationFailed)

		verr, ok := auth.AsValidationError(err)
		require.True(t, ok)
		assert.True(t, verr.Has("name"))
		assert.True(t, verr.Has("email"))
		assert.True(t, verr.Has("password"))
		assert.Len(t, verr.Fields, 3)
	})
}

func TestUser_Validate(t *testing.T) {
	valid := func() *auth.User {
		return &auth.User{ID: ulid.Make(), Name: "Ann", Email: "ann@example.com", PasswordDigest: "digest"}
	}

	tests := []struct {
		name      string
		mutate    func(u *auth.User)
		wantField string
	}{
		{"valid user", func(*auth.User) {}, ""},
		{"name of thirty characters", func(u *auth.User) { u.Name = strings.Repeat("n", 30) }, ""},
		{"name of thirty-one characters", func(u *auth.User) { u.Name = strings.Repeat("n", 31) }, "name"},
		{"multibyte name of thirty characters", func(u *auth.User) { u.Name = strings.Repeat("名", 30) }, ""},
		{"blank name", func(u *auth.User) { u.Name = "" }, "name"},
		{"blank email", func(u *auth.User) { u.Email = "" }, "email"},
		{"email without at", func(u *auth.User) { u.Email = "ann.example.com" }, "email"},
		{"email without dot in domain", func(u *auth.User) { u.Email = "ann@localhost" }, "email"},
		{"email with space", func(u *auth.User) { u.Email = "ann smith@example.com" }, "email"},
		{"email with two ats", func(u *auth.User) { u.Email = "ann@@example.com" }, "email"},
		{"subdomain email", func(u *auth.User) { u.Email = "ann@mail.example.co.jp" }, ""},
		{"blank digest", func(u *auth.User) { u.PasswordDigest = "" }, "password"},
		{"refresh jti is not validated", func(u *auth.User) { u.RefreshJTI = ptr("") }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := valid()
			tt.mutate(u)
			err := u.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			verr, ok := auth.AsValidationError(err)
			require.True(t, ok)
			assert.True(t, verr.Has(tt.wantField))
		})
	}

	t.Run("lowercases email even when validation fails elsewhere", func(t *testing.T) {
		u := valid()
		u.Email = "Ann@Example.COM"
		u.Name = ""
		require.Error(t, u.Validate())
		assert.Equal(t, "ann@example.com", u.Email)
	})
}

func TestSerialize(t *testing.T) {
	jti := "live-jti"
	user := &auth.User{
		ID:             ulid.Make(),
		Name:           "Ann",
		Email:          "ann@example.com",
		PasswordDigest: "digest",
		Activated:      true,
		RefreshJTI:     &jti,
	}

	t.Run("projects only id and name", func(t *testing.T) {
		out := auth.Serialize(user, nil)
		assert.Equal(t, map[string]any{"id": user.ID.String(), "name": "Ann"}, out)
	})

	t.Run("merges extra fields", func(t *testing.T) {
		out := auth.Serialize(user, map[string]any{"access_token": "tok", "exp": 42})
		assert.Equal(t, "tok", out["access_token"])
		assert.Equal(t, 42, out["exp"])
		assert.Equal(t, "Ann", out["name"])
	})

	t.Run("never exposes sensitive fields", func(t *testing.T) {
		out := auth.Serialize(user, map[string]any{"token": "x"})
		for _, key := range []string{"email", "password_digest", "refresh_jti", "activated", "admin"} {
			assert.NotContains(t, out, key)
		}
	})
}

func TestNewTokenID(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		id := auth.NewTokenID()
		assert.Len(t, id, 26)
		_, dup := seen[id]
		require.False(t, dup, "duplicate token id %q", id)
		seen[id] = struct{}{}
	}
}
