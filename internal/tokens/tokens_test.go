// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package tokens_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanri/kanri/internal/tokens"
	"github.com/kanri/kanri/pkg/errutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newIssuer(t *testing.T) *tokens.Issuer {
	t.Helper()
	iss, err := tokens.NewIssuer(testSecret, 15*time.Minute, 14*24*time.Hour)
	require.NoError(t, err)
	return iss
}

func TestNewIssuer(t *testing.T) {
	t.Run("short secret", func(t *testing.T) {
		_, err := tokens.NewIssuer("short", time.Minute, time.Hour)
		errutil.AssertErrorCode(t, err, "TOKEN_ISSUER_INVALID")
	})

	t.Run("non-positive ttl", func(t *testing.T) {
		_, err := tokens.NewIssuer(testSecret, 0, time.Hour)
		errutil.AssertErrorCode(t, err, "TOKEN_ISSUER_INVALID")
	})
}

func TestIssuer_AccessRoundTrip(t *testing.T) {
	iss := newIssuer(t)
	userID := ulid.Make()

	token, exp, err := iss.IssueAccess(userID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	claims, err := iss.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, tokens.TypeAccess, claims.Type)
	assert.Empty(t, claims.ID)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestIssuer_RefreshRoundTrip(t *testing.T) {
	iss := newIssuer(t)
	userID := ulid.Make()

	token, _, err := iss.IssueRefresh(userID, "session-jti")
	require.NoError(t, err)

	claims, err := iss.ParseRefresh(token)
	require.NoError(t, err)
	assert.Equal(t, "session-jti", claims.ID)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestIssuer_RefreshRequiresJTI(t *testing.T) {
	_, _, err := newIssuer(t).IssueRefresh(ulid.Make(), "")
	errutil.AssertErrorCode(t, err, "TOKEN_SIGN_FAILED")
}

func TestIssuer_RejectsWrongType(t *testing.T) {
	iss := newIssuer(t)
	userID := ulid.Make()

	access, _, err := iss.IssueAccess(userID)
	require.NoError(t, err)
	refresh, _, err := iss.IssueRefresh(userID, "jti")
	require.NoError(t, err)

	_, err = iss.ParseRefresh(access)
	errutil.AssertErrorCode(t, err, tokens.CodeTokenInvalid)
	_, err = iss.ParseAccess(refresh)
	errutil.AssertErrorCode(t, err, tokens.CodeTokenInvalid)
}

func TestIssuer_RejectsExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	iss := newIssuer(t).WithClock(func() time.Time { return past })

	token, _, err := iss.IssueAccess(ulid.Make())
	require.NoError(t, err)

	_, err = newIssuer(t).ParseAccess(token)
	errutil.AssertErrorCode(t, err, tokens.CodeTokenInvalid)
}

func TestIssuer_RejectsForeignSignature(t *testing.T) {
	other, err := tokens.NewIssuer(strings.Repeat("x", 32), time.Minute, time.Hour)
	require.NoError(t, err)

	token, _, err := other.IssueAccess(ulid.Make())
	require.NoError(t, err)

	_, err = newIssuer(t).ParseAccess(token)
	errutil.AssertErrorCode(t, err, tokens.CodeTokenInvalid)
}

func TestIssuer_RejectsNoneAlgorithm(t *testing.T) {
	claims := tokens.Claims{
		Type: tokens.TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ulid.Make().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newIssuer(t).ParseAccess(token)
	errutil.AssertErrorCode(t, err, tokens.CodeTokenInvalid)
}

func TestIssuer_RejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "abc", "a.b.c"} {
		_, err := newIssuer(t).ParseAccess(token)
		errutil.AssertErrorCode(t, err, tokens.CodeTokenInvalid)
	}
}

func TestClaims_UserIDRejectsBadSubject(t *testing.T) {
	c := &tokens.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "nope"}}
	_, err := c.UserID()
	errutil.AssertErrorCode(t, err, tokens.CodeTokenInvalid)
}
