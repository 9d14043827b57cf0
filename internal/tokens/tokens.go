// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

// Package tokens encodes and verifies the signed access and refresh tokens
// handed to HTTP clients.
package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// CodeTokenInvalid is attached to every parse failure.
const CodeTokenInvalid = "TOKEN_INVALID"

// MinSecretLength is the shortest accepted HMAC secret, in bytes.
const MinSecretLength = 32

// Token kinds carried in the typ claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims are the JWT claims of both token kinds. Refresh tokens carry the
// session JTI in the registered jti claim.
type Claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a ULID.
func (c *Claims) UserID() (ulid.ULID, error) {
	id, err := ulid.Parse(c.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeTokenInvalid).With("sub", c.Subject).Wrap(err)
	}
	return id, nil
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer creates an Issuer.
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if len(secret) < MinSecretLength {
		return nil, oops.Code("TOKEN_ISSUER_INVALID").
			With("min_length", MinSecretLength).
			Errorf("secret is too short")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, oops.Code("TOKEN_ISSUER_INVALID").
			With("access_ttl", accessTTL.String()).
			With("refresh_ttl", refreshTTL.String()).
			Errorf("token lifetimes must be positive")
	}
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock returns a copy of the Issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	c := *i
	c.now = now
	return &c
}

// IssueAccess returns a short-lived access token for userID.
func (i *Issuer) IssueAccess(userID ulid.ULID) (string, time.Time, error) {
	return i.sign(TypeAccess, userID, "", i.accessTTL)
}

// IssueRefresh returns a refresh token binding userID to the session jti.
func (i *Issuer) IssueRefresh(userID ulid.ULID, jti string) (string, time.Time, error) {
	if jti == "" {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").Errorf("refresh token requires a jti")
	}
	return i.sign(TypeRefresh, userID, jti, i.refreshTTL)
}

// ParseAccess verifies an access token and returns its claims.
func (i *Issuer) ParseAccess(token string) (*Claims, error) {
	return i.parse(token, TypeAccess)
}

// ParseRefresh verifies a refresh token and returns its claims.
func (i *Issuer) ParseRefresh(token string) (*Claims, error) {
	claims, err := i.parse(token, TypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, oops.Code(CodeTokenInvalid).Errorf("refresh token has no jti")
	}
	return claims, nil
}

func (i *Issuer) sign(typ string, userID ulid.ULID, jti string, ttl time.Duration) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").With("typ", typ).Wrap(err)
	}
	return signed, expiresAt, nil
}

func (i *Issuer) parse(token, typ string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, oops.Code(CodeTokenInvalid).With("typ", typ).Wrap(err)
	}
	if claims.Type != typ {
		return nil, oops.Code(CodeTokenInvalid).
			With("typ", typ).
			With("got", claims.Type).
			Errorf("wrong token type")
	}
	return claims, nil
}
