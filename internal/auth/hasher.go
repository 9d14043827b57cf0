// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// dummyBcryptDigest is a well-formed bcrypt digest that matches no password.
// It backs BcryptHasher values not built by NewBcryptHasher.
//
//nolint:gosec // G101: not a credential.
const dummyBcryptDigest = "$2a$10$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash validates the password against the password policy and returns
	// its digest. Policy violations yield a VALIDATION_FAILED error.
	Hash(password string) (string, error)

	// Verify checks if the password matches the digest.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid digest.
	Verify(password, digest string) (bool, error)

	// DummyDigest returns a digest Verify accepts as well-formed but that
	// matches no password. Verifying against it costs as much as a real
	// check.
	DummyDigest() string
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost  int
	dummy string
}

// NewBcryptHasher creates a BcryptHasher. A cost outside bcrypt's accepted
// range falls back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h := &BcryptHasher{cost: cost, dummy: dummyBcryptDigest}
	if digest, err := bcrypt.GenerateFromPassword([]byte(rand.Text()), cost); err == nil {
		h.dummy = string(digest)
	}
	return h
}

// Hash produces a bcrypt digest of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}
	return string(digest), nil
}

// Verify checks if the password matches the bcrypt digest.
func (h *BcryptHasher) Verify(password, digest string) (bool, error) {
	if len(password) > MaxPasswordLength {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
}

// DummyDigest returns a digest of a random secret at the hasher's cost.
func (h *BcryptHasher) DummyDigest() string {
	if h.dummy == "" {
		return dummyBcryptDigest
	}
	return h.dummy
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces an argon2id digest of the password in PHC form.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	p := defaultArgon2Params()
	if _, err := rand.Read(p.salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}
	p.key = p.derive(password)
	return p.String(), nil
}

// Verify re-derives the key with the digest's own parameters and compares.
func (h *Argon2idHasher) Verify(password, digest string) (bool, error) {
	p, err := parseArgon2Params(digest)
	if err != nil {
		return false, err
	}
	if len(password) > MaxPasswordLength {
		return false, nil
	}
	return subtle.ConstantTimeCompare(p.derive(password), p.key) == 1, nil
}

// DummyDigest returns an all-zero key under the default parameters.
func (h *Argon2idHasher) DummyDigest() string {
	p := defaultArgon2Params()
	p.key = make([]byte, argon2KeyLen)
	return p.String()
}

// argon2Params is one decoded argon2id PHC string:
// $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>.
type argon2Params struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func defaultArgon2Params() argon2Params {
	return argon2Params{
		memory:  argon2Memory,
		time:    argon2Time,
		threads: argon2Threads,
		salt:    make([]byte, argon2SaltLen),
	}
}

func (p argon2Params) derive(password string) []byte {
	keyLen := len(p.key)
	if keyLen == 0 {
		keyLen = argon2KeyLen
	}
	return argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(keyLen)) //nolint:gosec // keyLen bounded by parse
}

func (p argon2Params) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key))
}

func invalidHash(format string, args ...any) error {
	return oops.Code("AUTH_INVALID_HASH").Errorf(format, args...)
}

func parseArgon2Params(digest string) (argon2Params, error) {
	var p argon2Params
	// A leading "$" leaves an empty first field.
	fields := strings.Split(digest, "$")
	if len(fields) != 6 || fields[0] != "" {
		return p, invalidHash("invalid hash format")
	}
	if fields[1] != "argon2id" {
		return p, invalidHash("unsupported hash algorithm: %s", fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, invalidHash("unsupported argon2 version: %s", fields[2])
	}

	var threads uint32
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &threads); err != nil {
		return p, invalidHash("invalid argon2 parameters: %s", fields[3])
	}
	if threads == 0 || threads > 255 {
		return p, invalidHash("threads value %d out of range", threads)
	}
	p.threads = uint8(threads)

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return p, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil {
		return p, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(p.key) == 0 || len(p.key) > 1<<10 {
		return p, invalidHash("invalid hash key length: %d", len(p.key))
	}
	return p, nil
}

// NewPasswordHasher returns the hasher for the named algorithm
// ("bcrypt" or "argon2id").
func NewPasswordHasher(algorithm string, bcryptCost int) (PasswordHasher, error) {
	switch algorithm {
	case "", "bcrypt":
		return NewBcryptHasher(bcryptCost), nil
	case "argon2id":
		return NewArgon2idHasher(), nil
	default:
		return nil, oops.Code("AUTH_UNKNOWN_HASHER").
			With("algorithm", algorithm).
			Errorf("unknown password hasher %q", algorithm)
	}
}
