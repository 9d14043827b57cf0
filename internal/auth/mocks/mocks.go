// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Kanri Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/kanri/kanri/internal/auth"
)

// testingT is the subset of *testing.T the constructors need.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock implementation of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a MockUserRepository whose expectations are
// asserted when the test ends.
func NewMockUserRepository(t testingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create provides a mock function.
func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	ret := m.Called(ctx, user)
	return ret.Error(0)
}

// GetByID provides a mock function.
func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	ret := m.Called(ctx, id)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

// FindActiveByEmail provides a mock function.
func (m *MockUserRepository) FindActiveByEmail(ctx context.Context, email string) (*auth.User, error) {
	ret := m.Called(ctx, email)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

// HasActivatedEmailConflict provides a mock function.
func (m *MockUserRepository) HasActivatedEmailConflict(ctx context.Context, user *auth.User) (bool, error) {
	ret := m.Called(ctx, user)
	return ret.Bool(0), ret.Error(1)
}

// Update provides a mock function.
func (m *MockUserRepository) Update(ctx context.Context, user *auth.User) error {
	ret := m.Called(ctx, user)
	return ret.Error(0)
}

// SetRefreshJTI provides a mock function.
func (m *MockUserRepository) SetRefreshJTI(ctx context.Context, id ulid.ULID, jti *string, updatedAt time.Time) error {
	ret := m.Called(ctx, id, jti, updatedAt)
	return ret.Error(0)
}

// SwapRefreshJTI provides a mock function.
func (m *MockUserRepository) SwapRefreshJTI(ctx context.Context, id ulid.ULID, current, next string, updatedAt time.Time) (bool, error) {
	ret := m.Called(ctx, id, current, next, updatedAt)
	return ret.Bool(0), ret.Error(1)
}

// MockPasswordHasher is a mock implementation of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher whose expectations are
// asserted when the test ends.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash provides a mock function.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

// Verify provides a mock function.
func (m *MockPasswordHasher) Verify(password, digest string) (bool, error) {
	ret := m.Called(password, digest)
	return ret.Bool(0), ret.Error(1)
}

// DummyDigest provides a mock function.
func (m *MockPasswordHasher) DummyDigest() string {
	ret := m.Called()
	return ret.String(0)
}

func userOrNil(v any) *auth.User {
	if v == nil {
		return nil
	}
	return v.(*auth.User)
}

var (
	_ auth.UserRepository = (*MockUserRepository)(nil)
	_ auth.PasswordHasher = (*MockPasswordHasher)(nil)
)
