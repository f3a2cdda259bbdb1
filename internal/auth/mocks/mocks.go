// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/hireline/hireline/internal/auth"
)

// T is the subset of testing.T the constructors need.
type T interface {
	mock.TestingT
	Cleanup(func())
}

func register(t T, m interface{ AssertExpectations(mock.TestingT) bool }) {
	t.Cleanup(func() { m.AssertExpectations(t) })
}

func userResult(ret mock.Arguments) (*auth.User, error) {
	var u *auth.User
	if v := ret.Get(0); v != nil {
		u = v.(*auth.User)
	}
	return u, ret.Error(1)
}

// MockUserRepository mocks auth.UserRepository.
type MockUserRepository struct{ mock.Mock }

// NewMockUserRepository creates a mock that asserts its expectations on cleanup.
func NewMockUserRepository(t T) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	register(t, m)
	return m
}

// GetByID provides a mock function.
func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	return userResult(m.Called(ctx, id))
}

// GetByEmail provides a mock function.
func (m *MockUserRepository) GetByEmail(ctx context.Context, email auth.Email) (*auth.User, error) {
	return userResult(m.Called(ctx, email))
}

// Create provides a mock function.
func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

// Update provides a mock function.
func (m *MockUserRepository) Update(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

// Delete provides a mock function.
func (m *MockUserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

// MockOTPRepository mocks auth.OTPRepository.
type MockOTPRepository struct{ mock.Mock }

// NewMockOTPRepository creates a mock that asserts its expectations on cleanup.
func NewMockOTPRepository(t T) *MockOTPRepository {
	m := &MockOTPRepository{}
	m.Test(t)
	register(t, m)
	return m
}

// Replace provides a mock function.
func (m *MockOTPRepository) Replace(ctx context.Context, c *auth.OTPChallenge) error {
	return m.Called(ctx, c).Error(0)
}

// Get provides a mock function.
func (m *MockOTPRepository) Get(ctx context.Context, email auth.Email, purpose auth.OTPPurpose) (*auth.OTPChallenge, error) {
	ret := m.Called(ctx, email, purpose)
	var c *auth.OTPChallenge
	if v := ret.Get(0); v != nil {
		c = v.(*auth.OTPChallenge)
	}
	return c, ret.Error(1)
}

// Consume provides a mock function.
func (m *MockOTPRepository) Consume(ctx context.Context, c *auth.OTPChallenge) error {
	return m.Called(ctx, c).Error(0)
}

// DeleteExpired provides a mock function.
func (m *MockOTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := m.Called(ctx, now)
	return ret.Get(0).(int64), ret.Error(1)
}

// MockOTPChannel mocks auth.OTPChannel.
type MockOTPChannel struct{ mock.Mock }

// NewMockOTPChannel creates a mock that asserts its expectations on cleanup.
func NewMockOTPChannel(t T) *MockOTPChannel {
	m := &MockOTPChannel{}
	m.Test(t)
	register(t, m)
	return m
}

// DeliverOTP provides a mock function.
func (m *MockOTPChannel) DeliverOTP(ctx context.Context, email auth.Email, code string, purpose auth.OTPPurpose) error {
	return m.Called(ctx, email, code, purpose).Error(0)
}

// MockResetChannel mocks auth.ResetChannel.
type MockResetChannel struct{ mock.Mock }

// NewMockResetChannel creates a mock that asserts its expectations on cleanup.
func NewMockResetChannel(t T) *MockResetChannel {
	m := &MockResetChannel{}
	m.Test(t)
	register(t, m)
	return m
}

// DeliverPasswordReset provides a mock function.
func (m *MockResetChannel) DeliverPasswordReset(ctx context.Context, email auth.Email, token auth.IssuedToken) error {
	return m.Called(ctx, email, token).Error(0)
}

// MockPasswordHasher mocks auth.PasswordHasher.
type MockPasswordHasher struct{ mock.Mock }

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t T) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	register(t, m)
	return m
}

// Hash provides a mock function.
func (m *MockPasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	ret := m.Called(ctx, password)
	return ret.String(0), ret.Error(1)
}

// Compare provides a mock function.
func (m *MockPasswordHasher) Compare(ctx context.Context, password, digest string) (bool, error) {
	ret := m.Called(ctx, password, digest)
	return ret.Bool(0), ret.Error(1)
}

// NeedsUpgrade provides a mock function.
func (m *MockPasswordHasher) NeedsUpgrade(digest string) bool {
	return m.Called(digest).Bool(0)
}

// MockIdentityProvider mocks auth.IdentityProvider.
type MockIdentityProvider struct{ mock.Mock }

// NewMockIdentityProvider creates a mock that asserts its expectations on cleanup.
func NewMockIdentityProvider(t T) *MockIdentityProvider {
	m := &MockIdentityProvider{}
	m.Test(t)
	register(t, m)
	return m
}

// Verify provides a mock function.
func (m *MockIdentityProvider) Verify(ctx context.Context, credential string) (*auth.FederatedIdentity, error) {
	ret := m.Called(ctx, credential)
	var id *auth.FederatedIdentity
	if v := ret.Get(0); v != nil {
		id = v.(*auth.FederatedIdentity)
	}
	return id, ret.Error(1)
}

// MockProfileProvisioner mocks auth.ProfileProvisioner.
type MockProfileProvisioner struct{ mock.Mock }

// NewMockProfileProvisioner creates a mock that asserts its expectations on cleanup.
func NewMockProfileProvisioner(t T) *MockProfileProvisioner {
	m := &MockProfileProvisioner{}
	m.Test(t)
	register(t, m)
	return m
}

// CreateCandidateProfile provides a mock function.
func (m *MockProfileProvisioner) CreateCandidateProfile(ctx context.Context, userID ulid.ULID) error {
	return m.Called(ctx, userID).Error(0)
}

// CreateRecruiterProfile provides a mock function.
func (m *MockProfileProvisioner) CreateRecruiterProfile(ctx context.Context, userID ulid.ULID) error {
	return m.Called(ctx, userID).Error(0)
}

// MockOTPProtocol mocks auth.OTPProtocol.
type MockOTPProtocol struct{ mock.Mock }

// NewMockOTPProtocol creates a mock that asserts its expectations on cleanup.
func NewMockOTPProtocol(t T) *MockOTPProtocol {
	m := &MockOTPProtocol{}
	m.Test(t)
	register(t, m)
	return m
}

// Create provides a mock function.
func (m *MockOTPProtocol) Create(ctx context.Context, email auth.Email, purpose auth.OTPPurpose) error {
	return m.Called(ctx, email, purpose).Error(0)
}

// Verify provides a mock function.
func (m *MockOTPProtocol) Verify(ctx context.Context, email auth.Email, code string, purpose auth.OTPPurpose) error {
	return m.Called(ctx, email, code, purpose).Error(0)
}

// MockTokenIssuer mocks auth.TokenIssuer.
type MockTokenIssuer struct{ mock.Mock }

// NewMockTokenIssuer creates a mock that asserts its expectations on cleanup.
func NewMockTokenIssuer(t T) *MockTokenIssuer {
	m := &MockTokenIssuer{}
	m.Test(t)
	register(t, m)
	return m
}

// IssuePair provides a mock function.
func (m *MockTokenIssuer) IssuePair(userID ulid.ULID, role auth.Role) (auth.TokenPair, error) {
	ret := m.Called(userID, role)
	return ret.Get(0).(auth.TokenPair), ret.Error(1)
}

// IssueAccess provides a mock function.
func (m *MockTokenIssuer) IssueAccess(userID ulid.ULID, role auth.Role) (auth.IssuedToken, error) {
	ret := m.Called(userID, role)
	return ret.Get(0).(auth.IssuedToken), ret.Error(1)
}

// IssuePasswordReset provides a mock function.
func (m *MockTokenIssuer) IssuePasswordReset(userID ulid.ULID) (auth.IssuedToken, error) {
	ret := m.Called(userID)
	return ret.Get(0).(auth.IssuedToken), ret.Error(1)
}

// VerifyRefresh provides a mock function.
func (m *MockTokenIssuer) VerifyRefresh(raw string) (ulid.ULID, error) {
	ret := m.Called(raw)
	return ret.Get(0).(ulid.ULID), ret.Error(1)
}

// VerifyPasswordReset provides a mock function.
func (m *MockTokenIssuer) VerifyPasswordReset(raw string) (ulid.ULID, error) {
	ret := m.Called(raw)
	return ret.Get(0).(ulid.ULID), ret.Error(1)
}

// MockExpiredPurger mocks auth.ExpiredPurger.
type MockExpiredPurger struct{ mock.Mock }

// NewMockExpiredPurger creates a mock that asserts its expectations on cleanup.
func NewMockExpiredPurger(t T) *MockExpiredPurger {
	m := &MockExpiredPurger{}
	m.Test(t)
	register(t, m)
	return m
}

// PurgeExpired provides a mock function.
func (m *MockExpiredPurger) PurgeExpired(ctx context.Context) (int64, error) {
	ret := m.Called(ctx)
	return ret.Get(0).(int64), ret.Error(1)
}

var (
	_ auth.UserRepository     = (*MockUserRepository)(nil)
	_ auth.OTPRepository      = (*MockOTPRepository)(nil)
	_ auth.OTPChannel         = (*MockOTPChannel)(nil)
	_ auth.ResetChannel       = (*MockResetChannel)(nil)
	_ auth.PasswordHasher     = (*MockPasswordHasher)(nil)
	_ auth.IdentityProvider   = (*MockIdentityProvider)(nil)
	_ auth.ProfileProvisioner = (*MockProfileProvisioner)(nil)
	_ auth.OTPProtocol        = (*MockOTPProtocol)(nil)
	_ auth.TokenIssuer        = (*MockTokenIssuer)(nil)
	_ auth.ExpiredPurger      = (*MockExpiredPurger)(nil)
)
