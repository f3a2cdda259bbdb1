// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/auth/mocks"
)

type serviceMocks struct {
	users    *mocks.MockUserRepository
	hasher   *mocks.MockPasswordHasher
	tokens   *mocks.MockTokenIssuer
	idp      *mocks.MockIdentityProvider
	profiles *mocks.MockProfileProvisioner
	svc      *auth.Service
}

func newServiceMocks(t *testing.T) *serviceMocks {
	t.Helper()
	m := &serviceMocks{
		users:    mocks.NewMockUserRepository(t),
		hasher:   mocks.NewMockPasswordHasher(t),
		tokens:   mocks.NewMockTokenIssuer(t),
		idp:      mocks.NewMockIdentityProvider(t),
		profiles: mocks.NewMockProfileProvisioner(t),
	}
	svc, err := auth.NewService(m.users, m.hasher, m.tokens, m.idp, m.profiles)
	require.NoError(t, err)
	m.svc = svc
	return m
}

var testPair = auth.TokenPair{
	Access:  auth.IssuedToken{Token: "access"},
	Refresh: auth.IssuedToken{Token: "refresh"},
}

func TestNewService_NilDependencies(t *testing.T) {
	users := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	tokens := mocks.NewMockTokenIssuer(t)
	idp := mocks.NewMockIdentityProvider(t)
	profiles := mocks.NewMockProfileProvisioner(t)

	_, err := auth.NewService(nil, hasher, tokens, idp, profiles)
	assert.ErrorContains(t, err, "user repository is required")
	_, err = auth.NewService(users, nil, tokens, idp, profiles)
	assert.ErrorContains(t, err, "password hasher is required")
	_, err = auth.NewService(users, hasher, nil, idp, profiles)
	assert.ErrorContains(t, err, "token issuer is required")
	_, err = auth.NewService(users, hasher, tokens, nil, profiles)
	assert.ErrorContains(t, err, "identity provider is required")
	_, err = auth.NewService(users, hasher, tokens, idp, nil)
	assert.ErrorContains(t, err, "profile provisioner is required")
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	email := auth.MustEmail("a@x.com")

	t.Run("success returns token pair", func(t *testing.T) {
		m := newServiceMocks(t)
		user := newLocalUser(t, "a@x.com", auth.RoleCandidate)
		m.users.On("GetByEmail", ctx, email).Return(user, nil)
		m.hasher.On("Compare", ctx, "Passw0rd", testHash).Return(true, nil)
		m.hasher.On("NeedsUpgrade", testHash).Return(false)
		m.tokens.On("IssuePair", user.ID(), auth.RoleCandidate).Return(testPair, nil)

		result, err := m.svc.Login(ctx, "A@x.com", "Passw0rd")
		require.NoError(t, err)
		assert.Equal(t, user.ID().String(), result.User.ID)
		assert.Equal(t, testPair, result.Tokens)
		assert.False(t, result.Created)
	})

	t.Run("unknown email still compares against dummy hash", func(t *testing.T) {
		m := newServiceMocks(t)
		m.users.On("GetByEmail", ctx, email).Return(nil, auth.ErrNotFound)
		m.hasher.On("Compare", ctx, "Passw0rd", mock.AnythingOfType("string")).Return(false, nil)

		_, err := m.svc.Login(ctx, "a@x.com", "Passw0rd")
		require.Error(t, err)
		assert.Equal(t, auth.CodeInvalidCredentials, auth.Code(err))
	})

	t.Run("wrong password gives the same error as unknown email", func(t *testing.T) {
		m := newServiceMocks(t)
		user := newLocalUser(t, "a@x.com", auth.RoleCandidate)
		m.users.On("GetByEmail", ctx, email).Return(user, nil)
		m.hasher.On("Compare", ctx, "Wr0ngPass", testHash).Return(false, nil)

		_, err := m.svc.Login(ctx, "a@x.com", "Wr0ngPass")
		require.Error(t, err)
		assert.Equal(t, auth.CodeInvalidCredentials, auth.Code(err))
		assert.Equal(t, "invalid email or password", oopsMessage(err))
	})

	t.Run("deactivated account fails even with correct password", func(t *testing.T) {
		m := newServiceMocks(t)
		user := newLocalUser(t, "a@x.com", auth.RoleCandidate).Deactivate()
		m.users.On("GetByEmail", ctx, email).Return(user, nil)

		_, err := m.svc.Login(ctx, "a@x.com", "Passw0rd")
		assert.Equal(t, auth.CodeAccountDeactivated, auth.Code(err))
		m.tokens.AssertNotCalled(t, "IssuePair", mock.Anything, mock.Anything)
	})

	t.Run("google account cannot log in with a password", func(t *testing.T) {
		m := newServiceMocks(t)
		user := newGoogleUser(t, "a@x.com", auth.RoleCandidate, "sub")
		m.users.On("GetByEmail", ctx, email).Return(user, nil)
		m.hasher.On("Compare", ctx, "Passw0rd", mock.AnythingOfType("string")).Return(false, nil)

		_, err := m.svc.Login(ctx, "a@x.com", "Passw0rd")
		assert.Equal(t, auth.CodeInvalidCredentials, auth.Code(err))
	})

	t.Run("malformed input is a validation error", func(t *testing.T) {
		m := newServiceMocks(t)
		_, err := m.svc.Login(ctx, "not-an-email", "Passw0rd")
		assert.Equal(t, auth.CodeValidation, auth.Code(err))
		_, err = m.svc.Login(ctx, "a@x.com", "short")
		assert.Equal(t, auth.CodeValidation, auth.Code(err))
	})

	t.Run("repository failure is not invalid credentials", func(t *testing.T) {
		m := newServiceMocks(t)
		m.users.On("GetByEmail", ctx, email).Return(nil, errors.New("db down"))

		_, err := m.svc.Login(ctx, "a@x.com", "Passw0rd")
		assert.Equal(t, "AUTH_LOGIN_FAILED", auth.Code(err))
	})

	t.Run("outdated hash is upgraded", func(t *testing.T) {
		m := newServiceMocks(t)
		user := newLocalUser(t, "a@x.com", auth.RoleCandidate)
		m.users.On("GetByEmail", ctx, email).Return(user, nil)
		m.hasher.On("Compare", ctx, "Passw0rd", testHash).Return(true, nil)
		m.hasher.On("NeedsUpgrade", testHash).Return(true)
		m.hasher.On("Hash", ctx, "Passw0rd").Return("upgraded", nil)
		m.users.On("Update", ctx, mock.MatchedBy(func(u *auth.User) bool {
			h, _ := u.PasswordHash()
			return h == "upgraded"
		})).Return(nil)
		m.tokens.On("IssuePair", user.ID(), auth.RoleCandidate).Return(testPair, nil)

		_, err := m.svc.Login(ctx, "a@x.com", "Passw0rd")
		require.NoError(t, err)
	})

	t.Run("failed hash upgrade does not fail login", func(t *testing.T) {
		m := newServiceMocks(t)
		user := newLocalUser(t, "a@x.com", auth.RoleCandidate)
		m.users.On("GetByEmail", ctx, email).Return(user, nil)
		m.hasher.On("Compare", ctx, "Passw0rd", testHash).Return(true, nil)
		m.hasher.On("NeedsUpgrade", testHash).Return(true)
		m.hasher.On("Hash", ctx, "Passw0rd").Return("upgraded", nil)
		m.users.On("Update", ctx, mock.AnythingOfType("*auth.User")).Return(errors.New("db down"))
		m.tokens.On("IssuePair", user.ID(), auth.RoleCandidate).Return(testPair, nil)

		_, err := m.svc.Login(ctx, "a@x.com", "Passw0rd")
		require.NoError(t, err)
	})
}

func oopsMessage(err error) string {
	if o, ok := oops.AsOops(err); ok {
		return o.Error()
	}
	return err.Error()
}

func TestService_GoogleLogin(t *testing.T) {
	ctx := context.Background()
	email := auth.MustEmail("g@x.com")
	identity := &auth.FederatedIdentity{Email: "G@x.com", Subject: "sub-1", DisplayName: "Grace Hopper"}

	t.Run("new user without role requires role", func(t *testing.T) {
		m := newServiceMocks(t)
		m.idp.On("Verify", ctx, "cred").Return(identity, nil)
		m.users.On("GetByEmail", ctx, email).Return(nil, auth.ErrNotFound)

		_, err := m.svc.GoogleLogin(ctx, "cred", "")
		assert.Equal(t, auth.CodeRoleRequired, auth.Code(err))
	})

	t.Run("new user with role is created with profile", func(t *testing.T) {
		m := newServiceMocks(t)
		m.idp.On("Verify", ctx, "cred").Return(identity, nil)
		m.users.On("GetByEmail", ctx, email).Return(nil, auth.ErrNotFound)
		m.users.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool {
			gid, ok := u.GoogleID()
			_, hasHash := u.PasswordHash()
			return ok && gid.String() == "sub-1" && !hasHash && u.FullName() == "Grace Hopper"
		})).Return(nil)
		m.profiles.On("CreateRecruiterProfile", ctx, mock.AnythingOfType("ulid.ULID")).Return(nil)
		m.tokens.On("IssuePair", mock.AnythingOfType("ulid.ULID"), auth.RoleRecruiter).Return(testPair, nil)

		result, err := m.svc.GoogleLogin(ctx, "cred", "recruiter")
		require.NoError(t, err)
		assert.True(t, result.Created)
		assert.Equal(t, auth.ProviderGoogle, result.User.AuthProvider)
		assert.Equal(t, "g@x.com", result.User.Email)
	})

	t.Run("display name falls back to email local part", func(t *testing.T) {
		m := newServiceMocks(t)
		m.idp.On("Verify", ctx, "cred").Return(&auth.FederatedIdentity{Email: "g@x.com", Subject: "sub-1"}, nil)
		m.users.On("GetByEmail", ctx, email).Return(nil, auth.ErrNotFound)
		m.users.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool { return u.FullName() == "g" })).Return(nil)
		m.profiles.On("CreateCandidateProfile", ctx, mock.AnythingOfType("ulid.ULID")).Return(nil)
		m.tokens.On("IssuePair", mock.AnythingOfType("ulid.ULID"), auth.RoleCandidate).Return(testPair, nil)

		_, err := m.svc.GoogleLogin(ctx, "cred", "candidate")
		require.NoError(t, err)
	})

	t.Run("existing local account is already registered regardless of role", func(t *testing.T) {
		for _, role := range []string{"", "candidate", "recruiter", "admin", "manager"} {
			m := newServiceMocks(t)
			m.idp.On("Verify", ctx, "cred").Return(identity, nil)
			m.users.On("GetByEmail", ctx, email).Return(newLocalUser(t, "g@x.com", auth.RoleCandidate), nil)

			_, err := m.svc.GoogleLogin(ctx, "cred", role)
			assert.Equal(t, auth.CodeAlreadyRegistered, auth.Code(err), "role %q", role)
		}
	})

	t.Run("existing federated account with different role", func(t *testing.T) {
		m := newServiceMocks(t)
		m.idp.On("Verify", ctx, "cred").Return(identity, nil)
		m.users.On("GetByEmail", ctx, email).Return(newGoogleUser(t, "g@x.com", auth.RoleCandidate, "sub-1"), nil)

		_, err := m.svc.GoogleLogin(ctx, "cred", "recruiter")
		assert.Equal(t, auth.CodeRoleMismatch, auth.Code(err))
	})

	t.Run("role mismatch is checked before deactivation", func(t *testing.T) {
		m := newServiceMocks(t)
		m.idp.On("Verify", ctx, "cred").Return(identity, nil)
		user := newGoogleUser(t, "g@x.com", auth.RoleCandidate, "sub-1").Deactivate()
		m.users.On("GetByEmail", ctx, email).Return(user, nil)

		_, err := m.svc.GoogleLogin(ctx, "cred", "recruiter")
		assert.Equal(t, auth.CodeRoleMismatch, auth.Code(err))
	})

	t.Run("deactivated federated account", func(t *testing.T) {
		m := newServiceMocks(t)
		m.idp.On("Verify", ctx, "cred").Return(identity, nil)
		user := newGoogleUser(t, "g@x.com", auth.RoleCandidate, "sub-1").Deactivate()
		m.users.On("GetByEmail", ctx, email).Return(user, nil)

		_, err := m.svc.GoogleLogin(ctx, "cred", "")
		assert.Equal(t, auth.CodeAccountDeactivated, auth.Code(err))
	})

	t.Run("existing federated account is reused", func(t *testing.T) {
		m := newServiceMocks(t)
		m.idp.On("Verify", ctx, "cred").Return(identity, nil)
		user := newGoogleUser(t, "g@x.com", auth.RoleCandidate, "sub-1")
		m.users.On("GetByEmail", ctx, email).Return(user, nil)
		m.tokens.On("IssuePair", user.ID(), auth.RoleCandidate).Return(testPair, nil)

		result, err := m.svc.GoogleLogin(ctx, "cred", "candidate")
		require.NoError(t, err)
		assert.False(t, result.Created)
		assert.Equal(t, user.ID().String(), result.User.ID)
		m.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("subject mismatch is rejected", func(t *testing.T) {
		m := newServiceMocks(t)
		m.idp.On("Verify", ctx, "cred").Return(identity, nil)
		m.users.On("GetByEmail", ctx, email).Return(newGoogleUser(t, "g@x.com", auth.RoleCandidate, "other-sub"), nil)

		_, err := m.svc.GoogleLogin(ctx, "cred", "")
		assert.Equal(t, auth.CodeInvalidFederatedToken, auth.Code(err))
	})

	t.Run("provider rejection collapses to invalid federated token", func(t *testing.T) {
		m := newServiceMocks(t)
		m.idp.On("Verify", ctx, "cred").Return(nil, errors.New("bad signature"))

		_, err := m.svc.GoogleLogin(ctx, "cred", "candidate")
		assert.Equal(t, auth.CodeInvalidFederatedToken, auth.Code(err))
	})

	t.Run("provider outage keeps its code", func(t *testing.T) {
		m := newServiceMocks(t)
		m.idp.On("Verify", ctx, "cred").Return(nil, oops.Code("IDP_UNAVAILABLE").Errorf("timeout"))

		_, err := m.svc.GoogleLogin(ctx, "cred", "candidate")
		assert.Equal(t, "IDP_UNAVAILABLE", auth.Code(err))
	})

	t.Run("empty credential", func(t *testing.T) {
		m := newServiceMocks(t)
		_, err := m.svc.GoogleLogin(ctx, " ", "candidate")
		assert.Equal(t, auth.CodeInvalidFederatedToken, auth.Code(err))
	})

	t.Run("admin role cannot sign up", func(t *testing.T) {
		for _, role := range []string{"admin", "manager"} {
			m := newServiceMocks(t)
			m.idp.On("Verify", ctx, "cred").Return(identity, nil)
			m.users.On("GetByEmail", ctx, email).Return(nil, auth.ErrNotFound)

			_, err := m.svc.GoogleLogin(ctx, "cred", role)
			assert.Equal(t, auth.CodeValidation, auth.Code(err), "role %q", role)
			m.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		}
	})

	t.Run("unknown role for existing federated account", func(t *testing.T) {
		m := newServiceMocks(t)
		m.idp.On("Verify", ctx, "cred").Return(identity, nil)
		m.users.On("GetByEmail", ctx, email).Return(newGoogleUser(t, "g@x.com", auth.RoleCandidate, "sub-1"), nil)

		_, err := m.svc.GoogleLogin(ctx, "cred", "manager")
		assert.Equal(t, auth.CodeValidation, auth.Code(err))
	})

	t.Run("long display name is cut on a rune boundary", func(t *testing.T) {
		m := newServiceMocks(t)
		long := "a" + strings.Repeat("é", auth.MaxFullNameLength)
		m.idp.On("Verify", ctx, "cred").Return(&auth.FederatedIdentity{Email: "g@x.com", Subject: "sub-1", DisplayName: long}, nil)
		m.users.On("GetByEmail", ctx, email).Return(nil, auth.ErrNotFound)
		m.users.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return utf8.ValidString(u.FullName()) && len(u.FullName()) <= auth.MaxFullNameLength
		})).Return(nil)
		m.profiles.On("CreateCandidateProfile", ctx, mock.AnythingOfType("ulid.ULID")).Return(nil)
		m.tokens.On("IssuePair", mock.AnythingOfType("ulid.ULID"), auth.RoleCandidate).Return(testPair, nil)

		result, err := m.svc.GoogleLogin(ctx, "cred", "candidate")
		require.NoError(t, err)
		assert.Equal(t, auth.MaxFullNameLength-1, len(result.User.FullName))
	})

	t.Run("provisioning failure compensates", func(t *testing.T) {
		m := newServiceMocks(t)
		m.idp.On("Verify", ctx, "cred").Return(identity, nil)
		m.users.On("GetByEmail", ctx, email).Return(nil, auth.ErrNotFound)
		m.users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(nil)
		m.profiles.On("CreateCandidateProfile", ctx, mock.AnythingOfType("ulid.ULID")).Return(errors.New("down"))
		m.users.On("Delete", ctx, mock.AnythingOfType("ulid.ULID")).Return(nil)

		_, err := m.svc.GoogleLogin(ctx, "cred", "candidate")
		assert.Equal(t, auth.CodeProvisioningFailed, auth.Code(err))
	})
}

func TestService_RefreshAccessToken(t *testing.T) {
	ctx := context.Background()

	t.Run("issues access token with current role", func(t *testing.T) {
		m := newServiceMocks(t)
		user := newLocalUser(t, "a@x.com", auth.RoleRecruiter)
		access := auth.IssuedToken{Token: "new-access"}
		m.tokens.On("VerifyRefresh", "refresh").Return(user.ID(), nil)
		m.users.On("GetByID", ctx, user.ID()).Return(user, nil)
		m.tokens.On("IssueAccess", user.ID(), auth.RoleRecruiter).Return(access, nil)

		got, err := m.svc.RefreshAccessToken(ctx, "refresh")
		require.NoError(t, err)
		assert.Equal(t, access, got)
	})

	t.Run("invalid refresh token", func(t *testing.T) {
		m := newServiceMocks(t)
		m.tokens.On("VerifyRefresh", "bad").
			Return(ulid.ULID{}, oops.Code(auth.CodeTokenInvalid).Errorf("refresh token is invalid"))

		_, err := m.svc.RefreshAccessToken(ctx, "bad")
		assert.Equal(t, auth.CodeTokenInvalid, auth.Code(err))
	})

	t.Run("deleted user", func(t *testing.T) {
		m := newServiceMocks(t)
		id := ulid.Make()
		m.tokens.On("VerifyRefresh", "refresh").Return(id, nil)
		m.users.On("GetByID", ctx, id).Return(nil, auth.ErrNotFound)

		_, err := m.svc.RefreshAccessToken(ctx, "refresh")
		assert.Equal(t, auth.CodeTokenInvalid, auth.Code(err))
	})

	t.Run("deactivated user", func(t *testing.T) {
		m := newServiceMocks(t)
		user := newLocalUser(t, "a@x.com", auth.RoleCandidate).Deactivate()
		m.tokens.On("VerifyRefresh", "refresh").Return(user.ID(), nil)
		m.users.On("GetByID", ctx, user.ID()).Return(user, nil)

		_, err := m.svc.RefreshAccessToken(ctx, "refresh")
		assert.Equal(t, auth.CodeAccountDeactivated, auth.Code(err))
	})
}
