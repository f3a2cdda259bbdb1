// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"

	"github.com/hireline/hireline/pkg/errutil"
)

// Operation names used for metrics.
const (
	OpLogin        = "login"
	OpGoogleLogin  = "google_login"
	OpRefreshToken = "refresh_access_token"
)

// dummyPasswordHash is compared against when no usable digest exists so the
// response time does not reveal whether an email is registered.
// It never matches any password.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service authenticates users and issues session tokens.
type Service struct {
	users    UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	idp      IdentityProvider
	profiles ProfileProvisioner
	logger   *slog.Logger
}

// NewService creates a new Service.
func NewService(
	users UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	idp IdentityProvider,
	profiles ProfileProvisioner,
	opts ...Option,
) (*Service, error) {
	if users == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("token issuer is required")
	}
	if idp == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("identity provider is required")
	}
	if profiles == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("profile provisioner is required")
	}
	o := applyOptions(opts)
	return &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		idp:      idp,
		profiles: profiles,
		logger:   o.logger,
	}, nil
}

// Login authenticates a local user by email and password and returns a
// token pair. Unknown emails and wrong passwords yield the same error.
func (s *Service) Login(ctx context.Context, rawEmail, rawPassword string) (result *AuthResult, err error) {
	defer func() { recordOperation(OpLogin, err) }()

	email, err := NewEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	if _, err := NewPassword(rawPassword); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.burnCompare(ctx, rawPassword)
			return nil, invalidCredentials()
		}
		errutil.LogError(s.logger, "login lookup failed", err)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	if !user.CanLogin() {
		return nil, oops.Code(CodeAccountDeactivated).
			With("user_id", user.ID().String()).
			Errorf("account is deactivated")
	}

	if !user.AuthProvider().IsLocal() {
		s.burnCompare(ctx, rawPassword)
		return nil, invalidCredentials()
	}

	ok, err := user.VerifyPassword(ctx, rawPassword, s.hasher)
	if err != nil {
		errutil.LogError(s.logger, "password verification failed", err)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(err)
	}
	if !ok {
		return nil, invalidCredentials()
	}

	user = s.upgradeHash(ctx, user, rawPassword)

	pair, err := s.tokens.IssuePair(user.ID(), user.Role())
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue tokens").
			Wrap(err)
	}
	return &AuthResult{User: user.View(), Tokens: pair}, nil
}

// burnCompare runs a comparison that cannot succeed to keep failure timing
// uniform.
func (s *Service) burnCompare(ctx context.Context, password string) {
	_, _ = s.hasher.Compare(ctx, password, dummyPasswordHash) //nolint:errcheck // result is irrelevant
}

// upgradeHash re-hashes outdated digests. Failures are logged and the login
// proceeds with the existing digest.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) *User {
	upgraded, err := user.UpgradePasswordHash(ctx, password, s.hasher)
	if err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed",
			"operation", "upgrade_hash",
			"user_id", user.ID().String(),
			"error", err.Error())
		return user
	}
	if upgraded == user {
		return user
	}
	if err := s.users.Update(ctx, upgraded); err != nil {
		s.logger.WarnContext(ctx, "persisting upgraded password hash failed",
			"operation", "upgrade_hash",
			"user_id", user.ID().String(),
			"error", err.Error())
		return user
	}
	return upgraded
}

// GoogleLogin authenticates with a Google credential. Unknown identities are
// signed up when rawRole names a self-service role; an empty rawRole means no
// role was supplied. rawRole is only parsed once the account is known, so an
// email registered with a password is reported as such whatever the role.
func (s *Service) GoogleLogin(ctx context.Context, credential, rawRole string) (result *AuthResult, err error) {
	defer func() { recordOperation(OpGoogleLogin, err) }()

	identity, err := s.verifyCredential(ctx, credential)
	if err != nil {
		return nil, err
	}
	email, err := NewEmail(identity.Email)
	if err != nil {
		return nil, oops.Code(CodeInvalidFederatedToken).Errorf("identity provider returned an unusable email")
	}
	googleID, err := NewGoogleID(identity.Subject)
	if err != nil {
		return nil, oops.Code(CodeInvalidFederatedToken).Errorf("identity provider returned an empty subject")
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return s.signUpWithGoogle(ctx, email, googleID, rawRole, identity.DisplayName)
	case err != nil:
		errutil.LogError(s.logger, "google login lookup failed", err)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	if user.AuthProvider().IsLocal() {
		return nil, oops.Code(CodeAlreadyRegistered).Errorf("email is registered with a password")
	}
	if strings.TrimSpace(rawRole) != "" {
		role, err := ParseRole(rawRole)
		if err != nil {
			return nil, err
		}
		if role != user.Role() {
			return nil, oops.Code(CodeRoleMismatch).
				With("user_id", user.ID().String()).
				Errorf("account is registered with a different role")
		}
	}
	if !user.CanLogin() {
		return nil, oops.Code(CodeAccountDeactivated).
			With("user_id", user.ID().String()).
			Errorf("account is deactivated")
	}
	if stored, ok := user.GoogleID(); !ok || stored != googleID {
		return nil, oops.Code(CodeInvalidFederatedToken).
			With("user_id", user.ID().String()).
			Errorf("federated subject does not match the account")
	}

	pair, err := s.tokens.IssuePair(user.ID(), user.Role())
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "issue tokens").Wrap(err)
	}
	return &AuthResult{User: user.View(), Tokens: pair}, nil
}

func (s *Service) verifyCredential(ctx context.Context, credential string) (*FederatedIdentity, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, oops.Code(CodeInvalidFederatedToken).Errorf("credential is empty")
	}
	identity, err := s.idp.Verify(ctx, credential)
	if err != nil {
		if Code(err) != "" {
			return nil, err
		}
		return nil, oops.Code(CodeInvalidFederatedToken).Wrap(err)
	}
	if identity == nil {
		return nil, oops.Code(CodeInvalidFederatedToken).Errorf("identity provider returned no identity")
	}
	return identity, nil
}

func (s *Service) signUpWithGoogle(ctx context.Context, email Email, googleID GoogleID, rawRole, displayName string) (*AuthResult, error) {
	if strings.TrimSpace(rawRole) == "" {
		return nil, oops.Code(CodeRoleRequired).Errorf("role is required to sign up")
	}
	role, err := parseSelfServiceRole(rawRole)
	if err != nil {
		return nil, err
	}

	fullName := strings.TrimSpace(displayName)
	if fullName == "" {
		fullName, _, _ = strings.Cut(email.String(), "@")
	}
	fullName = truncateUTF8(fullName, MaxFullNameLength)

	user, err := RegisterWithGoogle(email, role, fullName, googleID)
	if err != nil {
		return nil, err
	}
	if err := createWithProfile(ctx, s.users, s.profiles, s.logger, user); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user registered via google",
		"user_id", user.ID().String(),
		"role", string(user.Role()))

	pair, err := s.tokens.IssuePair(user.ID(), user.Role())
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "issue tokens").Wrap(err)
	}
	return &AuthResult{User: user.View(), Tokens: pair, Created: true}, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token. The
// refresh token itself is not rotated; the role comes from the current user
// record.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (token IssuedToken, err error) {
	defer func() { recordOperation(OpRefreshToken, err) }()

	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return IssuedToken{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return IssuedToken{}, oops.Code(CodeTokenInvalid).
				With("kind", TokenRefresh).
				Errorf("refresh token subject no longer exists")
		}
		errutil.LogError(s.logger, "refresh lookup failed", err)
		return IssuedToken{}, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}
	if !user.CanLogin() {
		return IssuedToken{}, oops.Code(CodeAccountDeactivated).
			With("user_id", user.ID().String()).
			Errorf("account is deactivated")
	}

	access, err := s.tokens.IssueAccess(user.ID(), user.Role())
	if err != nil {
		return IssuedToken{}, oops.Code("AUTH_REFRESH_FAILED").With("operation", "issue access token").Wrap(err)
	}
	return access, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
