// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Option configures the use case services.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for best-effort and unexpected failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// OTPProtocol is the OTP capability the registration flow depends on.
// OTPService implements it.
type OTPProtocol interface {
	Create(ctx context.Context, email Email, purpose OTPPurpose) error
	Verify(ctx context.Context, email Email, code string, purpose OTPPurpose) error
}

// TokenIssuer is the token capability the use cases depend on.
// TokenService implements it.
type TokenIssuer interface {
	IssuePair(userID ulid.ULID, role Role) (TokenPair, error)
	IssueAccess(userID ulid.ULID, role Role) (IssuedToken, error)
	IssuePasswordReset(userID ulid.ULID) (IssuedToken, error)
	VerifyRefresh(raw string) (ulid.ULID, error)
	VerifyPasswordReset(raw string) (ulid.ULID, error)
}

// AuthResult is returned by successful authentication.
type AuthResult struct {
	User    UserView  `json:"user"`
	Tokens  TokenPair `json:"tokens"`
	Created bool      `json:"created"`
}

func parseFullName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", validationError("full_name", "full name cannot be empty")
	}
	if len(name) > MaxFullNameLength {
		return "", validationError("full_name", "full name must be at most %d characters", MaxFullNameLength)
	}
	return name, nil
}

func parseSelfServiceRole(raw string) (Role, error) {
	role, err := ParseRole(raw)
	if err != nil {
		return "", err
	}
	if !role.SelfService() {
		return "", validationError("role", "role %q cannot self-register", role)
	}
	return role, nil
}

// emailTaken reports whether a user with email exists.
func emailTaken(ctx context.Context, users UserRepository, email Email) (bool, error) {
	_, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// createWithProfile persists user and provisions its role-specific profile
// as one unit: a provisioning failure deletes the user again.
func createWithProfile(ctx context.Context, users UserRepository, profiles ProfileProvisioner, logger *slog.Logger, user *User) error {
	if err := users.Create(ctx, user); err != nil {
		if HasCode(err, CodeAlreadyRegistered) {
			return err
		}
		return oops.Code("AUTH_USER_CREATE_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	var err error
	switch user.Role() {
	case RoleCandidate:
		err = profiles.CreateCandidateProfile(ctx, user.ID())
	case RoleRecruiter:
		err = profiles.CreateRecruiterProfile(ctx, user.ID())
	}
	if err == nil {
		return nil
	}

	if delErr := users.Delete(ctx, user.ID()); delErr != nil {
		logger.ErrorContext(ctx, "compensating user delete failed",
			"operation", "compensate_provisioning",
			"user_id", user.ID().String(),
			"error", delErr.Error())
	}
	return oops.Code(CodeProvisioningFailed).
		With("user_id", user.ID().String()).
		With("role", string(user.Role())).
		With("cause", err.Error()).
		Errorf("profile provisioning failed")
}
