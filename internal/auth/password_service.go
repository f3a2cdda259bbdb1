// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/hireline/hireline/pkg/errutil"
)

// Operation names used for metrics.
const (
	OpForgotPassword = "forgot_password"
	OpResetPassword  = "reset_password"
	OpUpdatePassword = "update_password"
)

// PasswordService handles forgotten, reset and changed passwords of local
// users.
type PasswordService struct {
	users   UserRepository
	hasher  PasswordHasher
	tokens  TokenIssuer
	channel ResetChannel
	logger  *slog.Logger
}

// NewPasswordService creates a new PasswordService.
func NewPasswordService(
	users UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	channel ResetChannel,
	opts ...Option,
) (*PasswordService, error) {
	if users == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("token issuer is required")
	}
	if channel == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("reset channel is required")
	}
	o := applyOptions(opts)
	return &PasswordService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		channel: channel,
		logger:  o.logger,
	}, nil
}

// ForgotPassword issues a reset token and delivers it to the user. Malformed
// and unknown emails succeed silently so callers cannot probe for accounts.
func (s *PasswordService) ForgotPassword(ctx context.Context, rawEmail string) (err error) {
	defer func() { recordOperation(OpForgotPassword, err) }()

	email, err := NewEmail(rawEmail)
	if err != nil {
		return nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		errutil.LogError(s.logger, "forgot password lookup failed", err)
		return oops.Code("AUTH_PASSWORD_RESET_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	if !user.AuthProvider().IsLocal() {
		return oops.Code(CodeUnsupportedOperation).
			With("operation", "forgot password").
			With("auth_provider", string(user.AuthProvider())).
			Errorf("password reset is only available for password accounts")
	}

	token, err := s.tokens.IssuePasswordReset(user.ID())
	if err != nil {
		return oops.Code("AUTH_PASSWORD_RESET_FAILED").
			With("operation", "issue reset token").
			Wrap(err)
	}
	if err := s.channel.DeliverPasswordReset(ctx, user.Email(), token); err != nil {
		return oops.Code("AUTH_PASSWORD_RESET_FAILED").
			With("operation", "deliver reset token").
			With("user_id", user.ID().String()).
			Wrap(err)
	}
	return nil
}

// ResetPassword sets a new password for the subject of a reset token.
func (s *PasswordService) ResetPassword(ctx context.Context, resetToken, rawPassword string) (err error) {
	defer func() { recordOperation(OpResetPassword, err) }()

	next, err := NewPassword(rawPassword)
	if err != nil {
		return err
	}
	userID, err := s.tokens.VerifyPasswordReset(resetToken)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeTokenInvalid).
				With("kind", TokenPasswordReset).
				Errorf("reset token subject no longer exists")
		}
		return oops.Code("AUTH_PASSWORD_RESET_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	updated, err := user.ResetPassword(ctx, next, s.hasher)
	if err != nil {
		return err
	}
	if err := s.users.Update(ctx, updated); err != nil {
		errutil.LogError(s.logger, "persisting reset password failed", err)
		return oops.Code("AUTH_PASSWORD_RESET_FAILED").
			With("operation", "update user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	s.logger.InfoContext(ctx, "password reset", "user_id", userID.String())
	return nil
}

// UpdatePassword changes the password of an authenticated user after
// checking the current one.
func (s *PasswordService) UpdatePassword(ctx context.Context, userID ulid.ULID, current, rawNext string) (err error) {
	defer func() { recordOperation(OpUpdatePassword, err) }()

	next, err := NewPassword(rawNext)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_USER_NOT_FOUND").
				With("user_id", userID.String()).
				Wrap(err)
		}
		return oops.Code("AUTH_PASSWORD_UPDATE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}
	if !user.CanLogin() {
		return oops.Code(CodeAccountDeactivated).
			With("user_id", userID.String()).
			Errorf("account is deactivated")
	}

	updated, err := user.UpdatePassword(ctx, current, next, s.hasher)
	if err != nil {
		return err
	}
	if err := s.users.Update(ctx, updated); err != nil {
		errutil.LogError(s.logger, "persisting updated password failed", err)
		return oops.Code("AUTH_PASSWORD_UPDATE_FAILED").
			With("operation", "update user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}
