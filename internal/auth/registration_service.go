// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/hireline/hireline/pkg/errutil"
)

// Operation names used for metrics.
const (
	OpSendRegistrationOTP = "send_registration_otp"
	OpVerifyRegistration  = "verify_registration"
	OpCreateAdmin         = "create_admin"
)

// RegisterInput is the raw input of VerifyRegistrationAndCreateUser.
type RegisterInput struct {
	Email    string
	Code     string
	Password string
	FullName string
	Role     string
}

// RegistrationService drives sign-up: OTP proof of email ownership, user
// creation and profile provisioning.
type RegistrationService struct {
	users    UserRepository
	otp      OTPProtocol
	hasher   PasswordHasher
	profiles ProfileProvisioner
	logger   *slog.Logger
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(
	users UserRepository,
	otp OTPProtocol,
	hasher PasswordHasher,
	profiles ProfileProvisioner,
	opts ...Option,
) (*RegistrationService, error) {
	if users == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("user repository is required")
	}
	if otp == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("otp protocol is required")
	}
	if hasher == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("password hasher is required")
	}
	if profiles == nil {
		return nil, oops.Code("SERVICE_INVALID").Errorf("profile provisioner is required")
	}
	o := applyOptions(opts)
	return &RegistrationService{
		users:    users,
		otp:      otp,
		hasher:   hasher,
		profiles: profiles,
		logger:   o.logger,
	}, nil
}

// SendRegistrationOTP issues a registration code unless the email is taken.
func (s *RegistrationService) SendRegistrationOTP(ctx context.Context, rawEmail, rawRole string) (err error) {
	defer func() { recordOperation(OpSendRegistrationOTP, err) }()

	email, err := NewEmail(rawEmail)
	if err != nil {
		return err
	}
	role, err := parseSelfServiceRole(rawRole)
	if err != nil {
		return err
	}
	purpose, err := RegistrationPurpose(role)
	if err != nil {
		return err
	}

	taken, err := emailTaken(ctx, s.users, email)
	if err != nil {
		errutil.LogError(s.logger, "registration lookup failed", err)
		return oops.Code("REGISTRATION_FAILED").With("operation", "get user by email").Wrap(err)
	}
	if taken {
		return oops.Code(CodeAlreadyRegistered).Errorf("email is already registered")
	}

	return s.otp.Create(ctx, email, purpose)
}

// VerifyRegistrationAndCreateUser redeems the registration code and creates
// the local user with its profile. It returns identity only; issuing tokens
// is up to the caller.
func (s *RegistrationService) VerifyRegistrationAndCreateUser(ctx context.Context, in RegisterInput) (view UserView, err error) {
	defer func() { recordOperation(OpVerifyRegistration, err) }()

	email, err := NewEmail(in.Email)
	if err != nil {
		return UserView{}, err
	}
	role, err := parseSelfServiceRole(in.Role)
	if err != nil {
		return UserView{}, err
	}
	password, err := NewPassword(in.Password)
	if err != nil {
		return UserView{}, err
	}
	fullName, err := parseFullName(in.FullName)
	if err != nil {
		return UserView{}, err
	}
	purpose, err := RegistrationPurpose(role)
	if err != nil {
		return UserView{}, err
	}

	if err := s.otp.Verify(ctx, email, in.Code, purpose); err != nil {
		return UserView{}, err
	}

	hash, err := s.hasher.Hash(ctx, password.Reveal())
	if err != nil {
		return UserView{}, oops.Code("REGISTRATION_FAILED").With("operation", "hash password").Wrap(err)
	}

	user, err := Register(email, role, fullName, hash)
	if err != nil {
		return UserView{}, err
	}

	if err := createWithProfile(ctx, s.users, s.profiles, s.logger, user); err != nil {
		return UserView{}, err
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID().String(),
		"role", string(user.Role()))
	return user.View(), nil
}

// CreateAdmin creates an active local admin without OTP. It is meant for
// operator tooling, not for public endpoints.
func (s *RegistrationService) CreateAdmin(ctx context.Context, rawEmail, rawFullName, rawPassword string) (view UserView, err error) {
	defer func() { recordOperation(OpCreateAdmin, err) }()

	email, err := NewEmail(rawEmail)
	if err != nil {
		return UserView{}, err
	}
	password, err := NewPassword(rawPassword)
	if err != nil {
		return UserView{}, err
	}
	fullName, err := parseFullName(rawFullName)
	if err != nil {
		return UserView{}, err
	}

	hash, err := s.hasher.Hash(ctx, password.Reveal())
	if err != nil {
		return UserView{}, oops.Code("REGISTRATION_FAILED").With("operation", "hash password").Wrap(err)
	}
	user, err := Register(email, RoleAdmin, fullName, hash)
	if err != nil {
		return UserView{}, err
	}
	if err := createWithProfile(ctx, s.users, s.profiles, s.logger, user); err != nil {
		return UserView{}, err
	}
	return user.View(), nil
}
