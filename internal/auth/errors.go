// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error codes for caller and input errors. Boundaries map these to responses;
// none of them is retryable.
const (
	CodeValidation            = "AUTH_VALIDATION"
	CodeInvariantViolation    = "AUTH_INVARIANT_VIOLATION"
	CodeInvalidCredentials    = "AUTH_INVALID_CREDENTIALS"
	CodeAccountDeactivated    = "AUTH_ACCOUNT_DEACTIVATED"
	CodeAlreadyRegistered     = "AUTH_ALREADY_REGISTERED"
	CodeRoleMismatch          = "AUTH_ROLE_MISMATCH"
	CodeRoleRequired          = "AUTH_ROLE_REQUIRED"
	CodeUnsupportedOperation  = "AUTH_UNSUPPORTED_OPERATION"
	CodePasswordUnchanged     = "AUTH_PASSWORD_UNCHANGED"
	CodeInvalidFederatedToken = "AUTH_INVALID_FEDERATED_TOKEN"
	CodeProvisioningFailed    = "AUTH_PROVISIONING_FAILED"

	CodeOTPNotFound    = "OTP_NOT_FOUND"
	CodeOTPExpired     = "OTP_EXPIRED"
	CodeOTPInvalid     = "OTP_INVALID"
	CodeOTPRateLimited = "OTP_RATE_LIMITED"

	CodeTokenInvalid = "TOKEN_INVALID"
	CodeTokenExpired = "TOKEN_EXPIRED"
)

// Code returns the oops error code carried by err, or "" if there is none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// HasCode reports whether err carries the given oops error code.
func HasCode(err error, code string) bool {
	return err != nil && Code(err) == code
}

func validationError(field, format string, args ...any) error {
	return oops.Code(CodeValidation).With("field", field).Errorf(format, args...)
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
}
