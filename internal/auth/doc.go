// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

// Package auth implements identity and credential lifecycle management for
// Hireline.
//
// # Domain Types
//
// Value objects validate on construction and are valid for their lifetime:
//   - NewEmail - trimmed, lower-cased address
//   - NewPassword - transient plaintext meeting the strength policy
//   - NewGoogleID - federated subject identifier
//   - ParseRole, ParseAuthProvider - closed tags
//
// The User aggregate is created with Register or RegisterWithGoogle and loaded
// from storage with Rehydrate. All three re-check the provider invariants.
// Behavior methods (UpdatePassword, ResetPassword, UpdateEmail, ...) return a
// new User and never mutate the receiver.
//
// # Services
//
//   - OTPService - one-time passcode issuance and single-use verification
//   - TokenService - access, refresh and password-reset tokens
//   - RegistrationService - OTP registration and admin bootstrap
//   - Service - login, Google login, access token refresh
//   - PasswordService - forgot, reset and update password
//
// Services are created with New*Service constructors that validate dependencies.
package auth
