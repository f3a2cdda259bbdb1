// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"crypto/subtle"
	"log/slog"
	"unicode"
	"unicode/utf8"
)

// Password policy.
const (
	MinPasswordLength   = 8
	MaxPasswordBytes    = 72 // bcrypt ceiling, kept so digests stay portable
	passwordPlaceholder = "********"
)

// Password carries a validated plaintext from the request boundary to the
// hasher. It is never persisted and masks itself when printed or logged.
type Password struct {
	value string
}

// NewPassword validates raw against the strength policy: at least
// MinPasswordLength characters with an uppercase letter, a lowercase letter
// and a digit.
func NewPassword(raw string) (Password, error) {
	if utf8.RuneCountInString(raw) < MinPasswordLength {
		return Password{}, validationError("password", "password must be at least %d characters", MinPasswordLength)
	}
	if len(raw) > MaxPasswordBytes {
		return Password{}, validationError("password", "password must be at most %d bytes", MaxPasswordBytes)
	}

	var upper, lower, digit bool
	for _, r := range raw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return Password{}, validationError("password", "password must contain an uppercase letter")
	}
	if !lower {
		return Password{}, validationError("password", "password must contain a lowercase letter")
	}
	if !digit {
		return Password{}, validationError("password", "password must contain a digit")
	}
	return Password{value: raw}, nil
}

// Reveal returns the plaintext for hashing or comparison.
func (p Password) Reveal() string {
	return p.value
}

// Matches compares p with a raw plaintext in constant time.
func (p Password) Matches(raw string) bool {
	return subtle.ConstantTimeCompare([]byte(p.value), []byte(raw)) == 1
}

// String masks the plaintext.
func (p Password) String() string {
	return passwordPlaceholder
}

// LogValue masks the plaintext in structured logs.
func (p Password) LogValue() slog.Value {
	return slog.StringValue(passwordPlaceholder)
}
