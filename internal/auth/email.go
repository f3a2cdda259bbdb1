// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"regexp"
	"strings"
)

// MaxEmailLength is the longest address accepted (RFC 5321 path limit).
const MaxEmailLength = 254

// emailRegex matches local@domain.tld with non-empty domain labels.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@.]+(\.[^\s@.]+)+$`)

// Email is a normalized email address. The zero value is not a valid address.
type Email struct {
	value string
}

// NewEmail trims and lower-cases raw and validates its shape.
func NewEmail(raw string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Email{}, validationError("email", "email cannot be empty")
	}
	if len(normalized) > MaxEmailLength {
		return Email{}, validationError("email", "email must be at most %d characters", MaxEmailLength)
	}
	if !emailRegex.MatchString(normalized) {
		return Email{}, validationError("email", "email must look like name@domain.tld")
	}
	return Email{value: normalized}, nil
}

// MustEmail is NewEmail for constants and tests. It panics on invalid input.
func MustEmail(raw string) Email {
	e, err := NewEmail(raw)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the normalized address.
func (e Email) String() string {
	return e.value
}

// IsZero reports whether e was never constructed.
func (e Email) IsZero() bool {
	return e.value == ""
}

// Domain returns the part after the @.
func (e Email) Domain() string {
	_, domain, _ := strings.Cut(e.value, "@")
	return domain
}
