// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"strings"
)

// AuthProvider is the identity source of a user.
type AuthProvider string

// Supported providers.
const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

// ParseAuthProvider converts a stored or supplied tag into an AuthProvider.
func ParseAuthProvider(raw string) (AuthProvider, error) {
	switch p := AuthProvider(raw); p {
	case ProviderLocal, ProviderGoogle:
		return p, nil
	default:
		return "", validationError("auth_provider", "unknown auth provider %q", raw)
	}
}

// IsLocal reports whether the user authenticates with a locally held password.
func (p AuthProvider) IsLocal() bool { return p == ProviderLocal }

// IsGoogle reports whether the user authenticates through Google.
func (p AuthProvider) IsGoogle() bool { return p == ProviderGoogle }

// Valid reports whether p is one of the known providers.
func (p AuthProvider) Valid() bool { return p.IsLocal() || p.IsGoogle() }

// Role is the authorization role of a user.
type Role string

// Roles.
const (
	RoleAdmin     Role = "admin"
	RoleRecruiter Role = "recruiter"
	RoleCandidate Role = "candidate"
)

// ParseRole converts raw into a Role. Input is trimmed and lower-cased.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleAdmin, RoleRecruiter, RoleCandidate:
		return r, nil
	default:
		return "", validationError("role", "unknown role %q", raw)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleRecruiter || r == RoleCandidate
}

// SelfService reports whether users may sign up with this role themselves.
func (r Role) SelfService() bool {
	return r == RoleRecruiter || r == RoleCandidate
}

// GoogleID is the immutable subject identifier issued by Google.
type GoogleID struct {
	value string
}

// NewGoogleID wraps a non-empty subject identifier.
func NewGoogleID(raw string) (GoogleID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return GoogleID{}, validationError("google_id", "google id cannot be empty")
	}
	return GoogleID{value: trimmed}, nil
}

// String returns the subject identifier.
func (g GoogleID) String() string { return g.value }

// IsZero reports whether no identifier is set.
func (g GoogleID) IsZero() bool { return g.value == "" }
