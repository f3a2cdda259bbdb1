// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// FederatedIdentity is what an external identity provider vouches for.
type FederatedIdentity struct {
	Email       string
	Subject     string
	DisplayName string
}

// IdentityProvider verifies a credential issued by an external provider.
// Rejected credentials are reported with CodeInvalidFederatedToken; outages
// carry a distinct code so callers can retry.
type IdentityProvider interface {
	Verify(ctx context.Context, credential string) (*FederatedIdentity, error)
}

// ProfileProvisioner creates the role-specific profile of a new user.
// Implementations must be idempotent.
type ProfileProvisioner interface {
	CreateCandidateProfile(ctx context.Context, userID ulid.ULID) error
	CreateRecruiterProfile(ctx context.Context, userID ulid.ULID) error
}

// ResetChannel delivers a password reset token out-of-band.
type ResetChannel interface {
	DeliverPasswordReset(ctx context.Context, email Email, token IssuedToken) error
}
