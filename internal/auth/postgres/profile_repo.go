// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package postgres

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/hireline/hireline/internal/auth"
)

// ProfileRepository implements auth.ProfileProvisioner by inserting empty
// profile rows. Inserts are idempotent.
type ProfileRepository struct {
	pool poolIface
}

var _ auth.ProfileProvisioner = (*ProfileRepository)(nil)

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(pool poolIface) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// CreateCandidateProfile creates the candidate profile of userID.
func (r *ProfileRepository) CreateCandidateProfile(ctx context.Context, userID ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO candidate_profiles (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID.String())
	return profileError(err, "candidate", userID)
}

// CreateRecruiterProfile creates the recruiter profile of userID.
func (r *ProfileRepository) CreateRecruiterProfile(ctx context.Context, userID ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO recruiter_profiles (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID.String())
	return profileError(err, "recruiter", userID)
}

func profileError(err error, kind string, userID ulid.ULID) error {
	switch {
	case err == nil:
		return nil
	case isForeignKeyViolation(err):
		return oops.Code("PROFILE_USER_NOT_FOUND").
			With("kind", kind).
			With("user_id", userID.String()).
			Wrap(auth.ErrNotFound)
	default:
		return oops.Code("PROFILE_CREATE_FAILED").
			With("operation", "insert "+kind+" profile").
			With("user_id", userID.String()).
			Wrap(err)
	}
}
