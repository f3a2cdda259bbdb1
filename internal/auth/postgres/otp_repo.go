// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/hireline/hireline/internal/auth"
)

// OTPRepository implements auth.OTPRepository using PostgreSQL. The unique
// (email, purpose) index keeps one challenge per pair.
type OTPRepository struct {
	pool poolIface
}

var _ auth.OTPRepository = (*OTPRepository)(nil)

// NewOTPRepository creates a new OTPRepository.
func NewOTPRepository(pool poolIface) *OTPRepository {
	return &OTPRepository{pool: pool}
}

// Replace upserts challenge over any existing one for the same pair.
func (r *OTPRepository) Replace(ctx context.Context, c *auth.OTPChallenge) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO otp_challenges (id, email, purpose, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email, purpose) DO UPDATE SET
			id = EXCLUDED.id,
			code_hash = EXCLUDED.code_hash,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at
	`, c.ID.String(), c.Email.String(), string(c.Purpose), c.CodeHash, c.ExpiresAt, c.CreatedAt)
	if err != nil {
		return oops.Code("OTP_REPLACE_FAILED").
			With("operation", "upsert otp challenge").
			With("purpose", string(c.Purpose)).
			Wrap(err)
	}
	return nil
}

// Get retrieves the challenge for email and purpose.
func (r *OTPRepository) Get(ctx context.Context, email auth.Email, purpose auth.OTPPurpose) (*auth.OTPChallenge, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, code_hash, expires_at, created_at
		FROM otp_challenges
		WHERE email = $1 AND purpose = $2
	`, email.String(), string(purpose))

	var (
		idStr     string
		codeHash  string
		expiresAt time.Time
		createdAt time.Time
	)
	err := row.Scan(&idStr, &codeHash, &expiresAt, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("OTP_CHALLENGE_NOT_FOUND").
			With("purpose", string(purpose)).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("OTP_GET_FAILED").
			With("operation", "get otp challenge").
			With("purpose", string(purpose)).
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("OTP_INVALID_ID").
			With("operation", "parse challenge id").
			With("id", idStr).
			Wrap(err)
	}
	return &auth.OTPChallenge{
		ID:        id,
		Email:     email,
		Purpose:   purpose,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// Consume deletes the challenge by ID. A superseding Replace changes the ID,
// so a stale challenge deletes nothing and reports not found.
func (r *OTPRepository) Consume(ctx context.Context, c *auth.OTPChallenge) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM otp_challenges WHERE id = $1`, c.ID.String())
	if err != nil {
		return oops.Code("OTP_CONSUME_FAILED").
			With("operation", "delete otp challenge").
			With("id", c.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("OTP_CHALLENGE_NOT_FOUND").
			With("id", c.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes challenges expired at now.
func (r *OTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM otp_challenges WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("OTP_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired otp challenges").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}
