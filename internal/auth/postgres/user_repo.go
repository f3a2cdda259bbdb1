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

const userColumns = `id, email, role, full_name, is_active, auth_provider,
	       password_hash, google_id, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

var _ auth.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new user. A duplicate email or Google subject is reported
// with auth.CodeAlreadyRegistered.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	rec := user.Record()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.ID.String(),
		rec.Email,
		rec.Role,
		rec.FullName,
		rec.IsActive,
		rec.AuthProvider,
		nullable(rec.PasswordHash),
		nullable(rec.GoogleID),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if pgErr, ok := isUniqueViolation(err); ok {
		return oops.Code(auth.CodeAlreadyRegistered).
			With("constraint", pgErr.ConstraintName).
			Errorf("email is already registered")
	}
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("id", rec.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email auth.Email) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, nil
}

// Update overwrites the mutable fields of an existing user.
func (r *UserRepository) Update(ctx context.Context, user *auth.User) error {
	rec := user.Record()
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET
			email = $2,
			full_name = $3,
			is_active = $4,
			auth_provider = $5,
			password_hash = $6,
			google_id = $7,
			updated_at = $8
		WHERE id = $1
	`,
		rec.ID.String(),
		rec.Email,
		rec.FullName,
		rec.IsActive,
		rec.AuthProvider,
		nullable(rec.PasswordHash),
		nullable(rec.GoogleID),
		rec.UpdatedAt,
	)
	if pgErr, ok := isUniqueViolation(err); ok {
		return oops.Code(auth.CodeAlreadyRegistered).
			With("constraint", pgErr.ConstraintName).
			With("id", rec.ID.String()).
			Errorf("email is already registered")
	}
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", rec.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", rec.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a user. Profiles are removed by the foreign key cascade.
func (r *UserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").
			With("operation", "delete user").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row and rehydrates it. pgx.ErrNoRows is returned
// unchanged for callers to wrap.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr        string
		email        string
		role         string
		fullName     string
		isActive     bool
		provider     string
		passwordHash *string
		googleID     *string
		createdAt    time.Time
		updatedAt    time.Time
	)
	err := row.Scan(
		&idStr,
		&email,
		&role,
		&fullName,
		&isActive,
		&provider,
		&passwordHash,
		&googleID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with lookup context
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}

	return auth.Rehydrate(auth.UserRecord{
		ID:           id,
		Email:        email,
		Role:         role,
		FullName:     fullName,
		IsActive:     isActive,
		AuthProvider: provider,
		PasswordHash: deref(passwordHash),
		GoogleID:     deref(googleID),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	})
}
