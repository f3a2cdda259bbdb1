// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MaxFullNameLength bounds the display name.
const MaxFullNameLength = 200

// User is the identity aggregate root. Fields are unexported so every
// instance has passed the invariant checks in checkInvariants.
type User struct {
	id           ulid.ULID
	email        Email
	role         Role
	fullName     string
	active       bool
	provider     AuthProvider
	passwordHash string
	googleID     GoogleID
	createdAt    time.Time
	updatedAt    time.Time
}

// UserRecord is the persisted shape of a User. Repositories scan rows into a
// record and call Rehydrate; they write the result of User.Record.
type UserRecord struct {
	ID           ulid.ULID
	Email        string
	Role         string
	FullName     string
	IsActive     bool
	AuthProvider string
	PasswordHash string
	GoogleID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Register creates an active local user from a pre-hashed password.
func Register(email Email, role Role, fullName, passwordHash string) (*User, error) {
	now := time.Now().UTC()
	u := &User{
		id:           ulid.Make(),
		email:        email,
		role:         role,
		fullName:     strings.TrimSpace(fullName),
		active:       true,
		provider:     ProviderLocal,
		passwordHash: passwordHash,
		createdAt:    now,
		updatedAt:    now,
	}
	if err := u.checkInvariants(); err != nil {
		return nil, err
	}
	return u, nil
}

// RegisterWithGoogle creates an active federated user.
func RegisterWithGoogle(email Email, role Role, fullName string, googleID GoogleID) (*User, error) {
	now := time.Now().UTC()
	u := &User{
		id:        ulid.Make(),
		email:     email,
		role:      role,
		fullName:  strings.TrimSpace(fullName),
		active:    true,
		provider:  ProviderGoogle,
		googleID:  googleID,
		createdAt: now,
		updatedAt: now,
	}
	if err := u.checkInvariants(); err != nil {
		return nil, err
	}
	return u, nil
}

// Rehydrate rebuilds a User from storage. The record is trusted but the
// invariants are still enforced so corrupted rows are rejected.
func Rehydrate(rec UserRecord) (*User, error) {
	if rec.ID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code(CodeInvariantViolation).Errorf("user id cannot be zero")
	}
	email, err := NewEmail(rec.Email)
	if err != nil {
		return nil, invariantViolation(rec.ID, err, "stored email is invalid")
	}
	role, err := ParseRole(rec.Role)
	if err != nil {
		return nil, invariantViolation(rec.ID, err, "stored role is invalid")
	}
	provider, err := ParseAuthProvider(rec.AuthProvider)
	if err != nil {
		return nil, invariantViolation(rec.ID, err, "stored auth provider is invalid")
	}

	var googleID GoogleID
	if rec.GoogleID != "" {
		googleID, err = NewGoogleID(rec.GoogleID)
		if err != nil {
			return nil, invariantViolation(rec.ID, err, "stored google id is invalid")
		}
	}

	u := &User{
		id:           rec.ID,
		email:        email,
		role:         role,
		fullName:     strings.TrimSpace(rec.FullName),
		active:       rec.IsActive,
		provider:     provider,
		passwordHash: rec.PasswordHash,
		googleID:     googleID,
		createdAt:    rec.CreatedAt,
		updatedAt:    rec.UpdatedAt,
	}
	if err := u.checkInvariants(); err != nil {
		return nil, err
	}
	return u, nil
}

func invariantViolation(id ulid.ULID, cause error, msg string) error {
	return oops.Code(CodeInvariantViolation).
		With("user_id", id.String()).
		With("cause", cause.Error()).
		Errorf("%s", msg)
}

func (u *User) checkInvariants() error {
	violation := oops.Code(CodeInvariantViolation).With("user_id", u.id.String())

	if u.email.IsZero() {
		return violation.Errorf("email is required")
	}
	if !u.role.Valid() {
		return violation.With("role", string(u.role)).Errorf("role is invalid")
	}
	if u.fullName == "" {
		return violation.Errorf("full name is required")
	}
	if len(u.fullName) > MaxFullNameLength {
		return violation.Errorf("full name must be at most %d characters", MaxFullNameLength)
	}
	switch {
	case u.provider.IsLocal():
		if u.passwordHash == "" {
			return violation.Errorf("local user requires a password hash")
		}
	case u.provider.IsGoogle():
		if u.googleID.IsZero() {
			return violation.Errorf("google user requires a google id")
		}
		if u.passwordHash != "" {
			return violation.Errorf("google user cannot hold a password hash")
		}
	default:
		return violation.With("auth_provider", string(u.provider)).Errorf("auth provider is invalid")
	}
	return nil
}

// ID returns the user identifier.
func (u *User) ID() ulid.ULID { return u.id }

// Email returns the user's email.
func (u *User) Email() Email { return u.email }

// Role returns the user's role.
func (u *User) Role() Role { return u.role }

// FullName returns the display name.
func (u *User) FullName() string { return u.fullName }

// IsActive reports whether the account is enabled.
func (u *User) IsActive() bool { return u.active }

// AuthProvider returns the identity source.
func (u *User) AuthProvider() AuthProvider { return u.provider }

// PasswordHash returns the stored digest and whether one is set.
func (u *User) PasswordHash() (string, bool) { return u.passwordHash, u.passwordHash != "" }

// GoogleID returns the federated subject and whether one is set.
func (u *User) GoogleID() (GoogleID, bool) { return u.googleID, !u.googleID.IsZero() }

// CreatedAt returns the creation time.
func (u *User) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt returns the last modification time.
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// CanLogin reports whether the account may authenticate at all. Credential
// correctness is irrelevant for deactivated accounts.
func (u *User) CanLogin() bool { return u.active }

// VerifyPassword compares candidate with the stored digest. Federated users
// and users without a digest never match.
func (u *User) VerifyPassword(ctx context.Context, candidate string, hasher PasswordHasher) (bool, error) {
	if !u.provider.IsLocal() || u.passwordHash == "" {
		return false, nil
	}
	ok, err := hasher.Compare(ctx, candidate, u.passwordHash)
	if err != nil {
		return false, oops.Code("AUTH_PASSWORD_VERIFY_FAILED").
			With("user_id", u.id.String()).
			Wrap(err)
	}
	return ok, nil
}

// UpdatePassword rotates the password after checking the current one.
// Identical old and new passwords are rejected.
func (u *User) UpdatePassword(ctx context.Context, current string, next Password, hasher PasswordHasher) (*User, error) {
	if err := u.requireLocal("update password"); err != nil {
		return nil, err
	}
	ok, err := u.VerifyPassword(ctx, current, hasher)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, oops.Code(CodeInvalidCredentials).
			With("user_id", u.id.String()).
			Errorf("current password is incorrect")
	}
	if next.Matches(current) {
		return nil, oops.Code(CodePasswordUnchanged).
			With("user_id", u.id.String()).
			Errorf("new password must differ from the current password")
	}
	return u.withNewPassword(ctx, next.Reveal(), hasher)
}

// ResetPassword sets a new password without the current-password check. The
// caller must already have proven identity, e.g. with a reset token.
func (u *User) ResetPassword(ctx context.Context, next Password, hasher PasswordHasher) (*User, error) {
	if err := u.requireLocal("reset password"); err != nil {
		return nil, err
	}
	return u.withNewPassword(ctx, next.Reveal(), hasher)
}

// UpgradePasswordHash re-hashes plaintext when the hasher reports the stored
// digest as outdated. It returns the receiver when no upgrade is needed.
func (u *User) UpgradePasswordHash(ctx context.Context, plaintext string, hasher PasswordHasher) (*User, error) {
	if !u.provider.IsLocal() || !hasher.NeedsUpgrade(u.passwordHash) {
		return u, nil
	}
	return u.withNewPassword(ctx, plaintext, hasher)
}

// UpdateEmail changes the address of a local user. Federated addresses are
// owned by the provider.
func (u *User) UpdateEmail(newEmail Email) (*User, error) {
	if err := u.requireLocal("update email"); err != nil {
		return nil, err
	}
	if newEmail.IsZero() {
		return nil, validationError("email", "email cannot be empty")
	}
	next := u.clone()
	next.email = newEmail
	if err := next.checkInvariants(); err != nil {
		return nil, err
	}
	return next, nil
}

// Deactivate returns a copy that can no longer log in.
func (u *User) Deactivate() *User {
	next := u.clone()
	next.active = false
	return next
}

// Activate returns a copy that may log in again.
func (u *User) Activate() *User {
	next := u.clone()
	next.active = true
	return next
}

// Record returns the persisted shape of u.
func (u *User) Record() UserRecord {
	return UserRecord{
		ID:           u.id,
		Email:        u.email.String(),
		Role:         string(u.role),
		FullName:     u.fullName,
		IsActive:     u.active,
		AuthProvider: string(u.provider),
		PasswordHash: u.passwordHash,
		GoogleID:     u.googleID.String(),
		CreatedAt:    u.createdAt,
		UpdatedAt:    u.updatedAt,
	}
}

func (u *User) requireLocal(operation string) error {
	if u.provider.IsLocal() {
		return nil
	}
	return oops.Code(CodeUnsupportedOperation).
		With("user_id", u.id.String()).
		With("auth_provider", string(u.provider)).
		Errorf("%s is not supported for %s accounts", operation, u.provider)
}

func (u *User) withNewPassword(ctx context.Context, plaintext string, hasher PasswordHasher) (*User, error) {
	hash, err := hasher.Hash(ctx, plaintext)
	if err != nil {
		return nil, oops.Code("AUTH_PASSWORD_HASH_FAILED").
			With("user_id", u.id.String()).
			Wrap(err)
	}
	next := u.clone()
	next.passwordHash = hash
	if err := next.checkInvariants(); err != nil {
		return nil, err
	}
	return next, nil
}

func (u *User) clone() *User {
	c := *u
	c.updatedAt = time.Now().UTC()
	return &c
}

// UserView is the identity returned to callers of the use cases.
type UserView struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Role         Role         `json:"role"`
	FullName     string       `json:"full_name"`
	IsActive     bool         `json:"is_active"`
	AuthProvider AuthProvider `json:"auth_provider"`
}

// View converts u into a UserView.
func (u *User) View() UserView {
	return UserView{
		ID:           u.id.String(),
		Email:        u.email.String(),
		Role:         u.role,
		FullName:     u.fullName,
		IsActive:     u.active,
		AuthProvider: u.provider,
	}
}

// UserRepository manages user persistence. Implementations must enforce a
// unique email and report a violation with CodeAlreadyRegistered.
type UserRepository interface {
	// GetByID retrieves a user. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by normalized email. Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email Email) (*User, error)

	// Create stores a new user.
	Create(ctx context.Context, user *User) error

	// Update overwrites the mutable fields of an existing user.
	Update(ctx context.Context, user *User) error

	// Delete removes a user.
	Delete(ctx context.Context, id ulid.ULID) error
}
