// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// OTP configuration.
const (
	OTPCodeLength = 6
	OTPExpiry     = 10 * time.Minute
)

// OTPPurpose scopes a challenge. A code issued for one purpose never
// verifies for another.
type OTPPurpose string

// Registration purposes carry the role the user is signing up for.
const (
	PurposeRegisterCandidate OTPPurpose = "register:candidate"
	PurposeRegisterRecruiter OTPPurpose = "register:recruiter"
)

// RegistrationPurpose returns the OTP purpose for signing up with role.
func RegistrationPurpose(role Role) (OTPPurpose, error) {
	switch role {
	case RoleCandidate:
		return PurposeRegisterCandidate, nil
	case RoleRecruiter:
		return PurposeRegisterRecruiter, nil
	default:
		return "", validationError("role", "role %q cannot self-register", role)
	}
}

// OTPChallenge is a pending one-time passcode. Only the keyed hash of the
// code is stored.
type OTPChallenge struct {
	ID        ulid.ULID
	Email     Email
	Purpose   OTPPurpose
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewOTPChallenge creates a validated OTPChallenge instance.
func NewOTPChallenge(email Email, purpose OTPPurpose, codeHash string, createdAt, expiresAt time.Time) (*OTPChallenge, error) {
	if email.IsZero() {
		return nil, oops.Code("OTP_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if purpose == "" {
		return nil, oops.Code("OTP_INVALID_PURPOSE").Errorf("purpose cannot be empty")
	}
	if codeHash == "" {
		return nil, oops.Code("OTP_INVALID_HASH").Errorf("code hash cannot be empty")
	}
	if !expiresAt.After(createdAt) {
		return nil, oops.Code("OTP_INVALID_EXPIRY").Errorf("expiry must be after creation")
	}
	return &OTPChallenge{
		ID:        ulid.Make(),
		Email:     email,
		Purpose:   purpose,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}

// IsExpiredAt reports whether the challenge is past its expiry at now.
func (c *OTPChallenge) IsExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// OTPRepository stores pending challenges. Implementations keep at most one
// challenge per (email, purpose).
type OTPRepository interface {
	// Replace stores challenge, atomically superseding any challenge for the
	// same email and purpose.
	Replace(ctx context.Context, challenge *OTPChallenge) error

	// Get retrieves the challenge for email and purpose.
	// Returns ErrNotFound if there is none.
	Get(ctx context.Context, email Email, purpose OTPPurpose) (*OTPChallenge, error)

	// Consume deletes challenge if it is still the stored one.
	// Returns ErrNotFound if it was already consumed or superseded.
	Consume(ctx context.Context, challenge *OTPChallenge) error

	// DeleteExpired removes all challenges expired at now and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// OTPChannel delivers a plaintext code out-of-band.
type OTPChannel interface {
	DeliverOTP(ctx context.Context, email Email, code string, purpose OTPPurpose) error
}

// GenerateOTPCode returns a uniformly random numeric code of the given length.
func GenerateOTPCode(length int) (string, error) {
	if length <= 0 {
		return "", oops.Code("OTP_GENERATE_FAILED").Errorf("code length must be positive")
	}
	var b strings.Builder
	b.Grow(length)
	ten := big.NewInt(10)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", oops.Code("OTP_GENERATE_FAILED").Wrap(err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// HashOTPCode computes the keyed hash stored for a code. Binding email and
// purpose into the MAC keeps a leaked hash from verifying in another scope.
func HashOTPCode(secret []byte, email Email, purpose OTPPurpose, code string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(purpose))
	mac.Write([]byte{0})
	mac.Write([]byte(email.String()))
	mac.Write([]byte{0})
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyOTPCode checks code against a stored hash in constant time.
func VerifyOTPCode(secret []byte, email Email, purpose OTPPurpose, code, hash string) bool {
	if code == "" || hash == "" {
		return false
	}
	computed := HashOTPCode(secret, email, purpose, code)
	return hmac.Equal([]byte(computed), []byte(hash))
}
