// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// MinOTPSecretLength is the minimum HMAC key size for code hashes.
const MinOTPSecretLength = 32

// DefaultOTPMaxFailedAttempts is how many wrong codes a challenge tolerates.
// The next wrong code withdraws it.
const DefaultOTPMaxFailedAttempts = 5

// OTPService issues and verifies single-use, time-boxed numeric codes scoped
// to (email, purpose).
type OTPService struct {
	repo     OTPRepository
	channel  OTPChannel
	secret   []byte
	ttl      time.Duration
	throttle Throttle
	failures Throttle
	maxFails int
	now      func() time.Time
	generate func(length int) (string, error)
	logger   *slog.Logger
}

// OTPOption configures an OTPService.
type OTPOption func(*OTPService)

// WithOTPTTL overrides the challenge lifetime.
func WithOTPTTL(ttl time.Duration) OTPOption {
	return func(s *OTPService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithOTPClock overrides the time source.
func WithOTPClock(now func() time.Time) OTPOption {
	return func(s *OTPService) { s.now = now }
}

// WithOTPCodeGenerator overrides code generation.
func WithOTPCodeGenerator(generate func(length int) (string, error)) OTPOption {
	return func(s *OTPService) { s.generate = generate }
}

// WithOTPThrottle limits how often codes are issued per (email, purpose).
func WithOTPThrottle(t Throttle) OTPOption {
	return func(s *OTPService) { s.throttle = t }
}

// WithOTPMaxFailedAttempts overrides how many wrong codes a challenge
// tolerates before it is withdrawn.
func WithOTPMaxFailedAttempts(n int) OTPOption {
	return func(s *OTPService) {
		if n > 0 {
			s.maxFails = n
		}
	}
}

// WithOTPLogger sets the logger for best-effort failures.
func WithOTPLogger(logger *slog.Logger) OTPOption {
	return func(s *OTPService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewOTPService creates a new OTPService.
func NewOTPService(repo OTPRepository, channel OTPChannel, secret []byte, opts ...OTPOption) (*OTPService, error) {
	if repo == nil {
		return nil, oops.Code("OTP_SERVICE_INVALID").Errorf("otp repository is required")
	}
	if channel == nil {
		return nil, oops.Code("OTP_SERVICE_INVALID").Errorf("otp channel is required")
	}
	if len(secret) < MinOTPSecretLength {
		return nil, oops.Code("OTP_SERVICE_INVALID").Errorf("otp secret must be at least %d bytes", MinOTPSecretLength)
	}
	s := &OTPService{
		repo:     repo,
		channel:  channel,
		secret:   secret,
		ttl:      OTPExpiry,
		maxFails: DefaultOTPMaxFailedAttempts,
		now:      time.Now,
		generate: GenerateOTPCode,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	// One token per tolerated failure, refilling no faster than a challenge
	// expires, keyed by challenge ID so a reissued code starts fresh.
	s.failures = NewKeyedLimiter(s.ttl, s.maxFails)
	return s, nil
}

// Create supersedes any pending challenge for (email, purpose), stores the
// hash of a fresh code and delivers the plaintext. When delivery fails the
// new challenge is withdrawn and the error returned.
func (s *OTPService) Create(ctx context.Context, email Email, purpose OTPPurpose) error {
	if s.throttle != nil && !s.throttle.Allow(string(purpose)+"|"+email.String()) {
		return oops.Code(CodeOTPRateLimited).
			With("purpose", string(purpose)).
			Errorf("too many codes requested, try again later")
	}

	code, err := s.generate(OTPCodeLength)
	if err != nil {
		return oops.Code("OTP_CREATE_FAILED").With("operation", "generate code").Wrap(err)
	}

	now := s.now()
	challenge, err := NewOTPChallenge(email, purpose, HashOTPCode(s.secret, email, purpose, code), now, now.Add(s.ttl))
	if err != nil {
		return oops.Code("OTP_CREATE_FAILED").With("operation", "new challenge").Wrap(err)
	}

	if err := s.repo.Replace(ctx, challenge); err != nil {
		return oops.Code("OTP_CREATE_FAILED").
			With("operation", "replace challenge").
			With("purpose", string(purpose)).
			Wrap(err)
	}

	if err := s.channel.DeliverOTP(ctx, email, code, purpose); err != nil {
		if consumeErr := s.repo.Consume(ctx, challenge); consumeErr != nil && !errors.Is(consumeErr, ErrNotFound) {
			s.logger.WarnContext(ctx, "best-effort withdrawal of undelivered otp failed",
				"operation", "withdraw_challenge",
				"purpose", string(purpose),
				"error", consumeErr.Error())
		}
		return oops.Code("OTP_DELIVERY_FAILED").
			With("operation", "deliver code").
			With("purpose", string(purpose)).
			Wrap(err)
	}

	OTPIssued.WithLabelValues(string(purpose)).Inc()
	return nil
}

// Verify redeems code for (email, purpose). A code verifies at most once.
func (s *OTPService) Verify(ctx context.Context, email Email, code string, purpose OTPPurpose) (err error) {
	defer func() {
		OTPVerifications.WithLabelValues(string(purpose), outcome(err)).Inc()
	}()

	challenge, err := s.repo.Get(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeOTPNotFound).With("purpose", string(purpose)).Errorf("no pending code")
		}
		return oops.Code("OTP_VERIFY_FAILED").
			With("operation", "get challenge").
			With("purpose", string(purpose)).
			Wrap(err)
	}

	if challenge.IsExpiredAt(s.now()) {
		if consumeErr := s.repo.Consume(ctx, challenge); consumeErr != nil && !errors.Is(consumeErr, ErrNotFound) {
			s.logger.WarnContext(ctx, "best-effort removal of expired otp failed",
				"operation", "delete_expired_challenge",
				"purpose", string(purpose),
				"error", consumeErr.Error())
		}
		return oops.Code(CodeOTPExpired).With("purpose", string(purpose)).Errorf("code has expired")
	}

	if !VerifyOTPCode(s.secret, email, purpose, code, challenge.CodeHash) {
		if s.failures.Allow(challenge.ID.String()) {
			return oops.Code(CodeOTPInvalid).With("purpose", string(purpose)).Errorf("invalid code")
		}
		if consumeErr := s.repo.Consume(ctx, challenge); consumeErr != nil && !errors.Is(consumeErr, ErrNotFound) {
			s.logger.WarnContext(ctx, "withdrawing otp after failed attempts failed",
				"operation", "withdraw_challenge",
				"purpose", string(purpose),
				"error", consumeErr.Error())
		}
		return oops.Code(CodeOTPRateLimited).
			With("purpose", string(purpose)).
			Errorf("too many wrong codes, request a new one")
	}

	if err := s.repo.Consume(ctx, challenge); err != nil {
		if errors.Is(err, ErrNotFound) {
			// Lost a race with a concurrent redemption or a newer challenge.
			return oops.Code(CodeOTPNotFound).With("purpose", string(purpose)).Errorf("no pending code")
		}
		return oops.Code("OTP_VERIFY_FAILED").
			With("operation", "consume challenge").
			With("purpose", string(purpose)).
			Wrap(err)
	}
	return nil
}

// PurgeExpired deletes challenges that have expired.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Code("OTP_PURGE_FAILED").With("operation", "delete expired").Wrap(err)
	}
	return n, nil
}
