// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/auth/google"
	"github.com/hireline/hireline/internal/auth/postgres"
	authredis "github.com/hireline/hireline/internal/auth/redis"
	"github.com/hireline/hireline/internal/config"
	"github.com/hireline/hireline/internal/mail"
	"github.com/hireline/hireline/internal/store"
)

const healthTimeout = time.Second

// services is the identity service graph built from configuration.
type services struct {
	users        *postgres.UserRepository
	otp          *auth.OTPService
	tokens       *auth.TokenService
	registration *auth.RegistrationService
	sessions     *auth.Service
	passwords    *auth.PasswordService

	pool  *pgxpool.Pool
	redis *goredis.Client
}

// buildServices wires repositories, delivery and the use case services.
// The caller owns pool; Close releases everything else.
func buildServices(cfg config.Config, pool *pgxpool.Pool, logger *slog.Logger) (*services, error) {
	s := &services{
		users: postgres.NewUserRepository(pool),
		pool:  pool,
	}
	profiles := postgres.NewProfileRepository(pool)

	var otpRepo auth.OTPRepository
	switch cfg.OTP.Store {
	case config.OTPStoreRedis:
		opts, err := goredis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("setting", "redis.url").Wrap(err)
		}
		s.redis = goredis.NewClient(opts)
		otpRepo = authredis.NewOTPRepository(s.redis, authredis.DefaultKeyPrefix)
	default:
		otpRepo = postgres.NewOTPRepository(pool)
	}

	notifier, err := newNotifier(cfg.Mail, logger)
	if err != nil {
		return nil, s.closeWith(err)
	}

	idp, err := newIdentityProvider(cfg.Google)
	if err != nil {
		return nil, s.closeWith(err)
	}

	hasher := auth.NewBoundedHasher(auth.NewArgon2idHasher(), cfg.Password.MaxConcurrentHashes)

	s.otp, err = auth.NewOTPService(otpRepo, notifier, []byte(cfg.OTP.Secret),
		auth.WithOTPTTL(cfg.OTP.TTL),
		auth.WithOTPThrottle(auth.NewKeyedLimiter(cfg.OTP.ResendInterval, cfg.OTP.ResendBurst)),
		auth.WithOTPMaxFailedAttempts(cfg.OTP.MaxFailures),
		auth.WithOTPLogger(logger),
	)
	if err != nil {
		return nil, s.closeWith(err)
	}

	s.tokens, err = auth.NewTokenService(cfg.TokenConfig())
	if err != nil {
		return nil, s.closeWith(err)
	}

	s.registration, err = auth.NewRegistrationService(s.users, s.otp, hasher, profiles, auth.WithLogger(logger))
	if err != nil {
		return nil, s.closeWith(err)
	}
	s.sessions, err = auth.NewService(s.users, hasher, s.tokens, idp, profiles, auth.WithLogger(logger))
	if err != nil {
		return nil, s.closeWith(err)
	}
	s.passwords, err = auth.NewPasswordService(s.users, hasher, s.tokens, notifier, auth.WithLogger(logger))
	if err != nil {
		return nil, s.closeWith(err)
	}
	return s, nil
}

// Ready reports whether every backing store answers.
func (s *services) Ready(ctx context.Context) error {
	if err := store.HealthCheck(ctx, s.pool, healthTimeout); err != nil {
		return err
	}
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(ctx, healthTimeout)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return oops.Code("REDIS_UNHEALTHY").Wrap(err)
		}
	}
	return nil
}

// Close releases the Redis client, if any.
func (s *services) Close() error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}

func (s *services) closeWith(err error) error {
	if closeErr := s.Close(); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}

func newNotifier(cfg config.MailConfig, logger *slog.Logger) (*mail.Notifier, error) {
	var mailer mail.Mailer
	switch cfg.Driver {
	case config.MailDriverSMTP:
		m, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
		})
		if err != nil {
			return nil, err
		}
		mailer = m
	default:
		mailer = mail.NewLogMailer(logger)
	}
	return mail.NewNotifier(mailer, cfg.ResetURL, cfg.Timeout)
}

// disabledIdentityProvider rejects every federated credential. It stands
// in when no Google client id is configured.
type disabledIdentityProvider struct{}

func (disabledIdentityProvider) Verify(context.Context, string) (*auth.FederatedIdentity, error) {
	return nil, oops.Code(auth.CodeUnsupportedOperation).Errorf("google sign-in is not configured")
}

func newIdentityProvider(cfg config.GoogleConfig) (auth.IdentityProvider, error) {
	if cfg.ClientID == "" {
		return disabledIdentityProvider{}, nil
	}
	return google.NewVerifier(google.Config{ClientID: cfg.ClientID})
}
