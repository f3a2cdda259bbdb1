// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

// Package config loads Hireline configuration. Sources are layered, each
// overriding the previous: built-in defaults, a YAML file, secret
// environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/hireline/hireline/internal/auth"
)

// Config is the complete process configuration.
type Config struct {
	Log           LogConfig           `koanf:"log"`
	Database      DatabaseConfig      `koanf:"database"`
	Redis         RedisConfig         `koanf:"redis"`
	OTP           OTPConfig           `koanf:"otp"`
	Tokens        TokenConfig         `koanf:"tokens"`
	Password      PasswordConfig      `koanf:"password"`
	Google        GoogleConfig        `koanf:"google"`
	Mail          MailConfig          `koanf:"mail"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL             string `koanf:"url"`
	ConnectAttempts uint64 `koanf:"connect_attempts"`
	AutoMigrate     bool   `koanf:"auto_migrate"`
}

// RedisConfig configures Redis. It is only used when OTP.Store is "redis".
type RedisConfig struct {
	URL string `koanf:"url"`
}

// OTP store backends.
const (
	OTPStorePostgres = "postgres"
	OTPStoreRedis    = "redis"
)

// OTPConfig configures one-time passcodes.
type OTPConfig struct {
	Store          string        `koanf:"store"`
	Secret         string        `koanf:"secret"`
	TTL            time.Duration `koanf:"ttl"`
	ResendInterval time.Duration `koanf:"resend_interval"`
	ResendBurst    int           `koanf:"resend_burst"`
	MaxFailures    int           `koanf:"max_failures"`
	PurgeInterval  time.Duration `koanf:"purge_interval"`
}

// TokenConfig configures the signed tokens.
type TokenConfig struct {
	Issuer        string        `koanf:"issuer"`
	AccessSecret  string        `koanf:"access_secret"`
	RefreshSecret string        `koanf:"refresh_secret"`
	ResetSecret   string        `koanf:"reset_secret"`
	AccessTTL     time.Duration `koanf:"access_ttl"`
	RefreshTTL    time.Duration `koanf:"refresh_ttl"`
	ResetTTL      time.Duration `koanf:"reset_ttl"`
}

// PasswordConfig configures password hashing.
type PasswordConfig struct {
	MaxConcurrentHashes int `koanf:"max_concurrent_hashes"`
}

// GoogleConfig configures Google sign-in. An empty ClientID disables it.
type GoogleConfig struct {
	ClientID string `koanf:"client_id"`
}

// Mail drivers.
const (
	MailDriverLog  = "log"
	MailDriverSMTP = "smtp"
)

// MailConfig configures outbound email.
type MailConfig struct {
	Driver       string        `koanf:"driver"`
	From         string        `koanf:"from"`
	SMTPHost     string        `koanf:"smtp_host"`
	SMTPPort     int           `koanf:"smtp_port"`
	SMTPUsername string        `koanf:"smtp_username"`
	SMTPPassword string        `koanf:"smtp_password"`
	ResetURL     string        `koanf:"reset_url"`
	Timeout      time.Duration `koanf:"timeout"`
}

// ObservabilityConfig configures the metrics and health server. An empty
// Addr disables it.
type ObservabilityConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			ConnectAttempts: 6,
		},
		OTP: OTPConfig{
			Store:          OTPStorePostgres,
			TTL:            auth.OTPExpiry,
			ResendInterval: time.Minute,
			ResendBurst:    3,
			MaxFailures:    auth.DefaultOTPMaxFailedAttempts,
			PurgeInterval:  auth.DefaultPurgeInterval,
		},
		Tokens: TokenConfig{
			Issuer:     auth.DefaultTokenIssuer,
			AccessTTL:  auth.DefaultAccessTokenTTL,
			RefreshTTL: auth.DefaultRefreshTokenTTL,
			ResetTTL:   auth.DefaultResetTokenTTL,
		},
		Password: PasswordConfig{MaxConcurrentHashes: 4},
		Mail: MailConfig{
			Driver:   MailDriverLog,
			From:     "no-reply@hireline.local",
			SMTPPort: 587,
			ResetURL: "http://localhost:3000/reset-password",
			Timeout:  10 * time.Second,
		},
		Observability: ObservabilityConfig{Addr: "127.0.0.1:9100"},
	}
}

// envKeys maps the environment variables that may carry secrets to config
// keys. They override the file so secrets can stay out of it.
var envKeys = map[string]string{
	"DATABASE_URL":            "database.url",
	"REDIS_URL":               "redis.url",
	"HIRELINE_OTP_SECRET":     "otp.secret",
	"HIRELINE_ACCESS_SECRET":  "tokens.access_secret",
	"HIRELINE_REFRESH_SECRET": "tokens.refresh_secret",
	"HIRELINE_RESET_SECRET":   "tokens.reset_secret",
	"GOOGLE_CLIENT_ID":        "google.client_id",
	"SMTP_PASSWORD":           "mail.smtp_password",
}

// Loader reads configuration. Zero values use the real environment.
type Loader struct {
	// Path is an optional YAML file. A missing file is an error.
	Path string
	// Flags are applied last. Only flags the user set are used. The first
	// dash of a flag name separates the section, the rest become
	// underscores: "mail-reset-url" sets "mail.reset_url".
	Flags *pflag.FlagSet
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load reads every source and validates the result.
func (l Loader) Load() (Config, error) {
	k := koanf.New(".")

	if l.Path != "" {
		if err := k.Load(file.Provider(l.Path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").
				With("path", l.Path).
				Wrap(err)
		}
	}

	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for env, key := range envKeys {
		if v, ok := lookup(env); ok && v != "" {
			if err := k.Set(key, v); err != nil {
				return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("env", env).Wrap(err)
			}
		}
	}

	if l.Flags != nil {
		provider := posflag.ProviderWithFlag(l.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(l.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").With("operation", "decode").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that do not depend on which command runs.
// RequireServe adds the checks the server needs.
func (c Config) Validate() error {
	var errs []error
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format))
	}
	switch c.OTP.Store {
	case OTPStorePostgres:
	case OTPStoreRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required when otp.store is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("otp.store must be %q or %q, got %q", OTPStorePostgres, OTPStoreRedis, c.OTP.Store))
	}
	switch c.Mail.Driver {
	case MailDriverLog:
	case MailDriverSMTP:
		if c.Mail.SMTPHost == "" {
			errs = append(errs, errors.New("mail.smtp_host is required when mail.driver is smtp"))
		}
	default:
		errs = append(errs, fmt.Errorf("mail.driver must be %q or %q, got %q", MailDriverLog, MailDriverSMTP, c.Mail.Driver))
	}
	if _, err := url.Parse(c.Mail.ResetURL); err != nil || c.Mail.ResetURL == "" {
		errs = append(errs, errors.New("mail.reset_url must be a valid url"))
	}
	if c.Password.MaxConcurrentHashes < 1 {
		errs = append(errs, errors.New("password.max_concurrent_hashes must be at least 1"))
	}
	return wrapInvalid(errs)
}

// RequireDatabase checks that a database URL is configured.
func (c Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url (or DATABASE_URL) is required")
	}
	return nil
}

// RequireServe checks the secrets the server needs to issue codes and tokens.
func (c Config) RequireServe() error {
	errs := []error{}
	if err := c.RequireDatabase(); err != nil {
		errs = append(errs, err)
	}
	if len(c.OTP.Secret) < auth.MinOTPSecretLength {
		errs = append(errs, fmt.Errorf("otp.secret must be at least %d bytes", auth.MinOTPSecretLength))
	}
	for name, secret := range map[string]string{
		"tokens.access_secret":  c.Tokens.AccessSecret,
		"tokens.refresh_secret": c.Tokens.RefreshSecret,
		"tokens.reset_secret":   c.Tokens.ResetSecret,
	} {
		if len(secret) < auth.MinTokenSecretLength {
			errs = append(errs, fmt.Errorf("%s must be at least %d bytes", name, auth.MinTokenSecretLength))
		}
	}
	return wrapInvalid(errs)
}

// TokenConfig converts the token settings for auth.NewTokenService.
func (c Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		AccessSecret:  []byte(c.Tokens.AccessSecret),
		RefreshSecret: []byte(c.Tokens.RefreshSecret),
		ResetSecret:   []byte(c.Tokens.ResetSecret),
		AccessTTL:     c.Tokens.AccessTTL,
		RefreshTTL:    c.Tokens.RefreshTTL,
		ResetTTL:      c.Tokens.ResetTTL,
		Issuer:        c.Tokens.Issuer,
	}
}

func flagKey(name string) string {
	section, rest, ok := strings.Cut(name, "-")
	if !ok {
		return name
	}
	return section + "." + strings.ReplaceAll(rest, "-", "_")
}

func wrapInvalid(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return oops.Code("CONFIG_INVALID").Wrap(errors.Join(errs...))
}
