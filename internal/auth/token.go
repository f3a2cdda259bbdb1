// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"bytes"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token defaults.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultResetTokenTTL   = 15 * time.Minute
	DefaultTokenIssuer     = "hireline"
	MinTokenSecretLength   = 32
)

// PasswordResetPurpose is the purpose claim every reset token must carry.
const PasswordResetPurpose = "PASSWORD_RESET"

// TokenKind identifies one of the three token families.
type TokenKind string

// Token kinds.
const (
	TokenAccess        TokenKind = "access"
	TokenRefresh       TokenKind = "refresh"
	TokenPasswordReset TokenKind = "reset"
)

// TokenConfig holds per-kind secrets and lifetimes.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	ResetSecret   []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	Issuer        string
}

// IssuedToken is a signed token and its expiry.
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenPair is the access and refresh token returned after authentication.
type TokenPair struct {
	Access  IssuedToken `json:"access"`
	Refresh IssuedToken `json:"refresh"`
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	UserID    ulid.ULID
	Role      Role
	ExpiresAt time.Time
}

type tokenClaims struct {
	Kind    TokenKind `json:"typ"`
	Role    Role      `json:"role,omitempty"`
	Purpose string    `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256-signed tokens. Each kind has its own
// secret, so a token of one kind never verifies as another.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithTokenClock overrides the time source used for issuing and verifying.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService. Secrets must be at least
// MinTokenSecretLength bytes and pairwise distinct. Zero TTLs and an empty
// issuer take the defaults.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	secrets := map[string][]byte{
		"access":  cfg.AccessSecret,
		"refresh": cfg.RefreshSecret,
		"reset":   cfg.ResetSecret,
	}
	for name, secret := range secrets {
		if len(secret) < MinTokenSecretLength {
			return nil, oops.Code("TOKEN_CONFIG_INVALID").
				With("kind", name).
				Errorf("%s secret must be at least %d bytes", name, MinTokenSecretLength)
		}
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) ||
		bytes.Equal(cfg.AccessSecret, cfg.ResetSecret) ||
		bytes.Equal(cfg.RefreshSecret, cfg.ResetSecret) {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("token secrets must be distinct")
	}

	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = DefaultResetTokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultTokenIssuer
	}

	s := &TokenService{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueAccess signs an access token for userID with role.
func (s *TokenService) IssueAccess(userID ulid.ULID, role Role) (IssuedToken, error) {
	if !role.Valid() {
		return IssuedToken{}, oops.Code("TOKEN_ISSUE_FAILED").With("kind", TokenAccess).Errorf("invalid role %q", role)
	}
	return s.issue(TokenAccess, userID, tokenClaims{Role: role})
}

// IssueRefresh signs a refresh token for userID.
func (s *TokenService) IssueRefresh(userID ulid.ULID) (IssuedToken, error) {
	return s.issue(TokenRefresh, userID, tokenClaims{})
}

// IssuePasswordReset signs a single-purpose password reset token for userID.
func (s *TokenService) IssuePasswordReset(userID ulid.ULID) (IssuedToken, error) {
	return s.issue(TokenPasswordReset, userID, tokenClaims{Purpose: PasswordResetPurpose})
}

// IssuePair signs an access and a refresh token.
func (s *TokenService) IssuePair(userID ulid.ULID, role Role) (TokenPair, error) {
	access, err := s.IssueAccess(userID, role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.IssueRefresh(userID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// VerifyAccess checks an access token and returns its claims.
func (s *TokenService) VerifyAccess(raw string) (*AccessClaims, error) {
	claims, userID, err := s.verify(TokenAccess, raw)
	if err != nil {
		return nil, err
	}
	if !claims.Role.Valid() {
		return nil, invalidToken(TokenAccess, "role claim is missing or invalid")
	}
	return &AccessClaims{UserID: userID, Role: claims.Role, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// VerifyRefresh checks a refresh token and returns the user id.
func (s *TokenService) VerifyRefresh(raw string) (ulid.ULID, error) {
	_, userID, err := s.verify(TokenRefresh, raw)
	return userID, err
}

// VerifyPasswordReset checks a reset token, including its purpose claim, and
// returns the user id.
func (s *TokenService) VerifyPasswordReset(raw string) (ulid.ULID, error) {
	claims, userID, err := s.verify(TokenPasswordReset, raw)
	if err != nil {
		return ulid.ULID{}, err
	}
	if claims.Purpose != PasswordResetPurpose {
		return ulid.ULID{}, invalidToken(TokenPasswordReset, "purpose claim is missing or mismatched")
	}
	return userID, nil
}

func (s *TokenService) secret(kind TokenKind) ([]byte, time.Duration) {
	switch kind {
	case TokenAccess:
		return s.cfg.AccessSecret, s.cfg.AccessTTL
	case TokenRefresh:
		return s.cfg.RefreshSecret, s.cfg.RefreshTTL
	default:
		return s.cfg.ResetSecret, s.cfg.ResetTTL
	}
}

func (s *TokenService) issue(kind TokenKind, userID ulid.ULID, claims tokenClaims) (IssuedToken, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return IssuedToken{}, oops.Code("TOKEN_ISSUE_FAILED").With("kind", kind).Errorf("user id cannot be zero")
	}
	secret, ttl := s.secret(kind)
	now := s.now()
	expiresAt := now.Add(ttl)

	claims.Kind = kind
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        ulid.Make().String(),
		Issuer:    s.cfg.Issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return IssuedToken{}, oops.Code("TOKEN_ISSUE_FAILED").With("kind", kind).Wrap(err)
	}
	return IssuedToken{Token: signed, ExpiresAt: expiresAt.Truncate(time.Second)}, nil
}

func (s *TokenService) verify(kind TokenKind, raw string) (*tokenClaims, ulid.ULID, error) {
	if raw == "" {
		return nil, ulid.ULID{}, invalidToken(kind, "token is empty")
	}
	secret, _ := s.secret(kind)

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	claims := &tokenClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}); err != nil {
		// The parser checks the signature before claims, so an expiry error
		// means the token is authentic but stale.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ulid.ULID{}, oops.Code(CodeTokenExpired).
				With("kind", kind).
				Errorf("%s token has expired", kind)
		}
		return nil, ulid.ULID{}, oops.Code(CodeTokenInvalid).
			With("kind", kind).
			Wrapf(err, "%s token is invalid", kind)
	}

	if claims.Kind != kind {
		return nil, ulid.ULID{}, invalidToken(kind, "token type mismatch")
	}
	userID, err := ulid.Parse(claims.Subject)
	if err != nil {
		return nil, ulid.ULID{}, invalidToken(kind, "subject is not a user id")
	}
	return claims, userID, nil
}

func invalidToken(kind TokenKind, reason string) error {
	return oops.Code(CodeTokenInvalid).With("kind", kind).With("reason", reason).Errorf("%s token is invalid", kind)
}
