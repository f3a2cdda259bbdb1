// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

// Package google verifies Google ID tokens for federated login.
package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/samber/oops"

	"github.com/hireline/hireline/internal/auth"
)

const (
	defaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	defaultTimeout      = 5 * time.Second
	maxResponseBytes    = 64 << 10

	// CodeUnavailable marks a failure to reach Google. The credential may
	// still be valid.
	CodeUnavailable = "IDP_UNAVAILABLE"
)

var validIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// Config configures a Verifier.
type Config struct {
	// ClientID is the OAuth client the token must be issued for.
	ClientID string
	// TokenInfoURL overrides the tokeninfo endpoint in tests.
	TokenInfoURL string
	Timeout      time.Duration
	HTTPClient   *http.Client
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Verifier implements auth.IdentityProvider against Google's tokeninfo
// endpoint.
type Verifier struct {
	cfg Config
}

var _ auth.IdentityProvider = (*Verifier)(nil)

// NewVerifier creates a Verifier. ClientID is required.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.ClientID == "" {
		return nil, oops.Code("IDP_CONFIG_INVALID").Errorf("google client id is required")
	}
	if cfg.TokenInfoURL == "" {
		cfg.TokenInfoURL = defaultTokenInfoURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{cfg: cfg}, nil
}

type tokenInfo struct {
	Aud           string `json:"aud"`
	Iss           string `json:"iss"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Exp           string `json:"exp"`
}

// Verify checks credential with Google and returns the identity it vouches
// for. The audience, issuer, expiry and email verification are all checked.
func (v *Verifier) Verify(ctx context.Context, credential string) (*auth.FederatedIdentity, error) {
	if credential == "" {
		return nil, rejected("credential is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	endpoint := v.cfg.TokenInfoURL + "?" + url.Values{"id_token": {credential}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, oops.Code(CodeUnavailable).With("operation", "build tokeninfo request").Wrap(err)
	}

	resp, err := v.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, oops.Code(CodeUnavailable).With("operation", "call tokeninfo").Wrap(err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, oops.Code(CodeUnavailable).With("operation", "read tokeninfo").Wrap(err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, oops.Code(CodeUnavailable).
			With("status", resp.StatusCode).
			Errorf("tokeninfo returned %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, rejected("google rejected the credential")
	}

	var info tokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, rejected("tokeninfo response is malformed")
	}
	return v.check(info)
}

func (v *Verifier) check(info tokenInfo) (*auth.FederatedIdentity, error) {
	if info.Aud != v.cfg.ClientID {
		return nil, rejected("token audience does not match")
	}
	if !slices.Contains(validIssuers, info.Iss) {
		return nil, rejected("token issuer is not google")
	}
	if exp, err := strconv.ParseInt(info.Exp, 10, 64); err != nil || !v.cfg.Now().Before(time.Unix(exp, 0)) {
		return nil, rejected("token has expired")
	}
	if info.EmailVerified != "true" {
		return nil, rejected("google email is not verified")
	}
	if info.Sub == "" || info.Email == "" {
		return nil, rejected("token lacks subject or email")
	}
	return &auth.FederatedIdentity{
		Email:       info.Email,
		Subject:     info.Sub,
		DisplayName: info.Name,
	}, nil
}

func rejected(msg string) error {
	return oops.Code(auth.CodeInvalidFederatedToken).Errorf("%s", msg)
}
