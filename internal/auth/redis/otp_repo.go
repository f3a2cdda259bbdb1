// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

// Package redis provides a Redis implementation of auth.OTPRepository.
// Challenges carry a Redis expiry, so no purge is needed.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/hireline/hireline/internal/auth"
)

// DefaultKeyPrefix namespaces challenge keys.
const DefaultKeyPrefix = "hireline:otp:"

// consumeScript deletes the key only while it still holds challenge ARGV[1].
var consumeScript = goredis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
	return 0
end
if cjson.decode(v)['id'] ~= ARGV[1] then
	return 0
end
return redis.call('DEL', KEYS[1])
`)

// client is the subset of *goredis.Client the repository uses.
type client interface {
	goredis.Scripter
	SetArgs(ctx context.Context, key string, value any, a goredis.SetArgs) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
}

type storedChallenge struct {
	ID        string    `json:"id"`
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// OTPRepository implements auth.OTPRepository on Redis. Each (email, purpose)
// pair maps to one key, so a SET supersedes the previous challenge.
type OTPRepository struct {
	client client
	prefix string
}

var _ auth.OTPRepository = (*OTPRepository)(nil)

// NewOTPRepository creates a repository. An empty prefix selects
// DefaultKeyPrefix.
func NewOTPRepository(c client, prefix string) *OTPRepository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &OTPRepository{client: c, prefix: prefix}
}

func (r *OTPRepository) key(email auth.Email, purpose auth.OTPPurpose) string {
	return r.prefix + string(purpose) + ":" + email.String()
}

// Replace stores challenge with an absolute expiry at its ExpiresAt.
func (r *OTPRepository) Replace(ctx context.Context, c *auth.OTPChallenge) error {
	payload, err := json.Marshal(storedChallenge{
		ID:        c.ID.String(),
		CodeHash:  c.CodeHash,
		ExpiresAt: c.ExpiresAt,
		CreatedAt: c.CreatedAt,
	})
	if err != nil {
		return oops.Code("OTP_REPLACE_FAILED").With("operation", "marshal challenge").Wrap(err)
	}
	if err := r.client.SetArgs(ctx, r.key(c.Email, c.Purpose), payload, goredis.SetArgs{ExpireAt: c.ExpiresAt}).Err(); err != nil {
		return oops.Code("OTP_REPLACE_FAILED").
			With("operation", "set otp challenge").
			With("purpose", string(c.Purpose)).
			Wrap(err)
	}
	return nil
}

// Get retrieves the challenge for email and purpose.
func (r *OTPRepository) Get(ctx context.Context, email auth.Email, purpose auth.OTPPurpose) (*auth.OTPChallenge, error) {
	raw, err := r.client.Get(ctx, r.key(email, purpose)).Bytes()
	if errors.Is(err, goredis.Nil) {
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

	var stored storedChallenge
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, oops.Code("OTP_GET_FAILED").With("operation", "unmarshal challenge").Wrap(err)
	}
	id, err := ulid.Parse(stored.ID)
	if err != nil {
		return nil, oops.Code("OTP_INVALID_ID").With("id", stored.ID).Wrap(err)
	}
	return &auth.OTPChallenge{
		ID:        id,
		Email:     email,
		Purpose:   purpose,
		CodeHash:  stored.CodeHash,
		ExpiresAt: stored.ExpiresAt,
		CreatedAt: stored.CreatedAt,
	}, nil
}

// Consume deletes the challenge if the key still holds it.
func (r *OTPRepository) Consume(ctx context.Context, c *auth.OTPChallenge) error {
	n, err := consumeScript.Run(ctx, r.client, []string{r.key(c.Email, c.Purpose)}, c.ID.String()).Int64()
	if err != nil {
		return oops.Code("OTP_CONSUME_FAILED").
			With("operation", "compare and delete").
			With("id", c.ID.String()).
			Wrap(err)
	}
	if n == 0 {
		return oops.Code("OTP_CHALLENGE_NOT_FOUND").
			With("id", c.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts expired keys itself.
func (r *OTPRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
