// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle defaults for OTP issuance: one code per minute per key with a
// burst of three.
const (
	DefaultOTPIssueInterval = time.Minute
	DefaultOTPIssueBurst    = 3
	defaultThrottleIdle     = 30 * time.Minute
)

// Throttle decides whether an action keyed by key may proceed now.
type Throttle interface {
	Allow(key string) bool
}

type keyedEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter is a Throttle holding one token bucket per key. Idle buckets
// are dropped lazily.
type KeyedLimiter struct {
	every time.Duration
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	entries   map[string]*keyedEntry
	lastSweep time.Time
}

// NewKeyedLimiter allows burst actions per key, refilling one every interval.
// Non-positive values fall back to the OTP defaults.
func NewKeyedLimiter(every time.Duration, burst int) *KeyedLimiter {
	if every <= 0 {
		every = DefaultOTPIssueInterval
	}
	if burst <= 0 {
		burst = DefaultOTPIssueBurst
	}
	idle := defaultThrottleIdle
	if span := every * time.Duration(burst); span > idle {
		idle = span
	}
	return &KeyedLimiter{
		every:   every,
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*keyedEntry),
	}
}

// Allow reports whether key has a token available and consumes it.
func (l *KeyedLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.idle {
		l.sweep(now)
	}

	entry, ok := l.entries[key]
	if !ok {
		entry = &keyedEntry{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// sweep drops buckets idle long enough to have refilled. Caller holds mu.
func (l *KeyedLimiter) sweep(now time.Time) {
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) > l.idle {
			delete(l.entries, key)
		}
	}
	l.lastSweep = now
}
