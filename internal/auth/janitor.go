// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPurgeInterval is how often expired OTP challenges are removed.
const DefaultPurgeInterval = 15 * time.Minute

// ExpiredPurger removes expired state. OTPService implements it.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Janitor periodically purges expired OTP challenges. Verification already
// treats expired challenges as absent; the janitor only reclaims storage.
type Janitor struct {
	purger   ExpiredPurger
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJanitor creates a Janitor. A non-positive interval takes the default.
func NewJanitor(purger ExpiredPurger, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{purger: purger, interval: interval, logger: logger}
}

// RunOnce executes a single purge cycle.
func (j *Janitor) RunOnce(ctx context.Context) error {
	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		j.logger.InfoContext(ctx, "purged expired otp challenges", "count", n)
	}
	return nil
}

// Start begins periodic purging until ctx is done or Stop is called.
func (j *Janitor) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	j.wg.Add(1)
	go j.run(ctx)
}

// Stop stops the janitor and waits for the running cycle to finish.
func (j *Janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}

func (j *Janitor) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
				j.logger.WarnContext(ctx, "otp purge cycle failed",
					"operation", "purge_expired",
					"error", err.Error())
			}
		}
	}
}
