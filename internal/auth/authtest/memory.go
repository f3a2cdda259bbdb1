// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

// Package authtest provides in-memory implementations of the auth ports for
// tests and local tooling.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/hireline/hireline/internal/auth"
)

// UserStore is an in-memory auth.UserRepository. It stores records and
// rehydrates on read, like a real database.
type UserStore struct {
	mu      sync.Mutex
	records map[ulid.ULID]auth.UserRecord
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{records: make(map[ulid.ULID]auth.UserRecord)}
}

// GetByID implements auth.UserRepository.
func (s *UserStore) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return auth.Rehydrate(rec)
}

// GetByEmail implements auth.UserRepository.
func (s *UserStore) GetByEmail(_ context.Context, email auth.Email) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.Email == email.String() {
			return auth.Rehydrate(rec)
		}
	}
	return nil, auth.ErrNotFound
}

// Create implements auth.UserRepository.
func (s *UserStore) Create(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.Email == user.Email().String() {
			return oops.Code(auth.CodeAlreadyRegistered).Errorf("email is already registered")
		}
	}
	s.records[user.ID()] = user.Record()
	return nil
}

// Update implements auth.UserRepository.
func (s *UserStore) Update(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[user.ID()]; !ok {
		return auth.ErrNotFound
	}
	s.records[user.ID()] = user.Record()
	return nil
}

// Delete implements auth.UserRepository.
func (s *UserStore) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// OTPStore is an in-memory auth.OTPRepository.
type OTPStore struct {
	mu         sync.Mutex
	challenges map[string]auth.OTPChallenge
}

// NewOTPStore creates an empty OTPStore.
func NewOTPStore() *OTPStore {
	return &OTPStore{challenges: make(map[string]auth.OTPChallenge)}
}

func otpKey(email auth.Email, purpose auth.OTPPurpose) string {
	return string(purpose) + "|" + email.String()
}

// Replace implements auth.OTPRepository.
func (s *OTPStore) Replace(_ context.Context, c *auth.OTPChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[otpKey(c.Email, c.Purpose)] = *c
	return nil
}

// Get implements auth.OTPRepository.
func (s *OTPStore) Get(_ context.Context, email auth.Email, purpose auth.OTPPurpose) (*auth.OTPChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[otpKey(email, purpose)]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &c, nil
}

// Consume implements auth.OTPRepository. Only the exact challenge is removed.
func (s *OTPStore) Consume(_ context.Context, c *auth.OTPChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := otpKey(c.Email, c.Purpose)
	stored, ok := s.challenges[key]
	if !ok || stored.ID != c.ID {
		return auth.ErrNotFound
	}
	delete(s.challenges, key)
	return nil
}

// DeleteExpired implements auth.OTPRepository.
func (s *OTPStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, c := range s.challenges {
		if c.IsExpiredAt(now) {
			delete(s.challenges, key)
			n++
		}
	}
	return n, nil
}

// Len returns the number of pending challenges.
func (s *OTPStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}

// Outbox records delivered codes and reset tokens instead of sending them.
// It implements auth.OTPChannel and auth.ResetChannel. Setting Err makes
// every delivery fail.
type Outbox struct {
	mu     sync.Mutex
	codes  map[string]string
	resets map[string]auth.IssuedToken
	Err    error
}

// NewOutbox creates an empty Outbox.
func NewOutbox() *Outbox {
	return &Outbox{codes: make(map[string]string), resets: make(map[string]auth.IssuedToken)}
}

// DeliverOTP implements auth.OTPChannel.
func (o *Outbox) DeliverOTP(_ context.Context, email auth.Email, code string, purpose auth.OTPPurpose) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.codes[otpKey(email, purpose)] = code
	return nil
}

// DeliverPasswordReset implements auth.ResetChannel.
func (o *Outbox) DeliverPasswordReset(_ context.Context, email auth.Email, token auth.IssuedToken) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.resets[email.String()] = token
	return nil
}

// Code returns the last code delivered for email and purpose.
func (o *Outbox) Code(email auth.Email, purpose auth.OTPPurpose) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	code, ok := o.codes[otpKey(email, purpose)]
	return code, ok
}

// ResetToken returns the last reset token delivered to email.
func (o *Outbox) ResetToken(email auth.Email) (auth.IssuedToken, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	token, ok := o.resets[email.String()]
	return token, ok
}

// Profiles is an in-memory auth.ProfileProvisioner. Setting Err makes every
// call fail.
type Profiles struct {
	mu         sync.Mutex
	candidates map[ulid.ULID]bool
	recruiters map[ulid.ULID]bool
	Err        error
}

// NewProfiles creates an empty Profiles.
func NewProfiles() *Profiles {
	return &Profiles{candidates: make(map[ulid.ULID]bool), recruiters: make(map[ulid.ULID]bool)}
}

// CreateCandidateProfile implements auth.ProfileProvisioner.
func (p *Profiles) CreateCandidateProfile(_ context.Context, userID ulid.ULID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.candidates[userID] = true
	return nil
}

// CreateRecruiterProfile implements auth.ProfileProvisioner.
func (p *Profiles) CreateRecruiterProfile(_ context.Context, userID ulid.ULID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.recruiters[userID] = true
	return nil
}

// HasCandidate reports whether a candidate profile exists for userID.
func (p *Profiles) HasCandidate(userID ulid.ULID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.candidates[userID]
}

// HasRecruiter reports whether a recruiter profile exists for userID.
func (p *Profiles) HasRecruiter(userID ulid.ULID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recruiters[userID]
}

// Verify interfaces are satisfied.
var (
	_ auth.UserRepository     = (*UserStore)(nil)
	_ auth.OTPRepository      = (*OTPStore)(nil)
	_ auth.OTPChannel         = (*Outbox)(nil)
	_ auth.ResetChannel       = (*Outbox)(nil)
	_ auth.ProfileProvisioner = (*Profiles)(nil)
)
