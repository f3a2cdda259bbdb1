// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hireline Contributors

package auth_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hireline/hireline/internal/auth"
	"github.com/hireline/hireline/internal/auth/authtest"
	"github.com/hireline/hireline/internal/auth/mocks"
)

type otpFixture struct {
	svc    *auth.OTPService
	store  *authtest.OTPStore
	outbox *authtest.Outbox
	now    *time.Time
}

func newOTPFixture(t *testing.T, opts ...auth.OTPOption) *otpFixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := &otpFixture{store: authtest.NewOTPStore(), outbox: authtest.NewOutbox(), now: &now}
	base := []auth.OTPOption{
		auth.WithOTPClock(func() time.Time { return *f.now }),
		auth.WithOTPCodeGenerator(func(int) (string, error) { return "123456", nil }),
	}
	svc, err := auth.NewOTPService(f.store, f.outbox, otpSecret, append(base, opts...)...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewOTPService_Validation(t *testing.T) {
	store := authtest.NewOTPStore()
	outbox := authtest.NewOutbox()

	_, err := auth.NewOTPService(nil, outbox, otpSecret)
	assert.ErrorContains(t, err, "repository is required")
	_, err = auth.NewOTPService(store, nil, otpSecret)
	assert.ErrorContains(t, err, "channel is required")
	_, err = auth.NewOTPService(store, outbox, []byte("short"))
	assert.ErrorContains(t, err, "at least 32 bytes")
}

func TestOTPService_CreateAndVerify(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t)
	email := auth.MustEmail("a@x.com")

	require.NoError(t, f.svc.Create(ctx, email, auth.PurposeRegisterCandidate))

	code, ok := f.outbox.Code(email, auth.PurposeRegisterCandidate)
	require.True(t, ok)
	assert.Equal(t, "123456", code)

	stored, err := f.store.Get(ctx, email, auth.PurposeRegisterCandidate)
	require.NoError(t, err)
	assert.NotEqual(t, "123456", stored.CodeHash, "plaintext must not be stored")
	assert.Equal(t, f.now.Add(auth.OTPExpiry), stored.ExpiresAt)

	require.NoError(t, f.svc.Verify(ctx, email, "123456", auth.PurposeRegisterCandidate))

	err = f.svc.Verify(ctx, email, "123456", auth.PurposeRegisterCandidate)
	require.Error(t, err)
	assert.Equal(t, auth.CodeOTPNotFound, auth.Code(err), "codes are single use")
}

func TestOTPService_Verify_Failures(t *testing.T) {
	ctx := context.Background()
	email := auth.MustEmail("a@x.com")

	t.Run("no challenge", func(t *testing.T) {
		f := newOTPFixture(t)
		err := f.svc.Verify(ctx, email, "123456", auth.PurposeRegisterCandidate)
		assert.Equal(t, auth.CodeOTPNotFound, auth.Code(err))
	})

	t.Run("wrong code keeps challenge", func(t *testing.T) {
		f := newOTPFixture(t)
		require.NoError(t, f.svc.Create(ctx, email, auth.PurposeRegisterCandidate))

		err := f.svc.Verify(ctx, email, "000000", auth.PurposeRegisterCandidate)
		assert.Equal(t, auth.CodeOTPInvalid, auth.Code(err))
		assert.Equal(t, 1, f.store.Len())
		require.NoError(t, f.svc.Verify(ctx, email, "123456", auth.PurposeRegisterCandidate))
	})

	t.Run("purpose mismatch", func(t *testing.T) {
		f := newOTPFixture(t)
		require.NoError(t, f.svc.Create(ctx, email, auth.PurposeRegisterCandidate))

		err := f.svc.Verify(ctx, email, "123456", auth.PurposeRegisterRecruiter)
		assert.Equal(t, auth.CodeOTPNotFound, auth.Code(err))
	})

	t.Run("expired code is removed", func(t *testing.T) {
		f := newOTPFixture(t)
		require.NoError(t, f.svc.Create(ctx, email, auth.PurposeRegisterCandidate))
		*f.now = f.now.Add(auth.OTPExpiry)

		err := f.svc.Verify(ctx, email, "123456", auth.PurposeRegisterCandidate)
		assert.Equal(t, auth.CodeOTPExpired, auth.Code(err))
		assert.Equal(t, 0, f.store.Len())
	})

	t.Run("repository failure is not an otp error", func(t *testing.T) {
		repo := mocks.NewMockOTPRepository(t)
		svc, err := auth.NewOTPService(repo, authtest.NewOutbox(), otpSecret)
		require.NoError(t, err)
		repo.On("Get", ctx, email, auth.PurposeRegisterCandidate).Return(nil, errors.New("connection reset"))

		err = svc.Verify(ctx, email, "123456", auth.PurposeRegisterCandidate)
		assert.Equal(t, "OTP_VERIFY_FAILED", auth.Code(err))
	})
}

func TestOTPService_Create_SupersedesPrevious(t *testing.T) {
	ctx := context.Background()
	email := auth.MustEmail("a@x.com")
	codes := []string{"111111", "222222"}
	var i atomic.Int32
	f := newOTPFixture(t, auth.WithOTPCodeGenerator(func(int) (string, error) {
		return codes[i.Add(1)-1], nil
	}))

	require.NoError(t, f.svc.Create(ctx, email, auth.PurposeRegisterCandidate))
	require.NoError(t, f.svc.Create(ctx, email, auth.PurposeRegisterCandidate))
	assert.Equal(t, 1, f.store.Len())

	err := f.svc.Verify(ctx, email, "111111", auth.PurposeRegisterCandidate)
	assert.Equal(t, auth.CodeOTPInvalid, auth.Code(err))
	require.NoError(t, f.svc.Verify(ctx, email, "222222", auth.PurposeRegisterCandidate))
}

func TestOTPService_Create_DeliveryFailureWithdrawsChallenge(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t)
	f.outbox.Err = errors.New("smtp down")

	err := f.svc.Create(ctx, auth.MustEmail("a@x.com"), auth.PurposeRegisterCandidate)
	require.Error(t, err)
	assert.Equal(t, "OTP_DELIVERY_FAILED", auth.Code(err))
	assert.Equal(t, 0, f.store.Len())
}

func TestOTPService_Create_ReplaceFailure(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewMockOTPRepository(t)
	channel := mocks.NewMockOTPChannel(t)
	svc, err := auth.NewOTPService(repo, channel, otpSecret)
	require.NoError(t, err)
	repo.On("Replace", ctx, mock.AnythingOfType("*auth.OTPChallenge")).Return(errors.New("db down"))

	err = svc.Create(ctx, auth.MustEmail("a@x.com"), auth.PurposeRegisterCandidate)
	require.Error(t, err)
	assert.Equal(t, "OTP_CREATE_FAILED", auth.Code(err))
	channel.AssertNotCalled(t, "DeliverOTP")
}

type denyAfter struct {
	mu      sync.Mutex
	allowed int
}

func (d *denyAfter) Allow(string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.allowed == 0 {
		return false
	}
	d.allowed--
	return true
}

func TestOTPService_Create_Throttled(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t, auth.WithOTPThrottle(&denyAfter{allowed: 1}))
	email := auth.MustEmail("a@x.com")

	require.NoError(t, f.svc.Create(ctx, email, auth.PurposeRegisterCandidate))
	err := f.svc.Create(ctx, email, auth.PurposeRegisterCandidate)
	require.Error(t, err)
	assert.Equal(t, auth.CodeOTPRateLimited, auth.Code(err))
}

func TestOTPService_ConcurrentVerifySucceedsOnce(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t)
	email := auth.MustEmail("a@x.com")
	require.NoError(t, f.svc.Create(ctx, email, auth.PurposeRegisterCandidate))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.svc.Verify(ctx, email, "123456", auth.PurposeRegisterCandidate) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestOTPService_Verify_WrongCodesWithdrawChallenge(t *testing.T) {
	ctx := context.Background()
	email := auth.MustEmail("a@x.com")

	t.Run("default limit", func(t *testing.T) {
		f := newOTPFixture(t)
		require.NoError(t, f.svc.Create(ctx, email, auth.PurposeRegisterCandidate))

		for i := range auth.DefaultOTPMaxFailedAttempts {
			err := f.svc.Verify(ctx, email, "000000", auth.PurposeRegisterCandidate)
			assert.Equal(t, auth.CodeOTPInvalid, auth.Code(err), "attempt %d", i+1)
		}
		err := f.svc.Verify(ctx, email, "000000", auth.PurposeRegisterCandidate)
		assert.Equal(t, auth.CodeOTPRateLimited, auth.Code(err))

		err = f.svc.Verify(ctx, email, "123456", auth.PurposeRegisterCandidate)
		assert.Equal(t, auth.CodeOTPNotFound, auth.Code(err), "correct code after lockout must fail")
		_, err = f.store.Get(ctx, email, auth.PurposeRegisterCandidate)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("reissued code gets a fresh budget", func(t *testing.T) {
		f := newOTPFixture(t, auth.WithOTPMaxFailedAttempts(1))
		require.NoError(t, f.svc.Create(ctx, email, auth.PurposeRegisterCandidate))
		assert.Equal(t, auth.CodeOTPInvalid, auth.Code(f.svc.Verify(ctx, email, "000000", auth.PurposeRegisterCandidate)))
		assert.Equal(t, auth.CodeOTPRateLimited, auth.Code(f.svc.Verify(ctx, email, "000000", auth.PurposeRegisterCandidate)))

		require.NoError(t, f.svc.Create(ctx, email, auth.PurposeRegisterCandidate))
		assert.Equal(t, auth.CodeOTPInvalid, auth.Code(f.svc.Verify(ctx, email, "000000", auth.PurposeRegisterCandidate)))
		require.NoError(t, f.svc.Verify(ctx, email, "123456", auth.PurposeRegisterCandidate))
	})

	t.Run("budgets are per challenge", func(t *testing.T) {
		f := newOTPFixture(t, auth.WithOTPMaxFailedAttempts(1))
		other := auth.MustEmail("b@x.com")
		require.NoError(t, f.svc.Create(ctx, email, auth.PurposeRegisterCandidate))
		require.NoError(t, f.svc.Create(ctx, other, auth.PurposeRegisterCandidate))

		assert.Equal(t, auth.CodeOTPInvalid, auth.Code(f.svc.Verify(ctx, email, "000000", auth.PurposeRegisterCandidate)))
		assert.Equal(t, auth.CodeOTPRateLimited, auth.Code(f.svc.Verify(ctx, email, "000000", auth.PurposeRegisterCandidate)))
		require.NoError(t, f.svc.Verify(ctx, other, "123456", auth.PurposeRegisterCandidate))
	})
}

func TestOTPService_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	f := newOTPFixture(t)
	require.NoError(t, f.svc.Create(ctx, auth.MustEmail("a@x.com"), auth.PurposeRegisterCandidate))
	require.NoError(t, f.svc.Create(ctx, auth.MustEmail("b@x.com"), auth.PurposeRegisterRecruiter))

	n, err := f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	*f.now = f.now.Add(time.Hour)
	n, err = f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
