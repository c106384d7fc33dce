package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "twinkscan/pkg/errors"
	"twinkscan/pkg/logger"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{9, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterStaysInBand(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		delay := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, delay, 140*time.Millisecond)
		assert.LessOrEqual(t, delay, 260*time.Millisecond)
	}
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 100 * time.Millisecond}
	assert.Equal(t, time.Duration(0), cb.NextDelay(0))
	assert.Equal(t, 100*time.Millisecond, cb.NextDelay(1))
	assert.Equal(t, 100*time.Millisecond, cb.NextDelay(7))
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	calls := 0
	var delays []time.Duration

	cfg := DeliveryConfig(context.Background(), logger.NewTestLogger())
	cfg.Sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	err := Do(func() error {
		calls++
		if calls < 3 {
			return errors.New("receiving end does not exist")
		}
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, delays)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	cause := errors.New("socket closed")

	cfg := DeliveryConfig(context.Background(), nil)
	cfg.Sleep = noSleep

	err := Do(func() error {
		calls++
		return cause
	}, cfg)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	cfg := &Config{MaxAttempts: 5, Sleep: noSleep, Context: context.Background()}

	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeConfig, "load", "broken", nil)
	}, cfg)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
		Context:     ctx,
	}

	err := Do(func() error { return errors.New("transient") }, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoOnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := &Config{
		MaxAttempts: 2,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Sleep:       noSleep,
		Context:     context.Background(),
		OnRetry: func(attempt int, _ error, _ time.Duration) {
			attempts = append(attempts, attempt)
		},
	}

	_ = Do(func() error { return errors.New("x") }, cfg)
	assert.Equal(t, []int{1}, attempts)
}

func TestDefaultConfigRetriesPageErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	cfg.Sleep = noSleep

	calls := 0
	err := Do(func() error {
		calls++
		if calls == 1 {
			return errs.Page("navigate", errors.New("detached"))
		}
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.True(t, DefaultRetryIf(errors.New("unknown")))
	assert.True(t, DefaultRetryIf(errs.Messaging("send", errors.New("x"))))
	assert.False(t, DefaultRetryIf(errs.Extraction("cards", errors.New("x"))))
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), 0))
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
