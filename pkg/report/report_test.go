package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"twinkscan/pkg/logger"
	"twinkscan/pkg/retry"
	"twinkscan/pkg/store"
)

func TestMessages(t *testing.T) {
	p := Progress(20, 7, 1.2)
	assert.Equal(t, TypeProgress, p.Type)
	assert.Equal(t, 20, p.Total)
	assert.Equal(t, 7, p.Processed)

	assert.Equal(t, "Пауза 3с для предотвращения капчи...", Break(3200*time.Millisecond).Message)
	assert.Equal(t, CaptchaNotice, Captcha().Message)
	assert.Equal(t, RateLimitNotice, RateLimit().Message)
	assert.Equal(t, "x<br>", Result("x<br>").Content)
}

func TestBusFanOut(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	bus := NewBus(a)
	bus.Add(b)

	require.NoError(t, bus.Deliver(context.Background(), Result("line")))
	assert.Len(t, a.Messages(), 1)
	assert.Len(t, b.Messages(), 1)
}

func noWait(context.Context, time.Duration) error { return nil }

func TestBusRetriesOnlyFailingSinks(t *testing.T) {
	ctx := context.Background()
	healthy, flaky := &Recorder{}, &Recorder{}
	flaky.FailNext(2)
	bus := NewBus(healthy, flaky)

	cfg := &retry.Config{MaxAttempts: 3, Sleep: noWait, Context: ctx}
	require.NoError(t, DeliverWithRetry(ctx, bus, Result("line<br>"), cfg))

	assert.Len(t, healthy.Messages(), 1)
	assert.Len(t, flaky.Messages(), 1)
}

func TestBusRetryGivesUp(t *testing.T) {
	ctx := context.Background()
	healthy, dead := &Recorder{}, &Recorder{}
	dead.FailAlways()

	calls := 0
	counting := SinkFunc(func(ctx context.Context, msg Message) error {
		calls++
		return dead.Deliver(ctx, msg)
	})

	cfg := &retry.Config{MaxAttempts: 3, Sleep: noWait, Context: ctx}
	err := DeliverWithRetry(ctx, NewBus(healthy, NewBus(counting)), Result("line<br>"), cfg)
	require.Error(t, err)

	assert.Len(t, healthy.Messages(), 1)
	assert.Equal(t, 3, calls)
}

func TestBusJoinsFailures(t *testing.T) {
	failing := &Recorder{Err: errors.New("closed")}
	failing.FailNext(1)
	ok := &Recorder{}

	err := NewBus(failing, ok).Deliver(context.Background(), Captcha())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "captcha_detected: closed")
	assert.Len(t, ok.OfType(TypeCaptcha), 1)

	// failure budget spent
	require.NoError(t, NewBus(failing).Deliver(context.Background(), Captcha()))
}

func TestRecorderFailAlways(t *testing.T) {
	r := &Recorder{}
	r.FailAlways()
	for i := 0; i < 3; i++ {
		assert.Error(t, r.Deliver(context.Background(), Result("x")))
	}
	assert.Empty(t, r.Messages())
}

func TestStoreSink(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	sink := StoreSink{Store: s}

	require.NoError(t, sink.Deliver(ctx, Result("ignored")))
	require.NoError(t, sink.Deliver(ctx, Progress(10, 4, 1.0)))

	values, err := s.Get(ctx, store.KeyProgressData)
	require.NoError(t, err)
	var progress store.Progress
	_, err = values.Decode(store.KeyProgressData, &progress)
	require.NoError(t, err)
	assert.Equal(t, store.Progress{Total: 10, Processed: 4}, progress)
}

func TestLogSink(t *testing.T) {
	tl := logger.NewTestLogger()
	sink := LogSink{Log: tl}

	ctx := context.Background()
	require.NoError(t, sink.Deliver(ctx, Progress(10, 5, 1.0)))
	require.NoError(t, sink.Deliver(ctx, RateLimit()))
	require.NoError(t, sink.Deliver(ctx, Break(2*time.Second)))

	assert.True(t, tl.HasMessage("Scan progress"))
	assert.True(t, tl.HasMessage(RateLimitNotice))
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
}
