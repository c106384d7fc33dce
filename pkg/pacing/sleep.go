package pacing

import (
	"context"
	"sync"
	"time"

	"twinkscan/pkg/retry"
)

// Sleeper suspends the caller for d or until ctx is done
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleepFunc adapts a function to Sleeper
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f
func (f SleepFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

// RealSleeper waits on a timer
var RealSleeper Sleeper = SleepFunc(retry.Wait)

// RecordingSleeper returns immediately and remembers every requested delay
type RecordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Sleep records d and returns the context error, if any
func (r *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

// Delays returns the recorded delays in order
func (r *RecordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.delays))
	copy(out, r.delays)
	return out
}

// Total returns the sum of all recorded delays
func (r *RecordingSleeper) Total() time.Duration {
	var total time.Duration
	for _, d := range r.Delays() {
		total += d
	}
	return total
}
