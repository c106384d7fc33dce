package pacing

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(values ...float64) *Engine {
	return New(DefaultConfig(),
		WithRandom(NewSequence(values...)),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func filled(n int, at time.Time) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = at
	}
	return out
}

func TestNextDelayBaseline(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   time.Duration
	}{
		{"lowest baseline", []float64{0.0, 0.9, 0.9}, 800 * time.Millisecond},
		{"highest baseline", []float64{0.9999, 0.9, 0.9}, 1500 * time.Millisecond},
		{"very long pause wins", []float64{0.5, 0.01, 0.0}, 5000 * time.Millisecond},
		{"very long upper bound", []float64{0.5, 0.01, 0.9999}, 8000 * time.Millisecond},
		{"long pause", []float64{0.5, 0.9, 0.1, 0.0}, 2000 * time.Millisecond},
		{"long pause upper bound", []float64{0.5, 0.9, 0.1, 0.9999}, 4000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(tt.values...)
			p := NewPressure()
			assert.Equal(t, tt.want, e.NextDelay(&p))
		})
	}
}

func TestNextDelayScaledByMultiplier(t *testing.T) {
	e := newTestEngine(0.0, 0.9, 0.9)
	p := Pressure{SlowdownMultiplier: 2.0, RecentRequests: filled(30, fixedNow)}

	// 31 requests sit between the relax and escalate thresholds
	assert.Equal(t, 1600*time.Millisecond, e.NextDelay(&p))
	assert.Equal(t, 2.0, p.SlowdownMultiplier)
}

func TestNextDelayAlwaysWithinRanges(t *testing.T) {
	e := New(DefaultConfig(), WithRandom(rand.New(rand.NewSource(7))))
	p := NewPressure()

	for i := 0; i < 2000; i++ {
		d := e.NextDelay(&p)
		require.GreaterOrEqual(t, d, time.Duration(0))

		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 16000*time.Millisecond)
		assert.GreaterOrEqual(t, p.SlowdownMultiplier, 1.0)
	}
}

func TestUpdateRequestFrequency(t *testing.T) {
	t.Run("escalates above threshold", func(t *testing.T) {
		e := newTestEngine()
		p := Pressure{SlowdownMultiplier: 1.0, RecentRequests: filled(50, fixedNow)}

		assert.InDelta(t, 1.2, e.UpdateRequestFrequency(&p), 1e-9)
		assert.Len(t, p.RecentRequests, 51)
	})

	t.Run("escalation capped at 2.0", func(t *testing.T) {
		e := newTestEngine()
		p := Pressure{SlowdownMultiplier: 1.9, RecentRequests: filled(60, fixedNow)}

		assert.Equal(t, 2.0, e.UpdateRequestFrequency(&p))
	})

	t.Run("errors lower the threshold", func(t *testing.T) {
		e := newTestEngine()
		p := Pressure{SlowdownMultiplier: 1.0, ErrorCount: 6, RecentRequests: filled(20, fixedNow)}

		assert.InDelta(t, 1.2, e.UpdateRequestFrequency(&p), 1e-9)
	})

	t.Run("relaxes when quiet", func(t *testing.T) {
		e := newTestEngine()
		p := Pressure{SlowdownMultiplier: 1.5, ErrorCount: 0.05}

		assert.InDelta(t, 1.425, e.UpdateRequestFrequency(&p), 1e-9)
		assert.Equal(t, 0.0, p.ErrorCount)
	})

	t.Run("relax floors at 1.0", func(t *testing.T) {
		e := newTestEngine()
		p := Pressure{SlowdownMultiplier: 1.01, ErrorCount: 2}

		assert.Equal(t, 1.0, e.UpdateRequestFrequency(&p))
		assert.InDelta(t, 1.9, p.ErrorCount, 1e-9)
	})

	t.Run("stale entries pruned", func(t *testing.T) {
		e := newTestEngine()
		old := filled(40, fixedNow.Add(-31*time.Second))
		edge := filled(1, fixedNow.Add(-30*time.Second))
		fresh := filled(2, fixedNow.Add(-time.Second))

		var requests []time.Time
		requests = append(requests, old...)
		requests = append(requests, edge...)
		requests = append(requests, fresh...)
		p := Pressure{SlowdownMultiplier: 1.0, RecentRequests: requests}

		e.UpdateRequestFrequency(&p)
		assert.Len(t, p.RecentRequests, 3)
	})
}

func TestOnConnectionError(t *testing.T) {
	e := newTestEngine()
	p := NewPressure()

	e.OnConnectionError(&p)
	e.OnConnectionError(&p)
	assert.Equal(t, 2.0, p.ErrorCount)
	assert.Equal(t, 1.0, p.SlowdownMultiplier)

	e.OnConnectionError(&p)
	assert.Equal(t, 1.5, p.SlowdownMultiplier)

	e.OnConnectionError(&p)
	assert.Equal(t, 2.25, p.SlowdownMultiplier)

	e.OnConnectionError(&p)
	assert.Equal(t, 3.0, p.SlowdownMultiplier)
}

func TestEscalate(t *testing.T) {
	p := NewPressure()

	Escalate(&p, 2.0, 3.0)
	assert.Equal(t, 2.0, p.SlowdownMultiplier)

	Escalate(&p, 2.0, 3.0)
	assert.Equal(t, 3.0, p.SlowdownMultiplier)

	// a mild escalation never pulls a high multiplier down to its own cap
	Escalate(&p, 1.1, 1.3)
	assert.Equal(t, 3.0, p.SlowdownMultiplier)

	q := NewPressure()
	Escalate(&q, 1.1, 1.3)
	Escalate(&q, 1.1, 1.3)
	Escalate(&q, 1.1, 1.3)
	assert.Equal(t, 1.3, q.SlowdownMultiplier)
}

func TestAntiBurstDue(t *testing.T) {
	// 0.0 draws a period of 8, 0.99 draws 15
	e := newTestEngine(0.0)
	assert.False(t, e.AntiBurstDue(0))
	assert.True(t, e.AntiBurstDue(8))
	assert.True(t, e.AntiBurstDue(16))
	assert.False(t, e.AntiBurstDue(9))

	e = newTestEngine(0.99)
	assert.True(t, e.AntiBurstDue(15))
	assert.False(t, e.AntiBurstDue(8))
}

func TestControllerDraws(t *testing.T) {
	low := newTestEngine(0.0)
	high := newTestEngine(0.9999)

	assert.Equal(t, 2000*time.Millisecond, low.BreakDuration())
	assert.Equal(t, 4999*time.Millisecond, high.BreakDuration())
	assert.Equal(t, 300*time.Millisecond, low.SettleDelay())
	assert.Equal(t, 799*time.Millisecond, high.SettleDelay())
	assert.Equal(t, 200*time.Millisecond, low.RevealDelay())
	assert.Equal(t, 599*time.Millisecond, high.RevealDelay())
}

func TestHelpers(t *testing.T) {
	e := newTestEngine(0.25, 0.75)
	assert.True(t, e.Chance(0.3))
	assert.False(t, e.Chance(0.5))

	assert.Equal(t, 0, e.Intn(0))
	assert.Equal(t, time.Second, e.Between(Range{time.Second, time.Second}))
}

func TestRecordingSleeper(t *testing.T) {
	s := &RecordingSleeper{}
	require.NoError(t, s.Sleep(context.Background(), time.Second))
	require.NoError(t, s.Sleep(context.Background(), 2*time.Second))

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, s.Delays())
	assert.Equal(t, 3*time.Second, s.Total())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Sleep(ctx, time.Second), context.Canceled)
}
