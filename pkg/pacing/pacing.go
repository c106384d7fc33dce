package pacing

import (
	"math"
	"math/rand"
	"time"

	"twinkscan/pkg/config"
)

const (
	baseThreshold     = 50
	minThreshold      = 20
	errorWeight       = 5
	frequencyFactor   = 1.2
	frequencyCap      = 2.0
	relaxFactor       = 0.95
	errorDecay        = 0.1
	connErrorTrigger  = 3
	connErrorFactor   = 1.5
	connErrorCap      = 3.0
	antiBurstBase     = 8
	antiBurstSpread   = 8
	defaultWindowSize = 30 * time.Second
)

// Controller-side delay ranges, half-open [lo, hi)
var (
	BreakRange  = Range{2000 * time.Millisecond, 5000 * time.Millisecond}
	SettleRange = Range{300 * time.Millisecond, 800 * time.Millisecond}
	RevealRange = Range{200 * time.Millisecond, 600 * time.Millisecond}
)

// Range is a pair of delay bounds
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Pressure is the request-pressure part of the scan state. The engine only
// ever mutates the Pressure it is handed.
type Pressure struct {
	SlowdownMultiplier float64     `json:"slowdownMultiplier"`
	ErrorCount         float64     `json:"errorCount"`
	RecentRequests     []time.Time `json:"-"`
}

// NewPressure returns a Pressure at rest
func NewPressure() Pressure {
	return Pressure{SlowdownMultiplier: 1.0}
}

// Random is the source of uniform draws in [0, 1)
type Random interface {
	Float64() float64
}

// Config holds the delay bounds and override chances
type Config struct {
	Delay               Range
	LongPause           Range
	LongPauseChance     float64
	VeryLongPause       Range
	VeryLongPauseChance float64
	Window              time.Duration
}

// DefaultConfig returns the stock pacing profile
func DefaultConfig() Config {
	return FromConfig(config.DefaultConfig().Pacing)
}

// FromConfig converts the pacing section of the application config
func FromConfig(pc config.PacingConfig) Config {
	window := pc.RequestWindow
	if window <= 0 {
		window = defaultWindowSize
	}
	return Config{
		Delay:               Range{pc.MinDelay, pc.MaxDelay},
		LongPause:           Range{pc.LongPauseMin, pc.LongPauseMax},
		LongPauseChance:     pc.LongPauseChance,
		VeryLongPause:       Range{pc.VeryLongPauseMin, pc.VeryLongPauseMax},
		VeryLongPauseChance: pc.VeryLongPauseChance,
		Window:              window,
	}
}

// Engine computes human-like delays adapted to request pressure
type Engine struct {
	cfg  Config
	rand Random
	now  func() time.Time

	// TimeMultiplier scales every delay by time of day; fixed at 1.0 unless replaced
	TimeMultiplier func(time.Time) float64
}

// Option configures an Engine
type Option func(*Engine)

// WithRandom replaces the random source
func WithRandom(r Random) Option {
	return func(e *Engine) { e.rand = r }
}

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates a pacing engine
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:            cfg,
		rand:           rand.New(rand.NewSource(time.Now().UnixNano())),
		now:            time.Now,
		TimeMultiplier: func(time.Time) float64 { return 1.0 },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NextDelay returns the wait before the next item. A very long pause is
// checked first, then a long pause; at most one override applies.
func (e *Engine) NextDelay(p *Pressure) time.Duration {
	delay := e.inclusive(e.cfg.Delay)

	if e.rand.Float64() < e.cfg.VeryLongPauseChance {
		delay = e.inclusive(e.cfg.VeryLongPause)
	} else if e.rand.Float64() < e.cfg.LongPauseChance {
		delay = e.inclusive(e.cfg.LongPause)
	}

	multiplier := e.TimeMultiplier(e.now()) * e.UpdateRequestFrequency(p)
	return time.Duration(float64(delay) * multiplier)
}

// UpdateRequestFrequency records a request and adjusts the slowdown
// multiplier to the number of requests inside the window.
func (e *Engine) UpdateRequestFrequency(p *Pressure) float64 {
	now := e.now()
	p.RecentRequests = append(p.RecentRequests, now)
	p.RecentRequests = prune(p.RecentRequests, now, e.cfg.Window)

	threshold := math.Max(minThreshold, baseThreshold-p.ErrorCount*errorWeight)
	count := float64(len(p.RecentRequests))

	switch {
	case count > threshold:
		Escalate(p, frequencyFactor, frequencyCap)
	case count < threshold*0.5:
		p.SlowdownMultiplier = math.Max(p.SlowdownMultiplier*relaxFactor, 1.0)
		p.ErrorCount = math.Max(p.ErrorCount-errorDecay, 0)
	}

	return p.SlowdownMultiplier
}

// OnConnectionError counts a failed delivery and slows down once errors pile up
func (e *Engine) OnConnectionError(p *Pressure) {
	p.ErrorCount++
	if p.ErrorCount >= connErrorTrigger {
		Escalate(p, connErrorFactor, connErrorCap)
	}
}

// Escalate multiplies the slowdown by factor up to limit. A multiplier
// already at or above limit is left alone.
func Escalate(p *Pressure, factor, limit float64) {
	if p.SlowdownMultiplier >= limit {
		return
	}
	p.SlowdownMultiplier = math.Min(p.SlowdownMultiplier*factor, limit)
}

// AntiBurstDue reports whether a break is due at index. The period is
// re-drawn from 8..15 on every call.
func (e *Engine) AntiBurstDue(index int) bool {
	if index <= 0 {
		return false
	}
	period := e.Intn(antiBurstSpread) + antiBurstBase
	return index%period == 0
}

// BreakDuration draws the anti-burst break length
func (e *Engine) BreakDuration() time.Duration { return e.Between(BreakRange) }

// SettleDelay draws the post-item settle delay
func (e *Engine) SettleDelay() time.Duration { return e.Between(SettleRange) }

// RevealDelay draws the pre-item reveal delay
func (e *Engine) RevealDelay() time.Duration { return e.Between(RevealRange) }

// Between draws whole milliseconds uniformly from [r.Min, r.Max)
func (e *Engine) Between(r Range) time.Duration {
	lo, hi := r.Min.Milliseconds(), r.Max.Milliseconds()
	if hi <= lo {
		return r.Min
	}
	return time.Duration(lo+int64(e.rand.Float64()*float64(hi-lo))) * time.Millisecond
}

// Intn draws an integer uniformly from [0, n)
func (e *Engine) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(e.rand.Float64() * float64(n))
}

// Float64 draws from [0, 1)
func (e *Engine) Float64() float64 {
	return e.rand.Float64()
}

// Chance returns true with probability p
func (e *Engine) Chance(p float64) bool {
	return e.rand.Float64() < p
}

// inclusive draws whole milliseconds uniformly from [r.Min, r.Max]
func (e *Engine) inclusive(r Range) time.Duration {
	lo, hi := r.Min.Milliseconds(), r.Max.Milliseconds()
	if hi <= lo {
		return r.Min
	}
	return time.Duration(lo+int64(e.rand.Float64()*float64(hi-lo+1))) * time.Millisecond
}

// prune drops timestamps that have left the window
func prune(requests []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(requests) && now.Sub(requests[i]) >= window {
		i++
	}
	if i > 0 {
		copy(requests, requests[i:])
		requests = requests[:len(requests)-i]
	}
	return requests
}
