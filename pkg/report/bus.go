package report

import (
	"context"
	"errors"
	"fmt"
	"sync"

	errs "twinkscan/pkg/errors"
	"twinkscan/pkg/logger"
	"twinkscan/pkg/retry"
	"twinkscan/pkg/store"
)

// Sink receives messages
type Sink interface {
	Deliver(ctx context.Context, msg Message) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, msg Message) error

// Deliver calls f
func (f SinkFunc) Deliver(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Bus fans a message out to every registered sink
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewBus creates a bus with the given sinks
func NewBus(sinks ...Sink) *Bus {
	return &Bus{sinks: sinks}
}

// Add registers another sink
func (b *Bus) Add(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Deliver sends msg to all sinks and joins their failures. One failing
// sink does not keep the others from receiving the message.
func (b *Bus) Deliver(ctx context.Context, msg Message) error {
	var failures []error
	for _, s := range b.snapshot() {
		if err := s.Deliver(ctx, msg); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", msg.Type, err))
		}
	}
	return errors.Join(failures...)
}

// DeliverWithRetry is Deliver with cfg applied to each sink on its own. A
// sink that took the message is not sent it again.
func (b *Bus) DeliverWithRetry(ctx context.Context, msg Message, cfg *retry.Config) error {
	var failures []error
	for _, s := range b.snapshot() {
		if err := DeliverWithRetry(ctx, s, msg, cfg); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", msg.Type, err))
		}
	}
	return errors.Join(failures...)
}

func (b *Bus) snapshot() []Sink {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	return sinks
}

// DeliverWithRetry retries delivering msg to s. Buses are retried per sink.
func DeliverWithRetry(ctx context.Context, s Sink, msg Message, cfg *retry.Config) error {
	if b, ok := s.(*Bus); ok {
		return b.DeliverWithRetry(ctx, msg, cfg)
	}
	return retry.Do(func() error {
		if err := s.Deliver(ctx, msg); err != nil {
			return errs.Messaging("deliver_"+string(msg.Type), err)
		}
		return nil
	}, cfg)
}

// LogSink writes every message to a logger
type LogSink struct {
	Log logger.Logger
}

func (s LogSink) Deliver(_ context.Context, msg Message) error {
	switch msg.Type {
	case TypeProgress:
		logger.LogScanProgress(s.Log, msg.Processed, msg.Total, msg.SlowdownMultiplier)
	case TypeResult:
		s.Log.WithField("content", msg.Content).Debug("Result delivered")
	case TypeCaptcha, TypeRateLimit:
		s.Log.Warn(msg.Message)
	default:
		s.Log.Info(msg.Message)
	}
	return nil
}

// StoreSink persists the latest progress snapshot
type StoreSink struct {
	Store store.Store
}

func (s StoreSink) Deliver(ctx context.Context, msg Message) error {
	if msg.Type != TypeProgress {
		return nil
	}
	return s.Store.Set(ctx, map[string]any{
		store.KeyProgressData: store.Progress{Total: msg.Total, Processed: msg.Processed},
	})
}

// Recorder keeps every delivered message. FailNext makes the following
// deliveries fail, which tests use to exercise retries.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	failNext int
	failAll  bool
	Err      error
}

// FailNext makes the next n deliveries fail
func (r *Recorder) FailNext(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = n
}

// FailAlways makes every delivery fail
func (r *Recorder) FailAlways() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAll = true
}

func (r *Recorder) Deliver(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failAll || r.failNext > 0 {
		if r.failNext > 0 {
			r.failNext--
		}
		if r.Err != nil {
			return r.Err
		}
		return errors.New("receiving end does not exist")
	}
	r.messages = append(r.messages, msg)
	return nil
}

// Messages returns the recorded messages
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// OfType returns the recorded messages of one type
func (r *Recorder) OfType(t Type) []Message {
	var out []Message
	for _, msg := range r.Messages() {
		if msg.Type == t {
			out = append(out, msg)
		}
	}
	return out
}
