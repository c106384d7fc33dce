package pacing

import "sync"

// Sequence is a Random that replays fixed values in a loop. It makes
// randomized control flow reproducible in tests and dry runs.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequence returns a Sequence over values; an empty list always yields 0
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

// Float64 returns the next value
func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}
