package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "━"
	ProgressEmpty = "─"
)

// Tracker derives rate and ETA from progress snapshots. A resumed scan
// reports counts that include earlier runs; the rate only counts members
// processed since the tracker started.
type Tracker struct {
	start     time.Time
	base      int
	baseSet   bool
	total     int
	processed int
	now       func() time.Time
}

// NewTracker creates a tracker starting now
func NewTracker() *Tracker {
	return newTrackerAt(time.Now)
}

func newTrackerAt(now func() time.Time) *Tracker {
	return &Tracker{start: now(), now: now}
}

// Update records a progress snapshot
func (t *Tracker) Update(total, processed int) {
	if !t.baseSet && processed > 0 {
		t.base = processed - 1
		t.baseSet = true
	}
	t.total = total
	t.processed = processed
}

// Total returns the last reported roster size
func (t *Tracker) Total() int { return t.total }

// Processed returns the last reported processed count
func (t *Tracker) Processed() int { return t.processed }

// Elapsed returns the time since the tracker started
func (t *Tracker) Elapsed() time.Duration {
	return t.now().Sub(t.start)
}

// Rate returns members processed per minute in this run
func (t *Tracker) Rate() float64 {
	minutes := t.Elapsed().Minutes()
	done := t.processed - t.base
	if minutes <= 0 || done <= 0 {
		return 0
	}
	return float64(done) / minutes
}

// ETA estimates the remaining time, zero when unknown
func (t *Tracker) ETA() time.Duration {
	rate := t.Rate()
	remaining := t.total - t.processed
	if rate <= 0 || remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / rate * float64(time.Minute))
}

// Percent returns completion in percent
func (t *Tracker) Percent() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.processed) / float64(t.total) * 100
}

// Bar renders a fixed-width text progress bar
func (t *Tracker) Bar(width int) string {
	filled := 0
	if t.total > 0 {
		filled = t.processed * width / t.total
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "--"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
