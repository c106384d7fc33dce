package scanner

import "twinkscan/pkg/pacing"

// Outcome is how a scan pass ended
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomePausedCaptcha
	OutcomePausedRateLimit
	OutcomeStopped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomePausedCaptcha:
		return "paused_captcha"
	case OutcomePausedRateLimit:
		return "paused_rate_limit"
	case OutcomeStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// State is owned by the controller goroutine
type State struct {
	CurrentIndex int
	TotalCount   int
	IsWorking    bool
	Pressure     pacing.Pressure
}

// Remaining returns how many items are left in the pass
func (s State) Remaining() int {
	if s.TotalCount <= s.CurrentIndex {
		return 0
	}
	return s.TotalCount - s.CurrentIndex
}
