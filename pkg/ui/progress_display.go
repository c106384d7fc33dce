package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"twinkscan/pkg/factions"
	"twinkscan/pkg/report"
)

var _ report.Sink = (*ProgressDisplay)(nil)

// ProgressDisplay is the plain terminal surface: one rewritten progress
// line, with flags and pauses printed above it
type ProgressDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	label   string
	tracker *Tracker
	flags   int
	slow    float64
	isDebug bool
}

// NewProgressDisplay creates a display writing to out
func NewProgressDisplay(out io.Writer, label string, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:     out,
		label:   label,
		tracker: NewTracker(),
		slow:    1,
		isDebug: debug,
	}
}

// Deliver renders msg
func (p *ProgressDisplay) Deliver(_ context.Context, msg report.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch msg.Type {
	case report.TypeProgress:
		p.tracker.Update(msg.Total, msg.Processed)
		if msg.SlowdownMultiplier > 0 {
			p.slow = msg.SlowdownMultiplier
		}
		if !p.isDebug {
			p.printProgress()
		}

	case report.TypeResult:
		lines := factions.SplitLines(msg.Content)
		p.flags += len(lines)
		p.clearLine()
		for _, line := range lines {
			fmt.Fprintf(p.out, "%s %s\n", Red("⚑"), strings.TrimSuffix(line, factions.LineBreak))
		}
		p.printProgress()

	case report.TypeBreak:
		p.clearLine()
		fmt.Fprintf(p.out, "%s %s\n", Magenta("…"), msg.Message)

	case report.TypeCaptcha, report.TypeRateLimit:
		p.clearLine()
		fmt.Fprintf(p.out, "%s %s\n", Yellow("⚠"), msg.Message)

	case report.TypeFinished:
		p.complete(msg)
	}
	return nil
}

// Flags returns how many flag lines were shown
func (p *ProgressDisplay) Flags() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flags
}

func (p *ProgressDisplay) printProgress() {
	t := p.tracker
	line := fmt.Sprintf("%s [%s] %d/%d • %.1f/min • ETA %s • x%.2f",
		Cyan(p.label),
		t.Bar(20),
		t.Processed(),
		t.Total(),
		t.Rate(),
		FormatDuration(t.ETA()),
		p.slow,
	)
	if p.flags > 0 {
		line += " • " + Red(fmt.Sprintf("%d flagged", p.flags))
	}
	p.clearLine()
	fmt.Fprint(p.out, line)
}

func (p *ProgressDisplay) clearLine() {
	fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 120))
}

func (p *ProgressDisplay) complete(msg report.Message) {
	p.clearLine()
	switch msg.Message {
	case "completed":
		fmt.Fprintf(p.out, "%s Scanned %d members, %d lines flagged\n", Green("✓"), msg.Total, p.flags)
	case "stopped":
		fmt.Fprintf(p.out, "%s Stopped at %d/%d\n", Yellow("■"), msg.Processed, msg.Total)
	default:
		fmt.Fprintf(p.out, "%s Paused (%s) at %d/%d\n", Yellow("⏸"), msg.Message, msg.Processed, msg.Total)
	}
	fmt.Fprintf(p.out, "  %s elapsed %s\n", Dim("•"), FormatDuration(p.tracker.Elapsed()))
}
