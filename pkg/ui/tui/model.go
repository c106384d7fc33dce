package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"twinkscan/pkg/factions"
	"twinkscan/pkg/report"
	"twinkscan/pkg/ui"
)

// Status is what the scan is doing right now
type Status int

const (
	StatusStarting Status = iota
	StatusRunning
	StatusBreak
	StatusPausedCaptcha
	StatusPausedRateLimit
	StatusStopped
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "SCANNING"
	case StatusBreak:
		return "ON BREAK"
	case StatusPausedCaptcha:
		return "CAPTCHA"
	case StatusPausedRateLimit:
		return "RATE LIMITED"
	case StatusStopped:
		return "STOPPED"
	case StatusCompleted:
		return "COMPLETED"
	default:
		return "STARTING"
	}
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the bubbletea model of a running scan
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	label      string
	status     Status
	total      int
	processed  int
	slowdown   float64
	breakUntil time.Time
	tracker    *ui.Tracker

	flags    []string
	maxFlags int
	pauses   int

	logMessages    []LogMessage
	maxLogMessages int

	width    int
	height   int
	showHelp bool
	controls Controls
}

// Controls are the operator actions the interface can trigger
type Controls struct {
	// Quit stops the scan
	Quit func()
	// Resume continues after a captcha has been solved
	Resume func()
}

// NewModel creates a model for scanning label
func NewModel(label string, controls Controls) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return Model{
		spinner:        s,
		bar:            bar,
		label:          label,
		slowdown:       1,
		tracker:        ui.NewTracker(),
		maxFlags:       200,
		maxLogMessages: 50,
		controls:       controls,
	}
}

// Init starts the spinner
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Apply folds a scanner message into the model
func (m *Model) Apply(msg report.Message) {
	switch msg.Type {
	case report.TypeProgress:
		m.total = msg.Total
		m.processed = msg.Processed
		if msg.SlowdownMultiplier > 0 {
			m.slowdown = msg.SlowdownMultiplier
		}
		m.tracker.Update(msg.Total, msg.Processed)
		m.status = StatusRunning

	case report.TypeResult:
		for _, line := range factions.SplitLines(msg.Content) {
			m.flags = append(m.flags, strings.TrimSuffix(line, factions.LineBreak))
		}
		if len(m.flags) > m.maxFlags {
			m.flags = m.flags[len(m.flags)-m.maxFlags:]
		}
		m.AddLogMessage("FLAG", "Twink flagged")

	case report.TypeBreak:
		m.status = StatusBreak
		m.breakUntil = msg.Time.Add(msg.Duration)
		m.AddLogMessage("INFO", msg.Message)

	case report.TypeCaptcha:
		m.status = StatusPausedCaptcha
		m.pauses++
		m.AddLogMessage("WARN", msg.Message)

	case report.TypeRateLimit:
		m.status = StatusPausedRateLimit
		m.pauses++
		m.AddLogMessage("WARN", msg.Message)

	case report.TypeFinished:
		switch msg.Message {
		case "completed":
			m.status = StatusCompleted
			m.AddLogMessage("SUCCESS", "Scan completed")
		case "stopped":
			m.status = StatusStopped
			m.AddLogMessage("WARN", "Scan stopped")
		}
	}
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR", "FLAG":
		color = neonRed
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Status returns the current status
func (m *Model) Status() Status { return m.status }

// Flags returns the flag lines received so far, oldest first
func (m *Model) Flags() []string {
	out := make([]string, len(m.flags))
	copy(out, m.flags)
	return out
}

// Percent returns completion in [0, 1]
func (m *Model) Percent() float64 {
	if m.total == 0 {
		return 0
	}
	p := float64(m.processed) / float64(m.total)
	if p > 1 {
		p = 1
	}
	return p
}
