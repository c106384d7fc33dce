package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"twinkscan/pkg/report"
)

var _ report.Sink = (*TUI)(nil)

// TUI is the full-screen scan surface. It only receives messages; the
// scan itself runs elsewhere.
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates the interface
func NewTUI(label string, controls Controls, opts ...tea.ProgramOption) *TUI {
	model := NewModel(label, controls)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
	}
}

// Start runs the interface until it quits
func (t *TUI) Start() error {
	go t.program.Send(TickMsg{})
	_, err := t.program.Run()
	return err
}

// Stop quits the interface
func (t *TUI) Stop() {
	t.program.Quit()
}

// Deliver forwards a scanner message to the interface
func (t *TUI) Deliver(_ context.Context, msg report.Message) error {
	t.program.Send(ScanMsg{Message: msg})
	return nil
}

// Log adds a line to the log panel
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.program.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Flags returns the lines flagged during the session. Only call it after
// Start has returned.
func (t *TUI) Flags() []string {
	return t.model.Flags()
}
