package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"twinkscan/pkg/ui"
)

// View renders the entire TUI
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderLogo())

	width := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(width),
		m.renderPacingPanel(width),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderFlagsPanel(width),
		m.renderLogsPanel(width),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m Model) renderLogo() string {
	logo := `
╔════════════════════════════════════════════════╗
║  ▀█▀ █ █ █ █ █▄ █ █▄▀ █▀ █▀▀ ▄▀█ █▄ █           ║
║   █  ▀▄▀▄▀ █ █ ▀█ █ █ ▄█ █▄▄ █▀█ █ ▀█           ║
║        FACTION ROSTER CROSS-CHECK               ║
╚════════════════════════════════════════════════╝`
	return logoStyle.Width(m.width).Render(logo)
}

func (m Model) renderStatsPanel(width int) string {
	var content strings.Builder

	content.WriteString(titleStyle.Render(" SCAN "))
	if m.label != "" {
		content.WriteString(" " + statsValueStyle.Render(m.label))
	}
	content.WriteString("\n\n")

	status := m.status.String()
	if m.status == StatusRunning || m.status == StatusStarting {
		status = m.spinner.View() + " " + status
	}
	content.WriteString(m.stat("Status", StatusStyle(m.status).Render(status)))
	content.WriteString(m.stat("Roster", statsValueStyle.Render(fmt.Sprintf("%d", m.total))))
	content.WriteString(m.stat("Processed", statsValueStyle.Render(fmt.Sprintf("%d", m.processed))))
	content.WriteString(m.stat("Flagged", flagStyle.Render(fmt.Sprintf("%d", len(m.flags)))))
	content.WriteString(m.stat("Rate", statsValueStyle.Render(fmt.Sprintf("%.1f/min", m.tracker.Rate()))))
	content.WriteString(m.stat("ETA", statsValueStyle.Render(ui.FormatDuration(m.tracker.ETA()))))
	content.WriteString(m.stat("Elapsed", statsValueStyle.Render(formatDuration(m.tracker.Elapsed()))))
	content.WriteString("\n")
	content.WriteString(m.bar.ViewAs(m.Percent()))

	return panelStyle.Width(width).Render(content.String())
}

func (m Model) renderPacingPanel(width int) string {
	var content strings.Builder

	content.WriteString(titleStyle.Render(" PACING "))
	content.WriteString("\n\n")

	content.WriteString(m.stat("Slowdown",
		SlowdownStyle(m.slowdown).Render(fmt.Sprintf("x%.2f", m.slowdown))))
	content.WriteString(m.stat("Pauses", statsValueStyle.Render(fmt.Sprintf("%d", m.pauses))))

	switch m.status {
	case StatusBreak:
		left := time.Until(m.breakUntil)
		if left < 0 {
			left = 0
		}
		content.WriteString(warningStyle.Render(fmt.Sprintf("Break, %s left", ui.FormatDuration(left.Round(time.Second)))))
	case StatusPausedCaptcha:
		content.WriteString(errorStyle.Render("Solve the captcha in the browser, then press Enter"))
	case StatusPausedRateLimit:
		content.WriteString(errorStyle.Render("Rate limited, reloading"))
	default:
		content.WriteString(successStyle.Render("Pacing normally"))
	}

	return panelStyle.Width(width).Render(content.String())
}

func (m Model) renderFlagsPanel(width int) string {
	var content strings.Builder

	content.WriteString(titleStyle.Render(" FLAGS "))
	content.WriteString("\n\n")

	if len(m.flags) == 0 {
		content.WriteString(logMessageStyle.Render("Nothing flagged yet"))
		return panelStyle.Width(width).Render(content.String())
	}

	shown := m.flags
	if len(shown) > 8 {
		shown = shown[len(shown)-8:]
	}
	for _, line := range shown {
		content.WriteString(flagStyle.Render("⚑ " + truncate(line, width-8)))
		content.WriteString("\n")
	}
	if hidden := len(m.flags) - len(shown); hidden > 0 {
		content.WriteString(logMessageStyle.Render(fmt.Sprintf("... and %d more", hidden)))
	}

	return panelStyle.Width(width).Render(content.String())
}

func (m Model) renderLogsPanel(width int) string {
	var content strings.Builder

	content.WriteString(titleStyle.Render(" LOG "))
	content.WriteString("\n\n")

	start := 0
	if len(m.logMessages) > 8 {
		start = len(m.logMessages) - 8
	}
	for _, entry := range m.logMessages[start:] {
		content.WriteString(logTimestampStyle.Render(entry.Time.Format("15:04:05")))
		content.WriteString(" ")
		content.WriteString(lipgloss.NewStyle().Foreground(entry.Color).Render(entry.Level))
		content.WriteString(" ")
		content.WriteString(logMessageStyle.Render(truncate(entry.Message, width-22)))
		content.WriteString("\n")
	}

	return panelStyle.Width(width).Render(content.String())
}

func (m Model) renderHelp() string {
	return helpStyle.Render(strings.Join([]string{
		"enter       resume after solving a captcha",
		"q / ctrl+c  stop the scan and quit",
		"ctrl+l      clear the log",
		"?           toggle help",
	}, "\n"))
}

func (m Model) stat(label, value string) string {
	return statsLabelStyle.Render(fmt.Sprintf("%-10s", label)) + " " + value + "\n"
}

func truncate(s string, n int) string {
	if n <= 3 || len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
