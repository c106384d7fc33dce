package ui

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"twinkscan/pkg/config"
	"twinkscan/pkg/report"
)

var _ report.Sink = (*Notifier)(nil)

// NotificationSender is a platform-specific desktop notification backend
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name="+config.AppName, title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	escape := func(s string) string { return strings.ReplaceAll(s, "<", "&lt;") }
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("twinkscan").Show($toast)
	`, escape(title), escape(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// PlatformSender returns the sender for the current OS, or nil
func PlatformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// Notifier raises desktop notifications for events that need the
// operator: captcha, rate limit and the end of a scan
type Notifier struct {
	sender NotificationSender
	cfg    config.NotificationConfig
	out    io.Writer
}

// NewNotifier creates a notifier for the current platform
func NewNotifier(cfg config.NotificationConfig, out io.Writer) *Notifier {
	return NewNotifierWithSender(PlatformSender(), cfg, out)
}

// NewNotifierWithSender creates a notifier over an explicit sender
func NewNotifierWithSender(sender NotificationSender, cfg config.NotificationConfig, out io.Writer) *Notifier {
	return &Notifier{sender: sender, cfg: cfg, out: out}
}

// Deliver notifies on the events enabled in the config. Failing to reach
// the desktop is not an error.
func (n *Notifier) Deliver(_ context.Context, msg report.Message) error {
	if !n.cfg.Enabled {
		return nil
	}

	switch {
	case msg.Type == report.TypeCaptcha && n.cfg.OnCaptcha:
		n.SendError("Captcha", msg.Message)
	case msg.Type == report.TypeRateLimit && n.cfg.OnRateLimit:
		n.SendNotification("Rate limit", msg.Message)
	case msg.Type == report.TypeFinished && msg.Message == "completed" && n.cfg.OnComplete:
		n.SendSuccess("Scan complete", fmt.Sprintf("%d members scanned", msg.Total))
	}
	return nil
}

// SendNotification sends a desktop notification and echoes it
func (n *Notifier) SendNotification(title, message string) {
	n.echo(Cyan(title), Yellow(message))
	n.send(title, message)
}

// SendError sends an error notification
func (n *Notifier) SendError(title, message string) {
	n.echo(Red(title), Red(message))
	n.send(title, message)
}

// SendSuccess sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	n.echo(Green(title), Green(message))
	n.send(title, message)
}

func (n *Notifier) echo(title, message string) {
	if n.out != nil {
		fmt.Fprintf(n.out, "\n%s: %s\n", title, message)
	}
}

func (n *Notifier) send(title, message string) {
	if n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}
