package ui

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"twinkscan/pkg/config"
	"twinkscan/pkg/report"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestTracker(t *testing.T) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	tr := newTrackerAt(c.now)

	tr.Update(20, 0)
	assert.Zero(t, tr.Rate())
	assert.Zero(t, tr.ETA())

	// resumed at 7, first item of this run done
	tr.Update(20, 8)
	c.t = c.t.Add(time.Minute)
	tr.Update(20, 10)

	assert.InDelta(t, 3.0, tr.Rate(), 1e-9)
	assert.Equal(t, 200*time.Second, tr.ETA())
	assert.InDelta(t, 50.0, tr.Percent(), 1e-9)
	assert.Equal(t, "━━━━━─────", tr.Bar(10))
}

func TestTrackerEmptyRoster(t *testing.T) {
	tr := NewTracker()
	tr.Update(0, 0)
	assert.Zero(t, tr.Percent())
	assert.Equal(t, "────", tr.Bar(4))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "--", FormatDuration(0))
	assert.Equal(t, "42s", FormatDuration(42*time.Second))
	assert.Equal(t, "3m5s", FormatDuration(185*time.Second))
	assert.Equal(t, "2h1m", FormatDuration(121*time.Minute))
}

func TestProgressDisplay(t *testing.T) {
	var out bytes.Buffer
	d := NewProgressDisplay(&out, "roster", false)
	ctx := context.Background()

	require.NoError(t, d.Deliver(ctx, report.Progress(4, 0, 1)))
	require.NoError(t, d.Deliver(ctx, report.Progress(4, 1, 1.2)))
	assert.Contains(t, out.String(), "1/4")
	assert.Contains(t, out.String(), "x1.20")

	require.NoError(t, d.Deliver(ctx, report.Result("offwarn 9 Твинк: Bloods | LSPD // by kenny<br>")))
	assert.Contains(t, out.String(), "offwarn 9 Твинк: Bloods | LSPD // by kenny\n")
	assert.Equal(t, 1, d.Flags())

	require.NoError(t, d.Deliver(ctx, report.Break(3*time.Second)))
	assert.Contains(t, out.String(), "Пауза 3с")

	require.NoError(t, d.Deliver(ctx, report.Captcha()))
	assert.Contains(t, out.String(), report.CaptchaNotice)

	require.NoError(t, d.Deliver(ctx, report.Finished("completed", 4, 4)))
	assert.Contains(t, out.String(), "Scanned 4 members, 1 lines flagged")
}

func TestProgressDisplayPaused(t *testing.T) {
	var out bytes.Buffer
	d := NewProgressDisplay(&out, "roster", true)

	require.NoError(t, d.Deliver(context.Background(), report.Finished("paused_captcha", 10, 3)))
	assert.Contains(t, out.String(), "Paused (paused_captcha) at 3/10")
}

type recordingSender struct {
	titles []string
}

func (r *recordingSender) Send(title, _ string) error {
	r.titles = append(r.titles, title)
	return nil
}

func TestNotifier(t *testing.T) {
	ctx := context.Background()
	all := config.NotificationConfig{Enabled: true, OnComplete: true, OnCaptcha: true, OnRateLimit: true}

	sender := &recordingSender{}
	var out bytes.Buffer
	n := NewNotifierWithSender(sender, all, &out)

	for _, msg := range []report.Message{
		report.Progress(3, 1, 1),
		report.Captcha(),
		report.RateLimit(),
		report.Finished("stopped", 3, 1),
		report.Finished("completed", 3, 3),
	} {
		require.NoError(t, n.Deliver(ctx, msg))
	}

	assert.Equal(t, []string{"Captcha", "Rate limit", "Scan complete"}, sender.titles)
	assert.Contains(t, out.String(), "3 members scanned")
}

func TestNotifierRespectsConfig(t *testing.T) {
	ctx := context.Background()
	sender := &recordingSender{}

	off := NewNotifierWithSender(sender, config.NotificationConfig{Enabled: false, OnCaptcha: true}, nil)
	require.NoError(t, off.Deliver(ctx, report.Captcha()))

	captchaOnly := NewNotifierWithSender(sender, config.NotificationConfig{Enabled: true, OnCaptcha: true}, nil)
	require.NoError(t, captchaOnly.Deliver(ctx, report.RateLimit()))
	require.NoError(t, captchaOnly.Deliver(ctx, report.Captcha()))

	assert.Equal(t, []string{"Captcha"}, sender.titles)
}

func TestPrintHelpers(t *testing.T) {
	var out bytes.Buffer
	prev := Output
	Output = &out
	defer func() { Output = prev }()

	PrintInfo("Roster", "20 members")
	PrintError("failed", "boom")
	PrintWarning("careful")

	assert.Contains(t, out.String(), "Roster")
	assert.Contains(t, out.String(), "failed: boom")
	assert.Contains(t, out.String(), "careful")
}
