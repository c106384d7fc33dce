package probes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"twinkscan/pkg/config"
	"twinkscan/pkg/page"
)

func roster(t *testing.T, extra string) *page.Snapshot {
	t.Helper()
	snap, err := page.NewSnapshot("https://example.test/members", "", page.RosterHTML(page.NewFake(3).Items, extra))
	require.NoError(t, err)
	return snap
}

func TestCleanRoster(t *testing.T) {
	d := NewDetector(config.DefaultWorklistSelector)
	snap := roster(t, "")

	assert.False(t, d.LooksLikeChallenge(snap))
	assert.False(t, d.LooksRateLimited(snap))
	assert.False(t, d.LooksSuspicious(snap, 0))
	assert.Equal(t, SignalNone, d.Classify(snap, 0))
}

func TestLooksLikeChallenge(t *testing.T) {
	d := NewDetector(config.DefaultWorklistSelector)

	tests := []struct {
		name  string
		url   string
		title string
		body  string
	}{
		{name: "cloudflare wrapper", body: `<div class="cf-wrapper"></div>`},
		{name: "captcha attribute", body: `<div data-captcha="1"></div>`},
		{name: "hcaptcha widget", body: `<iframe class="hcaptcha"></iframe>`},
		{name: "phrase any case", body: `<p>Checking Your Browser before accessing</p>`},
		{name: "ddos phrase", body: `<p>DDoS protection by someone</p>`},
		{name: "title", title: "Just a moment..."},
		{name: "url", url: "https://example.test/cdn-cgi/challenge-platform"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := tt.url
			if url == "" {
				url = "https://example.test/members"
			}
			snap, err := page.NewSnapshot(url, tt.title, page.RosterHTML(page.NewFake(1).Items, tt.body))
			require.NoError(t, err)

			assert.True(t, d.LooksLikeChallenge(snap))
			assert.Equal(t, SignalChallenge, d.Classify(snap, 5))
		})
	}
}

func TestLooksRateLimited(t *testing.T) {
	d := NewDetector(config.DefaultWorklistSelector)

	for _, body := range []string{
		`<p>Нельзя загружать эту страницу так часто</p>`,
		`<p>Ошибка #11536337</p>`,
		`<p>Вы делаете это так часто</p>`,
	} {
		snap := roster(t, body)
		assert.True(t, d.LooksRateLimited(snap), body)
		assert.Equal(t, SignalRateLimited, d.Classify(snap, 3), body)
	}
}

func TestLooksSuspicious(t *testing.T) {
	d := NewDetector(config.DefaultWorklistSelector)

	t.Run("warning element", func(t *testing.T) {
		snap := roster(t, `<div class="alert-error">Too Many requests</div>`)
		assert.True(t, d.LooksSuspicious(snap, 4))
		assert.Equal(t, SignalSuspicious, d.Classify(snap, 4))
	})

	t.Run("warning phrase outside warning element", func(t *testing.T) {
		snap := roster(t, `<p>too many cooks</p>`)
		assert.False(t, d.LooksSuspicious(snap, 4))
	})

	t.Run("localized warning", func(t *testing.T) {
		snap := roster(t, `<span class="limit-note">Слишком много запросов</span>`)
		assert.True(t, d.LooksSuspicious(snap, 4))
	})

	t.Run("upper case localized warning", func(t *testing.T) {
		snap := roster(t, `<div class="block-reason">НЕЛЬЗЯ ЗАГРУЖАТЬ ЭТУ СТРАНИЦУ</div>`)
		assert.True(t, d.LooksSuspicious(snap, 4))
	})

	t.Run("connection failure", func(t *testing.T) {
		snap := roster(t, `<pre>Could not establish connection. Receiving end does not exist.</pre>`)
		assert.True(t, d.LooksSuspicious(snap, 9))
	})

	t.Run("empty roster only at start", func(t *testing.T) {
		snap, err := page.NewSnapshot("https://example.test", "", "<html><body><p>Members</p></body></html>")
		require.NoError(t, err)

		assert.True(t, d.LooksSuspicious(snap, 0))
		assert.False(t, d.LooksSuspicious(snap, 3))
	})
}

func TestClassifyPriority(t *testing.T) {
	d := NewDetector(config.DefaultWorklistSelector)
	snap := roster(t, `<div class="captcha"></div><p>Нельзя загружать эту страницу так часто</p>`)

	assert.Equal(t, SignalChallenge, d.Classify(snap, 0))
	assert.Equal(t, "captcha", SignalChallenge.String())
	assert.Equal(t, "rate_limit", SignalRateLimited.String())
}
