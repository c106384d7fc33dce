package probes

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"twinkscan/pkg/page"
)

// Signal is what a snapshot says about the session
type Signal int

const (
	SignalNone Signal = iota
	SignalChallenge
	SignalRateLimited
	SignalSuspicious
)

func (s Signal) String() string {
	switch s {
	case SignalChallenge:
		return "captcha"
	case SignalRateLimited:
		return "rate_limit"
	case SignalSuspicious:
		return "suspicious"
	default:
		return "none"
	}
}

var challengeSelectors = []string{
	".cf-challenge-form",
	"#challenge-form",
	".captcha",
	"[data-captcha]",
	".recaptcha",
	".hcaptcha",
	".cloudflare-challenge",
	".challenge-running",
	".ray-id",
	".cf-wrapper",
	"#cf-challenge-running",
}

var challengePhrases = []string{
	"checking your browser",
	"verifying you are human",
	"cloudflare",
	"ddos protection",
	"please wait",
	"browser check",
	"security check",
	"verifying",
	"challenge",
	"ray id",
}

var challengeTitles = []string{"just a moment", "please wait"}

// RateLimitToken is the error code the site shows next to its throttle message
const RateLimitToken = "#11536337"

var rateLimitPhrases = []string{
	"Нельзя загружать эту страницу так часто",
	RateLimitToken,
	"нельзя загружать",
	"так часто",
}

const warningSelector = `[class*="error"], [class*="limit"], [class*="block"]`

var warningPhrases = []string{
	"rate limit",
	"too many",
	"blocked",
	"нельзя загружать",
	"так часто",
	"слишком много",
}

var connectionPhrases = []string{
	"Could not establish connection",
	"Receiving end does not exist",
	"нельзя загружать эту страницу так часто",
}

// Detector classifies page snapshots
type Detector struct {
	worklistSelector string
}

// NewDetector creates a detector that treats a roster without links
// matching worklistSelector as a warning sign at the start of a scan.
func NewDetector(worklistSelector string) *Detector {
	return &Detector{worklistSelector: worklistSelector}
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func containsAnyFold(haystack string, needles []string) bool {
	h := fold(haystack)
	for _, n := range needles {
		if strings.Contains(h, fold(n)) {
			return true
		}
	}
	return false
}

// LooksLikeChallenge reports a captcha or browser-check interstitial
func (d *Detector) LooksLikeChallenge(snap *page.Snapshot) bool {
	for _, sel := range challengeSelectors {
		if snap.Count(sel) > 0 {
			return true
		}
	}

	if containsAnyFold(snap.Text(), challengePhrases) {
		return true
	}
	if containsAnyFold(snap.Title, challengeTitles) {
		return true
	}
	return strings.Contains(fold(snap.URL), "challenge")
}

// LooksRateLimited reports the site's "too often" page
func (d *Detector) LooksRateLimited(snap *page.Snapshot) bool {
	return containsAny(snap.Text(), rateLimitPhrases)
}

// LooksSuspicious reports softer signs of throttling. An empty roster only
// counts at index 0.
func (d *Detector) LooksSuspicious(snap *page.Snapshot, index int) bool {
	flagged := false
	snap.Doc().Find(warningSelector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if containsAnyFold(el.Text(), warningPhrases) {
			flagged = true
			return false
		}
		return true
	})
	if flagged {
		return true
	}

	if containsAny(snap.Text(), connectionPhrases) {
		return true
	}

	return index == 0 && d.worklistSelector != "" && snap.Count(d.worklistSelector) == 0
}

// Classify returns the strongest signal in priority order
func (d *Detector) Classify(snap *page.Snapshot, index int) Signal {
	switch {
	case d.LooksLikeChallenge(snap):
		return SignalChallenge
	case d.LooksRateLimited(snap):
		return SignalRateLimited
	case d.LooksSuspicious(snap, index):
		return SignalSuspicious
	default:
		return SignalNone
	}
}
