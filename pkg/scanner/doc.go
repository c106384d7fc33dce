// Package scanner drives a roster scan from start to halt.
//
// A Controller captures the worklist once per pass, then for each member
// probes the page for interference, reveals the member's profile cards,
// runs the faction rules and reports any new flag lines. Progress is
// checkpointed to the store so an interrupted scan resumes where it left
// off, and lines already reported are never reported twice.
//
// A pass ends in one of four outcomes:
//
//	completed          the roster is exhausted; the saved position is cleared
//	paused_captcha     a challenge page needs a human
//	paused_rate_limit  the site throttled us; the page was reloaded
//	stopped            the operator cleared the working flag or cancelled
//
// Run restarts passes after rate-limit reloads up to a configured budget.
package scanner
