// Package page abstracts the roster page behind the Adapter interface.
//
// Chrome implements Adapter with chromedp against a real browser tab. Fake
// is a scripted implementation used by tests. ParseCards turns a Snapshot of
// the profile modal into faction records.
package page
