// Package report carries scan events to whoever is watching: the log, the
// terminal progress line or TUI, desktop notifications, Prometheus and the
// persisted progress snapshot. Delivery is fire-and-forget from the
// scanner's point of view.
package report
