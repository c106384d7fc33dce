// Package metrics exposes scan progress, flags and site pushback as
// Prometheus metrics. A Collector is a report.Sink; Listen serves it.
package metrics
