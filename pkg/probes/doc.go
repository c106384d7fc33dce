// Package probes spots captchas, throttling and other interference on the
// roster page and simulates the pointer activity of a person browsing it.
package probes
