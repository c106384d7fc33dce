// Package ui holds the plain terminal surfaces of the scanner: colored
// print helpers, a single-line progress display and desktop notifications.
// Both surfaces are report sinks. The full-screen interface lives in
// package tui.
package ui
