// Package pacing produces the randomized, pressure-aware delays that keep a
// scan looking like a person clicking through a list.
//
// Pressure tracks the slowdown multiplier, a decaying error count and the
// request timestamps inside a sliding window. Engine reads and mutates a
// Pressure passed in by the caller, so the scan state stays in one place.
package pacing
