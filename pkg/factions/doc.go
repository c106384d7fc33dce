// Package factions decides whether a profile's faction memberships make it a
// twink account and renders the offwarn lines for flagged profiles.
//
// A profile is flagged when it holds a crime and a state faction at once,
// two different crime factions, or the same state faction on more than one
// card. Weazel News next to a single crime faction is allowed.
package factions
