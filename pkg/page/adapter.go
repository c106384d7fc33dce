package page

import (
	"context"

	"twinkscan/pkg/factions"
)

// Item is one member link on the roster, identified by its position in the
// list captured at scan start.
type Item struct {
	Index int
	Label string
}

// Viewport is the visible page area in CSS pixels
type Viewport struct {
	Width  float64
	Height float64
}

// Cookie is a session cookie installed before the first navigation
type Cookie struct {
	Name   string
	Value  string
	Domain string
}

// Adapter is everything the scanner needs from the page
type Adapter interface {
	// QueryWorklist captures the ordered member links
	QueryWorklist(ctx context.Context) ([]Item, error)
	// ExtractCards reads faction records from the profile cards on screen
	ExtractCards(ctx context.Context) ([]factions.Record, error)

	Hover(ctx context.Context, item Item) error
	Click(ctx context.Context, item Item) error
	MoveMouse(ctx context.Context, x, y float64) error
	Scroll(ctx context.Context, deltaY float64) error
	Viewport(ctx context.Context) (Viewport, error)

	// Snapshot captures URL, title and markup for the probes
	Snapshot(ctx context.Context) (*Snapshot, error)
	// Reload refreshes the page and waits for it to be ready
	Reload(ctx context.Context) error
}
