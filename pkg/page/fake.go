package page

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"twinkscan/pkg/factions"
)

// Fake is a scripted in-memory Adapter for tests and dry runs
type Fake struct {
	mu sync.Mutex

	Items []Item
	// Cards returned by ExtractCards after the item with that index was clicked
	Cards map[int][]factions.Record
	// CardErrors makes ExtractCards fail after the item with that index was clicked
	CardErrors map[int]error
	// SnapshotFunc overrides the generated roster page; call counts from 0
	SnapshotFunc func(call int) (*Snapshot, error)
	// OnReload runs on every Reload
	OnReload func(f *Fake)
	Size     Viewport

	events    []string
	snapshots int
	clicked   int
	reloads   int
}

// NewFake returns a Fake listing n member links
func NewFake(n int) *Fake {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{Index: i, Label: fmt.Sprintf("Member %d", i+1)}
	}
	return &Fake{
		Items:      items,
		Cards:      make(map[int][]factions.Record),
		CardErrors: make(map[int]error),
		Size:       Viewport{Width: 1366, Height: 900},
		clicked:    -1,
	}
}

// RosterHTML renders a page whose links match the default worklist selector
func RosterHTML(items []Item, extraBody string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Members</title></head><body><div class=\"members\">")
	for _, item := range items {
		fmt.Fprintf(&b, `<a class="link_lock" onclick="Mi.showMemberChars(%d)">%s</a>`, item.Index, html.EscapeString(item.Label))
	}
	b.WriteString("</div>")
	b.WriteString(extraBody)
	b.WriteString("</body></html>")
	return b.String()
}

func (f *Fake) record(event string) {
	f.events = append(f.events, event)
}

// Events returns the recorded calls in order, e.g. "hover:3" or "reload"
func (f *Fake) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	copy(out, f.events)
	return out
}

// Clicks returns the indexes of clicked items in order
func (f *Fake) Clicks() []int {
	var out []int
	for _, e := range f.Events() {
		var idx int
		if _, err := fmt.Sscanf(e, "click:%d", &idx); err == nil {
			out = append(out, idx)
		}
	}
	return out
}

// Reloads returns how many times Reload was called
func (f *Fake) Reloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reloads
}

func (f *Fake) QueryWorklist(ctx context.Context) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("query")
	out := make([]Item, len(f.Items))
	copy(out, f.Items)
	return out, ctx.Err()
}

func (f *Fake) ExtractCards(ctx context.Context) ([]factions.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("extract")
	if err := f.CardErrors[f.clicked]; err != nil {
		return nil, err
	}
	return f.Cards[f.clicked], nil
}

func (f *Fake) Hover(_ context.Context, item Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("hover:%d", item.Index))
	return nil
}

func (f *Fake) Click(_ context.Context, item Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("click:%d", item.Index))
	f.clicked = item.Index
	return nil
}

func (f *Fake) MoveMouse(_ context.Context, x, y float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("move:%.0f,%.0f", x, y))
	return nil
}

func (f *Fake) Scroll(_ context.Context, deltaY float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("scroll:%.0f", deltaY))
	return nil
}

func (f *Fake) Viewport(context.Context) (Viewport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Size, nil
}

func (f *Fake) Snapshot(context.Context) (*Snapshot, error) {
	f.mu.Lock()
	call := f.snapshots
	f.snapshots++
	fn := f.SnapshotFunc
	items := f.Items
	f.mu.Unlock()

	if fn != nil {
		return fn(call)
	}
	return NewSnapshot("https://example.test/members", "", RosterHTML(items, ""))
}

func (f *Fake) Reload(context.Context) error {
	f.mu.Lock()
	f.record("reload")
	f.reloads++
	hook := f.OnReload
	f.mu.Unlock()

	if hook != nil {
		hook(f)
	}
	return nil
}
