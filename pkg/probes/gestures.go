package probes

import (
	"context"
	"time"

	"twinkscan/pkg/pacing"
	"twinkscan/pkg/page"
)

var (
	preHoverRange    = pacing.Range{Min: 100 * time.Millisecond, Max: 300 * time.Millisecond}
	hesitationRange  = pacing.Range{Min: 150 * time.Millisecond, Max: 450 * time.Millisecond}
	moveGapRange     = pacing.Range{Min: 50 * time.Millisecond, Max: 150 * time.Millisecond}
	afterScrollRange = pacing.Range{Min: 100 * time.Millisecond, Max: 300 * time.Millisecond}
)

// Pointer is the part of the page adapter gestures need
type Pointer interface {
	Hover(ctx context.Context, item page.Item) error
	Click(ctx context.Context, item page.Item) error
	MoveMouse(ctx context.Context, x, y float64) error
	Scroll(ctx context.Context, deltaY float64) error
	Viewport(ctx context.Context) (page.Viewport, error)
}

// Gestures performs human-looking pointer activity
type Gestures struct {
	pointer Pointer
	pace    *pacing.Engine
	sleeper pacing.Sleeper
}

// NewGestures creates a gesture simulator
func NewGestures(pointer Pointer, pace *pacing.Engine, sleeper pacing.Sleeper) *Gestures {
	return &Gestures{pointer: pointer, pace: pace, sleeper: sleeper}
}

// SimulateReveal hovers over item, hesitates, then clicks it
func (g *Gestures) SimulateReveal(ctx context.Context, item page.Item) error {
	if err := g.sleeper.Sleep(ctx, g.pace.Between(preHoverRange)); err != nil {
		return err
	}
	if err := g.pointer.Hover(ctx, item); err != nil {
		return err
	}
	if err := g.sleeper.Sleep(ctx, g.pace.Between(hesitationRange)); err != nil {
		return err
	}
	return g.pointer.Click(ctx, item)
}

// SimulatePageInteraction wanders the pointer and sometimes nudges the scroll
func (g *Gestures) SimulatePageInteraction(ctx context.Context) error {
	vp, err := g.pointer.Viewport(ctx)
	if err != nil {
		return err
	}

	moves := 1 + g.pace.Intn(2)
	for i := 0; i < moves; i++ {
		x := g.pace.Float64() * vp.Width
		y := g.pace.Float64() * vp.Height
		if err := g.pointer.MoveMouse(ctx, x, y); err != nil {
			return err
		}
		if err := g.sleeper.Sleep(ctx, g.pace.Between(moveGapRange)); err != nil {
			return err
		}
	}

	if g.pace.Chance(0.5) {
		delta := float64(g.pace.Intn(100) - 50)
		if err := g.pointer.Scroll(ctx, delta); err != nil {
			return err
		}
		return g.sleeper.Sleep(ctx, g.pace.Between(afterScrollRange))
	}
	return nil
}
