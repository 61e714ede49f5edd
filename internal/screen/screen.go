// Package screen defines the screen contract and the selection-state
// bases the dashboard screens build on.
package screen

import (
	"github.com/paperhome/paperhome/internal/display"
	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/nav"
)

// Screen is one dashboard page. The coordinator renders the active
// screen into the content zone and feeds it the navigation events the
// controller did not consume.
type Screen interface {
	// ID returns the screen's identity in the navigation tables.
	ID() nav.ScreenID

	// Render paints the screen into bounds. The window is already
	// open and cleared white.
	Render(zone display.Zone, bounds geom.Rect, drv display.Driver)

	// HandleEvent applies one navigation event. Returns true when
	// visible state changed and the screen needs a repaint.
	HandleEvent(ev nav.NavEvent) bool

	// OnEnter runs when the screen becomes active.
	OnEnter()

	// OnExit runs when the screen is left.
	OnExit()

	// IsDirty reports whether the on-panel content is stale.
	IsDirty() bool

	// ClearDirty acknowledges that the screen has been repainted.
	ClearDirty()

	// SelectionRect returns the highlighted cell, for compositors
	// that invert the highlight instead of repainting the zone.
	SelectionRect() geom.Rect

	// PreviousSelectionRect returns the previously highlighted cell.
	PreviousSelectionRect() geom.Rect
}

// Base carries the dirty flag and the no-op lifecycle hooks most
// screens want. Embed it and override what the screen needs.
type Base struct {
	dirty bool
}

// MarkDirty flags the screen for repaint.
func (b *Base) MarkDirty() {
	b.dirty = true
}

// IsDirty reports whether the screen needs a repaint.
func (b *Base) IsDirty() bool {
	return b.dirty
}

// ClearDirty acknowledges a repaint.
func (b *Base) ClearDirty() {
	b.dirty = false
}

// OnEnter is a no-op.
func (b *Base) OnEnter() {}

// OnExit is a no-op.
func (b *Base) OnExit() {}
