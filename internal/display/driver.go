// Package display defines the panel driver contract and the zoned
// refresh engine that decides between full and partial e-paper updates.
package display

import (
	"image/draw"

	"github.com/paperhome/paperhome/internal/geom"
)

// Driver is the surface the refresh engine drives a panel through.
// Implementations: the SPI e-paper driver in display/epd and the
// desktop window in display/emulator.
//
// Drawing happens between a Begin/End pair: Begin opens a refresh
// window, painters draw into Image, and End pushes the window to the
// panel. Partial windows restrict the push to one region; the driver
// may widen the region to satisfy controller alignment.
type Driver interface {
	// Bounds returns the panel dimensions.
	Bounds() geom.Rect

	// Image returns the frame buffer painters draw into.
	Image() draw.Image

	// BeginFull opens a full-panel refresh window.
	BeginFull()

	// EndFull pushes the whole frame to the panel.
	EndFull() error

	// BeginPartial opens a refresh window restricted to r.
	BeginPartial(r geom.Rect)

	// EndPartial pushes the current window's region to the panel.
	EndPartial() error

	// Fill paints a region of the frame buffer white or black.
	Fill(r geom.Rect, white bool)
}
