package emulator

import (
	"image/color"
	"testing"

	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/input"
)

func newTestEmulator(t *testing.T) *Emulator {
	t.Helper()
	q, err := input.NewQueue(16)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	return New(q)
}

func TestNewStartsWhite(t *testing.T) {
	e := newTestEmulator(t)

	if got := e.img.GrayAt(0, 0).Y; got != 0xFF {
		t.Errorf("frame buffer starts at %#x, want white", got)
	}
	if got := e.shown.GrayAt(799, 479).Y; got != 0xFF {
		t.Errorf("panel starts at %#x, want white", got)
	}
}

func TestPartialCommitsOnlyWindow(t *testing.T) {
	e := newTestEmulator(t)

	e.Fill(geom.NewRect(0, 0, 800, 480), false)
	e.BeginPartial(geom.NewRect(100, 100, 50, 50))
	if err := e.EndPartial(); err != nil {
		t.Fatalf("EndPartial: %v", err)
	}

	if got := e.shown.GrayAt(120, 120).Y; got != 0x00 {
		t.Errorf("inside window = %#x, want black", got)
	}
	if got := e.shown.GrayAt(10, 10).Y; got != 0xFF {
		t.Errorf("outside window = %#x, want untouched white", got)
	}
	if e.flash != 0 {
		t.Errorf("partial refresh set flash = %d, want 0", e.flash)
	}
}

func TestFullCommitsEverythingAndFlashes(t *testing.T) {
	e := newTestEmulator(t)

	e.Fill(geom.NewRect(0, 0, 800, 480), false)
	e.BeginFull()
	if err := e.EndFull(); err != nil {
		t.Fatalf("EndFull: %v", err)
	}

	for _, p := range [][2]int{{10, 10}, {799, 479}} {
		if got := e.shown.GrayAt(p[0], p[1]).Y; got != 0x00 {
			t.Errorf("panel at (%d,%d) = %#x, want black", p[0], p[1], got)
		}
	}
	if e.flash != flashFrames {
		t.Errorf("flash = %d, want %d", e.flash, flashFrames)
	}
}

func TestUncommittedDrawingStaysHidden(t *testing.T) {
	e := newTestEmulator(t)

	e.img.SetGray(200, 200, color.Gray{Y: 0x00})

	if got := e.shown.GrayAt(200, 200).Y; got != 0xFF {
		t.Errorf("panel shows uncommitted pixel, got %#x", got)
	}
}

func TestFillClampsToPanel(t *testing.T) {
	e := newTestEmulator(t)

	e.Fill(geom.NewRect(790, 470, 100, 100), false)

	if got := e.img.GrayAt(795, 475).Y; got != 0x00 {
		t.Errorf("clamped fill missed in-bounds pixel, got %#x", got)
	}
}

func TestKeyBindingsCoverNavigationAndButtons(t *testing.T) {
	bound := map[input.InputEvent]bool{}
	for _, b := range keyBindings {
		bound[b.event] = true
	}

	for _, ev := range []input.InputEvent{
		input.NavUp, input.NavDown, input.NavLeft, input.NavRight,
		input.ButtonA, input.ButtonB, input.ButtonX, input.ButtonY,
		input.ButtonMenu, input.ButtonView, input.ButtonXbox,
		input.BumperLeft, input.BumperRight,
		input.TriggerLeft, input.TriggerRight,
	} {
		if !bound[ev] {
			t.Errorf("no key bound for %s", ev)
		}
	}
}
