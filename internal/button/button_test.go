package button

import (
	"log/slog"
	"testing"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

func TestDebounce(t *testing.T) {
	b := New("gpiochip0", 3, slog.Default())
	base := time.Now()

	if !b.debounce(base) {
		t.Fatal("first press rejected")
	}
	if b.debounce(base.Add(50 * time.Millisecond)) {
		t.Error("bounce inside the hold-off accepted")
	}
	if b.debounce(base.Add(150 * time.Millisecond)) {
		t.Error("second bounce inside the hold-off accepted")
	}
	if !b.debounce(base.Add(250 * time.Millisecond)) {
		t.Error("press after the hold-off rejected")
	}
}

func TestHandleEventFiresOnFallingEdge(t *testing.T) {
	b := New("gpiochip0", 3, slog.Default())
	presses := 0
	b.OnPress(func() { presses++ })

	b.handleEvent(gpiocdev.LineEvent{Type: gpiocdev.LineEventFallingEdge})
	if presses != 1 {
		t.Fatalf("presses = %d, want 1", presses)
	}

	// The rising edge on release must not fire.
	b.handleEvent(gpiocdev.LineEvent{Type: gpiocdev.LineEventRisingEdge})
	if presses != 1 {
		t.Errorf("presses after rising edge = %d, want 1", presses)
	}

	// A bounce right after the press must not fire either.
	b.handleEvent(gpiocdev.LineEvent{Type: gpiocdev.LineEventFallingEdge})
	if presses != 1 {
		t.Errorf("presses after bounce = %d, want 1", presses)
	}
}

func TestHandleEventWithoutCallback(t *testing.T) {
	b := New("gpiochip0", 3, slog.Default())
	// Must not panic.
	b.handleEvent(gpiocdev.LineEvent{Type: gpiocdev.LineEventFallingEdge})
}
