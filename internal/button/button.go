// Package button watches the optional front button wired to a GPIO
// line. A press forces a full ghost-clearing panel refresh.
package button

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// debounceInterval swallows contact bounce and double-taps. The press
// triggers a multi-second panel refresh, so a generous hold-off costs
// nothing.
const debounceInterval = 200 * time.Millisecond

// Button is a debounced GPIO push button.
type Button struct {
	chip   string
	offset int
	log    *slog.Logger

	line *gpiocdev.Line

	mu       sync.Mutex
	lastFire time.Time

	onPress func()
}

// New returns an unstarted button on the given chip and line offset.
func New(chip string, offset int, log *slog.Logger) *Button {
	return &Button{
		chip:   chip,
		offset: offset,
		log:    log.With("module", "button"),
	}
}

// OnPress registers the press callback. Must be called before Start.
// The callback runs on the GPIO event goroutine; keep it short.
func (b *Button) OnPress(fn func()) {
	b.onPress = fn
}

// Start requests the line and begins watching for falling edges. The
// button is wired active-low with the internal pull-up.
func (b *Button) Start() error {
	line, err := gpiocdev.RequestLine(b.chip, b.offset,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(b.handleEvent),
	)
	if err != nil {
		return fmt.Errorf("request %s line %d: %w", b.chip, b.offset, err)
	}
	b.line = line
	b.log.Info("button watching", "chip", b.chip, "line", b.offset)
	return nil
}

// Stop releases the line.
func (b *Button) Stop() {
	if b.line != nil {
		b.line.Close()
		b.line = nil
	}
}

func (b *Button) handleEvent(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}
	if !b.debounce(time.Now()) {
		return
	}
	b.log.Debug("button pressed")
	if b.onPress != nil {
		b.onPress()
	}
}

// debounce reports whether a press at now is far enough from the last
// accepted press to count.
func (b *Button) debounce(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Sub(b.lastFire) < debounceInterval {
		return false
	}
	b.lastFire = now
	return true
}
