package input

import "time"

// DefaultBatchWindow is how long rapid navigation and trigger events
// are coalesced before emission. Short enough to feel instant, long
// enough that a burst of D-pad repeats costs one refresh instead of
// one per press.
const DefaultBatchWindow = 50 * time.Millisecond

// Batcher coalesces rapid same-class input inside a time window while
// letting discrete buttons through untouched. It is not safe for
// concurrent use; the UI goroutine owns it exclusively.
//
// Navigation events accumulate a signed net step per axis. Trigger
// events overwrite: the last reported intensity wins. Everything else
// is queued verbatim in arrival order and always drains before any
// batch is emitted.
type Batcher struct {
	windowMs uint32
	now      func() uint32

	immediate []Action

	// Navigation accumulator
	navActive bool
	navStart  uint32
	navDX     int
	navDY     int

	// Trigger accumulator
	trigActive bool
	trigStart  uint32
	trigLeft   int16
	trigRight  int16
}

// NewBatcher returns a batcher with the given coalescing window. A
// non-positive window selects DefaultBatchWindow. The now func supplies
// the pipeline clock in milliseconds; nil selects NowMillis.
func NewBatcher(window time.Duration, now func() uint32) *Batcher {
	if window <= 0 {
		window = DefaultBatchWindow
	}
	if now == nil {
		now = NowMillis
	}
	return &Batcher{
		windowMs: uint32(window / time.Millisecond),
		now:      now,
	}
}

// Submit feeds one action into the batcher. Never blocks.
func (b *Batcher) Submit(a Action) {
	switch {
	case a.IsNone():
		// ignored
	case a.Event.IsImmediate():
		b.immediate = append(b.immediate, a)
	case a.Event.IsNavigation():
		if !b.navActive {
			b.navActive = true
			b.navStart = b.now()
			b.navDX, b.navDY = 0, 0
		}
		switch a.Event {
		case NavLeft:
			b.navDX--
		case NavRight:
			b.navDX++
		case NavUp:
			b.navDY--
		case NavDown:
			b.navDY++
		}
	case a.Event.IsTrigger():
		if !b.trigActive {
			b.trigActive = true
			b.trigStart = b.now()
			b.trigLeft, b.trigRight = 0, 0
		}
		if a.Event == TriggerLeft {
			b.trigLeft = a.Intensity
		} else {
			b.trigRight = a.Intensity
		}
	default:
		// Unrecognized events take the immediate path so nothing is
		// silently swallowed.
		b.immediate = append(b.immediate, a)
	}
}

// Poll returns the next ready action, or a none action when nothing is
// due. Immediate events always drain before expired batches are
// emitted. Never blocks.
func (b *Batcher) Poll() Action {
	if a, ok := b.popImmediate(); ok {
		return a
	}

	now := b.now()
	if b.navActive && now-b.navStart >= b.windowMs {
		b.emitNav(now)
	} else if b.trigActive && now-b.trigStart >= b.windowMs {
		b.emitTriggers(now)
	}

	if a, ok := b.popImmediate(); ok {
		return a
	}
	return Action{Event: EventNone}
}

// Flush force-emits any open batch window regardless of elapsed time.
// Called before screen transitions so buffered movement is not lost.
func (b *Batcher) Flush() {
	now := b.now()
	if b.navActive {
		b.emitNav(now)
	}
	if b.trigActive {
		b.emitTriggers(now)
	}
}

// Clear discards all pending state without emitting anything.
func (b *Batcher) Clear() {
	b.immediate = b.immediate[:0]
	b.navActive = false
	b.navDX, b.navDY = 0, 0
	b.trigActive = false
	b.trigLeft, b.trigRight = 0, 0
}

// HasPending reports whether a Poll call would find work: queued
// immediate events or an expired batch window. Does not mutate state.
func (b *Batcher) HasPending() bool {
	if len(b.immediate) > 0 {
		return true
	}
	now := b.now()
	if b.navActive && now-b.navStart >= b.windowMs {
		return true
	}
	if b.trigActive && now-b.trigStart >= b.windowMs {
		return true
	}
	return false
}

func (b *Batcher) popImmediate() (Action, bool) {
	if len(b.immediate) == 0 {
		return Action{}, false
	}
	a := b.immediate[0]
	b.immediate = b.immediate[1:]
	if len(b.immediate) == 0 {
		b.immediate = nil
	}
	return a, true
}

// emitNav converts the accumulated net movement into |dx| horizontal
// then |dy| vertical actions and closes the window.
func (b *Batcher) emitNav(now uint32) {
	xEvent, xSteps := NavRight, b.navDX
	if xSteps < 0 {
		xEvent, xSteps = NavLeft, -xSteps
	}
	for i := 0; i < xSteps; i++ {
		b.immediate = append(b.immediate, Action{Event: xEvent, Timestamp: now})
	}

	yEvent, ySteps := NavDown, b.navDY
	if ySteps < 0 {
		yEvent, ySteps = NavUp, -ySteps
	}
	for i := 0; i < ySteps; i++ {
		b.immediate = append(b.immediate, Action{Event: yEvent, Timestamp: now})
	}

	b.navActive = false
	b.navDX, b.navDY = 0, 0
}

// emitTriggers releases the held trigger values, left before right,
// and closes the window. Zero intensities emit nothing.
func (b *Batcher) emitTriggers(now uint32) {
	if b.trigLeft > 0 {
		b.immediate = append(b.immediate, Action{Event: TriggerLeft, Intensity: b.trigLeft, Timestamp: now})
	}
	if b.trigRight > 0 {
		b.immediate = append(b.immediate, Action{Event: TriggerRight, Intensity: b.trigRight, Timestamp: now})
	}
	b.trigActive = false
	b.trigLeft, b.trigRight = 0, 0
}
