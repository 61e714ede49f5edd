package input

import (
	"testing"
	"time"
)

// fakeClock drives the batcher's window arithmetic in tests.
type fakeClock struct {
	ms uint32
}

func (c *fakeClock) now() uint32 {
	return c.ms
}

func (c *fakeClock) advance(ms uint32) {
	c.ms += ms
}

func newTestBatcher() (*Batcher, *fakeClock) {
	clk := &fakeClock{}
	return NewBatcher(50*time.Millisecond, clk.now), clk
}

func TestBatcherCoalescesNavigation(t *testing.T) {
	b, clk := newTestBatcher()

	b.Submit(Action{Event: NavLeft})
	b.Submit(Action{Event: NavLeft})
	b.Submit(Action{Event: NavRight})

	if got := b.Poll(); !got.IsNone() {
		t.Fatalf("Poll() before window expiry = %v, want none", got.Event)
	}

	clk.advance(50)

	got := b.Poll()
	if got.Event != NavLeft {
		t.Fatalf("Poll() = %v, want nav_left (net -1)", got.Event)
	}
	if got.Timestamp != clk.ms {
		t.Errorf("synthesized action timestamp = %d, want %d", got.Timestamp, clk.ms)
	}
	if got := b.Poll(); !got.IsNone() {
		t.Errorf("Poll() after drain = %v, want none", got.Event)
	}
}

func TestBatcherEmitsHorizontalBeforeVertical(t *testing.T) {
	b, clk := newTestBatcher()

	b.Submit(Action{Event: NavDown})
	b.Submit(Action{Event: NavRight})
	b.Submit(Action{Event: NavRight})
	clk.advance(50)

	want := []InputEvent{NavRight, NavRight, NavDown, EventNone}
	for i, ev := range want {
		if got := b.Poll(); got.Event != ev {
			t.Fatalf("Poll() #%d = %v, want %v", i, got.Event, ev)
		}
	}
}

func TestBatcherImmediateBypassesOpenBatch(t *testing.T) {
	b, clk := newTestBatcher()

	b.Submit(Action{Event: NavRight})
	b.Submit(Action{Event: ButtonA})

	if got := b.Poll(); got.Event != ButtonA {
		t.Fatalf("Poll() = %v, want button_a ahead of the open nav batch", got.Event)
	}
	if got := b.Poll(); !got.IsNone() {
		t.Fatalf("Poll() = %v, want none while nav window still open", got.Event)
	}

	clk.advance(50)
	if got := b.Poll(); got.Event != NavRight {
		t.Errorf("Poll() = %v, want nav_right after expiry", got.Event)
	}
}

func TestBatcherImmediatePreservesOrder(t *testing.T) {
	b, _ := newTestBatcher()

	b.Submit(Action{Event: ButtonMenu})
	b.Submit(Action{Event: BumperRight})
	b.Submit(Action{Event: ButtonB})

	want := []InputEvent{ButtonMenu, BumperRight, ButtonB}
	for i, ev := range want {
		if got := b.Poll(); got.Event != ev {
			t.Fatalf("Poll() #%d = %v, want %v", i, got.Event, ev)
		}
	}
}

func TestBatcherTriggerLastWriteWins(t *testing.T) {
	b, clk := newTestBatcher()

	b.Submit(Action{Event: TriggerRight, Intensity: 50})
	b.Submit(Action{Event: TriggerRight, Intensity: 200})
	clk.advance(50)

	got := b.Poll()
	if got.Event != TriggerRight {
		t.Fatalf("Poll() = %v, want trigger_right", got.Event)
	}
	if got.Intensity != 200 {
		t.Errorf("Intensity = %d, want 200 (last write wins)", got.Intensity)
	}
	if got := b.Poll(); !got.IsNone() {
		t.Errorf("Poll() = %v, want none; overwrite must not emit twice", got.Event)
	}
}

func TestBatcherEmitsLeftTriggerBeforeRight(t *testing.T) {
	b, clk := newTestBatcher()

	b.Submit(Action{Event: TriggerRight, Intensity: 300})
	b.Submit(Action{Event: TriggerLeft, Intensity: 100})
	clk.advance(50)

	if got := b.Poll(); got.Event != TriggerLeft || got.Intensity != 100 {
		t.Fatalf("Poll() = %v/%d, want trigger_left/100", got.Event, got.Intensity)
	}
	if got := b.Poll(); got.Event != TriggerRight || got.Intensity != 300 {
		t.Fatalf("Poll() = %v/%d, want trigger_right/300", got.Event, got.Intensity)
	}
}

func TestBatcherNetZeroEmitsNothing(t *testing.T) {
	b, clk := newTestBatcher()

	b.Submit(Action{Event: NavLeft})
	b.Submit(Action{Event: NavRight})
	clk.advance(50)

	if got := b.Poll(); !got.IsNone() {
		t.Errorf("Poll() = %v, want none for a cancelled-out batch", got.Event)
	}
	if b.HasPending() {
		t.Error("HasPending() should be false once the empty batch is closed")
	}
}

func TestBatcherFlushForcesEmission(t *testing.T) {
	b, _ := newTestBatcher()

	b.Submit(Action{Event: NavDown})
	b.Submit(Action{Event: TriggerLeft, Intensity: 42})
	b.Flush()

	if got := b.Poll(); got.Event != NavDown {
		t.Fatalf("Poll() after Flush = %v, want nav_down", got.Event)
	}
	if got := b.Poll(); got.Event != TriggerLeft {
		t.Fatalf("Poll() after Flush = %v, want trigger_left", got.Event)
	}
}

func TestBatcherClearDiscardsEverything(t *testing.T) {
	b, clk := newTestBatcher()

	b.Submit(Action{Event: ButtonA})
	b.Submit(Action{Event: NavUp})
	b.Submit(Action{Event: TriggerRight, Intensity: 10})
	b.Clear()
	clk.advance(100)

	if got := b.Poll(); !got.IsNone() {
		t.Errorf("Poll() after Clear = %v, want none", got.Event)
	}
	if b.HasPending() {
		t.Error("HasPending() after Clear should be false")
	}
}

func TestBatcherHasPending(t *testing.T) {
	b, clk := newTestBatcher()

	if b.HasPending() {
		t.Fatal("fresh batcher should have nothing pending")
	}

	b.Submit(Action{Event: NavRight})
	if b.HasPending() {
		t.Fatal("open nav window inside its batch period is not yet pending")
	}

	clk.advance(50)
	if !b.HasPending() {
		t.Fatal("expired nav window should be pending")
	}

	b.Submit(Action{Event: ButtonX})
	if !b.HasPending() {
		t.Fatal("immediate event should be pending")
	}
}

func TestBatcherIgnoresNone(t *testing.T) {
	b, _ := newTestBatcher()

	b.Submit(Action{})
	if b.HasPending() {
		t.Error("none actions must be dropped on submit")
	}
}

func TestBatcherUnknownEventFallsThrough(t *testing.T) {
	b, _ := newTestBatcher()

	b.Submit(Action{Event: InputEvent(200)})
	if got := b.Poll(); got.Event != InputEvent(200) {
		t.Errorf("Poll() = %v, want the unrecognized event passed through", got.Event)
	}
}

// A rapid burst of identical nav presses through the queue must reach
// the consumer as exactly one action once the window closes.
func TestBurstCoalescedEndToEnd(t *testing.T) {
	q, err := NewQueue(8)
	if err != nil {
		t.Fatal(err)
	}
	b, clk := newTestBatcher()

	for i := 0; i < 3; i++ {
		if !q.Send(Action{Event: NavRight}) {
			t.Fatal("Send failed on non-full queue")
		}
	}
	for {
		a, ok := q.Receive(0)
		if !ok {
			break
		}
		b.Submit(a)
	}

	clk.advance(60)

	if got := b.Poll(); got.Event != NavRight {
		t.Fatalf("Poll() = %v, want one nav_right for the whole burst", got.Event)
	}
	if got := b.Poll(); !got.IsNone() {
		t.Fatalf("Poll() = %v, want none after the burst drained", got.Event)
	}
}
