package input

import (
	"testing"
	"time"
)

func TestQueueRejectsBadCapacity(t *testing.T) {
	if _, err := NewQueue(0); err == nil {
		t.Error("NewQueue(0) should fail")
	}
	if _, err := NewQueue(-3); err == nil {
		t.Error("NewQueue(-3) should fail")
	}
}

func TestQueueFIFOOrder(t *testing.T) {
	q, err := NewQueue(8)
	if err != nil {
		t.Fatal(err)
	}

	sent := []InputEvent{ButtonA, ButtonB, ButtonX}
	for _, ev := range sent {
		if !q.Send(Action{Event: ev}) {
			t.Fatalf("Send(%v) failed on non-full queue", ev)
		}
	}

	for i, want := range sent {
		got, ok := q.Receive(0)
		if !ok {
			t.Fatalf("Receive #%d returned nothing", i)
		}
		if got.Event != want {
			t.Fatalf("Receive #%d = %v, want %v", i, got.Event, want)
		}
	}
	if _, ok := q.Receive(0); ok {
		t.Error("Receive on drained queue should report false")
	}
}

func TestQueueSaturation(t *testing.T) {
	const capacity = 4
	q, err := NewQueue(capacity)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < capacity; i++ {
		if !q.Send(Action{Event: NavDown}) {
			t.Fatalf("Send #%d failed below capacity", i)
		}
	}
	if q.Send(Action{Event: NavDown}) {
		t.Error("Send on full queue should return false")
	}
	if got := q.Len(); got != capacity {
		t.Errorf("Len() = %d, want %d", got, capacity)
	}
	if !q.IsFull() {
		t.Error("IsFull() should be true at capacity")
	}
}

func TestQueueWrapsAround(t *testing.T) {
	q, err := NewQueue(2)
	if err != nil {
		t.Fatal(err)
	}

	q.Send(Action{Event: ButtonA})
	q.Send(Action{Event: ButtonB})
	q.Receive(0)
	q.Send(Action{Event: ButtonY})

	got, _ := q.Receive(0)
	if got.Event != ButtonB {
		t.Fatalf("Receive = %v, want button_b", got.Event)
	}
	got, _ = q.Receive(0)
	if got.Event != ButtonY {
		t.Fatalf("Receive = %v, want button_y after wraparound", got.Event)
	}
}

func TestQueuePeekDoesNotRemove(t *testing.T) {
	q, err := NewQueue(4)
	if err != nil {
		t.Fatal(err)
	}

	q.Send(Action{Event: ButtonMenu})

	if got, ok := q.Peek(); !ok || got.Event != ButtonMenu {
		t.Fatalf("Peek = %v/%v, want button_menu/true", got.Event, ok)
	}
	if got := q.Len(); got != 1 {
		t.Errorf("Len() after Peek = %d, want 1", got)
	}
}

func TestQueueClear(t *testing.T) {
	q, err := NewQueue(4)
	if err != nil {
		t.Fatal(err)
	}

	q.Send(Action{Event: ButtonA})
	q.Send(Action{Event: ButtonB})
	q.Clear()

	if !q.IsEmpty() {
		t.Error("queue should be empty after Clear")
	}
	if _, ok := q.Receive(0); ok {
		t.Error("Receive after Clear should report false")
	}
}

func TestQueueReceiveTimeoutExpires(t *testing.T) {
	q, err := NewQueue(4)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if _, ok := q.Receive(20 * time.Millisecond); ok {
		t.Fatal("Receive on empty queue should time out")
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("Receive returned after %v, want it to wait for the timeout", elapsed)
	}
}

func TestQueueReceiveWakesOnSend(t *testing.T) {
	q, err := NewQueue(4)
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Send(Action{Event: ButtonXbox})
	}()

	got, ok := q.Receive(Forever)
	if !ok {
		t.Fatal("Receive(Forever) returned without an action")
	}
	if got.Event != ButtonXbox {
		t.Errorf("Receive = %v, want button_xbox", got.Event)
	}
}

func TestQueueFailsSafeUninitialized(t *testing.T) {
	var zero Queue
	if zero.Send(Action{Event: ButtonA}) {
		t.Error("Send on zero-value queue should return false")
	}
	if _, ok := zero.Receive(0); ok {
		t.Error("Receive on zero-value queue should return false")
	}
	if got := zero.Len(); got != 0 {
		t.Errorf("Len() on zero-value queue = %d, want 0", got)
	}

	var nilQ *Queue
	if nilQ.Send(Action{Event: ButtonA}) {
		t.Error("Send on nil queue should return false")
	}
	if _, ok := nilQ.Peek(); ok {
		t.Error("Peek on nil queue should return false")
	}
	nilQ.Clear()
	if nilQ.IsFull() {
		t.Error("IsFull on nil queue should be false")
	}
}
