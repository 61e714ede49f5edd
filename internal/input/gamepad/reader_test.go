package gamepad

import (
	"log/slog"
	"testing"

	"github.com/paperhome/paperhome/internal/input"
)

func testReader(t *testing.T) (*Reader, *input.Queue) {
	t.Helper()
	q, err := input.NewQueue(16)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	return NewReader("/dev/input/js0", q, slog.Default()), q
}

func drain(q *input.Queue) []input.Action {
	var out []input.Action
	for {
		a, ok := q.Receive(0)
		if !ok {
			return out
		}
		out = append(out, a)
	}
}

func TestButtonPressTranslates(t *testing.T) {
	r, q := testReader(t)

	r.handle(jsEvent{Type: jsEventButton, Number: btnA, Value: 1})
	r.handle(jsEvent{Type: jsEventButton, Number: btnMenu, Value: 1})

	got := drain(q)
	if len(got) != 2 {
		t.Fatalf("got %d actions, want 2", len(got))
	}
	if got[0].Event != input.ButtonA {
		t.Errorf("first event = %v, want ButtonA", got[0].Event)
	}
	if got[1].Event != input.ButtonMenu {
		t.Errorf("second event = %v, want ButtonMenu", got[1].Event)
	}
}

func TestButtonReleaseIgnored(t *testing.T) {
	r, q := testReader(t)

	r.handle(jsEvent{Type: jsEventButton, Number: btnA, Value: 0})

	if got := drain(q); len(got) != 0 {
		t.Fatalf("release produced %d actions, want 0", len(got))
	}
}

func TestInitEventsSkipped(t *testing.T) {
	r, q := testReader(t)

	// readLoop filters init events before handle sees them; handle
	// itself also masks the flag, so a leaked init press still maps.
	r.handle(jsEvent{Type: jsEventButton | jsEventInit, Number: btnB, Value: 1})

	got := drain(q)
	if len(got) != 1 || got[0].Event != input.ButtonB {
		t.Fatalf("masked init button = %v", got)
	}
}

func TestDpadAxes(t *testing.T) {
	r, q := testReader(t)

	r.handle(jsEvent{Type: jsEventAxis, Number: axisHatX, Value: -32767})
	r.handle(jsEvent{Type: jsEventAxis, Number: axisHatX, Value: 0}) // centering is silent
	r.handle(jsEvent{Type: jsEventAxis, Number: axisHatY, Value: 32767})

	got := drain(q)
	if len(got) != 2 {
		t.Fatalf("got %d actions, want 2", len(got))
	}
	if got[0].Event != input.NavLeft {
		t.Errorf("first = %v, want NavLeft", got[0].Event)
	}
	if got[1].Event != input.NavDown {
		t.Errorf("second = %v, want NavDown", got[1].Event)
	}
}

func TestStickHysteresis(t *testing.T) {
	r, q := testReader(t)
	r.stickArmedX = true

	// Push right past threshold: one step.
	r.handle(jsEvent{Type: jsEventAxis, Number: axisLX, Value: 20000})
	// Held past threshold: no repeat.
	r.handle(jsEvent{Type: jsEventAxis, Number: axisLX, Value: 30000})
	// Not yet back inside release band: still disarmed.
	r.handle(jsEvent{Type: jsEventAxis, Number: axisLX, Value: 12000})
	r.handle(jsEvent{Type: jsEventAxis, Number: axisLX, Value: 20000})
	// Re-center then push again: second step.
	r.handle(jsEvent{Type: jsEventAxis, Number: axisLX, Value: 0})
	r.handle(jsEvent{Type: jsEventAxis, Number: axisLX, Value: -20000})

	got := drain(q)
	if len(got) != 2 {
		t.Fatalf("got %d actions, want 2: %v", len(got), got)
	}
	if got[0].Event != input.NavRight {
		t.Errorf("first = %v, want NavRight", got[0].Event)
	}
	if got[1].Event != input.NavLeft {
		t.Errorf("second = %v, want NavLeft", got[1].Event)
	}
}

func TestTriggerIntensityRange(t *testing.T) {
	cases := []struct {
		raw  int16
		want int16
	}{
		{-32767, 0},
		{0, 511},
		{32767, 1023},
	}
	for _, tc := range cases {
		if got := triggerIntensity(tc.raw); got != tc.want {
			t.Errorf("triggerIntensity(%d) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestTriggerEventCarriesIntensity(t *testing.T) {
	r, q := testReader(t)

	r.handle(jsEvent{Type: jsEventAxis, Number: axisRT, Value: 32767})

	got := drain(q)
	if len(got) != 1 {
		t.Fatalf("got %d actions, want 1", len(got))
	}
	if got[0].Event != input.TriggerRight {
		t.Errorf("event = %v, want TriggerRight", got[0].Event)
	}
	if got[0].Intensity != 1023 {
		t.Errorf("intensity = %d, want 1023", got[0].Intensity)
	}
}

func TestUnknownButtonIgnored(t *testing.T) {
	r, q := testReader(t)

	r.handle(jsEvent{Type: jsEventButton, Number: 14, Value: 1})

	if got := drain(q); len(got) != 0 {
		t.Fatalf("unknown button produced %d actions", len(got))
	}
}
