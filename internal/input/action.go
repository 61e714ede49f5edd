// Package input implements the controller input pipeline: the action
// value type, the batching coalescer that merges rapid navigation into
// net movements, and the bounded queue that hands actions from the
// reader goroutine to the UI goroutine.
package input

import "time"

// InputEvent identifies one kind of controller input.
type InputEvent uint8

const (
	// EventNone is the absence of input; Poll returns it when idle.
	EventNone InputEvent = iota

	// Navigation events come from the D-pad and left stick. They are
	// batched: rapid presses inside one window coalesce into a net step.
	NavUp
	NavDown
	NavLeft
	NavRight

	// Discrete buttons pass through immediately, never batched.
	ButtonA
	ButtonB
	ButtonX
	ButtonY
	ButtonMenu
	ButtonView
	ButtonXbox
	BumperLeft
	BumperRight

	// Triggers carry an analog intensity; within a batch window the
	// last reported value wins.
	TriggerLeft
	TriggerRight

	// Connection pseudo-events are synthesized by the gamepad reader.
	ControllerConnected
	ControllerDisconnected
)

var eventNames = map[InputEvent]string{
	EventNone:              "none",
	NavUp:                  "nav_up",
	NavDown:                "nav_down",
	NavLeft:                "nav_left",
	NavRight:               "nav_right",
	ButtonA:                "button_a",
	ButtonB:                "button_b",
	ButtonX:                "button_x",
	ButtonY:                "button_y",
	ButtonMenu:             "button_menu",
	ButtonView:             "button_view",
	ButtonXbox:             "button_xbox",
	BumperLeft:             "bumper_left",
	BumperRight:            "bumper_right",
	TriggerLeft:            "trigger_left",
	TriggerRight:           "trigger_right",
	ControllerConnected:    "controller_connected",
	ControllerDisconnected: "controller_disconnected",
}

func (e InputEvent) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}

// IsNavigation reports whether e is a directional navigation event.
func (e InputEvent) IsNavigation() bool {
	return e >= NavUp && e <= NavRight
}

// IsAction reports whether e is a discrete face or system button.
func (e InputEvent) IsAction() bool {
	return e >= ButtonA && e <= ButtonXbox
}

// IsBumper reports whether e is a shoulder bumper.
func (e InputEvent) IsBumper() bool {
	return e == BumperLeft || e == BumperRight
}

// IsTrigger reports whether e is an analog trigger.
func (e InputEvent) IsTrigger() bool {
	return e == TriggerLeft || e == TriggerRight
}

// IsConnection reports whether e is a controller connect/disconnect
// pseudo-event.
func (e InputEvent) IsConnection() bool {
	return e == ControllerConnected || e == ControllerDisconnected
}

// IsImmediate reports whether e bypasses batching. Discrete buttons,
// bumpers and connection events must never be delayed; navigation and
// triggers are coalesced instead.
func (e InputEvent) IsImmediate() bool {
	return e.IsAction() || e.IsBumper() || e.IsConnection()
}

// Action is one controller input sample flowing through the pipeline.
// Passed by value; it carries no references.
type Action struct {
	Event InputEvent

	// Intensity is the analog magnitude for trigger events, 0..1023.
	Intensity int16

	// Timestamp is milliseconds on the pipeline clock (NowMillis).
	Timestamp uint32
}

// IsNone reports whether the action carries no input.
func (a Action) IsNone() bool {
	return a.Event == EventNone
}

var processStart = time.Now()

// NowMillis returns milliseconds since process start, the timebase for
// action timestamps. Wraps after ~49 days; all window arithmetic is
// done in uint32 so the wrap is harmless.
func NowMillis() uint32 {
	return uint32(time.Since(processStart) / time.Millisecond)
}
