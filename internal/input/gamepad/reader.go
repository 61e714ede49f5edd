// Package gamepad reads Xbox controller events from the Linux joystick
// device and feeds them into the input queue.
package gamepad

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/paperhome/paperhome/internal/input"
)

// joydev event types.
const (
	jsEventButton = 0x01
	jsEventAxis   = 0x02
	jsEventInit   = 0x80
)

// Xbox controller layout as exposed by the kernel xpad driver.
const (
	btnA     = 0
	btnB     = 1
	btnX     = 2
	btnY     = 3
	btnLB    = 4
	btnRB    = 5
	btnView  = 6
	btnMenu  = 7
	btnXbox  = 8
	axisLX   = 0
	axisLY   = 1
	axisLT   = 2
	axisRT   = 5
	axisHatX = 6
	axisHatY = 7
)

// stickThreshold is where the left stick starts acting as a D-pad, and
// stickRelease is where it re-arms. The gap gives hysteresis so a held
// stick emits one step, not a stream.
const (
	stickThreshold = 16384
	stickRelease   = 8192
)

// jsEvent mirrors struct js_event from linux/joystick.h.
type jsEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

// Reader owns the joystick device. It reopens the device whenever the
// controller drops, so pairing and range glitches heal on their own.
type Reader struct {
	device string
	queue  *input.Queue
	log    *slog.Logger

	// Stick-as-dpad arming, one flag per direction.
	stickArmedX bool
	stickArmedY bool

	// Lifecycle
	runCancel context.CancelFunc
	done      chan struct{}
}

// NewReader returns an unstarted reader for the given joystick device.
func NewReader(device string, queue *input.Queue, log *slog.Logger) *Reader {
	return &Reader{
		device: device,
		queue:  queue,
		log:    log.With("module", "gamepad"),
	}
}

// Start begins reading in the background.
func (r *Reader) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	r.runCancel = cancel
	r.done = make(chan struct{})
	go r.run(runCtx)
	return nil
}

// Stop halts the reader and waits for it.
func (r *Reader) Stop() {
	if r.runCancel == nil {
		return
	}
	r.runCancel()
	<-r.done
}

// run is the open/read/reopen loop.
func (r *Reader) run(ctx context.Context) {
	defer close(r.done)

	backoff := time.Second
	for ctx.Err() == nil {
		f, err := os.Open(r.device)
		if err != nil {
			r.sleep(ctx, backoff)
			if backoff < 5*time.Second {
				backoff += time.Second
			}
			continue
		}
		backoff = time.Second

		r.log.Info("controller connected", "device", r.device)
		r.send(input.Action{Event: input.ControllerConnected, Timestamp: input.NowMillis()})

		// Close the device when the context ends so the blocking read
		// below unblocks.
		closed := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				f.Close()
			case <-closed:
			}
		}()

		r.readLoop(ctx, f)
		close(closed)
		f.Close()

		r.log.Info("controller disconnected", "device", r.device)
		r.send(input.Action{Event: input.ControllerDisconnected, Timestamp: input.NowMillis()})
		r.sleep(ctx, time.Second)
	}
}

// readLoop consumes events until the device goes away.
func (r *Reader) readLoop(ctx context.Context, f *os.File) {
	r.stickArmedX = true
	r.stickArmedY = true

	for ctx.Err() == nil {
		var ev jsEvent
		if err := binary.Read(f, binary.LittleEndian, &ev); err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				r.log.Debug("read failed", "err", err)
			}
			return
		}
		// Synthetic state dumps at open time would replay held
		// buttons as fresh presses.
		if ev.Type&jsEventInit != 0 {
			continue
		}
		r.handle(ev)
	}
}

// handle translates one kernel event into zero or more actions.
func (r *Reader) handle(ev jsEvent) {
	switch ev.Type & ^uint8(jsEventInit) {
	case jsEventButton:
		// Button releases carry no meaning in this UI.
		if ev.Value == 0 {
			return
		}
		if event, ok := buttonEvent(ev.Number); ok {
			r.send(input.Action{Event: event, Timestamp: input.NowMillis()})
		}
	case jsEventAxis:
		r.handleAxis(ev)
	}
}

func (r *Reader) handleAxis(ev jsEvent) {
	now := input.NowMillis()
	switch ev.Number {
	case axisHatX:
		if ev.Value < 0 {
			r.send(input.Action{Event: input.NavLeft, Timestamp: now})
		} else if ev.Value > 0 {
			r.send(input.Action{Event: input.NavRight, Timestamp: now})
		}
	case axisHatY:
		if ev.Value < 0 {
			r.send(input.Action{Event: input.NavUp, Timestamp: now})
		} else if ev.Value > 0 {
			r.send(input.Action{Event: input.NavDown, Timestamp: now})
		}
	case axisLX:
		if event, ok := stickStep(ev.Value, &r.stickArmedX, input.NavLeft, input.NavRight); ok {
			r.send(input.Action{Event: event, Timestamp: now})
		}
	case axisLY:
		if event, ok := stickStep(ev.Value, &r.stickArmedY, input.NavUp, input.NavDown); ok {
			r.send(input.Action{Event: event, Timestamp: now})
		}
	case axisLT:
		r.send(input.Action{Event: input.TriggerLeft, Intensity: triggerIntensity(ev.Value), Timestamp: now})
	case axisRT:
		r.send(input.Action{Event: input.TriggerRight, Intensity: triggerIntensity(ev.Value), Timestamp: now})
	}
}

func (r *Reader) send(a input.Action) {
	if !r.queue.Send(a) {
		r.log.Debug("queue full, dropping action", "event", a.Event)
	}
}

func (r *Reader) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// buttonEvent maps a joydev button number to an input event.
func buttonEvent(number uint8) (input.InputEvent, bool) {
	switch number {
	case btnA:
		return input.ButtonA, true
	case btnB:
		return input.ButtonB, true
	case btnX:
		return input.ButtonX, true
	case btnY:
		return input.ButtonY, true
	case btnLB:
		return input.BumperLeft, true
	case btnRB:
		return input.BumperRight, true
	case btnView:
		return input.ButtonView, true
	case btnMenu:
		return input.ButtonMenu, true
	case btnXbox:
		return input.ButtonXbox, true
	default:
		return input.EventNone, false
	}
}

// stickStep turns a stick deflection into a single navigation step,
// re-arming only after the stick returns toward center.
func stickStep(value int16, armed *bool, negative, positive input.InputEvent) (input.InputEvent, bool) {
	switch {
	case *armed && value <= -stickThreshold:
		*armed = false
		return negative, true
	case *armed && value >= stickThreshold:
		*armed = false
		return positive, true
	case !*armed && value > -stickRelease && value < stickRelease:
		*armed = true
	}
	return input.EventNone, false
}

// triggerIntensity rescales the kernel's signed axis range onto the
// 0..1023 intensity scale.
func triggerIntensity(value int16) int16 {
	return int16((int32(value) + 32768) * 1023 / 65535)
}
