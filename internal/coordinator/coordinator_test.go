package coordinator

import (
	"context"
	"image"
	"image/draw"
	"testing"
	"time"

	"github.com/paperhome/paperhome/internal/display"
	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/input"
	"github.com/paperhome/paperhome/internal/nav"
)

// fakeDriver records the refresh windows the zone manager opens.
type fakeDriver struct {
	img draw.Image

	fullEnded  int
	partialEnd int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{img: image.NewRGBA(image.Rect(0, 0, 800, 480))}
}

func (d *fakeDriver) Bounds() geom.Rect { return geom.NewRect(0, 0, 800, 480) }

func (d *fakeDriver) Image() draw.Image { return d.img }

func (d *fakeDriver) BeginFull() {}

func (d *fakeDriver) EndFull() error { d.fullEnded++; return nil }

func (d *fakeDriver) BeginPartial(geom.Rect) {}

func (d *fakeDriver) EndPartial() error { d.partialEnd++; return nil }

func (d *fakeDriver) Fill(geom.Rect, bool) {}

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeDriver, *fakeClock) {
	t.Helper()

	queue, err := input.NewQueue(16)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	drv := newFakeDriver()
	clk := &fakeClock{t: time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)}

	cfg := display.DefaultConfig()
	cfg.MaxPartialBeforeFull = 5
	cfg.FullRefreshInterval = time.Hour

	c, err := New(Options{
		Queue:   queue,
		Driver:  drv,
		Display: cfg,
		Version: "test",
		Now:     clk.now,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, drv, clk
}

func press(c *Coordinator, ev input.InputEvent) {
	c.dispatch(input.Action{Event: ev, Timestamp: input.NowMillis()})
	c.ctrl.Update()
	c.drainNavEvents()
}

func TestNewRequiresQueueAndDriver(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New without a queue should fail")
	}

	queue, _ := input.NewQueue(4)
	if _, err := New(Options{Queue: queue}); err == nil {
		t.Error("New without a driver should fail")
	}
}

func TestBeginStartsOnHueDashboard(t *testing.T) {
	c, drv, _ := newTestCoordinator(t)
	c.begin()

	if got := c.ctrl.CurrentScreen(); got != nav.ScreenHueDashboard {
		t.Errorf("boot screen = %v, want %v", got, nav.ScreenHueDashboard)
	}
	if c.active != c.byID[nav.ScreenHueDashboard] {
		t.Error("active screen not wired to the boot screen")
	}

	if err := c.renderDirty(); err != nil {
		t.Fatalf("renderDirty: %v", err)
	}
	if drv.fullEnded != 1 {
		t.Errorf("first paint ended %d full refreshes, want 1", drv.fullEnded)
	}
}

func TestConnectionEventsBypassController(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	c.begin()
	if err := c.renderDirty(); err != nil {
		t.Fatalf("renderDirty: %v", err)
	}

	c.dispatch(input.Action{Event: input.ControllerConnected})
	if !c.controllerOn {
		t.Error("connect event should set controller presence")
	}
	if !c.zones.IsDirty(display.ZoneStatusBar) {
		t.Error("connect event should dirty the status bar")
	}
	if c.ctrl.HasNavEvent() {
		t.Error("connection events must not reach the controller")
	}

	c.dispatch(input.Action{Event: input.ControllerDisconnected})
	if c.controllerOn {
		t.Error("disconnect event should clear controller presence")
	}
}

func TestBumperCyclesMainPages(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	c.begin()
	if err := c.renderDirty(); err != nil {
		t.Fatalf("renderDirty: %v", err)
	}

	press(c, input.BumperRight)
	if c.active != c.byID[nav.ScreenClimate] {
		t.Fatalf("active = %v after bumper, want climate", c.ctrl.CurrentScreen())
	}
	if !c.zones.IsDirty(display.ZoneContent) || !c.zones.IsDirty(display.ZoneBottomBar) {
		t.Error("page change should dirty content and bottom bar")
	}

	press(c, input.BumperLeft)
	if c.active != c.byID[nav.ScreenHueDashboard] {
		t.Errorf("active = %v after bumper back, want hue dashboard", c.ctrl.CurrentScreen())
	}
}

func TestMenuEntersSettingsAndBExits(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	c.begin()

	press(c, input.ButtonMenu)
	if c.active != c.byID[nav.ScreenDeviceInfo] {
		t.Fatalf("active = %v after menu, want device info", c.ctrl.CurrentScreen())
	}

	press(c, input.ButtonB)
	if c.active != c.byID[nav.ScreenHueDashboard] {
		t.Errorf("active = %v after B, want hue dashboard", c.ctrl.CurrentScreen())
	}
}

func TestQuickSensorsJumpsFromAnywhere(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	c.begin()

	press(c, input.ButtonMenu)
	press(c, input.ButtonY)

	if c.active != c.byID[nav.ScreenSensors] {
		t.Errorf("active = %v after Y, want sensors", c.ctrl.CurrentScreen())
	}
}

func TestForceRefreshAppliesOnNextTick(t *testing.T) {
	c, drv, _ := newTestCoordinator(t)
	c.begin()
	if err := c.renderDirty(); err != nil {
		t.Fatalf("renderDirty: %v", err)
	}
	full := drv.fullEnded

	c.ForceRefresh()
	c.tick()
	if err := c.renderDirty(); err != nil {
		t.Fatalf("renderDirty: %v", err)
	}

	if drv.fullEnded != full+1 {
		t.Errorf("full refreshes = %d, want %d", drv.fullEnded, full+1)
	}
}

func TestViewButtonRequestsFullRefresh(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	c.begin()

	press(c, input.ButtonView)
	if !c.forcePending.Load() {
		t.Error("View button should schedule a full refresh")
	}
}

func TestMinuteRollDirtiesStatusBar(t *testing.T) {
	c, drv, clk := newTestCoordinator(t)
	c.begin()
	c.tick()
	if err := c.renderDirty(); err != nil {
		t.Fatalf("renderDirty: %v", err)
	}

	c.tick()
	if c.zones.IsDirty(display.ZoneStatusBar) {
		t.Error("same minute should not dirty the status bar")
	}

	clk.advance(61 * time.Second)
	c.tick()
	if !c.zones.IsDirty(display.ZoneStatusBar) {
		t.Error("minute roll should dirty the status bar")
	}
	if c.zones.IsDirty(display.ZoneContent) {
		t.Error("minute roll should leave the content zone alone")
	}

	if err := c.renderDirty(); err != nil {
		t.Fatalf("renderDirty: %v", err)
	}
	if drv.partialEnd == 0 {
		t.Error("clock repaint should be a partial refresh")
	}
}

func TestIdleRenderIsNoop(t *testing.T) {
	c, drv, _ := newTestCoordinator(t)
	c.begin()
	c.tick()
	if err := c.renderDirty(); err != nil {
		t.Fatalf("renderDirty: %v", err)
	}
	full, partial := drv.fullEnded, drv.partialEnd

	c.tick()
	if err := c.renderDirty(); err != nil {
		t.Fatalf("renderDirty: %v", err)
	}

	if drv.fullEnded != full || drv.partialEnd != partial {
		t.Errorf("idle tick refreshed the panel: full %d->%d partial %d->%d",
			full, drv.fullEnded, partial, drv.partialEnd)
	}
}

func TestNavigationReachesActiveScreen(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	c.begin()

	press(c, input.ButtonMenu)
	if err := c.renderDirty(); err != nil {
		t.Fatalf("renderDirty: %v", err)
	}

	sel := c.active.SelectionRect()
	press(c, input.NavDown)
	// The batcher holds navigation for a window; flush and re-apply.
	c.ctrl.Flush()
	c.ctrl.Update()
	c.drainNavEvents()

	if c.active.SelectionRect() == sel {
		t.Error("NavDown should move the settings selection")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	c.queue.Send(input.Action{Event: input.ControllerConnected})
	c.queue.Send(input.Action{Event: input.BumperRight, Timestamp: input.NowMillis()})

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if !c.controllerOn {
		t.Error("queued connect event was not dispatched by the loop")
	}
}
