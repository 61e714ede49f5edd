// Package coordinator composes the UI task. It consumes controller
// actions from the input queue, drives the navigation controller and
// the active screen, paints the three display zones, and plumbs
// manager snapshots into the screens. All navigation and display state
// is confined to the Run goroutine; managers hand data across through
// their own thread-safe snapshots.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/paperhome/paperhome/internal/display"
	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/homekit"
	"github.com/paperhome/paperhome/internal/hue"
	"github.com/paperhome/paperhome/internal/input"
	"github.com/paperhome/paperhome/internal/mqtt"
	"github.com/paperhome/paperhome/internal/nav"
	"github.com/paperhome/paperhome/internal/power"
	"github.com/paperhome/paperhome/internal/render"
	"github.com/paperhome/paperhome/internal/screen"
	"github.com/paperhome/paperhome/internal/screens"
	"github.com/paperhome/paperhome/internal/sensors"
	"github.com/paperhome/paperhome/internal/tado"
)

const (
	// defaultTick bounds how long the loop waits on the queue; the
	// input batcher needs a poll at least this often to close windows.
	defaultTick = 50 * time.Millisecond

	// snapshotInterval is the catch-up cadence for manager snapshots.
	// Data changes arrive sooner through the update hooks; this floor
	// picks up connection-state transitions that have no hook.
	snapshotInterval = time.Second

	// telemetryInterval is the MQTT state publish cadence.
	telemetryInterval = time.Minute

	// actionTimeout bounds bridge calls triggered from the UI.
	actionTimeout = 10 * time.Second

	// maxRenderFailures aborts the loop when the panel stops taking
	// refreshes; transient SPI errors recover well before this.
	maxRenderFailures = 5
)

// Options carries the coordinator's collaborators. Queue, Driver and
// Display are required; every manager is optional and its screens
// show the unconfigured state when absent.
type Options struct {
	Queue   *input.Queue
	Driver  display.Driver
	Display display.Config

	// BatchWindow is the input coalescing window; zero selects the
	// batcher default.
	BatchWindow time.Duration

	Hue     *hue.Manager
	HueHost string

	Tado *tado.Manager

	Sensors    *sensors.Manager
	CO2WarnPPM int

	Power *power.Monitor

	MQTT       *mqtt.Manager
	MQTTBroker string

	HomeKit    *homekit.Manager
	HomeKitPin string

	Version string
	Log     *slog.Logger

	// Now is the clock; nil selects time.Now.
	Now func() time.Time
}

// Coordinator is the composition root of the panel UI.
type Coordinator struct {
	opts Options
	log  *slog.Logger
	now  func() time.Time

	queue *input.Queue
	ctrl  *nav.Controller
	zones *display.ZoneManager
	rnd   *render.Renderer

	byID   map[nav.ScreenID]screen.Screen
	active screen.Screen

	hueDash     *screens.HueDashboard
	climate     *screens.Climate
	sensorView  *screens.Sensors
	deviceInfo  *screens.DeviceInfo
	network     *screens.Network
	displayView *screens.DisplaySettings

	hostname  string
	startedAt time.Time

	// controllerOn mirrors the gamepad connection pseudo-events.
	controllerOn bool

	// Set from manager goroutines, drained by the run loop.
	stale        atomic.Bool
	forcePending atomic.Bool

	runCtx context.Context

	lastMinute   int
	lastSnapshot time.Time
	lastSensors  time.Time
	lastPublish  time.Time
}

// New wires the controller, zone manager, renderer and the six screens
// together. Managers present in opts get their update hooks attached.
func New(opts Options) (*Coordinator, error) {
	if opts.Queue == nil {
		return nil, fmt.Errorf("coordinator: queue is required")
	}
	if opts.Driver == nil {
		return nil, fmt.Errorf("coordinator: display driver is required")
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	rnd, err := render.New()
	if err != nil {
		return nil, fmt.Errorf("building renderer: %w", err)
	}

	hostname, _ := os.Hostname()

	c := &Coordinator{
		opts:       opts,
		log:        log.With("module", "coordinator"),
		now:        now,
		queue:      opts.Queue,
		ctrl:       nav.NewController(opts.BatchWindow, nil),
		zones:      display.NewZoneManager(opts.Driver, opts.Display, now),
		rnd:        rnd,
		hostname:   hostname,
		startedAt:  now(),
		lastMinute: -1,
	}

	c.hueDash = screens.NewHueDashboard(rnd, c.toggleRoom)
	c.climate = screens.NewClimate(rnd)
	c.sensorView = screens.NewSensors(rnd, opts.CO2WarnPPM)
	c.deviceInfo = screens.NewDeviceInfo(rnd, now)
	c.network = screens.NewNetwork(rnd, c.pairHue)
	c.displayView = screens.NewDisplaySettings(rnd, now, c.ForceRefresh)

	c.byID = map[nav.ScreenID]screen.Screen{
		nav.ScreenHueDashboard:    c.hueDash,
		nav.ScreenClimate:         c.climate,
		nav.ScreenSensors:         c.sensorView,
		nav.ScreenDeviceInfo:      c.deviceInfo,
		nav.ScreenNetwork:         c.network,
		nav.ScreenDisplaySettings: c.displayView,
	}

	c.ctrl.OnScreenChange(c.switchScreen)
	c.ctrl.OnForceRefresh(c.ForceRefresh)

	markStale := func() { c.stale.Store(true) }
	if opts.Hue != nil {
		opts.Hue.OnUpdate(markStale)
	}
	if opts.Tado != nil {
		opts.Tado.OnUpdate(markStale)
	}
	if opts.Sensors != nil {
		opts.Sensors.OnUpdate(markStale)
	}
	if opts.Power != nil {
		opts.Power.OnUpdate(markStale)
	}
	if opts.MQTT != nil {
		opts.MQTT.OnForceRefresh(c.ForceRefresh)
	}

	return c, nil
}

// ForceRefresh schedules a full-panel refresh on the next render pass.
// Safe from any goroutine; the View button, the MQTT command topic and
// the front button all land here.
func (c *Coordinator) ForceRefresh() {
	c.forcePending.Store(true)
}

// Run drives the UI until ctx is cancelled. It blocks; callers give it
// its own goroutine when they have other work.
func (c *Coordinator) Run(ctx context.Context) error {
	c.runCtx = ctx
	c.begin()

	tick := c.opts.BatchWindow
	if tick <= 0 {
		tick = defaultTick
	}

	c.log.Info("ui loop started", "screen", c.ctrl.CurrentScreen())

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			c.log.Info("ui loop stopped")
			return nil
		}

		if a, ok := c.queue.Receive(tick); ok {
			c.dispatch(a)
			// Drain whatever else arrived while we slept.
			for {
				a, ok := c.queue.Receive(0)
				if !ok {
					break
				}
				c.dispatch(a)
			}
		}

		c.ctrl.Update()
		c.drainNavEvents()
		c.tick()

		if err := c.renderDirty(); err != nil {
			failures++
			c.log.Error("render failed", "err", err, "consecutive", failures)
			if failures >= maxRenderFailures {
				return fmt.Errorf("display stopped accepting refreshes: %w", err)
			}
		} else {
			failures = 0
		}
	}
}

// begin enters the boot screen and stages a first full paint.
func (c *Coordinator) begin() {
	c.active = c.byID[c.ctrl.CurrentScreen()]
	c.active.OnEnter()
	c.refreshData()
	c.zones.MarkAllDirty()
}

// dispatch feeds one action into the pipeline. Connection pseudo-events
// update the status bar and never reach the controller.
func (c *Coordinator) dispatch(a input.Action) {
	if a.Event.IsConnection() {
		on := a.Event == input.ControllerConnected
		if c.controllerOn != on {
			c.controllerOn = on
			c.zones.MarkDirty(display.ZoneStatusBar)
			c.log.Info("controller presence changed", "connected", on)
		}
		return
	}
	c.ctrl.HandleInput(a)
}

// drainNavEvents hands pending screen-local events to the active
// screen. QuickSensors is a coordinator-level jump, not a screen event.
func (c *Coordinator) drainNavEvents() {
	for c.ctrl.HasNavEvent() {
		ev := c.ctrl.PollNavEvent()
		if ev == nav.QuickSensors {
			c.ctrl.Flush()
			c.ctrl.NavigateTo(nav.ScreenSensors)
			continue
		}
		if c.active != nil {
			c.active.HandleEvent(ev)
		}
	}
}

// switchScreen runs on the UI goroutine from inside Update.
func (c *Coordinator) switchScreen(id nav.ScreenID) {
	next, ok := c.byID[id]
	if !ok || next == c.active {
		return
	}
	if c.active != nil {
		c.active.OnExit()
	}
	c.active = next
	c.active.OnEnter()
	c.zones.MarkDirty(display.ZoneContent)
	c.zones.MarkDirty(display.ZoneBottomBar)
	c.log.Debug("screen changed", "screen", id)
}

// tick runs the per-loop periodic work: the status clock, snapshot
// refresh, the force-refresh flag and the telemetry cadence.
func (c *Coordinator) tick() {
	now := c.now()

	if minute := now.Hour()*60 + now.Minute(); minute != c.lastMinute {
		c.lastMinute = minute
		c.zones.MarkDirty(display.ZoneStatusBar)
	}

	if c.stale.Swap(false) || now.Sub(c.lastSnapshot) >= snapshotInterval {
		c.lastSnapshot = now
		c.refreshData()
	}

	if c.forcePending.Swap(false) {
		c.zones.ForceFullRefresh()
		c.zones.MarkAllDirty()
		c.log.Info("full refresh requested")
	}

	if c.opts.MQTT != nil && now.Sub(c.lastPublish) >= telemetryInterval {
		c.lastPublish = now
		go c.publishTelemetry()
	}
}

// refreshData pushes fresh manager snapshots into every screen. The
// screens diff and only mark themselves dirty on visible change.
func (c *Coordinator) refreshData() {
	var powerStatus power.Status
	if c.opts.Power != nil {
		powerStatus = c.opts.Power.Status()
	}

	if c.opts.Hue != nil {
		c.hueDash.SetRooms(c.opts.Hue.Snapshot())
	}

	var tadoSnap tado.Snapshot
	if c.opts.Tado != nil {
		tadoSnap = c.opts.Tado.Snapshot()
		c.climate.SetZones(tadoSnap)
	}

	if c.opts.Sensors != nil {
		snap := c.opts.Sensors.Snapshot()
		c.sensorView.SetSnapshot(snap)
		if c.opts.HomeKit != nil && !snap.UpdatedAt.IsZero() && snap.UpdatedAt != c.lastSensors {
			c.lastSensors = snap.UpdatedAt
			c.opts.HomeKit.Update(homekit.Readings{
				CO2PPM:       snap.CO2PPM,
				TemperatureC: snap.TemperatureC,
				HumidityPct:  snap.HumidityPct,
				CO2Abnormal:  c.opts.CO2WarnPPM > 0 && snap.CO2PPM >= c.opts.CO2WarnPPM,
			})
		}
	}

	c.deviceInfo.SetData(screens.DeviceInfoData{
		Version:   c.opts.Version,
		StartedAt: c.startedAt,
		Hostname:  c.hostname,
		Battery:   powerStatus,
	})

	status := screens.NetworkStatus{
		WiFiRSSI:   powerStatus.RSSIDBm,
		HasWiFi:    powerStatus.HasWiFi,
		HueHost:    c.opts.HueHost,
		TadoState:  tadoSnap.State,
		TadoAuth:   tadoSnap.Auth,
		MQTTBroker: c.opts.MQTTBroker,
		HomeKitOn:  c.opts.HomeKit != nil,
		HomeKitPin: c.opts.HomeKitPin,
	}
	if c.opts.Hue != nil {
		status.HueState = c.opts.Hue.ConnState()
	}
	if c.opts.MQTT != nil {
		status.MQTTState = c.opts.MQTT.ConnState()
	}
	c.network.SetStatus(status)

	c.displayView.SetData(screens.DisplayData{
		PartialCount: c.zones.PartialCount(),
		PartialLimit: c.opts.Display.MaxPartialBeforeFull,
		FullInterval: c.opts.Display.FullRefreshInterval,
		LastFull:     c.zones.LastFull(),
	})
}

func (c *Coordinator) renderDirty() error {
	if c.active != nil && c.active.IsDirty() {
		c.zones.MarkDirty(display.ZoneContent)
	}
	if !c.zones.HasDirty() {
		return nil
	}
	return c.zones.Render(c.paint)
}

// paint is the zone callback: status bar, active screen, bottom bar.
func (c *Coordinator) paint(zone display.Zone, bounds geom.Rect, drv display.Driver) {
	switch zone {
	case display.ZoneStatusBar:
		c.paintStatusBar(bounds, drv)
	case display.ZoneContent:
		if c.active != nil {
			c.active.Render(zone, bounds, drv)
			c.active.ClearDirty()
		}
	case display.ZoneBottomBar:
		c.paintBottomBar(bounds, drv)
	}
}

const (
	barPad  = 16
	iconGap = 10
)

func (c *Coordinator) paintStatusBar(bounds geom.Rect, drv display.Driver) {
	img := drv.Image()
	render.HLine(img, bounds.X, bounds.Bottom()-1, bounds.W, 1)

	baseline := render.Baseline(c.rnd.Title, bounds.Y, bounds.H)
	c.rnd.Text(img, c.now().Format("15:04"), bounds.X+barPad, baseline, c.rnd.Title)

	iconY := bounds.Y + (bounds.H-24)/2
	x := bounds.Right() - barPad

	var st power.Status
	if c.opts.Power != nil {
		st = c.opts.Power.Status()
	}
	if st.HasBattery {
		pct := fmt.Sprintf("%d%%", st.BatteryPercent)
		x -= render.TextWidth(c.rnd.Body, pct)
		c.rnd.Text(img, pct, x, render.Baseline(c.rnd.Body, bounds.Y, bounds.H), c.rnd.Body)
		x -= 24 + 4
		c.rnd.Icon(img, render.IconBattery, x, iconY, 24)
		x -= iconGap
	}
	if st.HasWiFi {
		x -= 24
		c.rnd.Icon(img, render.IconWifi, x, iconY, 24)
		x -= iconGap
	}
	if c.controllerOn {
		x -= 24
		c.rnd.Icon(img, render.IconGamepad, x, iconY, 24)
	}
}

func (c *Coordinator) paintBottomBar(bounds geom.Rect, drv display.Driver) {
	img := drv.Image()
	render.HLine(img, bounds.X, bounds.Y, bounds.W, 1)

	hint := "A select · B back · bumpers flip pages · menu settings"
	if c.ctrl.CurrentStack() == nav.StackSettings {
		hint = "A select · B exit settings · bumpers flip pages"
	}
	c.rnd.Text(img, hint, bounds.X+barPad, render.Baseline(c.rnd.Small, bounds.Y, bounds.H), c.rnd.Small)

	// Page dots for the active stack, current page filled. Both stacks
	// hold three pages.
	const (
		pages   = 3
		dot     = 10
		dotStep = 20
	)
	current := c.pageIndex()
	x := bounds.Right() - barPad - pages*dotStep + (dotStep - dot)
	y := bounds.Y + (bounds.H-dot)/2
	for i := 0; i < pages; i++ {
		r := geom.NewRect(x+i*dotStep, y, dot, dot)
		if i == current {
			render.FillRect(img, r, false)
		} else {
			render.StrokeRect(img, r, 1)
		}
	}
}

// pageIndex returns the current page's position within its stack.
func (c *Coordinator) pageIndex() int {
	switch c.ctrl.CurrentScreen() {
	case nav.ScreenClimate, nav.ScreenNetwork:
		return 1
	case nav.ScreenSensors, nav.ScreenDisplaySettings:
		return 2
	}
	return 0
}

// toggleRoom runs the bridge call off the UI goroutine; the manager
// refetches on success so the optimistic flip gets confirmed or
// corrected within a tick.
func (c *Coordinator) toggleRoom(roomID string) {
	if c.opts.Hue == nil {
		return
	}
	parent := c.runCtx
	if parent == nil {
		parent = context.Background()
	}
	go func() {
		ctx, cancel := context.WithTimeout(parent, actionTimeout)
		defer cancel()
		if err := c.opts.Hue.ToggleRoom(ctx, roomID); err != nil {
			c.log.Error("toggle room failed", "room", roomID, "err", err)
			c.stale.Store(true)
		}
	}()
}

// pairHue runs bridge pairing off the UI goroutine. The link button
// window is 30 seconds, so failures here are usually just "not pressed
// yet" and the user retries.
func (c *Coordinator) pairHue() {
	if c.opts.Hue == nil {
		return
	}
	parent := c.runCtx
	if parent == nil {
		parent = context.Background()
	}
	go func() {
		ctx, cancel := context.WithTimeout(parent, actionTimeout)
		defer cancel()
		if err := c.opts.Hue.Pair(ctx, "paperhome#panel"); err != nil {
			c.log.Warn("pairing failed", "err", err)
		}
		c.stale.Store(true)
	}()
}

func (c *Coordinator) publishTelemetry() {
	var t mqtt.Telemetry
	if c.opts.Sensors != nil {
		snap := c.opts.Sensors.Snapshot()
		t.CO2PPM = snap.CO2PPM
		t.TemperatureC = snap.TemperatureC
		t.HumidityPct = snap.HumidityPct
		t.PressureHPa = snap.PressureHPa
		t.IAQIndex = snap.IAQIndex
		if snap.IAQReady {
			t.IAQBand = sensors.IAQBand(snap.IAQIndex)
		}
	}
	if c.opts.Power != nil {
		st := c.opts.Power.Status()
		t.BatteryPct = st.BatteryPercent
		t.Charging = st.Charging
		t.RSSIdBm = st.RSSIDBm
	}
	if err := c.opts.MQTT.PublishTelemetry(t); err != nil {
		c.log.Error("telemetry publish failed", "err", err)
	}
}
