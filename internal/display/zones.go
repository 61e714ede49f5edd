package display

import (
	"time"

	"github.com/paperhome/paperhome/internal/geom"
)

// Zone identifies one of the three fixed horizontal bands of the
// dashboard layout.
type Zone uint8

const (
	// ZoneStatusBar is the top band: connectivity, battery, clock.
	ZoneStatusBar Zone = iota
	// ZoneContent is the flexible middle band the active screen owns.
	ZoneContent
	// ZoneBottomBar is the bottom band: page dots and hints.
	ZoneBottomBar
)

const numZones = 3

var zoneNames = [numZones]string{"status_bar", "content", "bottom_bar"}

func (z Zone) String() string {
	if int(z) < numZones {
		return zoneNames[z]
	}
	return "unknown"
}

// Config carries the band geometry and the anti-ghosting refresh
// policy. Partial refreshes leave residue on e-paper, so the policy
// forces a ghost-clearing full refresh after a run of partials, after
// a wall-clock interval, or when the whole panel changed anyway.
type Config struct {
	PanelW int
	PanelH int

	StatusBarH int
	BottomBarH int

	// MaxPartialBeforeFull is the partial-refresh run length that
	// forces the next render to be full.
	MaxPartialBeforeFull int

	// FullRefreshInterval is the longest the panel may go without a
	// full refresh.
	FullRefreshInterval time.Duration
}

// DefaultConfig returns the layout and refresh policy for the 800x480
// panel.
func DefaultConfig() Config {
	return Config{
		PanelW:               800,
		PanelH:               480,
		StatusBarH:           48,
		BottomBarH:           48,
		MaxPartialBeforeFull: 5,
		FullRefreshInterval:  30 * time.Minute,
	}
}

// PaintFunc paints one zone's content into the driver's frame buffer.
// The zone's window is already open and cleared to white.
type PaintFunc func(zone Zone, bounds geom.Rect, drv Driver)

// ZoneManager tracks which bands are stale and drives the panel with
// the cheapest refresh that keeps the image clean. It borrows the
// driver and is owned exclusively by the UI goroutine; no locking.
type ZoneManager struct {
	drv Driver
	cfg Config
	now func() time.Time

	zones [numZones]zoneState

	partialCount int
	lastFull     time.Time
	forceFull    bool
}

type zoneState struct {
	bounds geom.Rect
	dirty  bool
}

// NewZoneManager computes the static band rectangles from cfg and
// starts the full-refresh interval clock at construction. The now func
// is the time source; nil selects time.Now.
func NewZoneManager(drv Driver, cfg Config, now func() time.Time) *ZoneManager {
	if now == nil {
		now = time.Now
	}
	zm := &ZoneManager{
		drv: drv,
		cfg: cfg,
		now: now,
	}
	contentH := cfg.PanelH - cfg.StatusBarH - cfg.BottomBarH
	zm.zones[ZoneStatusBar].bounds = geom.NewRect(0, 0, cfg.PanelW, cfg.StatusBarH)
	zm.zones[ZoneContent].bounds = geom.NewRect(0, cfg.StatusBarH, cfg.PanelW, contentH)
	zm.zones[ZoneBottomBar].bounds = geom.NewRect(0, cfg.PanelH-cfg.BottomBarH, cfg.PanelW, cfg.BottomBarH)
	zm.lastFull = now()
	return zm
}

// MarkDirty flags one zone for redraw. Out-of-range zones are ignored.
func (zm *ZoneManager) MarkDirty(z Zone) {
	if int(z) >= numZones {
		return
	}
	zm.zones[z].dirty = true
}

// MarkAllDirty flags every zone for redraw.
func (zm *ZoneManager) MarkAllDirty() {
	for i := range zm.zones {
		zm.zones[i].dirty = true
	}
}

// ForceFullRefresh arms a one-shot override: the next render will be a
// full refresh regardless of counters. Consumed by that render.
func (zm *ZoneManager) ForceFullRefresh() {
	zm.forceFull = true
}

// IsDirty reports whether a zone is flagged. Out-of-range zones report
// false.
func (zm *ZoneManager) IsDirty(z Zone) bool {
	if int(z) >= numZones {
		return false
	}
	return zm.zones[z].dirty
}

// HasDirty reports whether any zone is flagged.
func (zm *ZoneManager) HasDirty() bool {
	for i := range zm.zones {
		if zm.zones[i].dirty {
			return true
		}
	}
	return false
}

// ZoneBounds returns a zone's static rectangle.
func (zm *ZoneManager) ZoneBounds(z Zone) geom.Rect {
	if int(z) >= numZones {
		return geom.Rect{}
	}
	return zm.zones[z].bounds
}

// PartialCount returns the number of partial refreshes since the last
// full refresh.
func (zm *ZoneManager) PartialCount() int {
	return zm.partialCount
}

// LastFull returns when the last full refresh ran.
func (zm *ZoneManager) LastFull() time.Time {
	return zm.lastFull
}

// ShouldForceFullRefresh evaluates the refresh policy: true when the
// one-shot override is armed, the partial run limit is reached, the
// full-refresh interval has elapsed, or every zone is dirty at once.
func (zm *ZoneManager) ShouldForceFullRefresh() bool {
	if zm.forceFull {
		return true
	}
	if zm.partialCount >= zm.cfg.MaxPartialBeforeFull {
		return true
	}
	if zm.now().Sub(zm.lastFull) >= zm.cfg.FullRefreshInterval {
		return true
	}
	for i := range zm.zones {
		if !zm.zones[i].dirty {
			return false
		}
	}
	return true
}

// Render redraws the flagged zones. A no-op when nothing is dirty.
// A full refresh clears the panel white and repaints all three zones;
// a partial pass opens one window per dirty zone. Dirty flags are
// cleared on success.
func (zm *ZoneManager) Render(paint PaintFunc) error {
	if !zm.HasDirty() {
		return nil
	}

	if zm.ShouldForceFullRefresh() {
		zm.drv.BeginFull()
		zm.drv.Fill(geom.NewRect(0, 0, zm.cfg.PanelW, zm.cfg.PanelH), true)
		for i := range zm.zones {
			paint(Zone(i), zm.zones[i].bounds, zm.drv)
		}
		if err := zm.drv.EndFull(); err != nil {
			return err
		}
		zm.partialCount = 0
		zm.lastFull = zm.now()
		zm.forceFull = false
		zm.clearDirty()
		return nil
	}

	for i := range zm.zones {
		if !zm.zones[i].dirty {
			continue
		}
		bounds := zm.zones[i].bounds
		zm.drv.BeginPartial(bounds)
		zm.drv.Fill(bounds, true)
		paint(Zone(i), bounds, zm.drv)
		if err := zm.drv.EndPartial(); err != nil {
			return err
		}
		zm.partialCount++
	}
	zm.clearDirty()
	return nil
}

func (zm *ZoneManager) clearDirty() {
	for i := range zm.zones {
		zm.zones[i].dirty = false
	}
}
