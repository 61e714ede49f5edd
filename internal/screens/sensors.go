package screens

import (
	"fmt"
	"image/draw"
	"time"

	"github.com/paperhome/paperhome/internal/display"
	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/nav"
	"github.com/paperhome/paperhome/internal/render"
	"github.com/paperhome/paperhome/internal/screen"
	"github.com/paperhome/paperhome/internal/sensors"
)

// Sensors shows the air readings as four large tiles. There is no
// selection; the Y shortcut lands here from anywhere.
type Sensors struct {
	screen.Base

	rnd *render.Renderer

	snap    sensors.Snapshot
	warnPPM int
}

// NewSensors returns the sensor page. warnPPM is the CO2 level flagged
// as stale air.
func NewSensors(rnd *render.Renderer, warnPPM int) *Sensors {
	return &Sensors{rnd: rnd, warnPPM: warnPPM}
}

// ID returns the screen's navigation identity.
func (s *Sensors) ID() nav.ScreenID {
	return nav.ScreenSensors
}

// SetSnapshot installs the latest sensor readings, marking the screen
// dirty only when a displayed value changed.
func (s *Sensors) SetSnapshot(snap sensors.Snapshot) {
	a, b := s.snap, snap
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	if a == b {
		return
	}
	s.snap = snap
	s.MarkDirty()
}

// HandleEvent ignores everything; the page has no selection.
func (s *Sensors) HandleEvent(ev nav.NavEvent) bool {
	return false
}

// SelectionRect reports no selection.
func (s *Sensors) SelectionRect() geom.Rect {
	return geom.Rect{}
}

// PreviousSelectionRect reports no selection.
func (s *Sensors) PreviousSelectionRect() geom.Rect {
	return geom.Rect{}
}

// Render paints the four tiles.
func (s *Sensors) Render(_ display.Zone, bounds geom.Rect, drv display.Driver) {
	img := drv.Image()
	area := bounds.Inset(margin)

	s.rnd.Text(img, "Air", area.X, render.Baseline(s.rnd.Title, area.Y, headingH), s.rnd.Title)

	grid := geom.NewRect(area.X, area.Y+headingH, area.W, area.H-headingH)
	tileW := (grid.W - gap) / 2
	tileH := (grid.H - gap) / 2
	tile := func(col, row int) geom.Rect {
		return geom.NewRect(grid.X+col*(tileW+gap), grid.Y+row*(tileH+gap), tileW, tileH)
	}

	s.renderCO2(img, tile(0, 0))
	s.renderComfort(img, tile(1, 0))
	s.renderIAQ(img, tile(0, 1))
	s.renderPressure(img, tile(1, 1))
}

func (s *Sensors) renderCO2(img draw.Image, t geom.Rect) {
	render.StrokeRect(img, t, 2)
	s.rnd.Icon(img, render.IconWind, t.X+pad, t.Y+pad, 24)
	s.rnd.Text(img, "CO2", t.X+pad+32, render.Baseline(s.rnd.Body, t.Y+pad, 24), s.rnd.Body)

	if !s.snap.HasCO2 {
		s.rnd.Text(img, "no sensor", t.X+pad, t.Bottom()-pad, s.rnd.Small)
		return
	}

	value := fmt.Sprintf("%d", s.snap.CO2PPM)
	s.rnd.Text(img, value, t.X+pad, t.Bottom()-pad-26, s.rnd.Large)
	s.rnd.Text(img, "ppm · "+s.co2Band(), t.X+pad, t.Bottom()-pad, s.rnd.Small)

	if s.snap.CO2PPM >= s.warnPPM {
		// Stale air gets the inverted tile treatment so it reads from
		// across the room.
		render.InvertRect(img, t)
	}
}

func (s *Sensors) renderComfort(img draw.Image, t geom.Rect) {
	render.StrokeRect(img, t, 2)
	s.rnd.Icon(img, render.IconThermometer, t.X+pad, t.Y+pad, 24)
	s.rnd.Text(img, "Comfort", t.X+pad+32, render.Baseline(s.rnd.Body, t.Y+pad, 24), s.rnd.Body)

	value := fmt.Sprintf("%.1f°C", s.snap.TemperatureC)
	s.rnd.Text(img, value, t.X+pad, t.Bottom()-pad-26, s.rnd.Large)
	s.rnd.Text(img, fmt.Sprintf("%.0f%% humidity", s.snap.HumidityPct), t.X+pad, t.Bottom()-pad, s.rnd.Small)
}

func (s *Sensors) renderIAQ(img draw.Image, t geom.Rect) {
	render.StrokeRect(img, t, 2)
	s.rnd.Icon(img, render.IconDroplet, t.X+pad, t.Y+pad, 24)
	s.rnd.Text(img, "Air quality", t.X+pad+32, render.Baseline(s.rnd.Body, t.Y+pad, 24), s.rnd.Body)

	if !s.snap.HasVOC {
		s.rnd.Text(img, "no sensor", t.X+pad, t.Bottom()-pad, s.rnd.Small)
		return
	}
	if !s.snap.IAQReady {
		s.rnd.Text(img, "warming up", t.X+pad, t.Bottom()-pad, s.rnd.Small)
		return
	}

	value := fmt.Sprintf("%.0f", s.snap.IAQIndex)
	s.rnd.Text(img, value, t.X+pad, t.Bottom()-pad-26, s.rnd.Large)
	s.rnd.Text(img, "IAQ · "+sensors.IAQBand(s.snap.IAQIndex), t.X+pad, t.Bottom()-pad, s.rnd.Small)
}

func (s *Sensors) renderPressure(img draw.Image, t geom.Rect) {
	render.StrokeRect(img, t, 2)
	s.rnd.Icon(img, render.IconHome, t.X+pad, t.Y+pad, 24)
	s.rnd.Text(img, "Pressure", t.X+pad+32, render.Baseline(s.rnd.Body, t.Y+pad, 24), s.rnd.Body)

	if !s.snap.HasPressure {
		s.rnd.Text(img, "no sensor", t.X+pad, t.Bottom()-pad, s.rnd.Small)
		return
	}

	value := fmt.Sprintf("%.0f", s.snap.PressureHPa)
	s.rnd.Text(img, value, t.X+pad, t.Bottom()-pad-26, s.rnd.Large)
	s.rnd.Text(img, "hPa", t.X+pad, t.Bottom()-pad, s.rnd.Small)
}

func (s *Sensors) co2Band() string {
	switch {
	case s.snap.CO2PPM < 800:
		return "fresh"
	case s.snap.CO2PPM < s.warnPPM:
		return "elevated"
	default:
		return "stale"
	}
}
