package screens

import (
	"fmt"
	"image/draw"

	"github.com/paperhome/paperhome/internal/display"
	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/nav"
	"github.com/paperhome/paperhome/internal/render"
	"github.com/paperhome/paperhome/internal/screen"
	"github.com/paperhome/paperhome/internal/tado"
)

const climateRowH = 72

// Climate lists the heating zones with inside temperature, setpoint,
// humidity and call-for-heat.
type Climate struct {
	screen.List

	rnd *render.Renderer

	home  string
	zones []tado.ZoneSnapshot
	state tado.ConnState
}

// NewClimate returns the climate page with no zones yet.
func NewClimate(rnd *render.Renderer) *Climate {
	return &Climate{List: screen.NewList(), rnd: rnd}
}

// ID returns the screen's navigation identity.
func (s *Climate) ID() nav.ScreenID {
	return nav.ScreenClimate
}

// SetZones installs the latest cloud snapshot, marking the screen
// dirty only when something visible changed.
func (s *Climate) SetZones(snap tado.Snapshot) {
	changed := s.state != snap.State || s.home != snap.Home || len(s.zones) != len(snap.Zones)
	if !changed {
		for i := range snap.Zones {
			if s.zones[i] != snap.Zones[i] {
				changed = true
				break
			}
		}
	}
	if !changed {
		return
	}

	s.state = snap.State
	s.home = snap.Home
	s.zones = append(s.zones[:0], snap.Zones...)
	s.SetItemCount(len(s.zones))
	s.MarkDirty()
}

// HandleEvent moves the selection; zones are read-only.
func (s *Climate) HandleEvent(ev nav.NavEvent) bool {
	return s.HandleNav(ev)
}

// Render paints the zone list.
func (s *Climate) Render(_ display.Zone, bounds geom.Rect, drv display.Driver) {
	img := drv.Image()
	area := bounds.Inset(margin)

	heading := "Climate"
	if s.home != "" {
		heading = "Climate · " + s.home
	}
	s.rnd.Text(img, heading, area.X, render.Baseline(s.rnd.Title, area.Y, headingH), s.rnd.Title)

	if msg := s.emptyMessage(); msg != "" {
		s.rnd.Text(img, msg, area.X, area.Y+headingH+40, s.rnd.Body)
		return
	}

	list := geom.NewRect(area.X, area.Y+headingH, area.W, area.H-headingH)
	s.SetLayout(list, climateRowH)

	visible := s.VisibleRows()
	for i := s.Offset(); i < s.ItemCount() && i < s.Offset()+visible; i++ {
		s.renderRow(img, s.RowRect(i), s.zones[i])
	}

	render.InvertRect(img, s.SelectionRect())
}

func (s *Climate) renderRow(img draw.Image, row geom.Rect, zone tado.ZoneSnapshot) {
	render.HLine(img, row.X, row.Bottom()-1, row.W, 1)

	name := render.TruncateText(s.rnd.Body, zone.Name, row.W/2-pad)
	s.rnd.Text(img, name, row.X+pad, render.Baseline(s.rnd.Body, row.Y, row.H), s.rnd.Body)

	temps := fmt.Sprintf("%.1f° → %.1f°", zone.InsideCelsius, zone.TargetCelsius)
	s.rnd.TextRight(img, temps, row.Right()-pad, render.Baseline(s.rnd.Body, row.Y, row.H/2+8), s.rnd.Body)

	detail := fmt.Sprintf("%.0f%% humidity", zone.Humidity)
	if zone.Heating {
		detail = fmt.Sprintf("heating %.0f%% · %s", zone.HeatingPower, detail)
		s.rnd.Icon(img, render.IconFlame, row.X+row.W/2-20, row.Y+row.H/2-10, 20)
	}
	s.rnd.TextRight(img, detail, row.Right()-pad, row.Bottom()-pad, s.rnd.Small)
}

func (s *Climate) emptyMessage() string {
	switch s.state {
	case tado.StateNeedsAuth:
		return "Sign in to Tado from the Network settings page."
	case tado.StateAwaitingGrant:
		return "Waiting for tado.com approval. The code is on the Network settings page."
	case tado.StateError:
		return "Tado unreachable. Retrying."
	}
	if len(s.zones) == 0 {
		return "No heating zones in this home."
	}
	return ""
}
