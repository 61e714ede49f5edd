package screens

import (
	"fmt"
	"image/draw"

	"github.com/paperhome/paperhome/internal/display"
	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/hue"
	"github.com/paperhome/paperhome/internal/nav"
	"github.com/paperhome/paperhome/internal/render"
	"github.com/paperhome/paperhome/internal/screen"
)

// The room grid is 3x2; more rooms than cells are reported in the
// heading rather than paged.
const (
	hueCols = 3
	hueRows = 2
)

// HueDashboard is the home page: a grid of room cards with their
// grouped-light state. Confirm toggles the selected room.
type HueDashboard struct {
	screen.Grid

	rnd *render.Renderer

	rooms []hue.Room
	state hue.ConnState

	// toggle is invoked with the room ID on Confirm; the coordinator
	// runs the bridge call off the UI goroutine.
	toggle func(roomID string)
}

// NewHueDashboard returns the dashboard with no rooms yet.
func NewHueDashboard(rnd *render.Renderer, toggle func(roomID string)) *HueDashboard {
	return &HueDashboard{
		Grid:   screen.NewGrid(hueCols, hueRows),
		rnd:    rnd,
		toggle: toggle,
	}
}

// ID returns the screen's navigation identity.
func (s *HueDashboard) ID() nav.ScreenID {
	return nav.ScreenHueDashboard
}

// SetRooms installs the latest bridge snapshot, marking the screen
// dirty only when something visible changed.
func (s *HueDashboard) SetRooms(snap hue.Snapshot) {
	changed := s.state != snap.State || len(s.rooms) != len(snap.Rooms)
	if !changed {
		for i := range snap.Rooms {
			if s.rooms[i] != snap.Rooms[i] {
				changed = true
				break
			}
		}
	}
	if !changed {
		return
	}

	s.state = snap.State
	s.rooms = append(s.rooms[:0], snap.Rooms...)
	s.SetItemCount(min(len(s.rooms), hueCols*hueRows))
	s.MarkDirty()
}

// HandleEvent toggles on Confirm and otherwise moves the selection.
func (s *HueDashboard) HandleEvent(ev nav.NavEvent) bool {
	if ev == nav.Confirm {
		i := s.SelectedIndex()
		if i >= len(s.rooms) || s.toggle == nil {
			return false
		}
		// Flip optimistically; the authoritative state follows from the
		// manager's refetch.
		s.rooms[i].On = !s.rooms[i].On
		s.toggle(s.rooms[i].ID)
		s.MarkDirty()
		return true
	}
	return s.HandleNav(ev)
}

// Render paints the room grid.
func (s *HueDashboard) Render(_ display.Zone, bounds geom.Rect, drv display.Driver) {
	img := drv.Image()
	area := bounds.Inset(margin)

	if msg := s.emptyMessage(); msg != "" {
		s.rnd.Text(img, "Lights", area.X, render.Baseline(s.rnd.Title, area.Y, headingH), s.rnd.Title)
		s.rnd.Text(img, msg, area.X, area.Y+headingH+40, s.rnd.Body)
		return
	}

	heading := "Lights"
	if extra := len(s.rooms) - s.ItemCount(); extra > 0 {
		heading = fmt.Sprintf("Lights (%d more not shown)", extra)
	}
	s.rnd.Text(img, heading, area.X, render.Baseline(s.rnd.Title, area.Y, headingH), s.rnd.Title)

	grid := geom.NewRect(area.X, area.Y+headingH, area.W, area.H-headingH)
	cellW := (grid.W - (hueCols-1)*gap) / hueCols
	cellH := (grid.H - (hueRows-1)*gap) / hueRows
	s.SetLayout(grid, cellW, cellH, gap, gap)

	for i := 0; i < s.ItemCount(); i++ {
		s.renderCard(img, s.CellRect(i), s.rooms[i])
	}

	render.InvertRect(img, s.SelectionRect())
}

func (s *HueDashboard) renderCard(img draw.Image, cell geom.Rect, room hue.Room) {
	render.StrokeRect(img, cell, 2)

	s.rnd.Icon(img, render.IconBulb, cell.X+pad, cell.Y+pad, 28)
	nameX := cell.X + pad + 28 + 8
	name := render.TruncateText(s.rnd.Title, room.Name, cell.Right()-pad-nameX)
	s.rnd.Text(img, name, nameX, render.Baseline(s.rnd.Title, cell.Y+pad, 28), s.rnd.Title)

	status := onOff(room.On)
	if room.On {
		status = fmt.Sprintf("On · %.0f%%", room.Brightness)
	}
	s.rnd.Text(img, status, cell.X+pad, cell.Bottom()-pad-28, s.rnd.Body)

	lights := fmt.Sprintf("%d lights", room.DeviceCount)
	if room.DeviceCount == 1 {
		lights = "1 light"
	}
	s.rnd.Text(img, lights, cell.X+pad, cell.Bottom()-pad, s.rnd.Small)
}

func (s *HueDashboard) emptyMessage() string {
	switch s.state {
	case hue.StateDisconnected:
		return "Looking for the Hue bridge..."
	case hue.StateUnpaired:
		return "Bridge found. Pair it from the Network settings page."
	case hue.StateError:
		return "Bridge unreachable. Retrying."
	}
	if len(s.rooms) == 0 {
		return "No rooms configured on the bridge."
	}
	return ""
}
