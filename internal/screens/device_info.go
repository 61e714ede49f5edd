package screens

import (
	"fmt"
	"time"

	"github.com/paperhome/paperhome/internal/display"
	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/nav"
	"github.com/paperhome/paperhome/internal/power"
	"github.com/paperhome/paperhome/internal/render"
	"github.com/paperhome/paperhome/internal/screen"
)

const settingsRowH = 52

// DeviceInfoData is what the device page shows.
type DeviceInfoData struct {
	Version   string
	StartedAt time.Time
	Hostname  string
	Battery   power.Status
}

// DeviceInfo is the first settings page: version, uptime and battery.
type DeviceInfo struct {
	screen.List

	rnd *render.Renderer

	data DeviceInfoData
	now  func() time.Time

	rows []settingsRow
}

type settingsRow struct {
	label string
	value string
}

// NewDeviceInfo returns the device page. The now func is the clock for
// uptime; nil selects time.Now.
func NewDeviceInfo(rnd *render.Renderer, now func() time.Time) *DeviceInfo {
	if now == nil {
		now = time.Now
	}
	return &DeviceInfo{List: screen.NewList(), rnd: rnd, now: now}
}

// ID returns the screen's navigation identity.
func (s *DeviceInfo) ID() nav.ScreenID {
	return nav.ScreenDeviceInfo
}

// SetData installs the device facts, marking the screen dirty only
// when a displayed row changed.
func (s *DeviceInfo) SetData(data DeviceInfoData) {
	s.data = data
	rows := s.buildRows()
	if rowsEqual(rows, s.rows) {
		return
	}
	s.rows = rows
	s.SetItemCount(len(rows))
	s.MarkDirty()
}

// OnEnter rebuilds the rows so uptime is fresh each visit.
func (s *DeviceInfo) OnEnter() {
	s.rows = s.buildRows()
	s.SetItemCount(len(s.rows))
	s.MarkDirty()
}

// HandleEvent moves the selection; the rows are informational.
func (s *DeviceInfo) HandleEvent(ev nav.NavEvent) bool {
	return s.HandleNav(ev)
}

// Render paints the fact rows.
func (s *DeviceInfo) Render(_ display.Zone, bounds geom.Rect, drv display.Driver) {
	img := drv.Image()
	area := bounds.Inset(margin)

	s.rnd.Text(img, "Device", area.X, render.Baseline(s.rnd.Title, area.Y, headingH), s.rnd.Title)

	list := geom.NewRect(area.X, area.Y+headingH, area.W, area.H-headingH)
	s.SetLayout(list, settingsRowH)

	visible := s.VisibleRows()
	for i := s.Offset(); i < len(s.rows) && i < s.Offset()+visible; i++ {
		row := s.RowRect(i)
		render.HLine(img, row.X, row.Bottom()-1, row.W, 1)
		s.rnd.Text(img, s.rows[i].label, row.X+pad, render.Baseline(s.rnd.Body, row.Y, row.H), s.rnd.Body)
		s.rnd.TextRight(img, s.rows[i].value, row.Right()-pad, render.Baseline(s.rnd.Body, row.Y, row.H), s.rnd.Body)
	}

	render.InvertRect(img, s.SelectionRect())
}

func (s *DeviceInfo) buildRows() []settingsRow {
	rows := []settingsRow{
		{"Version", s.data.Version},
		{"Uptime", formatDuration(s.now().Sub(s.data.StartedAt))},
		{"Hostname", s.data.Hostname},
	}

	battery := "not fitted"
	if s.data.Battery.HasBattery {
		battery = fmt.Sprintf("%d%%", s.data.Battery.BatteryPercent)
		if s.data.Battery.Charging {
			battery += " charging"
		}
	}
	rows = append(rows, settingsRow{"Battery", battery})
	return rows
}

func rowsEqual(a, b []settingsRow) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
