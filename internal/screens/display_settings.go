package screens

import (
	"fmt"
	"time"

	"github.com/paperhome/paperhome/internal/display"
	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/nav"
	"github.com/paperhome/paperhome/internal/render"
	"github.com/paperhome/paperhome/internal/screen"
)

// DisplayData is the refresh-policy state the display page shows.
type DisplayData struct {
	PartialCount int
	PartialLimit int
	FullInterval time.Duration
	LastFull     time.Time
}

// DisplaySettings is the third settings page: ghost-clearing policy
// state and a manual full-refresh action.
type DisplaySettings struct {
	screen.List

	rnd *render.Renderer

	data DisplayData
	now  func() time.Time

	// forceRefresh is invoked on Confirm over the action row.
	forceRefresh func()
}

// Row order on the display page. The action row comes first so a bare
// Confirm on entry does the obvious thing.
const (
	rowForceRefresh = iota
	rowPartialCount
	rowPartialLimit
	rowFullInterval
	rowLastFull
	numDisplayRows
)

// NewDisplaySettings returns the display page. The now func is the
// clock for the "last refresh" row; nil selects time.Now.
func NewDisplaySettings(rnd *render.Renderer, now func() time.Time, forceRefresh func()) *DisplaySettings {
	if now == nil {
		now = time.Now
	}
	s := &DisplaySettings{List: screen.NewList(), rnd: rnd, now: now, forceRefresh: forceRefresh}
	s.SetItemCount(numDisplayRows)
	return s
}

// ID returns the screen's navigation identity.
func (s *DisplaySettings) ID() nav.ScreenID {
	return nav.ScreenDisplaySettings
}

// SetData installs the refresh-policy state, marking the screen dirty
// only when a displayed value changed.
func (s *DisplaySettings) SetData(data DisplayData) {
	if s.data == data {
		return
	}
	s.data = data
	s.MarkDirty()
}

// HandleEvent fires the refresh action on Confirm and otherwise moves
// the selection.
func (s *DisplaySettings) HandleEvent(ev nav.NavEvent) bool {
	if ev == nav.Confirm {
		if s.SelectedIndex() == rowForceRefresh && s.forceRefresh != nil {
			s.forceRefresh()
		}
		return false
	}
	return s.HandleNav(ev)
}

// Render paints the policy rows.
func (s *DisplaySettings) Render(_ display.Zone, bounds geom.Rect, drv display.Driver) {
	img := drv.Image()
	area := bounds.Inset(margin)

	s.rnd.Text(img, "Display", area.X, render.Baseline(s.rnd.Title, area.Y, headingH), s.rnd.Title)

	list := geom.NewRect(area.X, area.Y+headingH, area.W, area.H-headingH)
	s.SetLayout(list, settingsRowH)

	for i := 0; i < numDisplayRows; i++ {
		row := s.RowRect(i)
		if row.IsEmpty() {
			continue
		}
		render.HLine(img, row.X, row.Bottom()-1, row.W, 1)
		label, value := s.rowContent(i)
		if i == rowForceRefresh {
			s.rnd.Icon(img, render.IconRefresh, row.X+pad, row.Y+(row.H-20)/2, 20)
			s.rnd.Text(img, label, row.X+pad+28, render.Baseline(s.rnd.Body, row.Y, row.H), s.rnd.Body)
		} else {
			s.rnd.Text(img, label, row.X+pad, render.Baseline(s.rnd.Body, row.Y, row.H), s.rnd.Body)
		}
		s.rnd.TextRight(img, value, row.Right()-pad, render.Baseline(s.rnd.Body, row.Y, row.H), s.rnd.Body)
	}

	render.InvertRect(img, s.SelectionRect())
}

func (s *DisplaySettings) rowContent(i int) (label, value string) {
	switch i {
	case rowForceRefresh:
		return "Full refresh now", "press A"
	case rowPartialCount:
		return "Partials since full", fmt.Sprintf("%d of %d", s.data.PartialCount, s.data.PartialLimit)
	case rowPartialLimit:
		return "Partial run limit", fmt.Sprintf("%d", s.data.PartialLimit)
	case rowFullInterval:
		return "Full refresh every", formatDuration(s.data.FullInterval)
	case rowLastFull:
		return "Last full refresh", formatAgo(s.data.LastFull, s.now())
	}
	return "", ""
}
