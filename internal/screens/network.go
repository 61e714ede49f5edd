package screens

import (
	"fmt"
	"image/draw"

	"github.com/paperhome/paperhome/internal/display"
	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/hue"
	"github.com/paperhome/paperhome/internal/mqtt"
	"github.com/paperhome/paperhome/internal/nav"
	"github.com/paperhome/paperhome/internal/render"
	"github.com/paperhome/paperhome/internal/screen"
	"github.com/paperhome/paperhome/internal/tado"
)

// NetworkStatus is everything the network page shows.
type NetworkStatus struct {
	WiFiRSSI int
	HasWiFi  bool

	HueState hue.ConnState
	HueHost  string

	TadoState tado.ConnState
	TadoAuth  *tado.DeviceAuth

	MQTTState  mqtt.ConnState
	MQTTBroker string

	HomeKitOn  bool
	HomeKitPin string
}

// Row order on the network page.
const (
	rowWiFi = iota
	rowHue
	rowTado
	rowMQTT
	rowHomeKit
	numNetworkRows
)

// networkRowH is tighter than settingsRowH so the device-code prompt
// fits under the five rows.
const networkRowH = 44

// Network is the connectivity settings page. It also surfaces the
// Tado device-code prompt, and Confirm on the Hue row pairs with the
// bridge once its link button has been pressed.
type Network struct {
	screen.List

	rnd *render.Renderer

	status NetworkStatus

	// pairHue is invoked on Confirm while the bridge is unpaired; the
	// coordinator runs the pairing call off the UI goroutine.
	pairHue func()
}

// NewNetwork returns the network page.
func NewNetwork(rnd *render.Renderer, pairHue func()) *Network {
	s := &Network{List: screen.NewList(), rnd: rnd, pairHue: pairHue}
	s.SetItemCount(numNetworkRows)
	return s
}

// ID returns the screen's navigation identity.
func (s *Network) ID() nav.ScreenID {
	return nav.ScreenNetwork
}

// SetStatus installs the latest connectivity facts, marking the screen
// dirty only when something visible changed.
func (s *Network) SetStatus(st NetworkStatus) {
	a, b := s.status, st
	a.TadoAuth, b.TadoAuth = nil, nil
	if a == b && !authChanged(s.status.TadoAuth, st.TadoAuth) {
		return
	}
	s.status = st
	s.MarkDirty()
}

// HandleEvent pairs on Confirm over the Hue row and otherwise moves
// the selection.
func (s *Network) HandleEvent(ev nav.NavEvent) bool {
	if ev == nav.Confirm {
		if s.SelectedIndex() == rowHue && s.status.HueState == hue.StateUnpaired && s.pairHue != nil {
			s.pairHue()
		}
		return false
	}
	return s.HandleNav(ev)
}

// Render paints the status rows and, while a grant is pending, the
// device-code prompt.
func (s *Network) Render(_ display.Zone, bounds geom.Rect, drv display.Driver) {
	img := drv.Image()
	area := bounds.Inset(margin)

	s.rnd.Text(img, "Network", area.X, render.Baseline(s.rnd.Title, area.Y, headingH), s.rnd.Title)

	listH := numNetworkRows * networkRowH
	list := geom.NewRect(area.X, area.Y+headingH, area.W, listH)
	s.SetLayout(list, networkRowH)

	for i := 0; i < numNetworkRows; i++ {
		row := s.RowRect(i)
		render.HLine(img, row.X, row.Bottom()-1, row.W, 1)
		label, value := s.rowContent(i)
		s.rnd.Text(img, label, row.X+pad, render.Baseline(s.rnd.Body, row.Y, row.H), s.rnd.Body)
		s.rnd.TextRight(img, value, row.Right()-pad, render.Baseline(s.rnd.Body, row.Y, row.H), s.rnd.Body)
	}

	if s.status.TadoState == tado.StateAwaitingGrant && s.status.TadoAuth != nil {
		s.renderAuthPrompt(img, geom.NewRect(area.X, list.Bottom()+pad, area.W, area.Bottom()-list.Bottom()-pad))
	}

	render.InvertRect(img, s.SelectionRect())
}

func (s *Network) rowContent(i int) (label, value string) {
	switch i {
	case rowWiFi:
		if !s.status.HasWiFi {
			return "WiFi", "no interface"
		}
		return "WiFi", fmt.Sprintf("%d dBm", s.status.WiFiRSSI)
	case rowHue:
		value := s.status.HueState.String()
		if s.status.HueState == hue.StateUnpaired {
			value = "press link button, then A"
		} else if s.status.HueHost != "" {
			value += " · " + s.status.HueHost
		}
		return "Hue bridge", value
	case rowTado:
		return "Tado", s.status.TadoState.String()
	case rowMQTT:
		value := s.status.MQTTState.String()
		if s.status.MQTTBroker != "" && s.status.MQTTState == mqtt.StateConnected {
			value += " · " + s.status.MQTTBroker
		}
		return "MQTT", value
	case rowHomeKit:
		if !s.status.HomeKitOn {
			return "HomeKit", "off"
		}
		return "HomeKit", "pin " + s.status.HomeKitPin
	}
	return "", ""
}

// renderAuthPrompt draws the Tado device-code box: the verification
// URI and the short user code to type on another device.
func (s *Network) renderAuthPrompt(img draw.Image, box geom.Rect) {
	if box.H < 60 {
		return
	}
	render.StrokeRect(img, box, 2)

	auth := s.status.TadoAuth
	line := render.TruncateText(s.rnd.Small, "Sign in to Tado: visit "+auth.VerificationURI, box.W-2*pad)
	s.rnd.Text(img, line, box.X+pad, box.Y+pad+13, s.rnd.Small)
	s.rnd.TextCentered(img, auth.UserCode, box.X+box.W/2, box.Bottom()-pad-4, s.rnd.Title)
}

// authChanged compares the pending device-code prompts by value.
func authChanged(a, b *tado.DeviceAuth) bool {
	if (a == nil) != (b == nil) {
		return true
	}
	if a == nil {
		return false
	}
	return a.UserCode != b.UserCode || a.VerificationURI != b.VerificationURI
}
