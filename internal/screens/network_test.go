package screens

import (
	"testing"

	"github.com/paperhome/paperhome/internal/display"
	"github.com/paperhome/paperhome/internal/hue"
	"github.com/paperhome/paperhome/internal/mqtt"
	"github.com/paperhome/paperhome/internal/nav"
	"github.com/paperhome/paperhome/internal/tado"
)

func connectedStatus() NetworkStatus {
	return NetworkStatus{
		WiFiRSSI:   -54,
		HasWiFi:    true,
		HueState:   hue.StateConnected,
		HueHost:    "192.168.1.10",
		TadoState:  tado.StateConnected,
		MQTTState:  mqtt.StateConnected,
		MQTTBroker: "tcp://broker:1883",
		HomeKitOn:  true,
		HomeKitPin: "1234-5678",
	}
}

func TestNetworkRowContent(t *testing.T) {
	s := NewNetwork(nil, nil)
	s.SetStatus(connectedStatus())

	tests := []struct {
		row   int
		label string
		value string
	}{
		{rowWiFi, "WiFi", "-54 dBm"},
		{rowHue, "Hue bridge", "connected · 192.168.1.10"},
		{rowTado, "Tado", "connected"},
		{rowMQTT, "MQTT", "connected · tcp://broker:1883"},
		{rowHomeKit, "HomeKit", "pin 1234-5678"},
	}
	for _, tt := range tests {
		label, value := s.rowContent(tt.row)
		if label != tt.label || value != tt.value {
			t.Errorf("row %d = (%q, %q), want (%q, %q)", tt.row, label, value, tt.label, tt.value)
		}
	}
}

func TestNetworkRowContentDegraded(t *testing.T) {
	s := NewNetwork(nil, nil)
	s.SetStatus(NetworkStatus{
		HueState:   hue.StateUnpaired,
		TadoState:  tado.StateNeedsAuth,
		MQTTState:  mqtt.StateDisconnected,
		MQTTBroker: "tcp://broker:1883",
	})

	tests := []struct {
		row   int
		value string
	}{
		{rowWiFi, "no interface"},
		{rowHue, "press link button, then A"},
		{rowTado, "needs auth"},
		{rowMQTT, "disconnected"},
		{rowHomeKit, "off"},
	}
	for _, tt := range tests {
		if _, value := s.rowContent(tt.row); value != tt.value {
			t.Errorf("row %d value = %q, want %q", tt.row, value, tt.value)
		}
	}
}

func TestNetworkConfirmPairsOnlyWhenUnpaired(t *testing.T) {
	paired := 0
	s := NewNetwork(nil, func() { paired++ })
	s.SetStatus(NetworkStatus{HueState: hue.StateUnpaired})
	s.SelectIndex(rowHue)

	if s.HandleEvent(nav.Confirm) {
		t.Error("Confirm should not report a repaint; the snapshot path repaints")
	}
	if paired != 1 {
		t.Fatalf("pairHue calls = %d, want 1", paired)
	}

	st := connectedStatus()
	s.SetStatus(st)
	s.HandleEvent(nav.Confirm)
	if paired != 1 {
		t.Errorf("Confirm while %s should not pair again", st.HueState)
	}

	s.SelectIndex(rowTado)
	s.SetStatus(NetworkStatus{HueState: hue.StateUnpaired})
	s.HandleEvent(nav.Confirm)
	if paired != 1 {
		t.Error("Confirm on another row should not pair")
	}
}

func TestNetworkSetStatusDiffs(t *testing.T) {
	s := NewNetwork(nil, nil)
	s.SetStatus(connectedStatus())
	if !s.IsDirty() {
		t.Fatal("first status should mark the screen dirty")
	}

	s.ClearDirty()
	s.SetStatus(connectedStatus())
	if s.IsDirty() {
		t.Error("identical status should not mark the screen dirty")
	}

	st := connectedStatus()
	st.WiFiRSSI = -70
	s.SetStatus(st)
	if !s.IsDirty() {
		t.Error("RSSI change should mark the screen dirty")
	}
}

func TestNetworkSetStatusComparesAuthByValue(t *testing.T) {
	auth := func() *tado.DeviceAuth {
		return &tado.DeviceAuth{UserCode: "ABC123", VerificationURI: "https://login.tado.com/device"}
	}

	s := NewNetwork(nil, nil)
	st := connectedStatus()
	st.TadoState = tado.StateAwaitingGrant
	st.TadoAuth = auth()
	s.SetStatus(st)

	s.ClearDirty()
	st.TadoAuth = auth()
	s.SetStatus(st)
	if s.IsDirty() {
		t.Error("fresh pointer to equal auth values should not mark the screen dirty")
	}

	st.TadoAuth = auth()
	st.TadoAuth.UserCode = "XYZ789"
	s.SetStatus(st)
	if !s.IsDirty() {
		t.Error("new user code should mark the screen dirty")
	}
}

func TestNetworkRenderPaintsRows(t *testing.T) {
	s := NewNetwork(newTestRenderer(t), nil)
	s.SetStatus(connectedStatus())

	drv := newFakeDriver()
	s.Render(display.ZoneContent, contentBounds(), drv)

	if drv.darkPixels() == 0 {
		t.Fatal("render painted nothing")
	}
}

func TestNetworkRenderShowsAuthPrompt(t *testing.T) {
	s := NewNetwork(newTestRenderer(t), nil)

	st := connectedStatus()
	st.TadoState = tado.StateConnected
	st.TadoAuth = nil
	s.SetStatus(st)
	plain := newFakeDriver()
	s.Render(display.ZoneContent, contentBounds(), plain)

	st.TadoState = tado.StateAwaitingGrant
	st.TadoAuth = &tado.DeviceAuth{UserCode: "ABC123", VerificationURI: "https://login.tado.com/device"}
	s.SetStatus(st)
	prompt := newFakeDriver()
	s.Render(display.ZoneContent, contentBounds(), prompt)

	if prompt.darkPixels() <= plain.darkPixels() {
		t.Errorf("auth prompt render has %d dark pixels, plain has %d; expected the code box to add ink",
			prompt.darkPixels(), plain.darkPixels())
	}
}
