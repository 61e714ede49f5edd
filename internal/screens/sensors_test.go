package screens

import (
	"testing"
	"time"

	"github.com/paperhome/paperhome/internal/display"
	"github.com/paperhome/paperhome/internal/nav"
	"github.com/paperhome/paperhome/internal/sensors"
)

func testReadings() sensors.Snapshot {
	return sensors.Snapshot{
		CO2PPM:       650,
		TemperatureC: 21.4,
		HumidityPct:  47,
		PressureHPa:  1013,
		IAQIndex:     72,
		IAQReady:     true,
		HasCO2:       true,
		HasVOC:       true,
		HasPressure:  true,
		UpdatedAt:    time.Unix(1700000000, 0),
	}
}

func TestSensorsSetSnapshotIgnoresTimestamp(t *testing.T) {
	s := NewSensors(nil, 1200)

	snap := testReadings()
	s.SetSnapshot(snap)
	if !s.IsDirty() {
		t.Fatal("first snapshot should mark the screen dirty")
	}

	s.ClearDirty()
	snap.UpdatedAt = snap.UpdatedAt.Add(30 * time.Second)
	s.SetSnapshot(snap)
	if s.IsDirty() {
		t.Error("timestamp-only change should not mark the screen dirty")
	}

	snap.CO2PPM = 900
	s.SetSnapshot(snap)
	if !s.IsDirty() {
		t.Error("reading change should mark the screen dirty")
	}
}

func TestSensorsCO2Band(t *testing.T) {
	tests := []struct {
		ppm  int
		want string
	}{
		{450, "fresh"},
		{799, "fresh"},
		{800, "elevated"},
		{1199, "elevated"},
		{1200, "stale"},
		{2400, "stale"},
	}
	for _, tt := range tests {
		s := NewSensors(nil, 1200)
		snap := testReadings()
		snap.CO2PPM = tt.ppm
		s.SetSnapshot(snap)
		if got := s.co2Band(); got != tt.want {
			t.Errorf("co2Band at %d ppm = %q, want %q", tt.ppm, got, tt.want)
		}
	}
}

func TestSensorsHaveNoSelection(t *testing.T) {
	s := NewSensors(nil, 1200)
	s.SetSnapshot(testReadings())

	if s.HandleEvent(nav.SelectDown) || s.HandleEvent(nav.Confirm) {
		t.Error("sensor tiles are not selectable")
	}
	if !s.SelectionRect().IsEmpty() || !s.PreviousSelectionRect().IsEmpty() {
		t.Error("selection rects should stay empty")
	}
}

func TestSensorsRenderPaintsTiles(t *testing.T) {
	s := NewSensors(newTestRenderer(t), 1200)
	s.SetSnapshot(testReadings())

	drv := newFakeDriver()
	s.Render(display.ZoneContent, contentBounds(), drv)

	if drv.darkPixels() == 0 {
		t.Fatal("render painted nothing")
	}
}

func TestSensorsRenderInvertsStaleAir(t *testing.T) {
	fresh := NewSensors(newTestRenderer(t), 1200)
	snap := testReadings()
	fresh.SetSnapshot(snap)

	freshDrv := newFakeDriver()
	fresh.Render(display.ZoneContent, contentBounds(), freshDrv)

	stale := NewSensors(newTestRenderer(t), 1200)
	snap.CO2PPM = 1600
	stale.SetSnapshot(snap)

	staleDrv := newFakeDriver()
	stale.Render(display.ZoneContent, contentBounds(), staleDrv)

	// The inverted warning tile turns mostly black, so the stale render
	// carries far more dark pixels than the fresh one.
	if staleDrv.darkPixels() <= freshDrv.darkPixels()*2 {
		t.Errorf("stale render has %d dark pixels, fresh has %d; expected the inverted tile to dominate",
			staleDrv.darkPixels(), freshDrv.darkPixels())
	}
}

func TestSensorsRenderWithoutHardware(t *testing.T) {
	s := NewSensors(newTestRenderer(t), 1200)
	s.SetSnapshot(sensors.Snapshot{})

	drv := newFakeDriver()
	s.Render(display.ZoneContent, contentBounds(), drv)

	if drv.darkPixels() == 0 {
		t.Fatal("missing hardware should still paint tile frames and placeholders")
	}
}
