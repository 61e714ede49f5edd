package screens

import (
	"testing"
	"time"

	"github.com/paperhome/paperhome/internal/display"
	"github.com/paperhome/paperhome/internal/power"
)

func TestDeviceInfoRows(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewDeviceInfo(nil, func() time.Time { return now })

	s.SetData(DeviceInfoData{
		Version:   "1.2.3",
		StartedAt: now.Add(-(26*time.Hour + 12*time.Minute)),
		Hostname:  "paperhome",
		Battery:   power.Status{BatteryPercent: 87, Charging: true, HasBattery: true},
	})

	want := []settingsRow{
		{"Version", "1.2.3"},
		{"Uptime", "1d 2h"},
		{"Hostname", "paperhome"},
		{"Battery", "87% charging"},
	}
	if len(s.rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(s.rows), len(want))
	}
	for i, w := range want {
		if s.rows[i] != w {
			t.Errorf("row %d = %+v, want %+v", i, s.rows[i], w)
		}
	}
	if got := s.ItemCount(); got != len(want) {
		t.Errorf("ItemCount = %d, want %d", got, len(want))
	}
}

func TestDeviceInfoBatteryRow(t *testing.T) {
	tests := []struct {
		name    string
		battery power.Status
		want    string
	}{
		{"absent", power.Status{}, "not fitted"},
		{"discharging", power.Status{BatteryPercent: 42, HasBattery: true}, "42%"},
		{"charging", power.Status{BatteryPercent: 90, Charging: true, HasBattery: true}, "90% charging"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewDeviceInfo(nil, func() time.Time { return time.Unix(1700000000, 0) })
			s.SetData(DeviceInfoData{Battery: tt.battery})

			last := s.rows[len(s.rows)-1]
			if last.label != "Battery" || last.value != tt.want {
				t.Errorf("battery row = %+v, want {Battery %s}", last, tt.want)
			}
		})
	}
}

func TestDeviceInfoSetDataSkipsWhenRowsUnchanged(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewDeviceInfo(nil, func() time.Time { return now })

	data := DeviceInfoData{Version: "1.0.0", StartedAt: now.Add(-time.Hour), Hostname: "ph"}
	s.SetData(data)
	if !s.IsDirty() {
		t.Fatal("first data should mark the screen dirty")
	}

	s.ClearDirty()
	s.SetData(data)
	if s.IsDirty() {
		t.Error("identical rows should not mark the screen dirty")
	}

	data.Version = "1.0.1"
	s.SetData(data)
	if !s.IsDirty() {
		t.Error("version change should mark the screen dirty")
	}
}

func TestDeviceInfoOnEnterRefreshesUptime(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewDeviceInfo(nil, func() time.Time { return now })

	s.SetData(DeviceInfoData{StartedAt: now.Add(-time.Minute)})
	uptimeBefore := s.rows[1].value
	s.ClearDirty()

	now = now.Add(10 * time.Minute)
	s.OnEnter()

	if !s.IsDirty() {
		t.Error("OnEnter should mark the screen dirty")
	}
	if s.rows[1].value == uptimeBefore {
		t.Errorf("uptime row still %q after the clock advanced", uptimeBefore)
	}
}

func TestDeviceInfoRenderPaintsRows(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := NewDeviceInfo(newTestRenderer(t), func() time.Time { return now })
	s.SetData(DeviceInfoData{
		Version:   "1.2.3",
		StartedAt: now.Add(-time.Hour),
		Hostname:  "paperhome",
		Battery:   power.Status{BatteryPercent: 64, HasBattery: true},
	})

	drv := newFakeDriver()
	s.Render(display.ZoneContent, contentBounds(), drv)

	if drv.darkPixels() == 0 {
		t.Fatal("render painted nothing")
	}
}
