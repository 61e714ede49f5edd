// Package power reads battery charge and WiFi signal strength for the
// status bar and telemetry. Both come from kernel-exported text files,
// so a desktop build simply reports neither.
package power

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Status is the latest power and connectivity reading.
type Status struct {
	BatteryPercent int
	Charging       bool
	HasBattery     bool

	// RSSIDBm is the WiFi signal level, typically -30 (excellent) to
	// -90 (unusable).
	RSSIDBm int
	HasWiFi bool

	UpdatedAt time.Time
}

// powerState guards the latest status.
type powerState struct {
	sync.RWMutex
	status Status
}

func (s *powerState) get() Status {
	s.RLock()
	defer s.RUnlock()
	return s.status
}

func (s *powerState) update(status Status) {
	s.Lock()
	defer s.Unlock()
	s.status = status
}

// Monitor polls the kernel's power-supply and wireless files.
type Monitor struct {
	interval time.Duration
	log      *slog.Logger

	// Overridable for tests.
	supplyDir    string
	wirelessPath string

	state *powerState

	// Lifecycle
	pollCancel context.CancelFunc

	onUpdate func()
}

// NewMonitor returns an unstarted monitor.
func NewMonitor(interval time.Duration, log *slog.Logger) *Monitor {
	return &Monitor{
		interval:     interval,
		log:          log.With("module", "power"),
		supplyDir:    "/sys/class/power_supply",
		wirelessPath: "/proc/net/wireless",
		state:        &powerState{},
	}
}

// OnUpdate registers a callback invoked when the displayed values
// changed. Must be called before Start.
func (m *Monitor) OnUpdate(fn func()) {
	m.onUpdate = fn
}

// Status returns the latest reading.
func (m *Monitor) Status() Status {
	return m.state.get()
}

// Start begins polling.
func (m *Monitor) Start(ctx context.Context) {
	pollCtx, cancel := context.WithCancel(ctx)
	m.pollCancel = cancel
	go m.poll(pollCtx)
}

// Stop halts polling.
func (m *Monitor) Stop() {
	if m.pollCancel != nil {
		m.pollCancel()
	}
}

func (m *Monitor) poll(ctx context.Context) {
	m.fetch()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.fetch()
		}
	}
}

func (m *Monitor) fetch() {
	prev := m.state.get()
	next := Status{UpdatedAt: time.Now()}

	if pct, charging, ok := m.readBattery(); ok {
		next.BatteryPercent = pct
		next.Charging = charging
		next.HasBattery = true
	}
	if rssi, ok := m.readWireless(); ok {
		next.RSSIDBm = rssi
		next.HasWiFi = true
	}

	m.state.update(next)
	if statusChanged(prev, next) && m.onUpdate != nil {
		m.onUpdate()
	}
}

// statusChanged ignores RSSI jitter under 3 dBm so the status bar is
// not redrawn on every sample.
func statusChanged(a, b Status) bool {
	if a.HasBattery != b.HasBattery || a.HasWiFi != b.HasWiFi {
		return true
	}
	if a.BatteryPercent != b.BatteryPercent || a.Charging != b.Charging {
		return true
	}
	diff := a.RSSIDBm - b.RSSIDBm
	if diff < 0 {
		diff = -diff
	}
	return diff >= 3
}

// readBattery scans the supply directory for the first battery entry.
func (m *Monitor) readBattery() (percent int, charging bool, ok bool) {
	entries, err := os.ReadDir(m.supplyDir)
	if err != nil {
		return 0, false, false
	}

	for _, e := range entries {
		dir := filepath.Join(m.supplyDir, e.Name())
		kind, err := os.ReadFile(filepath.Join(dir, "type"))
		if err != nil || strings.TrimSpace(string(kind)) != "Battery" {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, "capacity"))
		if err != nil {
			continue
		}
		pct, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			continue
		}

		status := ""
		if raw, err := os.ReadFile(filepath.Join(dir, "status")); err == nil {
			status = strings.TrimSpace(string(raw))
		}
		return pct, status == "Charging" || status == "Full", true
	}
	return 0, false, false
}

// readWireless parses the kernel's wireless statistics table.
func (m *Monitor) readWireless() (rssi int, ok bool) {
	data, err := os.ReadFile(m.wirelessPath)
	if err != nil {
		return 0, false
	}
	return parseWireless(string(data))
}

// parseWireless extracts the signal level from the first interface
// row. The file is two header lines, then per-interface rows:
//
//	wlan0: 0000   60.  -53.  -256        0      0      0      0      0        0
//
// Column four is the level in dBm with a trailing dot.
func parseWireless(data string) (int, bool) {
	lines := strings.Split(data, "\n")
	for i, line := range lines {
		if i < 2 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 || !strings.HasSuffix(fields[0], ":") {
			continue
		}
		level, err := strconv.ParseFloat(strings.TrimSuffix(fields[3], "."), 64)
		if err != nil {
			continue
		}
		return int(level), true
	}
	return 0, false
}
