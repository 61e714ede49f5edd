package sensors

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// bme280Addr is the usual wiring of the pressure sensor.
const bme280Addr = 0x76

// Snapshot is the sensor state handed to screens and telemetry.
type Snapshot struct {
	CO2PPM       int
	TemperatureC float64
	HumidityPct  float64
	PressureHPa  float64
	IAQIndex     float64
	IAQReady     bool

	HasCO2      bool
	HasVOC      bool
	HasPressure bool

	UpdatedAt time.Time
}

// sensorState guards the latest snapshot.
type sensorState struct {
	sync.RWMutex
	snap Snapshot
}

func (s *sensorState) get() Snapshot {
	s.RLock()
	defer s.RUnlock()
	return s.snap
}

func (s *sensorState) update(snap Snapshot) {
	s.Lock()
	defer s.Unlock()
	s.snap = snap
}

// Manager owns the I2C bus and polls whichever sensors answer on it.
// Missing sensors are logged once and skipped, so a board without the
// VOC or pressure chip still works.
type Manager struct {
	busName  string
	interval time.Duration
	log      *slog.Logger

	bus i2c.BusCloser
	scd *SCD4x
	sgp *SGP40
	bme *bmxx80.Dev
	iaq *Calculator

	state *sensorState

	// Lifecycle
	pollCancel context.CancelFunc

	onUpdate func()
}

// NewManager returns an unstarted manager for the named periph.io bus.
func NewManager(busName string, interval time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		busName:  busName,
		interval: interval,
		log:      log.With("module", "sensors"),
		iaq:      NewCalculator(),
		state:    &sensorState{},
	}
}

// OnUpdate registers a callback invoked when a reading changed enough
// to be worth redrawing. Must be called before Start.
func (m *Manager) OnUpdate(fn func()) {
	m.onUpdate = fn
}

// Start opens the bus, probes the sensors, and begins polling. Fails
// only when the bus itself cannot be opened.
func (m *Manager) Start(ctx context.Context) error {
	bus, err := i2creg.Open(m.busName)
	if err != nil {
		return fmt.Errorf("open i2c bus %q: %w", m.busName, err)
	}
	m.bus = bus

	scd := NewSCD4x(bus)
	if err := scd.Start(); err != nil {
		m.log.Warn("co2 sensor not found", "err", err)
	} else {
		m.scd = scd
	}

	sgp := NewSGP40(bus)
	if err := sgp.SelfTest(); err != nil {
		m.log.Warn("voc sensor not found", "err", err)
	} else {
		m.sgp = sgp
	}

	bme, err := bmxx80.NewI2C(bus, bme280Addr, &bmxx80.DefaultOpts)
	if err != nil {
		m.log.Warn("pressure sensor not found", "err", err)
	} else {
		m.bme = bme
	}

	if m.scd == nil && m.sgp == nil && m.bme == nil {
		bus.Close()
		m.bus = nil
		return fmt.Errorf("no sensors found on bus %q", m.busName)
	}

	m.log.Info("sensors ready",
		"co2", m.scd != nil, "voc", m.sgp != nil, "pressure", m.bme != nil)

	pollCtx, cancel := context.WithCancel(ctx)
	m.pollCancel = cancel
	go m.poll(pollCtx)
	return nil
}

// Stop halts polling and powers the sensors down.
func (m *Manager) Stop() {
	if m.pollCancel != nil {
		m.pollCancel()
	}
	if m.scd != nil {
		if err := m.scd.Stop(); err != nil {
			m.log.Warn("stop co2 sensor", "err", err)
		}
	}
	if m.sgp != nil {
		if err := m.sgp.HeaterOff(); err != nil {
			m.log.Warn("voc heater off", "err", err)
		}
	}
	if m.bme != nil {
		if err := m.bme.Halt(); err != nil {
			m.log.Warn("halt pressure sensor", "err", err)
		}
	}
	if m.bus != nil {
		m.bus.Close()
	}
}

// Snapshot returns the latest readings.
func (m *Manager) Snapshot() Snapshot {
	return m.state.get()
}

func (m *Manager) poll(ctx context.Context) {
	// The CO2 sensor needs one measurement period before data is
	// ready, so the first tick naturally lands after warmup.
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.fetch(ctx)
		}
	}
}

func (m *Manager) fetch(ctx context.Context) {
	snap := m.state.get()
	snap.HasCO2 = m.scd != nil
	snap.HasVOC = m.sgp != nil
	snap.HasPressure = m.bme != nil

	if m.scd != nil {
		if ready, err := m.scd.DataReady(); err != nil {
			m.log.Error("co2 data ready", "err", err)
		} else if ready {
			r, err := m.scd.Read()
			if err != nil {
				m.log.Error("co2 read", "err", err)
			} else {
				snap.CO2PPM = r.CO2PPM
				snap.TemperatureC = r.TemperatureC
				snap.HumidityPct = r.HumidityPct
			}
		}
	}

	if m.bme != nil {
		var env physic.Env
		if err := m.bme.Sense(&env); err != nil {
			m.log.Error("pressure read", "err", err)
		} else {
			snap.PressureHPa = float64(env.Pressure) / float64(100*physic.Pascal)
			// Feed the barometric pressure to the CO2 sensor so its
			// reading is altitude and weather compensated.
			if m.scd != nil {
				if err := m.scd.SetAmbientPressure(snap.PressureHPa); err != nil {
					m.log.Warn("co2 pressure compensation", "err", err)
				}
			}
			// Without the CO2 sensor the BME280 covers the ambient pair.
			if m.scd == nil {
				snap.TemperatureC = env.Temperature.Celsius()
				snap.HumidityPct = float64(env.Humidity) / float64(physic.PercentRH)
			}
		}
	}

	if m.sgp != nil {
		rh, t := snap.HumidityPct, snap.TemperatureC
		if rh == 0 && t == 0 {
			// Datasheet defaults when no compensation source exists.
			rh, t = 50, 25
		}
		raw, err := m.sgp.MeasureRaw(rh, t)
		if err != nil {
			m.log.Error("voc read", "err", err)
		} else {
			snap.IAQIndex = m.iaq.Add(float64(raw))
			snap.IAQReady = m.iaq.Ready()
		}
	}

	if ctx.Err() != nil {
		return
	}

	prev := m.state.get()
	snap.UpdatedAt = time.Now()
	m.state.update(snap)
	m.log.Debug("sensors updated",
		"co2", snap.CO2PPM, "temp", snap.TemperatureC, "iaq", snap.IAQIndex)

	if m.onUpdate != nil && readingChanged(prev, snap) {
		m.onUpdate()
	}
}

// readingChanged compares quantized readings so sensor noise does not
// trigger e-paper redraws.
func readingChanged(a, b Snapshot) bool {
	if a.CO2PPM != b.CO2PPM {
		return true
	}
	if math.Abs(a.TemperatureC-b.TemperatureC) >= 0.1 {
		return true
	}
	if math.Abs(a.HumidityPct-b.HumidityPct) >= 1 {
		return true
	}
	if math.Abs(a.PressureHPa-b.PressureHPa) >= 1 {
		return true
	}
	if math.Abs(a.IAQIndex-b.IAQIndex) >= 1 {
		return true
	}
	return a.IAQReady != b.IAQReady
}
