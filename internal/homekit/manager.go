// Package homekit exposes the panel's air sensors to Apple HomeKit as
// a bridged accessory set.
package homekit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

// Readings is the sensor state pushed to HomeKit.
type Readings struct {
	CO2PPM       int
	TemperatureC float64
	HumidityPct  float64
	CO2Abnormal  bool
}

// Manager runs the HomeKit accessory server.
type Manager struct {
	pin      string
	stateDir string
	log      *slog.Logger

	co2Level    *characteristic.CarbonDioxideLevel
	co2Detected *characteristic.CarbonDioxideDetected
	temperature *characteristic.CurrentTemperature
	humidity    *characteristic.CurrentRelativeHumidity

	server    *hap.Server
	srvCancel context.CancelFunc
	done      chan struct{}
}

// NewManager returns an unstarted manager. stateDir holds the pairing
// state; losing it unpairs the panel from the home.
func NewManager(pin, stateDir string, log *slog.Logger) *Manager {
	return &Manager{
		pin:      pin,
		stateDir: stateDir,
		log:      log.With("module", "homekit"),
	}
}

// Start builds the accessory tree and serves it until the context
// ends.
func (m *Manager) Start(ctx context.Context) error {
	bridge := accessory.NewBridge(accessory.Info{
		Name:         "PaperHome",
		Manufacturer: "PaperHome",
		Model:        "E-Paper Touchpoint",
	})

	co2Acc := accessory.New(accessory.Info{Name: "PaperHome CO2"}, accessory.TypeSensor)
	co2Svc := service.NewCarbonDioxideSensor()
	m.co2Detected = co2Svc.CarbonDioxideDetected
	m.co2Level = characteristic.NewCarbonDioxideLevel()
	co2Svc.AddC(m.co2Level.C)
	co2Acc.AddS(co2Svc.S)

	tempAcc := accessory.New(accessory.Info{Name: "PaperHome Temperature"}, accessory.TypeSensor)
	tempSvc := service.NewTemperatureSensor()
	m.temperature = tempSvc.CurrentTemperature
	tempAcc.AddS(tempSvc.S)

	humAcc := accessory.New(accessory.Info{Name: "PaperHome Humidity"}, accessory.TypeSensor)
	humSvc := service.NewHumiditySensor()
	m.humidity = humSvc.CurrentRelativeHumidity
	humAcc.AddS(humSvc.S)

	server, err := hap.NewServer(hap.NewFsStore(m.stateDir), bridge.A, co2Acc, tempAcc, humAcc)
	if err != nil {
		return fmt.Errorf("create homekit server: %w", err)
	}
	server.Pin = m.pin
	m.server = server

	srvCtx, cancel := context.WithCancel(ctx)
	m.srvCancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		if err := server.ListenAndServe(srvCtx); err != nil && srvCtx.Err() == nil {
			m.log.Error("homekit server stopped", "err", err)
		}
	}()

	m.log.Info("homekit bridge up", "pin", m.pin)
	return nil
}

// Stop shuts the accessory server down and waits for it.
func (m *Manager) Stop() {
	if m.srvCancel == nil {
		return
	}
	m.srvCancel()
	<-m.done
}

// Update pushes fresh readings to the paired home.
func (m *Manager) Update(r Readings) {
	if m.server == nil {
		return
	}

	m.co2Level.SetValue(float64(r.CO2PPM))
	detected := characteristic.CarbonDioxideDetectedCO2LevelsNormal
	if r.CO2Abnormal {
		detected = characteristic.CarbonDioxideDetectedCO2LevelsAbnormal
	}
	m.co2Detected.SetValue(detected)
	m.temperature.SetValue(r.TemperatureC)
	m.humidity.SetValue(r.HumidityPct)
}
