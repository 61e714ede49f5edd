// Package sensors reads the I2C air sensors and derives the indoor
// air quality index.
package sensors

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// SCD4xAddr is the fixed I2C address of the SCD40/SCD41.
const SCD4xAddr = 0x62

// SCD4x command words.
const (
	scdStartPeriodic   = 0x21B1
	scdReadMeasurement = 0xEC05
	scdStopPeriodic    = 0x3F86
	scdDataReady       = 0xE4B8
	scdSetPressure     = 0xE000
	scdGetSerial       = 0x3682
)

// SCD4xReading is one CO2 measurement.
type SCD4xReading struct {
	CO2PPM       int
	TemperatureC float64
	HumidityPct  float64
}

// SCD4x drives a Sensirion SCD40/SCD41 CO2 sensor in periodic
// measurement mode.
type SCD4x struct {
	dev *i2c.Dev
}

// NewSCD4x returns a driver on the given bus.
func NewSCD4x(bus i2c.Bus) *SCD4x {
	return &SCD4x{dev: &i2c.Dev{Bus: bus, Addr: SCD4xAddr}}
}

// Start begins periodic measurement. The sensor produces a fresh
// sample every 5 seconds afterwards.
func (s *SCD4x) Start() error {
	// A prior run may have left periodic mode on, in which case most
	// commands are rejected. Stop first, which is harmless when idle.
	if err := s.command(scdStopPeriodic); err != nil {
		return fmt.Errorf("scd4x stop: %w", err)
	}
	time.Sleep(500 * time.Millisecond)

	if _, err := s.Serial(); err != nil {
		return fmt.Errorf("scd4x probe: %w", err)
	}
	if err := s.command(scdStartPeriodic); err != nil {
		return fmt.Errorf("scd4x start: %w", err)
	}
	return nil
}

// Stop ends periodic measurement.
func (s *SCD4x) Stop() error {
	if err := s.command(scdStopPeriodic); err != nil {
		return fmt.Errorf("scd4x stop: %w", err)
	}
	time.Sleep(500 * time.Millisecond)
	return nil
}

// Serial reads the 48-bit serial number, which doubles as a presence
// probe.
func (s *SCD4x) Serial() (uint64, error) {
	words, err := s.read(scdGetSerial, 3, time.Millisecond)
	if err != nil {
		return 0, err
	}
	return uint64(words[0])<<32 | uint64(words[1])<<16 | uint64(words[2]), nil
}

// DataReady reports whether a fresh measurement is waiting.
func (s *SCD4x) DataReady() (bool, error) {
	words, err := s.read(scdDataReady, 1, time.Millisecond)
	if err != nil {
		return false, fmt.Errorf("scd4x data ready: %w", err)
	}
	return words[0]&0x07FF != 0, nil
}

// Read fetches the latest measurement. Call only after DataReady.
func (s *SCD4x) Read() (SCD4xReading, error) {
	words, err := s.read(scdReadMeasurement, 3, time.Millisecond)
	if err != nil {
		return SCD4xReading{}, fmt.Errorf("scd4x read: %w", err)
	}
	return SCD4xReading{
		CO2PPM:       int(words[0]),
		TemperatureC: -45 + 175*float64(words[1])/65535,
		HumidityPct:  100 * float64(words[2]) / 65535,
	}, nil
}

// SetAmbientPressure feeds the current barometric pressure in hPa so
// the sensor can compensate its CO2 reading.
func (s *SCD4x) SetAmbientPressure(hPa float64) error {
	if hPa < 700 || hPa > 1200 {
		return fmt.Errorf("scd4x pressure %.0f hPa out of range", hPa)
	}
	word := uint16(hPa)
	buf := []byte{
		scdSetPressure >> 8, scdSetPressure & 0xFF,
		byte(word >> 8), byte(word), sensirionCRC([]byte{byte(word >> 8), byte(word)}),
	}
	if err := s.dev.Tx(buf, nil); err != nil {
		return fmt.Errorf("scd4x set pressure: %w", err)
	}
	return nil
}

func (s *SCD4x) command(cmd uint16) error {
	return s.dev.Tx([]byte{byte(cmd >> 8), byte(cmd)}, nil)
}

// read sends a command, waits for the sensor's execution time, then
// reads n words each followed by a CRC byte.
func (s *SCD4x) read(cmd uint16, n int, wait time.Duration) ([]uint16, error) {
	if err := s.command(cmd); err != nil {
		return nil, err
	}
	time.Sleep(wait)

	buf := make([]byte, n*3)
	if err := s.dev.Tx(nil, buf); err != nil {
		return nil, err
	}
	return parseWords(buf)
}

// parseWords validates word+CRC triplets as used by Sensirion sensors.
func parseWords(buf []byte) ([]uint16, error) {
	if len(buf)%3 != 0 {
		return nil, fmt.Errorf("response length %d not a word multiple", len(buf))
	}
	words := make([]uint16, 0, len(buf)/3)
	for i := 0; i < len(buf); i += 3 {
		if crc := sensirionCRC(buf[i : i+2]); crc != buf[i+2] {
			return nil, fmt.Errorf("crc mismatch at word %d: got %#x, want %#x", i/3, buf[i+2], crc)
		}
		words = append(words, uint16(buf[i])<<8|uint16(buf[i+1]))
	}
	return words, nil
}

// sensirionCRC is the CRC-8 (poly 0x31, init 0xFF) covering each data
// word on the wire.
func sensirionCRC(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
