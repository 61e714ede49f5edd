package sensors

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// SGP40Addr is the fixed I2C address of the SGP40 VOC sensor.
const SGP40Addr = 0x59

// SGP40 command words.
const (
	sgpMeasureRaw = 0x260F
	sgpSelfTest   = 0x280E
	sgpHeaterOff  = 0x3615
)

// SGP40 drives a Sensirion SGP40 VOC sensor. It yields a raw gas
// signal; Calculator turns the signal into an index.
type SGP40 struct {
	dev *i2c.Dev
}

// NewSGP40 returns a driver on the given bus.
func NewSGP40(bus i2c.Bus) *SGP40 {
	return &SGP40{dev: &i2c.Dev{Bus: bus, Addr: SGP40Addr}}
}

// SelfTest runs the built-in self test, which doubles as a presence
// probe. Takes about 320 ms.
func (s *SGP40) SelfTest() error {
	if err := s.dev.Tx([]byte{sgpSelfTest >> 8, sgpSelfTest & 0xFF}, nil); err != nil {
		return fmt.Errorf("sgp40 self test: %w", err)
	}
	time.Sleep(320 * time.Millisecond)

	buf := make([]byte, 3)
	if err := s.dev.Tx(nil, buf); err != nil {
		return fmt.Errorf("sgp40 self test read: %w", err)
	}
	words, err := parseWords(buf)
	if err != nil {
		return fmt.Errorf("sgp40 self test: %w", err)
	}
	// 0xD4xx means all tests passed.
	if words[0]>>8 != 0xD4 {
		return fmt.Errorf("sgp40 self test failed: %#x", words[0])
	}
	return nil
}

// MeasureRaw reads the raw VOC signal, compensated with the ambient
// humidity and temperature from the CO2 sensor.
func (s *SGP40) MeasureRaw(humidityPct, temperatureC float64) (uint16, error) {
	rh := compensationTicks(humidityPct, 0, 100)
	t := compensationTicks(temperatureC+45, 0, 175)

	buf := []byte{
		sgpMeasureRaw >> 8, sgpMeasureRaw & 0xFF,
		byte(rh >> 8), byte(rh), sensirionCRC([]byte{byte(rh >> 8), byte(rh)}),
		byte(t >> 8), byte(t), sensirionCRC([]byte{byte(t >> 8), byte(t)}),
	}
	if err := s.dev.Tx(buf, nil); err != nil {
		return 0, fmt.Errorf("sgp40 measure: %w", err)
	}
	time.Sleep(30 * time.Millisecond)

	out := make([]byte, 3)
	if err := s.dev.Tx(nil, out); err != nil {
		return 0, fmt.Errorf("sgp40 measure read: %w", err)
	}
	words, err := parseWords(out)
	if err != nil {
		return 0, fmt.Errorf("sgp40 measure: %w", err)
	}
	return words[0], nil
}

// HeaterOff idles the hotplate to save power.
func (s *SGP40) HeaterOff() error {
	if err := s.dev.Tx([]byte{sgpHeaterOff >> 8, sgpHeaterOff & 0xFF}, nil); err != nil {
		return fmt.Errorf("sgp40 heater off: %w", err)
	}
	return nil
}

// compensationTicks maps a physical value in [lo, lo+span] onto the
// sensor's 16-bit tick scale.
func compensationTicks(v, lo, span float64) uint16 {
	frac := (v - lo) / span
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return uint16(frac * 65535)
}
