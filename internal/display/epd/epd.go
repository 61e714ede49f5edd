// Package epd drives a UC8179-class 800x480 monochrome e-paper panel
// over SPI. The controller keeps its own previous-frame RAM, so a
// refresh only needs the new frame; partial windows push a sub-region
// widened to the controller's byte alignment.
package epd

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"

	"github.com/paperhome/paperhome/internal/geom"
)

// Panel dimensions.
const (
	Width  = 800
	Height = 480
)

// UC8179 command set, the subset this driver uses.
const (
	cmdPanelSetting   = 0x00
	cmdPowerSetting   = 0x01
	cmdPowerOff       = 0x02
	cmdPowerOn        = 0x04
	cmdBoosterStart   = 0x06
	cmdDeepSleep      = 0x07
	cmdDataOld        = 0x10
	cmdDisplayRefresh = 0x12
	cmdDataNew        = 0x13
	cmdDualSPI        = 0x15
	cmdVCOMInterval   = 0x50
	cmdTCON           = 0x60
	cmdResolution     = 0x61
	cmdGetStatus      = 0x71
	cmdPartialWindow  = 0x90
	cmdPartialIn      = 0x91
	cmdPartialOut     = 0x92
)

// spidev rejects transfers above one page worth of bytes on stock
// kernels, so bulk data is written in chunks.
const maxTransfer = 4096

// busyTimeout bounds the refresh wait; a stuck BUSY line otherwise
// hangs the UI goroutine forever.
const busyTimeout = 30 * time.Second

// Opts selects the wiring. Pin names are periph.io names, e.g.
// "GPIO25"; SPIDev is a spireg name like "SPI0.0".
type Opts struct {
	SPIDev  string
	DCPin   string
	RSTPin  string
	BusyPin string
	Hz      physic.Frequency
}

// Driver owns the panel. It satisfies the display driver contract:
// painters draw into Image between Begin/End calls, End pushes to the
// panel.
type Driver struct {
	port spi.PortCloser
	conn spi.Conn
	dc   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn

	img    *image.Gray
	window geom.Rect
}

// New opens the SPI port and GPIO lines and wakes the panel. The
// caller must have run host.Init first.
func New(opts Opts) (*Driver, error) {
	if opts.Hz == 0 {
		opts.Hz = 4 * physic.MegaHertz
	}

	port, err := spireg.Open(opts.SPIDev)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", opts.SPIDev, err)
	}
	conn, err := port.Connect(opts.Hz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect spi: %w", err)
	}

	dc, err := outPin(opts.DCPin, gpio.Low)
	if err != nil {
		port.Close()
		return nil, err
	}
	rst, err := outPin(opts.RSTPin, gpio.High)
	if err != nil {
		port.Close()
		return nil, err
	}
	busy := gpioreg.ByName(opts.BusyPin)
	if busy == nil {
		port.Close()
		return nil, fmt.Errorf("gpio %q not found", opts.BusyPin)
	}
	if err := busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		port.Close()
		return nil, fmt.Errorf("gpio %q: %w", opts.BusyPin, err)
	}

	d := &Driver{
		port: port,
		conn: conn,
		dc:   dc,
		rst:  rst,
		busy: busy,
		img:  image.NewGray(image.Rect(0, 0, Width, Height)),
	}
	if err := d.initPanel(); err != nil {
		port.Close()
		return nil, err
	}
	d.Fill(d.Bounds(), true)
	return d, nil
}

func outPin(name string, level gpio.Level) (gpio.PinOut, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %q not found", name)
	}
	if err := p.Out(level); err != nil {
		return nil, fmt.Errorf("gpio %q: %w", name, err)
	}
	return p, nil
}

// Close puts the panel into deep sleep and releases the SPI port.
// E-paper keeps its image without power, so sleeping is safe.
func (d *Driver) Close() error {
	if err := d.sleep(); err != nil {
		d.port.Close()
		return err
	}
	return d.port.Close()
}

// Bounds returns the panel dimensions.
func (d *Driver) Bounds() geom.Rect {
	return geom.NewRect(0, 0, Width, Height)
}

// Image returns the frame buffer painters draw into.
func (d *Driver) Image() draw.Image {
	return d.img
}

// BeginFull opens a full-panel refresh window.
func (d *Driver) BeginFull() {
	d.window = d.Bounds()
}

// EndFull pushes the whole frame and refreshes the panel.
func (d *Driver) EndFull() error {
	if err := d.sendCommand(cmdDataNew); err != nil {
		return err
	}
	if err := d.sendData(d.pack(d.Bounds())); err != nil {
		return err
	}
	return d.refresh()
}

// BeginPartial opens a refresh window restricted to r, widened so the
// horizontal edges land on byte boundaries.
func (d *Driver) BeginPartial(r geom.Rect) {
	d.window = alignWindow(r).Clamp(Width, Height)
}

// EndPartial pushes the current window's region and refreshes it.
func (d *Driver) EndPartial() error {
	w := d.window
	if w.IsEmpty() {
		return nil
	}

	if err := d.sendCommand(cmdPartialIn); err != nil {
		return err
	}
	if err := d.sendCommand(cmdPartialWindow); err != nil {
		return err
	}
	x0, x1 := w.X, w.Right()-1
	y0, y1 := w.Y, w.Bottom()-1
	win := []byte{
		byte(x0 >> 8), byte(x0), byte(x1 >> 8), byte(x1),
		byte(y0 >> 8), byte(y0), byte(y1 >> 8), byte(y1),
		0x01,
	}
	if err := d.sendData(win); err != nil {
		return err
	}

	if err := d.sendCommand(cmdDataNew); err != nil {
		return err
	}
	if err := d.sendData(d.pack(w)); err != nil {
		return err
	}

	if err := d.refresh(); err != nil {
		return err
	}
	return d.sendCommand(cmdPartialOut)
}

// Fill paints a region of the frame buffer white or black.
func (d *Driver) Fill(r geom.Rect, white bool) {
	c := color.Gray{Y: 0x00}
	if white {
		c = color.Gray{Y: 0xFF}
	}
	r = r.Clamp(Width, Height)
	draw.Draw(d.img, image.Rect(r.X, r.Y, r.Right(), r.Bottom()), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// initPanel runs the wake-up register sequence.
func (d *Driver) initPanel() error {
	d.reset()

	steps := []struct {
		cmd  byte
		data []byte
	}{
		{cmdPowerSetting, []byte{0x07, 0x07, 0x3F, 0x3F}},
		{cmdPowerOn, nil},
	}
	for _, s := range steps {
		if err := d.sendCommand(s.cmd); err != nil {
			return err
		}
		if len(s.data) > 0 {
			if err := d.sendData(s.data); err != nil {
				return err
			}
		}
	}
	if err := d.waitIdle(); err != nil {
		return err
	}

	steps = []struct {
		cmd  byte
		data []byte
	}{
		{cmdPanelSetting, []byte{0x1F}}, // KW mode, LUT from OTP
		{cmdResolution, []byte{Width >> 8, Width & 0xFF, Height >> 8, Height & 0xFF}},
		{cmdDualSPI, []byte{0x00}},
		{cmdBoosterStart, []byte{0x17, 0x17, 0x28, 0x17}},
		{cmdVCOMInterval, []byte{0x10, 0x07}},
		{cmdTCON, []byte{0x22}},
	}
	for _, s := range steps {
		if err := d.sendCommand(s.cmd); err != nil {
			return err
		}
		if err := d.sendData(s.data); err != nil {
			return err
		}
	}

	// Seed the controller's previous-frame RAM so the first refresh
	// diffs against a known white screen.
	if err := d.sendCommand(cmdDataOld); err != nil {
		return err
	}
	return d.sendData(whiteFrame())
}

// reset pulses the RST line per the controller datasheet.
func (d *Driver) reset() {
	d.rst.Out(gpio.High)
	time.Sleep(20 * time.Millisecond)
	d.rst.Out(gpio.Low)
	time.Sleep(2 * time.Millisecond)
	d.rst.Out(gpio.High)
	time.Sleep(20 * time.Millisecond)
}

// refresh triggers the display update and waits for BUSY to release.
func (d *Driver) refresh() error {
	if err := d.sendCommand(cmdDisplayRefresh); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return d.waitIdle()
}

// waitIdle polls the BUSY line. The controller holds it low while a
// refresh is in progress.
func (d *Driver) waitIdle() error {
	deadline := time.Now().Add(busyTimeout)
	for d.busy.Read() == gpio.Low {
		if time.Now().After(deadline) {
			return fmt.Errorf("panel busy for more than %s", busyTimeout)
		}
		if err := d.sendCommand(cmdGetStatus); err != nil {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func (d *Driver) sleep() error {
	if err := d.sendCommand(cmdPowerOff); err != nil {
		return err
	}
	if err := d.waitIdle(); err != nil {
		return err
	}
	if err := d.sendCommand(cmdDeepSleep); err != nil {
		return err
	}
	return d.sendData([]byte{0xA5})
}

func (d *Driver) sendCommand(cmd byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	return d.conn.Tx([]byte{cmd}, nil)
}

func (d *Driver) sendData(data []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(data) > 0 {
		n := len(data)
		if n > maxTransfer {
			n = maxTransfer
		}
		if err := d.conn.Tx(data[:n], nil); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// pack serializes a byte-aligned region of the frame buffer into the
// controller's format: one bit per pixel, MSB leftmost, 1 = black.
func (d *Driver) pack(r geom.Rect) []byte {
	stride := r.W / 8
	out := make([]byte, stride*r.H)
	for row := 0; row < r.H; row++ {
		for bx := 0; bx < stride; bx++ {
			var b byte
			for bit := 0; bit < 8; bit++ {
				x := r.X + bx*8 + bit
				if d.img.GrayAt(x, r.Y+row).Y < 0x80 {
					b |= 0x80 >> bit
				}
			}
			out[row*stride+bx] = b
		}
	}
	return out
}

// alignWindow widens r so both horizontal edges land on multiples of
// eight pixels, the controller's partial-window granularity.
func alignWindow(r geom.Rect) geom.Rect {
	if r.IsEmpty() {
		return geom.Rect{}
	}
	x0 := r.X &^ 7
	x1 := (r.Right() + 7) &^ 7
	return geom.NewRect(x0, r.Y, x1-x0, r.H)
}

// whiteFrame is one full frame of white pixels in packed form.
func whiteFrame() []byte {
	return make([]byte, Width/8*Height)
}
