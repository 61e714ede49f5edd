// The paperhome-paneltest binary drives the e-paper panel directly,
// bypassing the UI stack: it paints a geometry pattern, then times a
// full refresh and a run of partial window updates. Run it when
// bringing up new display wiring to check the SPI and control pins
// before starting the daemon.
package main

import (
	"fmt"
	"image/draw"
	"os"
	"time"

	"periph.io/x/host/v3"

	"github.com/paperhome/paperhome/internal/config"
	"github.com/paperhome/paperhome/internal/display/epd"
	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/render"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dc := cfg.Display

	fmt.Println("=== PaperHome Panel Test ===")
	fmt.Printf("SPI %s, DC %s, RST %s, BUSY %s\n", dc.SPIDev, dc.DCPin, dc.RSTPin, dc.BusyPin)

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("initializing hardware: %w", err)
	}

	start := time.Now()
	drv, err := epd.New(epd.Opts{
		SPIDev:  dc.SPIDev,
		DCPin:   dc.DCPin,
		RSTPin:  dc.RSTPin,
		BusyPin: dc.BusyPin,
	})
	if err != nil {
		return fmt.Errorf("opening panel: %w", err)
	}
	defer drv.Close()
	fmt.Printf("Panel init: %s\n", time.Since(start).Round(time.Millisecond))

	rnd, err := render.New()
	if err != nil {
		return fmt.Errorf("building renderer: %w", err)
	}

	bounds := drv.Bounds()
	drv.BeginFull()
	drv.Fill(bounds, true)
	paintPattern(rnd, drv.Image(), bounds)
	start = time.Now()
	if err := drv.EndFull(); err != nil {
		return fmt.Errorf("full refresh: %w", err)
	}
	fmt.Printf("Full refresh: %s\n", time.Since(start).Round(time.Millisecond))

	// A counter ticking inside a small window exercises the partial
	// path; the box coordinates are already byte-aligned.
	box := geom.NewRect(bounds.W/2-80, bounds.H/2-40, 160, 80)
	for i := 1; i <= 3; i++ {
		drv.BeginPartial(box)
		drv.Fill(box, true)
		render.StrokeRect(drv.Image(), box, 2)
		rnd.TextCentered(drv.Image(), fmt.Sprintf("%d", i), box.X+box.W/2, box.Y+box.H/2+14, rnd.Large)
		start = time.Now()
		if err := drv.EndPartial(); err != nil {
			return fmt.Errorf("partial refresh %d: %w", i, err)
		}
		fmt.Printf("Partial refresh %d: %s\n", i, time.Since(start).Round(time.Millisecond))
		time.Sleep(time.Second)
	}

	fmt.Println("Done. E-paper keeps the image without power.")
	return nil
}

// paintPattern fills the frame with features that make wiring faults
// visible: a border and center cross for geometry, corner marks for
// mirroring, every face for the fonts, and the icon set.
func paintPattern(rnd *render.Renderer, img draw.Image, b geom.Rect) {
	render.StrokeRect(img, b, 2)
	render.HLine(img, b.X, b.Y+b.H/2, b.W, 1)
	render.VLine(img, b.X+b.W/2, b.Y, b.H, 1)

	// Corner marks: filled top-left only, so flips and rotations are
	// obvious at a glance.
	corner := 24
	render.FillRect(img, geom.NewRect(b.X+8, b.Y+8, corner, corner), false)
	render.StrokeRect(img, geom.NewRect(b.Right()-8-corner, b.Y+8, corner, corner), 2)
	render.StrokeRect(img, geom.NewRect(b.X+8, b.Bottom()-8-corner, corner, corner), 2)
	render.StrokeRect(img, geom.NewRect(b.Right()-8-corner, b.Bottom()-8-corner, corner, corner), 2)

	x := b.X + 48
	rnd.Text(img, "PaperHome panel test", x, b.Y+90, rnd.Large)
	rnd.Text(img, "Title face 26px", x, b.Y+130, rnd.Title)
	rnd.Text(img, "Body face 20px", x, b.Y+160, rnd.Body)
	rnd.Text(img, "Small face 15px", x, b.Y+184, rnd.Small)

	icons := []string{
		render.IconBulb, render.IconThermometer, render.IconWind,
		render.IconDroplet, render.IconBattery, render.IconWifi,
		render.IconGear, render.IconHome, render.IconRefresh,
		render.IconGamepad, render.IconFlame,
	}
	for i, name := range icons {
		rnd.Icon(img, name, x+i*36, b.Bottom()-80, 24)
	}
}
