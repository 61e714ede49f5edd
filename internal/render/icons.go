package render

import (
	_ "embed"
	"fmt"
	"image"
	"image/draw"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed icons/bulb.svg
var iconBulbSVG string

//go:embed icons/thermometer.svg
var iconThermometerSVG string

//go:embed icons/wind.svg
var iconWindSVG string

//go:embed icons/droplet.svg
var iconDropletSVG string

//go:embed icons/battery.svg
var iconBatterySVG string

//go:embed icons/wifi.svg
var iconWifiSVG string

//go:embed icons/gear.svg
var iconGearSVG string

//go:embed icons/home.svg
var iconHomeSVG string

//go:embed icons/refresh.svg
var iconRefreshSVG string

//go:embed icons/gamepad.svg
var iconGamepadSVG string

//go:embed icons/flame.svg
var iconFlameSVG string

// Icon names accepted by Renderer.Icon.
const (
	IconBulb        = "bulb"
	IconThermometer = "thermometer"
	IconWind        = "wind"
	IconDroplet     = "droplet"
	IconBattery     = "battery"
	IconWifi        = "wifi"
	IconGear        = "gear"
	IconHome        = "home"
	IconRefresh     = "refresh"
	IconGamepad     = "gamepad"
	IconFlame       = "flame"
)

var iconSources = map[string]string{
	IconBulb:        iconBulbSVG,
	IconThermometer: iconThermometerSVG,
	IconWind:        iconWindSVG,
	IconDroplet:     iconDropletSVG,
	IconBattery:     iconBatterySVG,
	IconWifi:        iconWifiSVG,
	IconGear:        iconGearSVG,
	IconHome:        iconHomeSVG,
	IconRefresh:     iconRefreshSVG,
	IconGamepad:     iconGamepadSVG,
	IconFlame:       iconFlameSVG,
}

// Icon draws the named icon in black with its top-left corner at
// (x, y), rasterized to size x size pixels. Rasterizations are cached
// per name and size. Unknown names draw nothing.
func (r *Renderer) Icon(dst draw.Image, name string, x, y, size int) {
	key := fmt.Sprintf("%s/%d", name, size)
	mask, ok := r.icons[key]
	if !ok {
		var err error
		mask, err = rasterizeIcon(name, size)
		if err != nil {
			mask = image.NewRGBA(image.Rect(0, 0, size, size))
		}
		r.icons[key] = mask
	}

	// Threshold the antialiased rasterization to 1-bit: any mostly
	// opaque pixel lands as black.
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			if _, _, _, a := mask.At(dx, dy).RGBA(); a >= 0x8000 {
				dst.Set(x+dx, y+dy, Black)
			}
		}
	}
}

// rasterizeIcon renders one embedded SVG at the given pixel size.
func rasterizeIcon(name string, size int) (*image.RGBA, error) {
	src, ok := iconSources[name]
	if !ok {
		return nil, fmt.Errorf("unknown icon %q", name)
	}
	src = strings.ReplaceAll(src, "currentColor", "#000000")

	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	icon.SetTarget(0, 0, float64(size), float64(size))

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	return img, nil
}
