// Package render provides the 1-bit drawing toolkit for the panel:
// font faces, text placement, rectangles and separators, the XOR
// selection highlight, and rasterized icons. Everything draws into the
// display driver's frame buffer and is owned by the UI goroutine.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/paperhome/paperhome/internal/geom"
)

// The panel is 1-bit; everything is drawn in these two colors and
// thresholded on the way to the hardware.
var (
	Black = color.Gray{Y: 0x00}
	White = color.Gray{Y: 0xFF}
)

// Renderer bundles the font faces and the icon cache.
type Renderer struct {
	// Large is for headline sensor values.
	Large font.Face
	// Title is for screen and card headings.
	Title font.Face
	// Body is for list rows and labels.
	Body font.Face
	// Small is for units, hints and the bottom bar.
	Small font.Face

	icons map[string]*image.RGBA
}

// New parses the fonts, builds the faces and validates the embedded
// icons.
func New() (*Renderer, error) {
	ttBold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	ttRegular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}

	r := &Renderer{icons: make(map[string]*image.RGBA)}

	r.Large, err = newFace(ttBold, 42)
	if err != nil {
		return nil, fmt.Errorf("create large face: %w", err)
	}
	r.Title, err = newFace(ttBold, 26)
	if err != nil {
		return nil, fmt.Errorf("create title face: %w", err)
	}
	r.Body, err = newFace(ttRegular, 20)
	if err != nil {
		return nil, fmt.Errorf("create body face: %w", err)
	}
	r.Small, err = newFace(ttRegular, 15)
	if err != nil {
		return nil, fmt.Errorf("create small face: %w", err)
	}

	for name := range iconSources {
		if _, err := rasterizeIcon(name, 24); err != nil {
			return nil, fmt.Errorf("icon %s: %w", name, err)
		}
	}
	return r, nil
}

func newFace(tt *opentype.Font, size float64) (font.Face, error) {
	return opentype.NewFace(tt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Text

// Text draws s in black with its baseline at (x, y).
func (r *Renderer) Text(dst draw.Image, s string, x, y int, face font.Face) {
	drawString(dst, s, x, y, face, Black)
}

// TextWhite draws s in white, for text inside filled regions.
func (r *Renderer) TextWhite(dst draw.Image, s string, x, y int, face font.Face) {
	drawString(dst, s, x, y, face, White)
}

// TextCentered draws s centered horizontally on centerX.
func (r *Renderer) TextCentered(dst draw.Image, s string, centerX, y int, face font.Face) {
	w := TextWidth(face, s)
	drawString(dst, s, centerX-w/2, y, face, Black)
}

// TextRight draws s with its right edge at rightX.
func (r *Renderer) TextRight(dst draw.Image, s string, rightX, y int, face font.Face) {
	w := TextWidth(face, s)
	drawString(dst, s, rightX-w, y, face, Black)
}

// TextWidth returns the advance width of s in pixels.
func TextWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// TruncateText shortens s until it fits maxW, replacing the cut tail
// with an ellipsis.
func TruncateText(face font.Face, s string, maxW int) string {
	if TextWidth(face, s) <= maxW {
		return s
	}
	const ellipsis = "…"
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if TextWidth(face, candidate) <= maxW {
			return candidate
		}
	}
	return ""
}

// Baseline returns the y that vertically centers a line of face's text
// inside a band spanning [top, top+height).
func Baseline(face font.Face, top, height int) int {
	m := face.Metrics()
	textH := (m.Ascent + m.Descent).Ceil()
	return top + (height-textH)/2 + m.Ascent.Ceil()
}

func drawString(dst draw.Image, s string, x, y int, face font.Face, col color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

// Shapes

// FillRect fills r with black or white.
func FillRect(dst draw.Image, r geom.Rect, white bool) {
	c := Black
	if white {
		c = White
	}
	draw.Draw(dst, imageRect(r), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// StrokeRect draws r's border in black with the given thickness,
// inside the rectangle.
func StrokeRect(dst draw.Image, r geom.Rect, thickness int) {
	if r.IsEmpty() || thickness <= 0 {
		return
	}
	FillRect(dst, geom.NewRect(r.X, r.Y, r.W, thickness), false)
	FillRect(dst, geom.NewRect(r.X, r.Bottom()-thickness, r.W, thickness), false)
	FillRect(dst, geom.NewRect(r.X, r.Y, thickness, r.H), false)
	FillRect(dst, geom.NewRect(r.Right()-thickness, r.Y, thickness, r.H), false)
}

// HLine draws a horizontal separator.
func HLine(dst draw.Image, x, y, w, thickness int) {
	FillRect(dst, geom.NewRect(x, y, w, thickness), false)
}

// VLine draws a vertical separator.
func VLine(dst draw.Image, x, y, h, thickness int) {
	FillRect(dst, geom.NewRect(x, y, thickness, h), false)
}

// InvertRect flips black and white inside r. Applying it twice
// restores the original pixels, which is what lets the selection
// highlight move without repainting the zone.
func InvertRect(dst draw.Image, r geom.Rect) {
	b := dst.Bounds()
	clipped := r.Intersection(geom.NewRect(b.Min.X, b.Min.Y, b.Dx(), b.Dy()))
	if clipped.IsEmpty() {
		return
	}

	if g, ok := dst.(*image.Gray); ok {
		for y := clipped.Y; y < clipped.Bottom(); y++ {
			i := g.PixOffset(clipped.X, y)
			for x := clipped.X; x < clipped.Right(); x++ {
				g.Pix[i] = 0xFF - g.Pix[i]
				i++
			}
		}
		return
	}

	for y := clipped.Y; y < clipped.Bottom(); y++ {
		for x := clipped.X; x < clipped.Right(); x++ {
			c := color.GrayModel.Convert(dst.At(x, y)).(color.Gray)
			dst.Set(x, y, color.Gray{Y: 0xFF - c.Y})
		}
	}
}

func imageRect(r geom.Rect) image.Rectangle {
	return image.Rect(r.X, r.Y, r.Right(), r.Bottom())
}
