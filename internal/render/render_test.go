package render

import (
	"image"
	"strings"
	"testing"

	"github.com/paperhome/paperhome/internal/geom"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestAllIconsRasterize(t *testing.T) {
	for name := range iconSources {
		for _, size := range []int{24, 48} {
			img, err := rasterizeIcon(name, size)
			if err != nil {
				t.Fatalf("rasterize %s at %d: %v", name, size, err)
			}
			opaque := 0
			for y := 0; y < size; y++ {
				for x := 0; x < size; x++ {
					if _, _, _, a := img.At(x, y).RGBA(); a >= 0x8000 {
						opaque++
					}
				}
			}
			if opaque == 0 {
				t.Errorf("icon %s at %d rendered no opaque pixels", name, size)
			}
		}
	}
}

func TestIconDrawsBlackAndCaches(t *testing.T) {
	r := newTestRenderer(t)
	dst := image.NewGray(image.Rect(0, 0, 64, 64))
	FillRect(dst, geom.NewRect(0, 0, 64, 64), true)

	r.Icon(dst, IconBulb, 10, 10, 32)

	black := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if dst.GrayAt(x, y).Y == 0x00 {
				black++
			}
		}
	}
	if black == 0 {
		t.Fatal("icon drew no black pixels")
	}

	before := len(r.icons)
	r.Icon(dst, IconBulb, 20, 20, 32)
	if len(r.icons) != before {
		t.Errorf("second draw grew the cache to %d entries, want %d", len(r.icons), before)
	}
}

func TestUnknownIconDrawsNothing(t *testing.T) {
	r := newTestRenderer(t)
	dst := image.NewGray(image.Rect(0, 0, 32, 32))
	FillRect(dst, geom.NewRect(0, 0, 32, 32), true)

	r.Icon(dst, "no-such-icon", 0, 0, 24)

	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if dst.GrayAt(x, y).Y != 0xFF {
				t.Fatalf("unknown icon painted pixel at (%d,%d)", x, y)
			}
		}
	}
}

func TestFillRect(t *testing.T) {
	dst := image.NewGray(image.Rect(0, 0, 20, 20))
	FillRect(dst, geom.NewRect(0, 0, 20, 20), true)
	FillRect(dst, geom.NewRect(5, 5, 10, 10), false)

	if got := dst.GrayAt(10, 10).Y; got != 0x00 {
		t.Errorf("inside fill = %#x, want black", got)
	}
	if got := dst.GrayAt(2, 2).Y; got != 0xFF {
		t.Errorf("outside fill = %#x, want white", got)
	}
}

func TestStrokeRect(t *testing.T) {
	dst := image.NewGray(image.Rect(0, 0, 20, 20))
	FillRect(dst, geom.NewRect(0, 0, 20, 20), true)
	StrokeRect(dst, geom.NewRect(2, 2, 16, 16), 2)

	if got := dst.GrayAt(2, 2).Y; got != 0x00 {
		t.Errorf("border corner = %#x, want black", got)
	}
	if got := dst.GrayAt(17, 17).Y; got != 0x00 {
		t.Errorf("opposite corner = %#x, want black", got)
	}
	if got := dst.GrayAt(10, 10).Y; got != 0xFF {
		t.Errorf("interior = %#x, want white", got)
	}
}

func TestInvertRectTwiceRestores(t *testing.T) {
	dst := image.NewGray(image.Rect(0, 0, 16, 16))
	FillRect(dst, geom.NewRect(0, 0, 16, 16), true)
	FillRect(dst, geom.NewRect(0, 0, 8, 16), false)

	sel := geom.NewRect(4, 4, 8, 8)
	InvertRect(dst, sel)

	if got := dst.GrayAt(5, 5).Y; got != 0xFF {
		t.Errorf("inverted black = %#x, want white", got)
	}
	if got := dst.GrayAt(11, 5).Y; got != 0x00 {
		t.Errorf("inverted white = %#x, want black", got)
	}

	InvertRect(dst, sel)
	if got := dst.GrayAt(5, 5).Y; got != 0x00 {
		t.Errorf("double invert = %#x, want original black", got)
	}
	if got := dst.GrayAt(11, 5).Y; got != 0xFF {
		t.Errorf("double invert = %#x, want original white", got)
	}
}

func TestInvertRectClipsToImage(t *testing.T) {
	dst := image.NewGray(image.Rect(0, 0, 8, 8))
	InvertRect(dst, geom.NewRect(-5, -5, 100, 100))

	if got := dst.GrayAt(0, 0).Y; got != 0xFF {
		t.Errorf("clipped invert = %#x, want white", got)
	}
}

func TestTextHelpers(t *testing.T) {
	r := newTestRenderer(t)

	short := TextWidth(r.Body, "Hi")
	long := TextWidth(r.Body, "Hello, Hue")
	if short <= 0 {
		t.Errorf("TextWidth = %d, want positive", short)
	}
	if long <= short {
		t.Errorf("longer string measured %d, want > %d", long, short)
	}

	dst := image.NewGray(image.Rect(0, 0, 200, 60))
	FillRect(dst, geom.NewRect(0, 0, 200, 60), true)
	r.Text(dst, "21.5", 10, 40, r.Title)

	dark := 0
	for y := 0; y < 60; y++ {
		for x := 0; x < 200; x++ {
			if dst.GrayAt(x, y).Y < 0x80 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("Text painted no dark pixels")
	}
}

func TestBaselineInsideBand(t *testing.T) {
	r := newTestRenderer(t)

	y := Baseline(r.Body, 100, 48)
	if y <= 100 || y >= 148 {
		t.Errorf("baseline %d outside band [100,148)", y)
	}
}

func TestTruncateText(t *testing.T) {
	r := newTestRenderer(t)

	if got := TruncateText(r.Body, "Kitchen", 500); got != "Kitchen" {
		t.Errorf("fitting text truncated to %q", got)
	}

	long := "An Unreasonably Long Room Name That Cannot Fit"
	maxW := 120
	got := TruncateText(r.Body, long, maxW)
	if got == long {
		t.Fatal("overlong text not truncated")
	}
	if TextWidth(r.Body, got) > maxW {
		t.Errorf("truncated text still %d px wide, limit %d", TextWidth(r.Body, got), maxW)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated text %q lacks ellipsis", got)
	}
}
