package screens

import (
	"image"
	"image/draw"
	"testing"
	"time"

	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/render"
)

// fakeDriver is a white in-memory panel for render tests.
type fakeDriver struct {
	img *image.Gray
}

func newFakeDriver() *fakeDriver {
	d := &fakeDriver{img: image.NewGray(image.Rect(0, 0, 800, 480))}
	render.FillRect(d.img, geom.NewRect(0, 0, 800, 480), true)
	return d
}

func (d *fakeDriver) Bounds() geom.Rect { return geom.NewRect(0, 0, 800, 480) }

func (d *fakeDriver) Image() draw.Image { return d.img }

func (d *fakeDriver) BeginFull() {}

func (d *fakeDriver) EndFull() error { return nil }

func (d *fakeDriver) BeginPartial(geom.Rect) {}

func (d *fakeDriver) EndPartial() error { return nil }

func (d *fakeDriver) Fill(r geom.Rect, white bool) {
	render.FillRect(d.img, r, white)
}

// darkPixels counts painted pixels, i.e. anything a render test drew.
func (d *fakeDriver) darkPixels() int {
	n := 0
	for i := range d.img.Pix {
		if d.img.Pix[i] < 0x80 {
			n++
		}
	}
	return n
}

// darkPixelsIn counts painted pixels inside r.
func (d *fakeDriver) darkPixelsIn(r geom.Rect) int {
	n := 0
	for y := r.Y; y < r.Bottom(); y++ {
		for x := r.X; x < r.Right(); x++ {
			if d.img.GrayAt(x, y).Y < 0x80 {
				n++
			}
		}
	}
	return n
}

func newTestRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	r, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	return r
}

// contentBounds mirrors the content zone the coordinator hands screens.
func contentBounds() geom.Rect {
	return geom.NewRect(0, 48, 800, 384)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-5 * time.Second, "0s"},
		{0, "0s"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 4*time.Second, "3m 4s"},
		{2*time.Hour + 30*time.Minute, "2h 30m"},
		{26*time.Hour + 12*time.Minute, "1d 2h"},
		{3 * 24 * time.Hour, "3d 0h"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatAgo(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero time", time.Time{}, "never"},
		{"seconds", now.Add(-10 * time.Second), "just now"},
		{"minutes", now.Add(-(5*time.Minute + 3*time.Second)), "5m 3s ago"},
		{"hours", now.Add(-90 * time.Minute), "1h 30m ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAgo(tt.t, now); got != tt.want {
				t.Errorf("formatAgo = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOnOff(t *testing.T) {
	if got := onOff(true); got != "On" {
		t.Errorf("onOff(true) = %q, want On", got)
	}
	if got := onOff(false); got != "Off" {
		t.Errorf("onOff(false) = %q, want Off", got)
	}
}
