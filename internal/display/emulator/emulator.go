// Package emulator provides a desktop window standing in for the
// e-paper panel, with the keyboard standing in for the controller.
package emulator

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/paperhome/paperhome/internal/geom"
	"github.com/paperhome/paperhome/internal/input"
)

// Panel dimensions, matching the real hardware.
const (
	panelWidth  = 800
	panelHeight = 480
)

// Window chrome below the panel area.
const footerHeight = 24

// flashFrames is how long the full-refresh blackout lasts. Real
// e-paper inverts for a few hundred milliseconds on a full refresh;
// reproducing that makes refresh policy bugs visible on the desktop.
const flashFrames = 18

// Emulator implements the display driver contract in a window.
// Painters draw into the frame buffer exactly as with the hardware
// driver; End calls commit the drawn region to the visible "panel".
type Emulator struct {
	mu sync.RWMutex

	img    *image.Gray // frame buffer painters draw into
	shown  *image.Gray // what the panel currently displays
	window geom.Rect
	flash  int

	queue *input.Queue

	// Lifecycle
	stopOnce sync.Once
	stopCh   chan struct{}
}

// New returns an emulator feeding key presses into the given queue.
func New(queue *input.Queue) *Emulator {
	e := &Emulator{
		img:    image.NewGray(image.Rect(0, 0, panelWidth, panelHeight)),
		shown:  image.NewGray(image.Rect(0, 0, panelWidth, panelHeight)),
		queue:  queue,
		stopCh: make(chan struct{}),
	}
	e.Fill(e.Bounds(), true)
	draw.Draw(e.shown, e.shown.Bounds(), &image.Uniform{C: color.Gray{Y: 0xFF}}, image.Point{}, draw.Src)
	return e
}

// Bounds returns the panel dimensions.
func (e *Emulator) Bounds() geom.Rect {
	return geom.NewRect(0, 0, panelWidth, panelHeight)
}

// Image returns the frame buffer painters draw into.
func (e *Emulator) Image() draw.Image {
	return e.img
}

// BeginFull opens a full-panel refresh window.
func (e *Emulator) BeginFull() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.window = e.Bounds()
}

// EndFull commits the whole frame and plays the refresh flash.
func (e *Emulator) EndFull() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commit(e.Bounds())
	e.flash = flashFrames
	return nil
}

// BeginPartial opens a refresh window restricted to r.
func (e *Emulator) BeginPartial(r geom.Rect) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.window = r.Clamp(panelWidth, panelHeight)
}

// EndPartial commits the window's region without a flash.
func (e *Emulator) EndPartial() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commit(e.window)
	return nil
}

// Fill paints a region of the frame buffer white or black.
func (e *Emulator) Fill(r geom.Rect, white bool) {
	c := color.Gray{Y: 0x00}
	if white {
		c = color.Gray{Y: 0xFF}
	}
	r = r.Clamp(panelWidth, panelHeight)
	draw.Draw(e.img, image.Rect(r.X, r.Y, r.Right(), r.Bottom()), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// commit copies a frame buffer region onto the visible panel. Caller
// holds e.mu.
func (e *Emulator) commit(r geom.Rect) {
	if r.IsEmpty() {
		return
	}
	rect := image.Rect(r.X, r.Y, r.Right(), r.Bottom())
	draw.Draw(e.shown, rect, e.img, rect.Min, draw.Src)
}

// Close asks the window loop to exit.
func (e *Emulator) Close() error {
	e.stopOnce.Do(func() { close(e.stopCh) })
	return nil
}

// RunGUI runs the window loop. Must be called from the main goroutine;
// it blocks until the window closes or ctx ends.
func (e *Emulator) RunGUI(ctx context.Context) error {
	ebiten.SetWindowSize(panelWidth, panelHeight+footerHeight)
	ebiten.SetWindowTitle("PaperHome Emulator")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)

	err := ebiten.RunGame(&game{emu: e, ctx: ctx})
	e.Close()
	return err
}

// keyBindings maps the keyboard onto the controller layout.
var keyBindings = []struct {
	key   ebiten.Key
	event input.InputEvent
}{
	{ebiten.KeyArrowUp, input.NavUp},
	{ebiten.KeyArrowDown, input.NavDown},
	{ebiten.KeyArrowLeft, input.NavLeft},
	{ebiten.KeyArrowRight, input.NavRight},
	{ebiten.KeyEnter, input.ButtonA},
	{ebiten.KeySpace, input.ButtonA},
	{ebiten.KeyEscape, input.ButtonB},
	{ebiten.KeyX, input.ButtonX},
	{ebiten.KeyY, input.ButtonY},
	{ebiten.KeyM, input.ButtonMenu},
	{ebiten.KeyV, input.ButtonView},
	{ebiten.KeyH, input.ButtonXbox},
	{ebiten.KeyQ, input.BumperLeft},
	{ebiten.KeyE, input.BumperRight},
	{ebiten.KeyBracketLeft, input.TriggerLeft},
	{ebiten.KeyBracketRight, input.TriggerRight},
}

// game implements ebiten.Game for the emulator window.
type game struct {
	emu *Emulator
	ctx context.Context
}

func (g *game) Update() error {
	select {
	case <-g.emu.stopCh:
		return ebiten.Termination
	case <-g.ctx.Done():
		return ebiten.Termination
	default:
	}

	for _, b := range keyBindings {
		if !inpututil.IsKeyJustPressed(b.key) {
			continue
		}
		a := input.Action{Event: b.event, Timestamp: input.NowMillis()}
		if b.event.IsTrigger() {
			a.Intensity = 1023
		}
		g.emu.queue.Send(a)
	}

	g.emu.mu.Lock()
	if g.emu.flash > 0 {
		g.emu.flash--
	}
	g.emu.mu.Unlock()
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{30, 30, 30, 255})

	g.emu.mu.RLock()
	frame := ebiten.NewImageFromImage(g.emu.shown)
	// The panel blacks out in pulses while a full refresh runs.
	blackout := g.emu.flash > 0 && g.emu.flash%6 >= 3
	g.emu.mu.RUnlock()

	screen.DrawImage(frame, nil)
	if blackout {
		overlay := ebiten.NewImage(panelWidth, panelHeight)
		overlay.Fill(color.RGBA{0, 0, 0, 255})
		screen.DrawImage(overlay, nil)
	}

	ebitenutil.DebugPrintAt(screen,
		"arrows: navigate | enter: confirm | esc: back | q/e: pages | m: settings | h: home | y: sensors | v: redraw",
		8, panelHeight+4)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return panelWidth, panelHeight + footerHeight
}
