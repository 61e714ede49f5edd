package nav

import (
	"time"

	"github.com/paperhome/paperhome/internal/input"
)

// Controller is the navigation state machine. It owns the input
// batcher, tracks which stack and page are visible, and exposes
// screen-local events for the active screen to consume. Owned by the
// UI goroutine; no locking.
//
// Re-opening the settings stack resumes the last-viewed settings page.
type Controller struct {
	batcher *input.Batcher

	stack        Stack
	mainPage     MainPage
	settingsPage SettingsPage

	pending []NavEvent

	onScreenChange func(ScreenID)
	onForceRefresh func()
}

// NewController returns a controller starting on the Hue dashboard.
// The batch window and clock are passed through to the input batcher;
// zero values select the defaults.
func NewController(batchWindow time.Duration, now func() uint32) *Controller {
	return &Controller{
		batcher: input.NewBatcher(batchWindow, now),
	}
}

// OnScreenChange registers the hook invoked with the new screen after
// any stack or page change.
func (c *Controller) OnScreenChange(fn func(ScreenID)) {
	c.onScreenChange = fn
}

// OnForceRefresh registers the hook invoked when the View button
// requests a manual full refresh.
func (c *Controller) OnForceRefresh(fn func()) {
	c.onForceRefresh = fn
}

// HandleInput feeds one action into the batcher. Navigation state does
// not change until the next Update call.
func (c *Controller) HandleInput(a input.Action) {
	c.batcher.Submit(a)
}

// Update drains the batcher and applies every ready action. Returns
// true when the visible stack or page changed, meaning the caller
// needs a screen swap rather than an in-screen repaint.
func (c *Controller) Update() bool {
	changed := false
	for {
		a := c.batcher.Poll()
		if a.IsNone() {
			break
		}
		if c.apply(a) {
			changed = true
			// Movement buffered for the old screen is released now so
			// the rest of this drain applies to the new one.
			c.batcher.Flush()
		}
	}
	return changed
}

// apply interprets one action. Returns true when stack or page moved.
func (c *Controller) apply(a input.Action) bool {
	switch a.Event {
	case input.BumperLeft:
		return c.cyclePage(-1)
	case input.BumperRight:
		return c.cyclePage(+1)

	case input.ButtonMenu:
		if c.stack != StackMain {
			return false
		}
		c.stack = StackSettings
		c.notifyScreenChange()
		return true

	case input.ButtonB:
		if c.stack == StackSettings {
			c.stack = StackMain
			c.notifyScreenChange()
			return true
		}
		// On the main stack B belongs to the screen.
		c.push(Back)
		return false

	case input.ButtonXbox:
		return c.goTo(StackMain, PageHueDashboard)

	case input.ButtonView:
		if c.onForceRefresh != nil {
			c.onForceRefresh()
		}
		return false

	case input.ButtonA:
		c.push(Confirm)
	case input.ButtonY:
		c.push(QuickSensors)

	case input.NavUp:
		c.push(SelectUp)
	case input.NavDown:
		c.push(SelectDown)
	case input.NavLeft:
		c.push(SelectLeft)
	case input.NavRight:
		c.push(SelectRight)

	case input.TriggerLeft:
		c.push(SelectPrev)
	case input.TriggerRight:
		c.push(SelectNext)
	}
	// Connection pseudo-events and unmapped buttons fall through; the
	// coordinator watches those before the controller sees them.
	return false
}

// cyclePage advances the active stack's page by delta, wrapping at
// either end.
func (c *Controller) cyclePage(delta int) bool {
	switch c.stack {
	case StackMain:
		c.mainPage = MainPage((int(c.mainPage) + delta + numMainPages) % numMainPages)
	case StackSettings:
		c.settingsPage = SettingsPage((int(c.settingsPage) + delta + numSettingsPages) % numSettingsPages)
	}
	c.notifyScreenChange()
	return true
}

// goTo moves to an exact main-stack position, notifying only on an
// actual change.
func (c *Controller) goTo(stack Stack, page MainPage) bool {
	if c.stack == stack && c.mainPage == page {
		return false
	}
	c.stack = stack
	c.mainPage = page
	c.notifyScreenChange()
	return true
}

// CurrentScreen derives the visible screen from the navigation state.
func (c *Controller) CurrentScreen() ScreenID {
	if c.stack == StackSettings {
		return settingsPageScreens[c.settingsPage]
	}
	return mainPageScreens[c.mainPage]
}

// CurrentStack returns the active stack.
func (c *Controller) CurrentStack() Stack {
	return c.stack
}

// NavigateTo jumps directly to the given screen, switching stacks as
// needed. Used for programmatic transitions like first boot or the
// quick-sensors shortcut.
func (c *Controller) NavigateTo(id ScreenID) {
	for page, screen := range mainPageScreens {
		if screen == id {
			c.goToPage(StackMain, MainPage(page), c.settingsPage)
			return
		}
	}
	for page, screen := range settingsPageScreens {
		if screen == id {
			c.goToPage(StackSettings, c.mainPage, SettingsPage(page))
			return
		}
	}
}

// GoHome returns to the Hue dashboard.
func (c *Controller) GoHome() {
	c.goTo(StackMain, PageHueDashboard)
}

// Flush force-emits any open batch window. Callers use it ahead of
// programmatic transitions so buffered movement is not delayed into
// the next screen.
func (c *Controller) Flush() {
	c.batcher.Flush()
}

// PollNavEvent returns the next pending screen-local event, or NavNone.
func (c *Controller) PollNavEvent() NavEvent {
	if len(c.pending) == 0 {
		return NavNone
	}
	ev := c.pending[0]
	c.pending = c.pending[1:]
	if len(c.pending) == 0 {
		c.pending = nil
	}
	return ev
}

// HasNavEvent reports whether a screen-local event is pending.
func (c *Controller) HasNavEvent() bool {
	return len(c.pending) > 0
}

func (c *Controller) goToPage(stack Stack, mainPage MainPage, settingsPage SettingsPage) {
	changed := c.stack != stack || c.mainPage != mainPage || c.settingsPage != settingsPage
	c.stack = stack
	c.mainPage = mainPage
	c.settingsPage = settingsPage
	if changed {
		c.notifyScreenChange()
	}
}

func (c *Controller) push(ev NavEvent) {
	c.pending = append(c.pending, ev)
}

func (c *Controller) notifyScreenChange() {
	if c.onScreenChange != nil {
		c.onScreenChange(c.CurrentScreen())
	}
}
