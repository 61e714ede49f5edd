// Package nav implements the two-stack page state machine that turns
// batched controller input into page cycling and screen-local
// navigation events.
package nav

// NavEvent is a screen-level command produced from controller input.
// The active screen consumes these; page and stack movement never
// reaches screens.
type NavEvent uint8

const (
	// NavNone means no event is pending.
	NavNone NavEvent = iota

	// SelectPrev and SelectNext are coarse 1-D movement, produced by
	// the analog triggers for fast scrolling through long lists.
	SelectPrev
	SelectNext

	// Directional selection movement from the D-pad.
	SelectUp
	SelectDown
	SelectLeft
	SelectRight

	// Confirm activates the current selection.
	Confirm

	// Back is delivered when the B button is not consumed by stack
	// navigation.
	Back

	// QuickSensors jumps to the sensor detail from anywhere.
	QuickSensors
)

var navEventNames = map[NavEvent]string{
	NavNone:      "none",
	SelectPrev:   "select_prev",
	SelectNext:   "select_next",
	SelectUp:     "select_up",
	SelectDown:   "select_down",
	SelectLeft:   "select_left",
	SelectRight:  "select_right",
	Confirm:      "confirm",
	Back:         "back",
	QuickSensors: "quick_sensors",
}

func (e NavEvent) String() string {
	if name, ok := navEventNames[e]; ok {
		return name
	}
	return "unknown"
}

// ScreenID identifies one of the six dashboard screens.
type ScreenID uint8

const (
	ScreenHueDashboard ScreenID = iota
	ScreenClimate
	ScreenSensors
	ScreenDeviceInfo
	ScreenNetwork
	ScreenDisplaySettings
)

var screenNames = map[ScreenID]string{
	ScreenHueDashboard:    "hue_dashboard",
	ScreenClimate:         "climate",
	ScreenSensors:         "sensors",
	ScreenDeviceInfo:      "device_info",
	ScreenNetwork:         "network",
	ScreenDisplaySettings: "display_settings",
}

func (s ScreenID) String() string {
	if name, ok := screenNames[s]; ok {
		return name
	}
	return "unknown"
}

// Stack identifies which page-cycling context is active.
type Stack uint8

const (
	// StackMain cycles the three dashboard pages.
	StackMain Stack = iota
	// StackSettings cycles the three settings pages.
	StackSettings
)

// MainPage indexes the dashboard pages.
type MainPage uint8

const (
	PageHueDashboard MainPage = iota
	PageClimate
	PageSensors
)

// SettingsPage indexes the settings pages.
type SettingsPage uint8

const (
	PageDeviceInfo SettingsPage = iota
	PageNetwork
	PageDisplay
)

const (
	numMainPages     = 3
	numSettingsPages = 3
)

var mainPageScreens = [numMainPages]ScreenID{
	PageHueDashboard: ScreenHueDashboard,
	PageClimate:      ScreenClimate,
	PageSensors:      ScreenSensors,
}

var settingsPageScreens = [numSettingsPages]ScreenID{
	PageDeviceInfo: ScreenDeviceInfo,
	PageNetwork:    ScreenNetwork,
	PageDisplay:    ScreenDisplaySettings,
}
