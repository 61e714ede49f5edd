// Package screens implements the six dashboard pages. Each screen
// consumes manager snapshots pushed in by the coordinator and paints
// into the content zone; selection highlights are drawn by inverting
// the selected rectangle.
package screens

import (
	"fmt"
	"time"
)

// Layout constants shared by the pages.
const (
	// margin is the whitespace between the content zone edge and the
	// page content.
	margin = 20

	// pad is the whitespace inside cards and rows.
	pad = 12

	// gap is the whitespace between grid cells and tiles.
	gap = 16

	// headingH is the height reserved for a page heading line.
	headingH = 44
)

func onOff(on bool) string {
	if on {
		return "On"
	}
	return "Off"
}

// formatDuration renders an uptime-style duration with its two most
// significant units.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d >= 24*time.Hour:
		days := d / (24 * time.Hour)
		hours := (d % (24 * time.Hour)) / time.Hour
		return fmt.Sprintf("%dd %dh", days, hours)
	case d >= time.Hour:
		return fmt.Sprintf("%dh %dm", d/time.Hour, (d%time.Hour)/time.Minute)
	case d >= time.Minute:
		return fmt.Sprintf("%dm %ds", d/time.Minute, (d%time.Minute)/time.Second)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}

// formatAgo renders how long ago t was, for "last refresh" rows.
func formatAgo(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	if d < time.Minute {
		return "just now"
	}
	return formatDuration(d) + " ago"
}
