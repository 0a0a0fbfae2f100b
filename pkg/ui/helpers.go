package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// relUnits are the steps of FormatTimeRel, largest first. An age is shown
// in the largest unit it has reached.
var relUnits = []struct {
	size   time.Duration
	suffix string
}{
	{365 * 24 * time.Hour, "y"},
	{30 * 24 * time.Hour, "mo"},
	{7 * 24 * time.Hour, "w"},
	{24 * time.Hour, "d"},
	{time.Hour, "h"},
	{time.Minute, "m"},
}

// FormatTimeRel renders the age of t at now as "5m ago", "3d ago" and so
// on. Ages under a minute, and future times, are "now".
func FormatTimeRel(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	age := now.Sub(t)
	for _, u := range relUnits {
		if age >= u.size {
			return fmt.Sprintf("%d%s ago", int64(age/u.size), u.suffix)
		}
	}
	return "now"
}

// truncate cuts s to width terminal cells, ending in "…" when cut.
func truncate(s string, width int) string {
	switch {
	case width <= 0:
		return ""
	case runewidth.StringWidth(s) <= width:
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// padRight fills s with spaces up to width cells.
func padRight(s string, width int) string {
	if gap := width - runewidth.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// singleLine collapses whitespace runs, line breaks included, to one space.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
