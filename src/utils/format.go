package utils

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------

// NoData is the display default for empty aggregations.
const NoData = "N/A"

// -----------------------------------------------------------------------------

// Ordinal returns the day number with its English suffix (1st, 2nd, 11th...).
func Ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// -----------------------------------------------------------------------------

// FormatDisplayTime renders a timestamp for the metric tiles, shifted by
// the configured display offset, e.g. "3rd August, 2025 14:05".
func FormatDisplayTime(t time.Time, offsetHours int) string {
	if t.IsZero() {
		return NoData
	}
	shifted := t.Add(time.Duration(offsetHours) * time.Hour)
	return fmt.Sprintf("%s %s", Ordinal(shifted.Day()), shifted.Format("January, 2006 15:04"))
}

// -----------------------------------------------------------------------------

// FormatTableTime renders a timestamp for table cells, e.g. "03 Aug, 2025 14:05".
func FormatTableTime(t time.Time, offsetHours int) string {
	if t.IsZero() {
		return NoData
	}
	shifted := t.Add(time.Duration(offsetHours) * time.Hour)
	return shifted.Format("02 Jan, 2006 15:04")
}
