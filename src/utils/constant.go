package utils

import "time"

// -----------------------------------------------------------------------------

// Named time-range windows offered by the dashboard selector.
const (
	RangeAll    = "all"
	Range1Day   = "1d"
	Range2Days  = "2d"
	Range7Days  = "7d"
	Range1Month = "1mo"
	RangeCustom = "custom"
)

// -----------------------------------------------------------------------------

// RangeWindows lists the selectable windows in display order.
var RangeWindows = []string{RangeAll, Range1Day, Range2Days, Range7Days, Range1Month, RangeCustom}

// -----------------------------------------------------------------------------

// RangeDuration returns the lookback duration for a named window.
// "all" and "custom" have no fixed duration; ok is false for those and
// for unknown names. "1mo" is treated as 30 days.
func RangeDuration(window string) (time.Duration, bool) {
	switch window {
	case Range1Day:
		return 24 * time.Hour, true
	case Range2Days:
		return 48 * time.Hour, true
	case Range7Days:
		return 7 * 24 * time.Hour, true
	case Range1Month:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// -----------------------------------------------------------------------------

// IsValidRange reports whether window is one of the selectable names.
func IsValidRange(window string) bool {
	for _, w := range RangeWindows {
		if w == window {
			return true
		}
	}
	return false
}
