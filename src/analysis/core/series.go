package core

import "time"

// -----------------------------------------------------------------------------

// ChangePercent returns the percent change from prev to cur. A zero or
// missing previous value yields 0 rather than a division blowup.
func ChangePercent(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}

// -----------------------------------------------------------------------------

// FilterSince keeps the items whose timestamp is at or after cutoff.
// The boundary instant itself is included.
func FilterSince[T any](items []T, ts func(T) time.Time, cutoff time.Time) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if !ts(item).Before(cutoff) {
			out = append(out, item)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// FilterBetween keeps the items whose timestamp falls in [from, to],
// inclusive on both ends.
func FilterBetween[T any](items []T, ts func(T) time.Time, from, to time.Time) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		t := ts(item)
		if !t.Before(from) && !t.After(to) {
			out = append(out, item)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// MaxTime returns the latest of the given timestamps. ok is false for
// empty input.
func MaxTime(times []time.Time) (time.Time, bool) {
	if len(times) == 0 {
		return time.Time{}, false
	}
	max := times[0]
	for _, t := range times[1:] {
		if t.After(max) {
			max = t
		}
	}
	return max, true
}

// -----------------------------------------------------------------------------

// UniqueCount counts distinct non-empty keys.
func UniqueCount(keys []string) int {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		seen[k] = struct{}{}
	}
	return len(seen)
}
