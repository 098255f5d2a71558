package core

import "sort"

// -----------------------------------------------------------------------------

// SelectTop returns the n items with the largest key value, sorted
// descending. Equal keys keep their original (insertion) order. Inputs
// shorter than n come back whole, still sorted; empty input yields an
// empty result. The input slice is never mutated.
func SelectTop[T any](items []T, key func(T) float64, n int) []T {
	if n <= 0 || len(items) == 0 {
		return []T{}
	}

	out := make([]T, len(items))
	copy(out, items)

	sort.SliceStable(out, func(i, j int) bool {
		return key(out[i]) > key(out[j])
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}
