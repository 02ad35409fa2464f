// Package maths holds small numeric helpers.
package maths

import (
	"cmp"
	"math"
)

// RoundFloat64ToInt rounds v half away from zero. NaN and infinities become 0.
func RoundFloat64ToInt(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return int(math.Round(v))
}

// Clamp limits v to [lo, hi].
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}
