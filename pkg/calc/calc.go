// Package calc computes batch progress figures.
package calc

import (
	"time"

	"ytbatch/pkg/maths"
)

// Progress returns completed/total as a whole percentage in [0, 100].
func Progress(completed, total int) int {
	if total <= 0 {
		return 0
	}

	return maths.Clamp(maths.RoundFloat64ToInt(float64(completed)/float64(total)*100), 0, 100)
}

// ETA extrapolates the time left from the average item duration since started.
// It is 0 before the first item completes and once every item has.
func ETA(completed, total int, started time.Time) time.Duration {
	if completed <= 0 || completed >= total {
		return 0
	}

	perItem := time.Since(started) / time.Duration(completed)

	return perItem * time.Duration(total-completed)
}
