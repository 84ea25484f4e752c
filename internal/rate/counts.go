package rate

import (
	"math"

	"github.com/banshee-data/inhibition.report/internal/trial"
)

// TrialCounts returns, for each axis point, how many trial windows cover it.
// Each trial contributes the integer range [round(Start), round(End)), with
// halves rounded to even; points outside the axis are ignored.
//
// Counts are floored at 1. This is a smoothing choice so that a point no
// trial reached divides by one instead of zero; it does not make the rate at
// such a point meaningful, which is what Mask is for.
func TrialCounts(tb trial.Table, axis Axis) []int {
	n := axis.Len()
	counts := make([]int, n)
	for _, tr := range tb {
		from := int(math.RoundToEven(tr.Start))
		to := int(math.RoundToEven(tr.End))
		lo := max(from+axis.Start, 0)
		hi := min(to+axis.Start, n)
		for i := lo; i < hi; i++ {
			counts[i]++
		}
	}
	for i, c := range counts {
		if c < 1 {
			counts[i] = 1
		}
	}
	return counts
}
