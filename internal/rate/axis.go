// Package rate turns movement onsets into causal rate curves on a shared time
// axis and normalizes them against a baseline window or a null condition.
package rate

import (
	"errors"
	"fmt"
)

// ErrNotOnAxis is returned when a time is not one of the axis points.
var ErrNotOnAxis = errors.New("time is not on the axis")

// Axis is the integer time axis [-Start, End) at a resolution of one time
// unit (ms). Len() == Start + End.
type Axis struct {
	Start int
	End   int
}

// NewAxis returns the axis [-windowStart, windowEnd).
func NewAxis(windowStart, windowEnd int) (Axis, error) {
	if windowStart < 0 || windowEnd < 0 || windowStart+windowEnd == 0 {
		return Axis{}, fmt.Errorf("invalid window [-%d, %d)", windowStart, windowEnd)
	}
	return Axis{Start: windowStart, End: windowEnd}, nil
}

// Len returns the number of axis points.
func (a Axis) Len() int { return a.Start + a.End }

// Time returns the time of the i-th axis point.
func (a Axis) Time(i int) int { return i - a.Start }

// Times returns every axis point.
func (a Axis) Times() []int {
	out := make([]int, a.Len())
	for i := range out {
		out[i] = a.Time(i)
	}
	return out
}

// Index returns the position of t on the axis.
func (a Axis) Index(t int) (int, error) {
	if t < -a.Start || t >= a.End {
		return 0, fmt.Errorf("%w: %d outside [-%d, %d)", ErrNotOnAxis, t, a.Start, a.End)
	}
	return t + a.Start, nil
}

// Span returns the index range [lo, hi) covering the times [from, to).
// Both from and to must be axis points.
func (a Axis) Span(from, to int) (lo, hi int, err error) {
	if lo, err = a.Index(from); err != nil {
		return 0, 0, err
	}
	if hi, err = a.Index(to); err != nil {
		return 0, 0, err
	}
	if hi < lo {
		return 0, 0, fmt.Errorf("span end %d before start %d", to, from)
	}
	return lo, hi, nil
}
