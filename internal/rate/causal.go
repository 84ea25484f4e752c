package rate

import (
	"errors"
	"fmt"
	"math"
)

// PerSecond scales a per-millisecond rate to events per second.
const PerSecond = 1000.0

// DefaultAlpha is the kernel decay used when none is configured.
const DefaultAlpha = 1.0 / 50.0

var (
	// ErrTrialCountLength is returned when a per-point trial count does not
	// have one entry per axis point.
	ErrTrialCountLength = errors.New("trial count length does not match axis length")
	// ErrInvalidAlpha is returned for a non-positive kernel decay.
	ErrInvalidAlpha = errors.New("alpha must be positive")
)

// Divisor is the number of trials contributing at each axis point.
type Divisor struct {
	uniform  int
	perPoint []int
}

// Uniform divides every axis point by n. n is floored at 1, matching the
// per-point counts from TrialCounts.
func Uniform(n int) Divisor { return Divisor{uniform: max(n, 1)} }

// PerPoint divides axis point i by counts[i]. Counts below 1 are floored
// at 1.
func PerPoint(counts []int) Divisor { return Divisor{perPoint: counts} }

func (d Divisor) resolve(n int) ([]float64, error) {
	out := make([]float64, n)
	if d.perPoint == nil {
		for i := range out {
			out[i] = float64(max(d.uniform, 1))
		}
		return out, nil
	}
	if len(d.perPoint) != n {
		return nil, fmt.Errorf("%w: got %d, axis has %d points", ErrTrialCountLength, len(d.perPoint), n)
	}
	for i, c := range d.perPoint {
		out[i] = float64(max(c, 1))
	}
	return out, nil
}

// Kernel is the Gamma(2, alpha) causal kernel alpha^2 * tau * exp(-alpha*tau)
// evaluated at tau > 0. It is zero for tau <= 0.
func Kernel(alpha, tau float64) float64 {
	if tau <= 0 {
		return 0
	}
	return alpha * alpha * tau * math.Exp(-alpha*tau)
}

// Causal estimates the movement rate at every axis point from onset times.
//
// At time t an onset contributes Kernel(alpha, t - onset + 1/alpha), so only
// onsets earlier than t + 1/alpha are counted and later events never affect
// the estimate. The summed kernel is scaled to events per second and divided
// by the trial count at t. Onsets may be in any order; no onsets yield an
// all-zero curve.
func Causal(onsets []float64, axis Axis, trials Divisor, alpha float64) ([]float64, error) {
	if !(alpha > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAlpha, alpha)
	}
	n := axis.Len()
	div, err := trials.resolve(n)
	if err != nil {
		return nil, err
	}

	shift := 1 / alpha
	rate := make([]float64, n)
	for i := range rate {
		t := float64(axis.Time(i))
		var sum float64
		for _, onset := range onsets {
			sum += Kernel(alpha, t-onset+shift)
		}
		rate[i] = sum * PerSecond / div[i]
	}
	return rate, nil
}
