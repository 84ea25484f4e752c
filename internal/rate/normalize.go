package rate

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Normalization selects how rate curves are rescaled before metrics.
type Normalization string

const (
	NormalizeNullCondition Normalization = "null_condition"
	NormalizeToBaseline    Normalization = "baseline"
	NormalizeNone          Normalization = "none"
)

var (
	// ErrUnknownNormalization is returned for an unrecognised strategy name.
	ErrUnknownNormalization = errors.New("unknown normalization")
	// ErrZeroBaseline is reported when the baseline window has no points or
	// a mean of zero; the curve is then left unscaled.
	ErrZeroBaseline = errors.New("baseline is zero")
	// ErrLengthMismatch is returned when two curves do not share an axis.
	ErrLengthMismatch = errors.New("curve lengths differ")
)

// ParseNormalization maps a strategy name to a Normalization.
func ParseNormalization(name string) (Normalization, error) {
	switch n := Normalization(name); n {
	case NormalizeNullCondition, NormalizeToBaseline, NormalizeNone:
		return n, nil
	default:
		return "", fmt.Errorf("%w %q: use %q (default), %q or %q",
			ErrUnknownNormalization, name, NormalizeNullCondition, NormalizeToBaseline, NormalizeNone)
	}
}

// Mask zeroes every point whose trial count does not exceed cutoff. The input
// is not modified.
func Mask(curve []float64, counts []int, cutoff int) ([]float64, error) {
	if len(curve) != len(counts) {
		return nil, fmt.Errorf("%w: curve %d, counts %d", ErrLengthMismatch, len(curve), len(counts))
	}
	keep := make([]float64, len(counts))
	for i, c := range counts {
		if c > cutoff {
			keep[i] = 1
		}
	}
	floats.Mul(keep, curve)
	return keep, nil
}

// Baseline returns the mean of curve over axis points strictly inside
// (window, 0). It returns ErrZeroBaseline if no point falls inside.
func Baseline(axis Axis, curve []float64, window int) (float64, error) {
	if len(curve) != axis.Len() {
		return 0, fmt.Errorf("%w: curve %d, axis %d", ErrLengthMismatch, len(curve), axis.Len())
	}
	var inside []float64
	for i, v := range curve {
		t := axis.Time(i)
		if t > window && t < 0 {
			inside = append(inside, v)
		}
	}
	if len(inside) == 0 {
		return 0, fmt.Errorf("%w: no axis points in (%d, 0)", ErrZeroBaseline, window)
	}
	return stat.Mean(inside, nil), nil
}

// NormalizeBaseline divides curve by its own baseline. When the baseline is
// zero the returned copy is unscaled and ErrZeroBaseline is returned with it,
// so callers can record the gap and carry on.
func NormalizeBaseline(axis Axis, curve []float64, window int) ([]float64, error) {
	out := make([]float64, len(curve))
	copy(out, curve)
	base, err := Baseline(axis, curve, window)
	if err != nil {
		if errors.Is(err, ErrZeroBaseline) {
			return out, err
		}
		return nil, err
	}
	if base == 0 {
		return out, fmt.Errorf("%w: mean over (%d, 0) is 0", ErrZeroBaseline, window)
	}
	floats.Scale(1/base, out)
	return out, nil
}

// NormalizeNull divides curve pointwise by null. Values of null at or below 1
// are raised to 1 in place first, which keeps the denominator away from zero
// and from noise-level rates.
func NormalizeNull(curve, null []float64) ([]float64, error) {
	if len(curve) != len(null) {
		return nil, fmt.Errorf("%w: curve %d, null %d", ErrLengthMismatch, len(curve), len(null))
	}
	for i, v := range null {
		if v <= 1 {
			null[i] = 1
		}
	}
	out := make([]float64, len(curve))
	floats.DivTo(out, curve, null)
	return out, nil
}
