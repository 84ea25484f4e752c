// Package dip extracts the inhibition dip from a normalized rate curve: how
// deep it goes, how wide its bottom is and when it bottoms out.
package dip

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// BottomTolerance is the fraction of the baseline-to-minimum distance above
// the minimum that still counts as the bottom of the dip. This is the one
// tolerance convention used throughout; there is no fixed additive variant.
const BottomTolerance = 0.1

// DefaultBaseline is the "no effect" level of a normalized curve.
const DefaultBaseline = 1.0

var (
	// ErrLatencyUnavailable is returned when no sample in the search window
	// equals the minimum exactly.
	ErrLatencyUnavailable = errors.New("latency unavailable: no sample equals the minimum")
	// ErrEmptyWindow is returned when the search window has no samples.
	ErrEmptyWindow = errors.New("empty search window")
)

// Record is one row of the metrics table.
type Record struct {
	Condition  string  `json:"condition"`
	FlashShown bool    `json:"flash_shown"`
	StimJumped bool    `json:"stim_jumped"`
	Minimum    float64 `json:"minimum"`
	Magnitude  float64 `json:"magnitude"`
	Bottom     int     `json:"bottom"`
	Latency    int     `json:"latency"`
	LatencyOK  bool    `json:"latency_ok"`
}

// Minimum returns the smallest value.
func Minimum(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyWindow
	}
	return floats.Min(values), nil
}

// Magnitude is the depth of the dip below a no-effect level of 1.
func Magnitude(minimum float64) float64 {
	return 1 - minimum
}

// Bottom counts the samples below minimum + (baseline - minimum) * BottomTolerance.
func Bottom(values []float64, minimum, baseline float64) int {
	threshold := minimum + (baseline-minimum)*BottomTolerance
	n := 0
	for _, v := range values {
		if v < threshold {
			n++
		}
	}
	return n
}

// Latency returns the time of the first sample equal to minimum.
func Latency(values []float64, times []int, minimum float64) (int, error) {
	if len(values) != len(times) {
		return 0, fmt.Errorf("values and times differ in length: %d vs %d", len(values), len(times))
	}
	for i, v := range values {
		if v == minimum {
			return times[i], nil
		}
	}
	return 0, ErrLatencyUnavailable
}

// Extract computes every metric over a search window. values and times are
// the already restricted curve and its axis times. A missing latency is
// returned as ErrLatencyUnavailable alongside an otherwise complete record
// with LatencyOK false.
func Extract(values []float64, times []int) (Record, error) {
	minimum, err := Minimum(values)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		Minimum:   minimum,
		Magnitude: Magnitude(minimum),
		Bottom:    Bottom(values, minimum, DefaultBaseline),
	}
	latency, err := Latency(values, times, minimum)
	if err != nil {
		return rec, err
	}
	rec.Latency = latency
	rec.LatencyOK = true
	return rec, nil
}
