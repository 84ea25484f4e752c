// Package errorsize measures how far touches land from the moving dot and how
// that error evolves around the flash.
package errorsize

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/inhibition.report/internal/condition"
	"github.com/banshee-data/inhibition.report/internal/trial"
	"github.com/banshee-data/inhibition.report/internal/units"
)

// Time range, relative to the flash, over which error curves are evaluated.
const (
	CurveStart = -500
	CurveEnd   = 1000
)

// DefaultSmoothing is the half-width of the moving-average window.
const DefaultSmoothing = 40

// Distances returns the distance between each touch of tr and the dot
// position (dotX, dotY) at that touch. Dot positions are relative to the
// screen centre, so touches are centred on the window first. Arrays of
// different length are paired up to the shortest one.
func Distances(log *zap.Logger, tr trial.Trial, dotX, dotY []float64) []float64 {
	fields := []zap.Field{zap.String("subject", tr.SubjectID), zap.Int("trial", tr.TrialID)}
	touchX, touchY := tr.CenteredTouches()
	n := min(
		trial.PairedLength(log, "touch_x/dot_x", touchX, dotX, fields...),
		trial.PairedLength(log, "touch_y/dot_y", touchY, dotY, fields...),
	)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Hypot(touchX[i]-dotX[i], touchY[i]-dotY[i])
	}
	return out
}

// Series is the pooled (time, error) samples of a set of trials, sorted by time.
type Series struct {
	Times    []float64
	Original []float64
	Shifted  []float64
}

// Len returns the number of samples.
func (s Series) Len() int { return len(s.Times) }

func (s Series) Less(i, j int) bool { return s.Times[i] < s.Times[j] }

func (s Series) Swap(i, j int) {
	s.Times[i], s.Times[j] = s.Times[j], s.Times[i]
	s.Original[i], s.Original[j] = s.Original[j], s.Original[i]
	s.Shifted[i], s.Shifted[j] = s.Shifted[j], s.Shifted[i]
}

// Collect pools every touch of tb as (onset time, error to the original dot,
// error to the shifted dot) in the requested units, sorted by time. Trials
// whose onset, touch and position arrays disagree in length contribute the
// shortest common prefix.
func Collect(log *zap.Logger, tb trial.Table, unit string) Series {
	var s Series
	for _, tr := range tb {
		original := Distances(log, tr, tr.PositionX, tr.PositionY)
		shifted := Distances(log, tr, tr.ShiftedX, tr.ShiftedY)
		fields := []zap.Field{zap.String("subject", tr.SubjectID), zap.Int("trial", tr.TrialID)}
		n := min(
			trial.PairedLength(log, "onsets/original", tr.Onsets, original, fields...),
			trial.PairedLength(log, "onsets/shifted", tr.Onsets, shifted, fields...),
		)
		for i := 0; i < n; i++ {
			s.Times = append(s.Times, tr.Onsets[i])
			s.Original = append(s.Original, units.ConvertDistance(original[i], tr.PxPerDegree, unit))
			s.Shifted = append(s.Shifted, units.ConvertDistance(shifted[i], tr.PxPerDegree, unit))
		}
	}
	sort.Stable(s)
	return s
}

// WindowMean returns the mean of values whose time lies in
// [at-back, at+forward]. times must be sorted. NaN when no sample falls in
// the window.
func WindowMean(times, values []float64, back, forward, at float64) float64 {
	lo := sort.SearchFloat64s(times, at-back)
	hi := sort.Search(len(times), func(i int) bool { return times[i] > at+forward })
	if hi <= lo {
		return math.NaN()
	}
	return stat.Mean(values[lo:hi], nil)
}

// Curve is a moving-average error curve on integer times [CurveStart, CurveEnd).
type Curve struct {
	Times    []int
	Original []float64
	Shifted  []float64
}

// MovingAverage smooths a series with a symmetric window of half-width smooth.
func MovingAverage(s Series, smooth int) Curve {
	n := CurveEnd - CurveStart
	c := Curve{
		Times:    make([]int, n),
		Original: make([]float64, n),
		Shifted:  make([]float64, n),
	}
	w := float64(smooth)
	for i := range c.Times {
		t := CurveStart + i
		c.Times[i] = t
		c.Original[i] = WindowMean(s.Times, s.Original, w, w, float64(t))
		c.Shifted[i] = WindowMean(s.Times, s.Shifted, w, w, float64(t))
	}
	return c
}

// Result holds the error-size analysis of one subject.
type Result struct {
	// Baseline is the mean error to the original dot in the condition with
	// neither flash nor shift; NaN when that condition has no touches.
	Baseline float64
	Curves   map[string]Curve
	Samples  map[string]int
}

// Analyze computes a moving-average error curve for each fully specified
// condition of tb.
func Analyze(log *zap.Logger, tb trial.Table, smooth int, unit string) Result {
	res := Result{
		Baseline: math.NaN(),
		Curves:   make(map[string]Curve),
		Samples:  make(map[string]int),
	}
	for _, f := range condition.Filters() {
		if !f.FullySpecified() {
			continue
		}
		subset, name := f.Apply(tb)
		s := Collect(log, subset, unit)
		res.Curves[name] = MovingAverage(s, smooth)
		res.Samples[name] = s.Len()
		if name == trial.NoFlashNoShift && s.Len() > 0 {
			res.Baseline = stat.Mean(s.Original, nil)
		}
	}
	return res
}
