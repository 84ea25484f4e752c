package trial

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// ResponseWindowMillis is how long after its start a trial accepted responses.
// The trial window end is derived from it.
const ResponseWindowMillis = 1500

// ErrNoAnimationTimestamps is returned when a raw trial has no animation
// frames, so no trial-on reference exists.
var ErrNoAnimationTimestamps = errors.New("trial has no animation timestamps")

// AlignTo returns values shifted so that ref becomes zero.
func AlignTo(values []float64, ref float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	floats.AddConst(-ref, out)
	return out
}

// RawTiming is the per-trial timing as recorded by the browser. Flash times
// are relative to StartTime; every other field is on the page clock.
type RawTiming struct {
	AnimationTimestamps []float64
	StartTime           float64
	EndTime             float64
	FlashOnTime         float64
	FlashOffTime        float64
	TouchOn             []float64
	TouchOff            []float64
}

// Timing is a trial's timing relative to the flash onset.
type Timing struct {
	TrialOn  float64
	Start    float64
	FlashOff float64
	End      float64
	TrialEnd float64
	TouchOn  []float64
	TouchOff []float64
	// InteractionToChange is the latest touch onset before the flash, or NaN
	// if the subject did not touch before it.
	InteractionToChange float64
}

// AlignTimes aligns a raw trial first to its trial-on time (the first
// animation frame) and then to the flash onset.
func AlignTimes(raw RawTiming) (Timing, error) {
	if len(raw.AnimationTimestamps) == 0 {
		return Timing{}, ErrNoAnimationTimestamps
	}
	trialOn := raw.AnimationTimestamps[0]
	flashOn := raw.FlashOnTime + raw.StartTime
	flashOff := raw.FlashOffTime + raw.StartTime
	trialEnd := raw.StartTime + ResponseWindowMillis

	// flash onset relative to trial on
	flashAligned := flashOn - trialOn
	rel := func(v float64) float64 { return (v - trialOn) - flashAligned }

	tm := Timing{
		TrialOn:  rel(trialOn),
		Start:    rel(raw.StartTime),
		FlashOff: rel(flashOff),
		End:      rel(raw.EndTime),
		TrialEnd: rel(trialEnd),
		TouchOn:  AlignTo(AlignTo(raw.TouchOn, trialOn), flashAligned),
		TouchOff: AlignTo(AlignTo(raw.TouchOff, trialOn), flashAligned),
	}

	tm.InteractionToChange = math.NaN()
	for _, d := range tm.TouchOn {
		if d < 0 && (math.IsNaN(tm.InteractionToChange) || d > tm.InteractionToChange) {
			tm.InteractionToChange = d
		}
	}
	return tm, nil
}

// Apply copies the aligned window and onsets onto t.
func (tm Timing) Apply(t *Trial) {
	t.Start = tm.TrialOn
	t.End = tm.TrialEnd
	t.Onsets = tm.TouchOn
}

// CenterOnScreen re-expresses screen coordinates relative to the centre of a
// window of the given extent (width for x, height for y).
func CenterOnScreen(coords []float64, extent float64) []float64 {
	return AlignTo(coords, extent/2)
}

// CenteredTouches returns the trial's touch coordinates relative to the
// centre of its window, the frame dot positions are recorded in.
func (t Trial) CenteredTouches() (x, y []float64) {
	return CenterOnScreen(t.TouchX, t.WindowWidth), CenterOnScreen(t.TouchY, t.WindowHeight)
}

// PairedLength returns the number of elements two per-trial arrays can be
// paired over. When the lengths differ the shorter one wins and the mismatch
// is logged at debug level with the given fields.
func PairedLength(log *zap.Logger, what string, a, b []float64, fields ...zap.Field) int {
	if len(a) == len(b) {
		return len(a)
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if log != nil {
		log.Debug("paired arrays differ in length, truncating",
			append(fields,
				zap.String("pair", what),
				zap.Int("left", len(a)),
				zap.Int("right", len(b)),
				zap.Int("kept", n),
			)...)
	}
	return n
}

// Validate checks the invariants the rate pipeline relies on.
func (t Trial) Validate() error {
	if math.IsNaN(t.Start) || math.IsNaN(t.End) {
		return fmt.Errorf("trial %d: window bounds must be set", t.TrialID)
	}
	if t.End < t.Start {
		return fmt.Errorf("trial %d: window end %.1f before start %.1f", t.TrialID, t.End, t.Start)
	}
	for _, o := range t.Onsets {
		if math.IsNaN(o) || math.IsInf(o, 0) {
			return fmt.Errorf("trial %d: onset is not finite", t.TrialID)
		}
	}
	return nil
}
