// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/banshee-data/inhibition.report/internal/trial"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertFinite fails the test if any value is NaN or infinite.
func AssertFinite(t *testing.T, values []float64) {
	t.Helper()
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("value %d is not finite: %v", i, v)
		}
	}
}

// Ptr returns a pointer to v, for filling optional config fields.
func Ptr[T any](v T) *T { return &v }

// RegularOnsets returns onsets from from (inclusive) to to (exclusive) every
// step, skipping any that fall in [gapFrom, gapTo).
func RegularOnsets(from, to, step, gapFrom, gapTo float64) []float64 {
	var out []float64
	for o := from; o < to; o += step {
		if o >= gapFrom && o < gapTo {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Trials returns n successful trials of one condition sharing a window and
// onsets. Trial ids start at firstID.
func Trials(subjectID string, flash, shift bool, n, firstID int, start, end float64, onsets []float64) trial.Table {
	tb := make(trial.Table, n)
	for i := range tb {
		o := make([]float64, len(onsets))
		copy(o, onsets)
		tb[i] = trial.Trial{
			SubjectID:  subjectID,
			SessionID:  "session-1",
			TrialID:    firstID + i,
			FlashShown: flash,
			StimJumped: shift,
			Success:    true,
			Start:      start,
			End:        end,
			Onsets:     o,
		}
	}
	return tb
}

// WriteSnapshot writes tb as a trial snapshot CSV into a temporary directory
// and returns its path.
func WriteSnapshot(t *testing.T, tb trial.Table) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trials.csv")
	f, err := os.Create(path)
	AssertNoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	AssertNoError(t, w.Write([]string{
		trial.ColSubjectID, trial.ColSessionID, trial.ColTrialID,
		trial.ColFlashShown, trial.ColStimJumped, trial.ColSuccess,
		trial.ColTrialStart, trial.ColTrialEnd, trial.ColOnsets,
	}))
	for _, tr := range tb {
		onsets := tr.Onsets
		if onsets == nil {
			onsets = []float64{}
		}
		data, err := json.Marshal(onsets)
		AssertNoError(t, err)
		AssertNoError(t, w.Write([]string{
			tr.SubjectID,
			tr.SessionID,
			strconv.Itoa(tr.TrialID),
			strconv.FormatBool(tr.FlashShown),
			strconv.FormatBool(tr.StimJumped),
			strconv.FormatBool(tr.Success),
			strconv.FormatFloat(tr.Start, 'g', -1, 64),
			strconv.FormatFloat(tr.End, 'g', -1, 64),
			string(data),
		}))
	}
	w.Flush()
	AssertNoError(t, w.Error())
	return path
}
