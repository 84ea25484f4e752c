// Package trial holds the cleaned, aligned trial table that feeds the rate
// pipeline, together with the loader for its CSV snapshot and the helpers
// that produce trial-relative times and screen-centred positions.
package trial

import "sort"

// Condition labels for the four fully specified flash x shift conditions.
const (
	FlashShift     = "flash_shift"
	FlashNoShift   = "flash_no_shift"
	NoFlashShift   = "no_flash_shift"
	NoFlashNoShift = "no_flash_no_shift"
)

// Trial is one experimental trial after alignment. All times are relative to
// the flash (event) onset of the trial. A Trial is not modified once it has
// been handed to the rate pipeline.
type Trial struct {
	SubjectID string
	SessionID string
	TrialID   int

	FlashShown bool
	StimJumped bool
	Success    bool

	// Start and End bound the recorded window, [Start, End).
	Start float64
	End   float64
	// Onsets are movement (touch) onsets in recording order.
	Onsets []float64

	// Spatial samples, one per touch. Optional.
	TouchX    []float64
	TouchY    []float64
	PositionX []float64
	PositionY []float64
	ShiftedX  []float64
	ShiftedY  []float64

	WindowWidth  float64
	WindowHeight float64
	PxPerDegree  float64
}

// Condition returns the trial's flash x shift condition label.
func (t Trial) Condition() string {
	switch {
	case t.FlashShown && t.StimJumped:
		return FlashShift
	case t.FlashShown:
		return FlashNoShift
	case t.StimJumped:
		return NoFlashShift
	default:
		return NoFlashNoShift
	}
}

// Table is an ordered set of trials.
type Table []Trial

// Subjects returns the distinct subject ids in sorted order.
func (tb Table) Subjects() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, t := range tb {
		if _, ok := seen[t.SubjectID]; ok {
			continue
		}
		seen[t.SubjectID] = struct{}{}
		ids = append(ids, t.SubjectID)
	}
	sort.Strings(ids)
	return ids
}

// BySubject returns the trials recorded for one subject, in table order.
func (tb Table) BySubject(subjectID string) Table {
	var out Table
	for _, t := range tb {
		if t.SubjectID == subjectID {
			out = append(out, t)
		}
	}
	return out
}

// Successful returns only the trials flagged as successful.
func (tb Table) Successful() Table {
	var out Table
	for _, t := range tb {
		if t.Success {
			out = append(out, t)
		}
	}
	return out
}

// Where returns the trials for which keep reports true.
func (tb Table) Where(keep func(Trial) bool) Table {
	out := make(Table, 0, len(tb))
	for _, t := range tb {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// Onsets concatenates the movement onsets of every trial in table order.
func (tb Table) Onsets() []float64 {
	n := 0
	for _, t := range tb {
		n += len(t.Onsets)
	}
	out := make([]float64, 0, n)
	for _, t := range tb {
		out = append(out, t.Onsets...)
	}
	return out
}
