// Package condition partitions a trial table by the flash and shift
// manipulations and produces the canonical condition names used as keys by
// every later stage.
package condition

import (
	"fmt"

	"github.com/banshee-data/inhibition.report/internal/trial"
)

// Predicate is a ternary filter on one boolean manipulation.
type Predicate int

const (
	Unset Predicate = iota
	No
	Yes
)

// String returns "unset", "0" or "1".
func (p Predicate) String() string {
	switch p {
	case No:
		return "0"
	case Yes:
		return "1"
	default:
		return "unset"
	}
}

func (p Predicate) matches(v bool) bool {
	switch p {
	case No:
		return !v
	case Yes:
		return v
	default:
		return true
	}
}

// All is the name of the pooled group with neither predicate set.
const All = "all"

// Filter selects trials by flash and shift.
type Filter struct {
	Flash Predicate
	Shift Predicate
}

// Name returns the canonical condition name. With both predicates set it is
// "{flash|no_flash}_{shift|no_shift}", with one set it is that label alone,
// and with neither it is "all".
func (f Filter) Name() string {
	var flash, shift string
	switch f.Flash {
	case Yes:
		flash = "flash"
	case No:
		flash = "no_flash"
	}
	switch f.Shift {
	case Yes:
		shift = "shift"
	case No:
		shift = "no_shift"
	}

	switch {
	case flash != "" && shift != "":
		return flash + "_" + shift
	case flash != "":
		return flash
	case shift != "":
		return shift
	default:
		return All
	}
}

// Matches reports whether t satisfies both predicates.
func (f Filter) Matches(t trial.Trial) bool {
	return f.Flash.matches(t.FlashShown) && f.Shift.matches(t.StimJumped)
}

// Apply returns the matching subset and the canonical name.
func (f Filter) Apply(tb trial.Table) (trial.Table, string) {
	return tb.Where(f.Matches), f.Name()
}

// FullySpecified reports whether both predicates are set.
func (f Filter) FullySpecified() bool {
	return f.Flash != Unset && f.Shift != Unset
}

// Filters enumerates the nine filter combinations: flash over Unset, No, Yes
// in the outer loop and shift in the inner loop.
func Filters() []Filter {
	preds := []Predicate{Unset, No, Yes}
	out := make([]Filter, 0, len(preds)*len(preds))
	for _, flash := range preds {
		for _, shift := range preds {
			out = append(out, Filter{Flash: flash, Shift: shift})
		}
	}
	return out
}

// Names returns the names of Filters() in the same order.
func Names() []string {
	fs := Filters()
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name()
	}
	return names
}

// Parse returns the filter for a canonical condition name.
func Parse(name string) (Filter, error) {
	for _, f := range Filters() {
		if f.Name() == name {
			return f, nil
		}
	}
	return Filter{}, fmt.Errorf("unknown condition %q", name)
}

// Flags reports the flash and shift flags recorded for a condition in the
// metrics table. A pooled side counts as present unless it is explicitly
// "no_": "flash" is (1, 1), "no_flash" is (0, 1), "all" is (1, 1).
func (f Filter) Flags() (flash, shift bool) {
	return f.Flash != No, f.Shift != No
}
