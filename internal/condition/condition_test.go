package condition

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/inhibition.report/internal/trial"
)

func TestFilter_Name(t *testing.T) {
	tests := []struct {
		f    Filter
		want string
	}{
		{Filter{Unset, Unset}, "all"},
		{Filter{Yes, Unset}, "flash"},
		{Filter{No, Unset}, "no_flash"},
		{Filter{Unset, Yes}, "shift"},
		{Filter{Unset, No}, "no_shift"},
		{Filter{Yes, Yes}, "flash_shift"},
		{Filter{Yes, No}, "flash_no_shift"},
		{Filter{No, Yes}, "no_flash_shift"},
		{Filter{No, No}, "no_flash_no_shift"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.Name())
		})
	}
}

func TestFullySpecifiedNamesMatchTrialLabels(t *testing.T) {
	for _, f := range Filters() {
		if !f.FullySpecified() {
			continue
		}
		tr := trial.Trial{FlashShown: f.Flash == Yes, StimJumped: f.Shift == Yes}
		assert.Equal(t, tr.Condition(), f.Name())
	}
}

func TestFilters_OrderAndUniqueness(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{
		"all", "no_shift", "shift",
		"no_flash", "no_flash_no_shift", "no_flash_shift",
		"flash", "flash_no_shift", "flash_shift",
	}, names)

	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], "duplicate name %s", n)
		seen[n] = true
	}
}

func randomTable(r *rand.Rand, n int) trial.Table {
	tb := make(trial.Table, n)
	for i := range tb {
		tb[i] = trial.Trial{
			TrialID:    i,
			FlashShown: r.Intn(2) == 1,
			StimJumped: r.Intn(2) == 1,
		}
	}
	return tb
}

func TestFullySpecified_DisjointAndCoverAll(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for iter := 0; iter < 20; iter++ {
		tb := randomTable(r, 50+r.Intn(100))

		all, name := Filter{}.Apply(tb)
		require.Equal(t, "all", name)
		require.Len(t, all, len(tb))

		owner := map[int]string{}
		total := 0
		for _, f := range Filters() {
			if !f.FullySpecified() {
				continue
			}
			subset, name := f.Apply(tb)
			total += len(subset)
			for _, tr := range subset {
				prev, dup := owner[tr.TrialID]
				require.False(t, dup, "trial %d in both %s and %s", tr.TrialID, prev, name)
				owner[tr.TrialID] = name
			}
		}
		assert.Equal(t, len(all), total)
		assert.Len(t, owner, len(all))
	}
}

func TestApply_PartialPredicate(t *testing.T) {
	tb := trial.Table{
		{TrialID: 1, FlashShown: true, StimJumped: true},
		{TrialID: 2, FlashShown: true, StimJumped: false},
		{TrialID: 3, FlashShown: false, StimJumped: true},
		{TrialID: 4, FlashShown: false, StimJumped: false},
	}

	subset, name := Filter{Flash: Yes}.Apply(tb)
	assert.Equal(t, "flash", name)
	require.Len(t, subset, 2)
	assert.Equal(t, 1, subset[0].TrialID)
	assert.Equal(t, 2, subset[1].TrialID)

	subset, name = Filter{Shift: No}.Apply(tb)
	assert.Equal(t, "no_shift", name)
	require.Len(t, subset, 2)
	assert.Equal(t, 2, subset[0].TrialID)
	assert.Equal(t, 4, subset[1].TrialID)
}

func TestApply_EmptyResult(t *testing.T) {
	tb := trial.Table{{FlashShown: true, StimJumped: true}}
	subset, name := Filter{Flash: No, Shift: No}.Apply(tb)
	assert.Equal(t, "no_flash_no_shift", name)
	assert.Empty(t, subset)
}

func TestParse(t *testing.T) {
	for _, f := range Filters() {
		got, err := Parse(f.Name())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := Parse("flash_only")
	assert.Error(t, err)
}

func TestFlags(t *testing.T) {
	tests := []struct {
		name         string
		flash, shift bool
	}{
		{"all", true, true},
		{"flash", true, true},
		{"no_flash", false, true},
		{"no_shift", true, false},
		{"flash_no_shift", true, false},
		{"no_flash_no_shift", false, false},
	}
	for _, tt := range tests {
		f, err := Parse(tt.name)
		require.NoError(t, err)
		flash, shift := f.Flags()
		assert.Equal(t, tt.flash, flash, tt.name)
		assert.Equal(t, tt.shift, shift, tt.name)
	}
}

func TestPredicate_String(t *testing.T) {
	assert.Equal(t, "unset", Unset.String())
	assert.Equal(t, "0", No.String())
	assert.Equal(t, "1", Yes.String())
}
