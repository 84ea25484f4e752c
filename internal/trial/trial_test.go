package trial

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTrial_Condition(t *testing.T) {
	tests := []struct {
		flash, shift bool
		want         string
	}{
		{true, true, FlashShift},
		{true, false, FlashNoShift},
		{false, true, NoFlashShift},
		{false, false, NoFlashNoShift},
	}
	for _, tt := range tests {
		got := Trial{FlashShown: tt.flash, StimJumped: tt.shift}.Condition()
		assert.Equal(t, tt.want, got)
	}
}

func TestTable_Helpers(t *testing.T) {
	tb := Table{
		{SubjectID: "b", Success: true, Onsets: []float64{1, 2}},
		{SubjectID: "a", Success: false, Onsets: []float64{3}},
		{SubjectID: "b", Success: true},
		{SubjectID: "a", Success: true, Onsets: []float64{4}},
	}

	assert.Equal(t, []string{"a", "b"}, tb.Subjects())
	assert.Len(t, tb.BySubject("b"), 2)
	assert.Len(t, tb.Successful(), 3)
	assert.Equal(t, []float64{1, 2, 3, 4}, tb.Onsets())
	assert.Len(t, tb.Where(func(tr Trial) bool { return len(tr.Onsets) > 0 }), 3)
	assert.Empty(t, Table{}.Onsets())
}

func TestAlignTo(t *testing.T) {
	in := []float64{10, 20, 30}
	out := AlignTo(in, 15)
	assert.Equal(t, []float64{-5, 5, 15}, out)
	assert.Equal(t, []float64{10, 20, 30}, in, "input must not be modified")
	assert.Empty(t, AlignTo(nil, 3))
}

func TestAlignTimes(t *testing.T) {
	raw := RawTiming{
		AnimationTimestamps: []float64{1000, 1016, 1032},
		StartTime:           1100,
		EndTime:             2500,
		FlashOnTime:         400, // relative to start: absolute 1500
		FlashOffTime:        450,
		TouchOn:             []float64{1200, 1450, 1700},
		TouchOff:            []float64{1250, 1500, 1750},
	}

	tm, err := AlignTimes(raw)
	require.NoError(t, err)

	assert.InDelta(t, -500, tm.TrialOn, 1e-9)
	assert.InDelta(t, -400, tm.Start, 1e-9)
	assert.InDelta(t, 50, tm.FlashOff, 1e-9)
	assert.InDelta(t, 1000, tm.End, 1e-9)
	assert.InDelta(t, 1100, tm.TrialEnd, 1e-9) // start + 1500 - flash
	assert.InDeltaSlice(t, []float64{-300, -50, 200}, tm.TouchOn, 1e-9)
	assert.InDeltaSlice(t, []float64{-250, 0, 250}, tm.TouchOff, 1e-9)
	assert.InDelta(t, -50, tm.InteractionToChange, 1e-9)

	var tr Trial
	tm.Apply(&tr)
	assert.InDelta(t, -500, tr.Start, 1e-9)
	assert.InDelta(t, 1100, tr.End, 1e-9)
	assert.Equal(t, tm.TouchOn, tr.Onsets)
}

func TestAlignTimes_NoTouchBeforeFlash(t *testing.T) {
	tm, err := AlignTimes(RawTiming{
		AnimationTimestamps: []float64{0},
		FlashOnTime:         100,
		TouchOn:             []float64{150, 300},
	})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(tm.InteractionToChange))
}

func TestAlignTimes_NoAnimation(t *testing.T) {
	_, err := AlignTimes(RawTiming{})
	assert.ErrorIs(t, err, ErrNoAnimationTimestamps)
}

func TestCenterOnScreen(t *testing.T) {
	assert.Equal(t, []float64{-200, 0, 200}, CenterOnScreen([]float64{0, 200, 400}, 400))
}

func TestPairedLength(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)

	n := PairedLength(log, "touch/position", []float64{1, 2, 3}, []float64{1, 2}, zap.Int("trial", 7))
	assert.Equal(t, 2, n)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.DebugLevel, entry.Level)
	assert.Equal(t, int64(3), entry.ContextMap()["left"])
	assert.Equal(t, int64(7), entry.ContextMap()["trial"])

	assert.Equal(t, 3, PairedLength(log, "same", []float64{1, 2, 3}, []float64{4, 5, 6}))
	assert.Equal(t, 1, logs.Len(), "equal lengths must not log")
	assert.Equal(t, 0, PairedLength(nil, "nil logger", nil, []float64{1}))
}

func TestTrial_Validate(t *testing.T) {
	assert.NoError(t, Trial{Start: -500, End: 1000, Onsets: []float64{1}}.Validate())
	assert.Error(t, Trial{Start: 10, End: 0}.Validate())
	assert.Error(t, Trial{Start: math.NaN(), End: 0}.Validate())
	assert.Error(t, Trial{Start: 0, End: 10, Onsets: []float64{math.Inf(1)}}.Validate())
}

const snapshot = `subject_id,session_id,trial_id,flash_shown,stim_jumped,success,trial_start,trial_end,onsets,touch_x,position_x,window_width,px_per_degree
s01,sess1,1,1,0,1,-500,1000,"[-120.5, 30, 410]","[10, 20, 30]","[5, 15, 25]",800,32.5
s01,sess1,2,0,1,1.0,-480,1020,"[]",,,800,32.5
s02,sess2,3,true,true,0,-510,990,"[5]",,,1024,
`

func TestLoad(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tb, err := Load(strings.NewReader(snapshot), zap.New(core))
	require.NoError(t, err)
	require.Len(t, tb, 3)

	first := tb[0]
	assert.Equal(t, "s01", first.SubjectID)
	assert.Equal(t, "sess1", first.SessionID)
	assert.Equal(t, 1, first.TrialID)
	assert.True(t, first.FlashShown)
	assert.False(t, first.StimJumped)
	assert.True(t, first.Success)
	assert.Equal(t, -500.0, first.Start)
	assert.Equal(t, 1000.0, first.End)
	assert.Equal(t, []float64{-120.5, 30, 410}, first.Onsets)
	assert.Equal(t, []float64{10, 20, 30}, first.TouchX)
	assert.Equal(t, 800.0, first.WindowWidth)
	assert.Equal(t, 32.5, first.PxPerDegree)
	assert.Nil(t, first.TouchY, "absent column stays nil")

	assert.True(t, tb[1].Success)
	assert.Empty(t, tb[1].Onsets)
	assert.Nil(t, tb[1].TouchX)

	assert.True(t, tb[2].FlashShown)
	assert.True(t, tb[2].StimJumped)
	assert.False(t, tb[2].Success)
	assert.Equal(t, FlashShift, tb[2].Condition())

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(3), logs.All()[0].ContextMap()["trials"])
	assert.Equal(t, int64(2), logs.All()[0].ContextMap()["subjects"])
}

const rawSnapshot = `subject_id,session_id,trial_id,flash_shown,stim_jumped,animation_timestamps,start_time,end_time,flash_on_time,flash_off_time,touch_on,touch_off
s01,sess1,4,1,1,"[1000, 1016, 1032]",1100,2500,400,450,"[1200, 1450, 1700]","[1250, 1500, 1750]"
`

func TestLoad_RawTimingIsAligned(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tb, err := Load(strings.NewReader(rawSnapshot), zap.New(core))
	require.NoError(t, err)
	require.Len(t, tb, 1)

	tr := tb[0]
	assert.Equal(t, 4, tr.TrialID)
	assert.InDelta(t, -500, tr.Start, 1e-9)
	assert.InDelta(t, 1100, tr.End, 1e-9)
	assert.InDeltaSlice(t, []float64{-300, -50, 200}, tr.Onsets, 1e-9)
	assert.True(t, tr.Success)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, true, logs.All()[0].ContextMap()["raw_timing"])
}

func TestLoad_RawTimingErrors(t *testing.T) {
	header := "subject_id,session_id,flash_shown,stim_jumped,animation_timestamps,start_time,flash_on_time,touch_on\n"
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"no animation frames", header + `s01,a,1,0,[],100,50,"[120]"` + "\n", ErrNoAnimationTimestamps.Error()},
		{"bad touch array", header + `s01,a,1,0,[0],100,50,"[1,"` + "\n", "touch_on"},
		{"neither timing set", "subject_id,session_id,flash_shown,stim_jumped,trial_start\ns01,a,1,0,-5\n", "raw timing column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTrial_CenteredTouches(t *testing.T) {
	tr := Trial{TouchX: []float64{0, 400}, TouchY: []float64{300}, WindowWidth: 800, WindowHeight: 600}
	x, y := tr.CenteredTouches()
	assert.Equal(t, []float64{-400, 0}, x)
	assert.Equal(t, []float64{0}, y)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "read header"},
		{"missing column", "subject_id,session_id\ns01,x\n", "missing required column"},
		{"bad onsets", "subject_id,session_id,flash_shown,stim_jumped,trial_start,trial_end,onsets\ns01,a,1,0,-5,5,[1,\n", "line 2"},
		{"bad flag", "subject_id,session_id,flash_shown,stim_jumped,trial_start,trial_end,onsets\ns01,a,yes,0,-5,5,[]\n", "not a flag"},
		{"bad number", "subject_id,session_id,flash_shown,stim_jumped,trial_start,trial_end,onsets\ns01,a,1,0,abc,5,[]\n", "trial_start"},
		{"reversed window", "subject_id,session_id,flash_shown,stim_jumped,trial_start,trial_end,onsets\ns01,a,1,0,5,-5,[]\n", "before start"},
		{"empty subject", "subject_id,session_id,flash_shown,stim_jumped,trial_start,trial_end,onsets\n,a,1,0,-5,5,[]\n", "subject_id is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("does-not-exist.csv", nil)
	assert.Error(t, err)
}
