package trial

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Column names of the cleaned trial snapshot.
const (
	ColSubjectID        = "subject_id"
	ColSessionID        = "session_id"
	ColTrialID          = "trial_id"
	ColFlashShown       = "flash_shown"
	ColStimJumped       = "stim_jumped"
	ColSuccess          = "success"
	ColTrialStart       = "trial_start"
	ColTrialEnd         = "trial_end"
	ColOnsets           = "onsets"
	ColTouchX           = "touch_x"
	ColTouchY           = "touch_y"
	ColPositionX        = "position_x"
	ColPositionY        = "position_y"
	ColShiftedPositionX = "shifted_position_x"
	ColShiftedPositionY = "shifted_position_y"
	ColWindowWidth      = "window_width"
	ColWindowHeight     = "window_height"
	ColPxPerDegree      = "px_per_degree"

	// Raw browser timing, used when the aligned columns are absent.
	ColAnimationTimestamps = "animation_timestamps"
	ColStartTime           = "start_time"
	ColEndTime             = "end_time"
	ColFlashOnTime         = "flash_on_time"
	ColFlashOffTime        = "flash_off_time"
	ColTouchOn             = "touch_on"
	ColTouchOff            = "touch_off"
)

var (
	requiredColumns = []string{ColSubjectID, ColSessionID, ColFlashShown, ColStimJumped}
	alignedColumns  = []string{ColTrialStart, ColTrialEnd, ColOnsets}
	rawColumns      = []string{ColAnimationTimestamps, ColStartTime, ColFlashOnTime, ColTouchOn}
)

// ErrMissingColumn is returned when the snapshot header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// LoadFile reads a trial snapshot CSV from path.
func LoadFile(path string, log *zap.Logger) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trial snapshot: %w", err)
	}
	defer f.Close()
	return Load(f, log)
}

// Load reads a trial snapshot from r. The first record is the header. Array
// columns hold JSON arrays; flag columns accept 0/1, true/false or 0.0/1.0.
// A missing success column marks every trial successful.
//
// Snapshots carry either aligned windows (trial_start, trial_end, onsets) or
// the raw browser timing (animation_timestamps, start_time, flash_on_time,
// touch_on and optionally end_time, flash_off_time, touch_off). Raw timing
// is aligned to the flash onset with AlignTimes.
func Load(r io.Reader, log *zap.Logger) (Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	if col, ok := firstMissing(idx, requiredColumns); !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
	}
	raw := false
	if col, ok := firstMissing(idx, alignedColumns); !ok {
		rawCol, rawOK := firstMissing(idx, rawColumns)
		if !rawOK {
			return nil, fmt.Errorf("%w: %s (or raw timing column %s)", ErrMissingColumn, col, rawCol)
		}
		raw = true
	}

	var table Table
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t, err := parseRecord(record, idx, raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		table = append(table, t)
	}

	if log != nil {
		log.Info("loaded trial snapshot",
			zap.Int("trials", len(table)),
			zap.Int("subjects", len(table.Subjects())),
			zap.Bool("raw_timing", raw))
	}
	return table, nil
}

// firstMissing returns the first of cols absent from idx, or ok=true if all
// are present.
func firstMissing(idx map[string]int, cols []string) (string, bool) {
	for _, col := range cols {
		if _, ok := idx[col]; !ok {
			return col, false
		}
	}
	return "", true
}

type recordReader struct {
	record []string
	idx    map[string]int
	err    error
}

func (rr *recordReader) raw(col string) (string, bool) {
	i, ok := rr.idx[col]
	if !ok || i >= len(rr.record) {
		return "", false
	}
	return strings.TrimSpace(rr.record[i]), true
}

func (rr *recordReader) str(col string) string {
	s, _ := rr.raw(col)
	return s
}

func (rr *recordReader) float(col string, fallback float64) float64 {
	s, ok := rr.raw(col)
	if rr.err != nil || !ok || s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		rr.err = fmt.Errorf("%s: %w", col, err)
	}
	return v
}

func (rr *recordReader) flag(col string, fallback bool) bool {
	s, ok := rr.raw(col)
	if rr.err != nil || !ok || s == "" {
		return fallback
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		rr.err = fmt.Errorf("%s: not a flag: %q", col, s)
		return fallback
	}
	return v != 0
}

func (rr *recordReader) floats(col string) []float64 {
	s, ok := rr.raw(col)
	if rr.err != nil || !ok || s == "" {
		return nil
	}
	var out []float64
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		rr.err = fmt.Errorf("%s: %w", col, err)
	}
	return out
}

func parseRecord(record []string, idx map[string]int, raw bool) (Trial, error) {
	rr := &recordReader{record: record, idx: idx}
	t := Trial{
		SubjectID:    rr.str(ColSubjectID),
		SessionID:    rr.str(ColSessionID),
		TrialID:      int(rr.float(ColTrialID, 0)),
		FlashShown:   rr.flag(ColFlashShown, false),
		StimJumped:   rr.flag(ColStimJumped, false),
		Success:      rr.flag(ColSuccess, true),
		Start:        rr.float(ColTrialStart, 0),
		End:          rr.float(ColTrialEnd, 0),
		Onsets:       rr.floats(ColOnsets),
		TouchX:       rr.floats(ColTouchX),
		TouchY:       rr.floats(ColTouchY),
		PositionX:    rr.floats(ColPositionX),
		PositionY:    rr.floats(ColPositionY),
		ShiftedX:     rr.floats(ColShiftedPositionX),
		ShiftedY:     rr.floats(ColShiftedPositionY),
		WindowWidth:  rr.float(ColWindowWidth, 0),
		WindowHeight: rr.float(ColWindowHeight, 0),
		PxPerDegree:  rr.float(ColPxPerDegree, 0),
	}
	if raw && rr.err == nil {
		tm, err := AlignTimes(RawTiming{
			AnimationTimestamps: rr.floats(ColAnimationTimestamps),
			StartTime:           rr.float(ColStartTime, 0),
			EndTime:             rr.float(ColEndTime, 0),
			FlashOnTime:         rr.float(ColFlashOnTime, 0),
			FlashOffTime:        rr.float(ColFlashOffTime, 0),
			TouchOn:             rr.floats(ColTouchOn),
			TouchOff:            rr.floats(ColTouchOff),
		})
		if rr.err != nil {
			return Trial{}, rr.err
		}
		if err != nil {
			return Trial{}, fmt.Errorf("trial %d: %w", t.TrialID, err)
		}
		tm.Apply(&t)
	}
	if rr.err != nil {
		return Trial{}, rr.err
	}
	if t.SubjectID == "" {
		return Trial{}, fmt.Errorf("%s is empty", ColSubjectID)
	}
	return t, nil
}
