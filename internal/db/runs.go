package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/inhibition.report/internal/dip"
)

// ErrRunNotFound is returned when no analysis run has the requested id.
var ErrRunNotFound = errors.New("analysis run not found")

// Run is one persisted analysis of one subject.
type Run struct {
	RunID         string          `json:"run_id"`
	SubjectID     string          `json:"subject_id"`
	Trials        int             `json:"trials"`
	Normalization string          `json:"normalization"`
	NullCondition string          `json:"null_condition,omitempty"`
	WindowStart   int             `json:"window_start"`
	WindowEnd     int             `json:"window_end"`
	ConfigJSON    json.RawMessage `json:"config_json,omitempty"`
	ToolVersion   string          `json:"tool_version"`
	CreatedAt     int64           `json:"created_at"`
}

// Curve kinds stored in rate_curves.
const (
	CurveRate        = "rate"
	CurveBaseline    = "baseline"
	CurveNull        = "null_condition"
	CurveTrialCounts = "trial_counts"
)

// Curve is one stored curve of a condition.
type Curve struct {
	Condition string
	Kind      string
	Trials    int
	StartTime int
	Values    []float64
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertRun(ex execer, run *Run, now time.Time) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = now.UnixNano()
	}
	var nullCondition, configStr any
	if run.NullCondition != "" {
		nullCondition = run.NullCondition
	}
	if len(run.ConfigJSON) > 0 {
		configStr = string(run.ConfigJSON)
	}
	_, err := ex.Exec(`
		INSERT INTO analysis_runs (
			run_id, subject_id, trials, normalization, null_condition,
			window_start, window_end, config_json, tool_version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.SubjectID, run.Trials, run.Normalization, nullCondition,
		run.WindowStart, run.WindowEnd, configStr, run.ToolVersion, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func insertMetrics(ex execer, runID string, records []dip.Record) error {
	for i, r := range records {
		var latency any
		if r.LatencyOK {
			latency = r.Latency
		}
		_, err := ex.Exec(`
			INSERT INTO condition_metrics (
				run_id, position, condition, flash_shown, stim_jumped,
				minimum, magnitude, bottom, latency
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, r.Condition, r.FlashShown, r.StimJumped,
			r.Minimum, r.Magnitude, r.Bottom, latency,
		)
		if err != nil {
			return fmt.Errorf("insert metrics for %s: %w", r.Condition, err)
		}
	}
	return nil
}

func insertCurve(ex execer, runID string, c Curve) error {
	values, err := json.Marshal(c.Values)
	if err != nil {
		return fmt.Errorf("encode %s/%s curve: %w", c.Condition, c.Kind, err)
	}
	_, err = ex.Exec(`
		INSERT INTO rate_curves (run_id, condition, kind, trials, start_time, values_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, c.Condition, c.Kind, c.Trials, c.StartTime, string(values),
	)
	if err != nil {
		return fmt.Errorf("insert %s/%s curve: %w", c.Condition, c.Kind, err)
	}
	return nil
}

const runColumns = `run_id, subject_id, trials, normalization, null_condition,
		       window_start, window_end, config_json, tool_version, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var nullCondition, configStr sql.NullString
	err := s.Scan(
		&r.RunID, &r.SubjectID, &r.Trials, &r.Normalization, &nullCondition,
		&r.WindowStart, &r.WindowEnd, &configStr, &r.ToolVersion, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.NullCondition = nullCondition.String
	if configStr.Valid {
		r.ConfigJSON = json.RawMessage(configStr.String)
	}
	return &r, nil
}

// GetRun returns a single run by id.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM analysis_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the runs of a subject, newest first. An empty subjectID
// lists every run.
func (db *DB) ListRuns(subjectID string) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM analysis_runs`
	var args []any
	if subjectID != "" {
		query += ` WHERE subject_id = ?`
		args = append(args, subjectID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListMetrics returns the metrics table of a run in its original order.
func (db *DB) ListMetrics(runID string) ([]dip.Record, error) {
	rows, err := db.Query(`
		SELECT condition, flash_shown, stim_jumped, minimum, magnitude, bottom, latency
		FROM condition_metrics
		WHERE run_id = ?
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var records []dip.Record
	for rows.Next() {
		var r dip.Record
		var latency sql.NullInt64
		if err := rows.Scan(&r.Condition, &r.FlashShown, &r.StimJumped,
			&r.Minimum, &r.Magnitude, &r.Bottom, &latency); err != nil {
			return nil, err
		}
		if latency.Valid {
			r.Latency = int(latency.Int64)
			r.LatencyOK = true
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetCurve returns one stored curve.
func (db *DB) GetCurve(runID, condition, kind string) (*Curve, error) {
	c := Curve{Condition: condition, Kind: kind}
	var values string
	err := db.QueryRow(`
		SELECT trials, start_time, values_json
		FROM rate_curves
		WHERE run_id = ? AND condition = ? AND kind = ?`,
		runID, condition, kind,
	).Scan(&c.Trials, &c.StartTime, &values)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no %s curve for %s in %s", ErrRunNotFound, kind, condition, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get curve: %w", err)
	}
	if err := json.Unmarshal([]byte(values), &c.Values); err != nil {
		return nil, fmt.Errorf("decode curve: %w", err)
	}
	return &c, nil
}

// DeleteRun removes a run together with its metrics and curves.
func (db *DB) DeleteRun(runID string) error {
	return db.retryOnBusy(func() error {
		res, err := db.Exec(`DELETE FROM analysis_runs WHERE run_id = ?`, runID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}
