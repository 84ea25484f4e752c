package db

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/banshee-data/inhibition.report/internal/rate"
	"github.com/banshee-data/inhibition.report/internal/subject"
	"github.com/banshee-data/inhibition.report/internal/version"
)

// SaveAnalysis stores a finished analysis in one transaction: the run, its
// metrics table and every computed curve. It returns the new run id.
func (db *DB) SaveAnalysis(a *subject.Analysis, normalization rate.Normalization) (string, error) {
	cfgJSON, err := json.Marshal(a.Config())
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	axis := a.Axis()
	run := &Run{
		SubjectID:     a.SubjectID,
		Normalization: string(normalization),
		NullCondition: a.NullCondition(),
		WindowStart:   axis.Start,
		WindowEnd:     axis.End,
		ConfigJSON:    cfgJSON,
		ToolVersion:   version.String(),
	}
	if all, ok := a.Result("all"); ok {
		run.Trials = all.Trials
	}

	err = db.retryOnBusy(func() error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := insertRun(tx, run, db.clock.Now()); err != nil {
			return err
		}
		if err := insertMetrics(tx, run.RunID, a.Metrics()); err != nil {
			return err
		}
		for _, name := range a.Conditions() {
			res, _ := a.Result(name)
			for _, c := range curvesOf(res, -axis.Start) {
				if err := insertCurve(tx, run.RunID, c); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return "", fmt.Errorf("save analysis of %s: %w", a.SubjectID, err)
	}

	db.log.Info("saved analysis",
		zap.String("run_id", run.RunID),
		zap.String("subject", a.SubjectID),
		zap.Int("metrics", len(a.Metrics())))
	return run.RunID, nil
}

func curvesOf(res *subject.ConditionResult, start int) []Curve {
	counts := make([]float64, len(res.TrialCounts))
	for i, c := range res.TrialCounts {
		counts[i] = float64(c)
	}
	curves := []Curve{
		{Kind: CurveRate, Values: res.Rate},
		{Kind: CurveBaseline, Values: res.BaselineRate},
		{Kind: CurveTrialCounts, Values: counts},
	}
	if res.NullRate != nil {
		curves = append(curves, Curve{Kind: CurveNull, Values: res.NullRate})
	}
	for i := range curves {
		curves[i].Condition = res.Name
		curves[i].Trials = res.Trials
		curves[i].StartTime = start
	}
	return curves
}
