package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/banshee-data/inhibition.report/internal/db"
	"github.com/banshee-data/inhibition.report/internal/monitoring"
	"github.com/banshee-data/inhibition.report/internal/subject"
)

var errNoDatabase = errors.New("run inspection needs a database (-db)")

// inspectRuns serves -list-runs, -show-run and -delete-run against the
// database at cfg.DBPath.
func inspectRuns(cfg Config, stdout io.Writer, logger *zap.Logger) error {
	logger = monitoring.OrNop(logger)
	if cfg.DBPath == "" {
		return errNoDatabase
	}
	store, err := db.Open(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	switch {
	case cfg.DeleteRun != "":
		if err := store.DeleteRun(cfg.DeleteRun); err != nil {
			return err
		}
		logger.Info("deleted run", zap.String("run_id", cfg.DeleteRun))
		return nil
	case cfg.ShowRun != "":
		return showRun(store, cfg.ShowRun, cfg.Curve, stdout)
	default:
		return listRuns(store, cfg.Subject, stdout)
	}
}

func listRuns(store *db.DB, subjectID string, w io.Writer) error {
	runs, err := store.ListRuns(subjectID)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "run_id\tsubject\ttrials\tnormalization\tcreated_at\tversion")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			r.RunID, r.SubjectID, r.Trials, r.Normalization,
			time.Unix(0, r.CreatedAt).UTC().Format(time.RFC3339), r.ToolVersion)
	}
	return nil
}

func showRun(store *db.DB, runID, curve string, w io.Writer) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	if curve != "" {
		return printCurve(store, runID, curve, w)
	}

	records, err := store.ListMetrics(runID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "# run %s subject=%s trials=%d normalization=%s window=[-%d,%d)\n",
		run.RunID, run.SubjectID, run.Trials, run.Normalization, run.WindowStart, run.WindowEnd)
	return subject.WriteTable(w, run.SubjectID, records, true)
}

func printCurve(store *db.DB, runID, spec string, w io.Writer) error {
	condition, kind, ok := strings.Cut(spec, ":")
	if !ok || condition == "" || kind == "" {
		return fmt.Errorf("curve %q: want condition:kind", spec)
	}
	c, err := store.GetCurve(runID, condition, kind)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "time\tvalue")
	for i, v := range c.Values {
		fmt.Fprintf(w, "%d\t%s\n", c.StartTime+i, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return nil
}
