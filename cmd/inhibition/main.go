// Command inhibition estimates per-subject movement-rate curves from a trial
// snapshot, extracts the inhibition dip of every condition and writes the
// metrics table, the database and the charts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/banshee-data/inhibition.report/internal/config"
	"github.com/banshee-data/inhibition.report/internal/db"
	"github.com/banshee-data/inhibition.report/internal/dip"
	"github.com/banshee-data/inhibition.report/internal/monitoring"
	"github.com/banshee-data/inhibition.report/internal/rate"
	"github.com/banshee-data/inhibition.report/internal/report"
	"github.com/banshee-data/inhibition.report/internal/subject"
	"github.com/banshee-data/inhibition.report/internal/trial"
	"github.com/banshee-data/inhibition.report/internal/units"
	"github.com/banshee-data/inhibition.report/internal/version"
)

// Config holds the command-line options.
type Config struct {
	TrialsFile    string
	ConfigFile    string
	DBPath        string
	PlotDir       string
	HTML          bool
	Units         string
	Subject       string
	IncludeFailed bool
	OutputJSON    string
	LogDir        string
	LogLevel      string
	ShowVersion   bool

	// Stored-run inspection; these need DBPath and skip the analysis.
	ListRuns  bool
	ShowRun   string
	Curve     string
	DeleteRun string
}

func (c Config) inspectsRuns() bool {
	return c.ListRuns || c.ShowRun != "" || c.DeleteRun != ""
}

// SubjectReport is the per-subject entry of the JSON export.
type SubjectReport struct {
	SubjectID     string       `json:"subject_id"`
	RunID         string       `json:"run_id,omitempty"`
	Trials        int          `json:"trials"`
	Normalization string       `json:"normalization"`
	Metrics       []dip.Record `json:"metrics"`
	ErrorBaseline *float64     `json:"error_baseline,omitempty"`
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Println("inhibition", version.String())
		return
	}
	if cfg.TrialsFile == "" && !cfg.inspectsRuns() {
		log.Fatal("trial snapshot is required (-trials)")
	}

	logger, err := monitoring.NewLogger(monitoring.Options{Level: cfg.LogLevel, Directory: cfg.LogDir})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	monitoring.SetLogger(monitoring.PrintfAdapter(logger))

	if cfg.inspectsRuns() {
		if err := inspectRuns(cfg, os.Stdout, logger); err != nil {
			log.Fatalf("Run inspection failed: %v", err)
		}
		return
	}
	if err := run(cfg, os.Stdout, logger); err != nil {
		logger.Error("analysis failed", zap.Error(err))
		log.Fatalf("Analysis failed: %v", err)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.TrialsFile, "trials", "", "Path to the cleaned trial snapshot (CSV)")
	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to the analysis config (JSON); defaults to "+config.DefaultConfigPath+" when present")
	flag.StringVar(&cfg.DBPath, "db", "", "SQLite database to store runs in (optional)")
	flag.StringVar(&cfg.PlotDir, "plots", "", "Directory for PNG plots (optional)")
	flag.BoolVar(&cfg.HTML, "html", false, "Also write interactive HTML charts into the plot directory")
	flag.StringVar(&cfg.Units, "units", units.PX, "Units for touch error sizes: "+units.GetValidUnitsString())
	flag.StringVar(&cfg.Subject, "subject", "", "Only analyse this subject")
	flag.BoolVar(&cfg.IncludeFailed, "include-failed", false, "Include unsuccessful trials")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Write the metrics of every subject to this JSON file")
	flag.StringVar(&cfg.LogDir, "log-dir", "", "Directory for rotated JSON log files (optional)")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print the version and exit")
	flag.BoolVar(&cfg.ListRuns, "list-runs", false, "List the runs stored in -db (filtered by -subject) and exit")
	flag.StringVar(&cfg.ShowRun, "show-run", "", "Print the stored metrics of a run id from -db and exit")
	flag.StringVar(&cfg.Curve, "curve", "", "With -show-run, print one stored curve as condition:kind (kinds: rate, baseline, null_condition, trial_counts)")
	flag.StringVar(&cfg.DeleteRun, "delete-run", "", "Delete a run id and its metrics and curves from -db and exit")

	flag.Parse()
	return cfg
}

func loadAnalysisConfig(path string) (*config.AnalysisConfig, error) {
	if path != "" {
		return config.LoadAnalysisConfig(path)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.LoadAnalysisConfig(config.DefaultConfigPath)
	}
	return config.DefaultAnalysisConfig(), nil
}

func run(cfg Config, stdout io.Writer, logger *zap.Logger) error {
	logger = monitoring.OrNop(logger)
	if !units.IsValid(cfg.Units) {
		return fmt.Errorf("invalid units %q: use %s", cfg.Units, units.GetValidUnitsString())
	}

	analysisCfg, err := loadAnalysisConfig(cfg.ConfigFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	normalization, err := rate.ParseNormalization(analysisCfg.GetNormalization())
	if err != nil {
		return err
	}

	table, err := trial.LoadFile(cfg.TrialsFile, logger)
	if err != nil {
		return err
	}
	if !cfg.IncludeFailed {
		table = table.Successful()
	}

	subjects := table.Subjects()
	if cfg.Subject != "" {
		subjects = []string{cfg.Subject}
	}

	var store *db.DB
	if cfg.DBPath != "" {
		if store, err = db.Open(cfg.DBPath, logger); err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()
	}

	var reports []SubjectReport
	for i, id := range subjects {
		trials := table.BySubject(id)
		if len(trials) == 0 {
			return fmt.Errorf("subject %q has no trials", id)
		}
		rep, err := analyseSubject(cfg, analysisCfg, normalization, id, trials, store, logger)
		if err != nil {
			return fmt.Errorf("subject %s: %w", id, err)
		}
		if err := subject.WriteTable(stdout, id, rep.Metrics, i == 0); err != nil {
			return err
		}
		reports = append(reports, rep)
	}

	logger.Info("analysis complete",
		zap.Int("subjects", len(reports)),
		zap.String("version", version.Version))
	if cfg.OutputJSON != "" {
		return exportJSON(reports, cfg.OutputJSON)
	}
	return nil
}

func analyseSubject(cfg Config, analysisCfg *config.AnalysisConfig, n rate.Normalization,
	id string, trials trial.Table, store *db.DB, logger *zap.Logger) (SubjectReport, error) {
	rep := SubjectReport{SubjectID: id, Trials: len(trials), Normalization: string(n)}

	a, err := subject.NewAnalysis(id, trials, analysisCfg, logger)
	if err != nil {
		return rep, err
	}
	if rep.Metrics, err = a.Run(); err != nil {
		return rep, err
	}
	errs := a.RunErrorSize(cfg.Units)
	if !math.IsNaN(errs.Baseline) {
		rep.ErrorBaseline = &errs.Baseline
	}

	if store != nil {
		if rep.RunID, err = store.SaveAnalysis(a, n); err != nil {
			return rep, err
		}
	}

	if cfg.PlotDir != "" {
		normalizations := []rate.Normalization{rate.NormalizeNone, rate.NormalizeToBaseline}
		if a.NullCondition() != "" {
			normalizations = append(normalizations, rate.NormalizeNullCondition)
		}
		for _, norm := range normalizations {
			path, err := report.PlotRates(cfg.PlotDir, a, norm)
			if err != nil {
				return rep, err
			}
			logger.Debug("wrote plot", zap.String("path", path))
		}
		if _, err := report.PlotErrorSize(cfg.PlotDir, id, errs, cfg.Units); err != nil {
			return rep, err
		}
		if cfg.HTML {
			if _, err := report.WriteRatesHTML(cfg.PlotDir, a, normalizations...); err != nil {
				return rep, err
			}
		}
	}
	return rep, nil
}

func exportJSON(reports []SubjectReport, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
