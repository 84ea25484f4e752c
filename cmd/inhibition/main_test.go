package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/inhibition.report/internal/db"
	"github.com/banshee-data/inhibition.report/internal/testutil"
	"github.com/banshee-data/inhibition.report/internal/trial"
)

func writeFixtures(t *testing.T) (trialsPath, configPath string) {
	t.Helper()
	steady := testutil.RegularOnsets(-200, 300, 25, 0, 0)
	gapped := testutil.RegularOnsets(-200, 300, 25, 0, 100)

	var tb trial.Table
	for _, id := range []string{"s01", "s02"} {
		tb = append(tb, testutil.Trials(id, false, false, 4, 0, -100, 300, steady)...)
		tb = append(tb, testutil.Trials(id, true, true, 4, 10, -100, 300, gapped)...)
	}
	failed := testutil.Trials("s01", true, false, 1, 99, -100, 300, steady)
	failed[0].Success = false
	tb = append(tb, failed...)
	trialsPath = testutil.WriteSnapshot(t, tb)

	configPath = filepath.Join(t.TempDir(), "analysis.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{
		"window_start": 100,
		"window_end": 300,
		"metrics_search_start": 0,
		"metrics_search_end": 200,
		"mask_rate": false
	}`), 0644))
	return trialsPath, configPath
}

func TestRun_FullPipeline(t *testing.T) {
	trialsPath, configPath := writeFixtures(t)
	out := t.TempDir()
	cfg := Config{
		TrialsFile: trialsPath,
		ConfigFile: configPath,
		DBPath:     filepath.Join(out, "analysis.db"),
		PlotDir:    filepath.Join(out, "plots"),
		HTML:       true,
		Units:      "px",
		OutputJSON: filepath.Join(out, "metrics.json"),
	}

	var stdout bytes.Buffer
	require.NoError(t, run(cfg, &stdout, nil))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 1+2*9)
	assert.True(t, strings.HasPrefix(lines[0], "subject\tcondition"))
	assert.True(t, strings.HasPrefix(lines[1], "s01\tall\t1\t1\t"))
	assert.True(t, strings.HasPrefix(lines[10], "s02\tall\t"))

	var reports []SubjectReport
	data, err := os.ReadFile(cfg.OutputJSON)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, 8, reports[0].Trials, "failed trial is dropped")
	assert.Equal(t, "null_condition", reports[0].Normalization)
	assert.Len(t, reports[0].Metrics, 9)
	assert.NotEmpty(t, reports[0].RunID)
	assert.Nil(t, reports[0].ErrorBaseline, "no spatial columns in the snapshot")

	store, err := db.Open(cfg.DBPath, nil)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns("")
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	for _, name := range []string{
		"s01_rate_none.png", "s01_rate_baseline.png", "s01_rate_null_condition.png",
		"s01_error_size.png", "s01_rates.html", "s02_rates.html",
	} {
		_, err := os.Stat(filepath.Join(cfg.PlotDir, name))
		assert.NoError(t, err, name)
	}
}

func TestRun_SingleSubjectWithFailed(t *testing.T) {
	trialsPath, configPath := writeFixtures(t)
	cfg := Config{TrialsFile: trialsPath, ConfigFile: configPath, Units: "dva", Subject: "s01", IncludeFailed: true}

	var stdout bytes.Buffer
	require.NoError(t, run(cfg, &stdout, nil))
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 10)
	for _, l := range lines[1:] {
		assert.True(t, strings.HasPrefix(l, "s01\t"))
	}
}

func TestRun_Errors(t *testing.T) {
	trialsPath, configPath := writeFixtures(t)
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"bad units", Config{TrialsFile: trialsPath, ConfigFile: configPath, Units: "cm"}, "invalid units"},
		{"missing config", Config{TrialsFile: trialsPath, ConfigFile: "nope.json", Units: "px"}, "load config"},
		{"missing trials", Config{TrialsFile: "nope.csv", ConfigFile: configPath, Units: "px"}, "open trial snapshot"},
		{"unknown subject", Config{TrialsFile: trialsPath, ConfigFile: configPath, Units: "px", Subject: "s99"}, "has no trials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.cfg, &bytes.Buffer{}, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInspectRuns(t *testing.T) {
	trialsPath, configPath := writeFixtures(t)
	dbPath := filepath.Join(t.TempDir(), "analysis.db")
	require.NoError(t, run(Config{
		TrialsFile: trialsPath, ConfigFile: configPath, DBPath: dbPath, Units: "px", Subject: "s02",
	}, &bytes.Buffer{}, nil))

	var listing bytes.Buffer
	require.NoError(t, inspectRuns(Config{DBPath: dbPath, ListRuns: true}, &listing, nil))
	lines := strings.Split(strings.TrimSpace(listing.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "run_id\tsubject"))
	fields := strings.Split(lines[1], "\t")
	require.Len(t, fields, 6)
	runID := fields[0]
	assert.Equal(t, "s02", fields[1])
	assert.Equal(t, "8", fields[2])

	var shown bytes.Buffer
	require.NoError(t, inspectRuns(Config{DBPath: dbPath, ShowRun: runID}, &shown, nil))
	lines = strings.Split(strings.TrimSpace(shown.String()), "\n")
	require.Len(t, lines, 2+9)
	assert.True(t, strings.HasPrefix(lines[0], "# run "+runID))
	assert.True(t, strings.HasPrefix(lines[2], "s02\tall\t"))

	var curve bytes.Buffer
	require.NoError(t, inspectRuns(Config{DBPath: dbPath, ShowRun: runID, Curve: "all:trial_counts"}, &curve, nil))
	lines = strings.Split(strings.TrimSpace(curve.String()), "\n")
	require.Len(t, lines, 1+400)
	assert.Equal(t, "-100\t8", lines[1])
	assert.Equal(t, "299\t8", lines[400])

	err := inspectRuns(Config{DBPath: dbPath, ShowRun: runID, Curve: "all"}, &bytes.Buffer{}, nil)
	assert.ErrorContains(t, err, "condition:kind")

	require.NoError(t, inspectRuns(Config{DBPath: dbPath, DeleteRun: runID}, &bytes.Buffer{}, nil))
	err = inspectRuns(Config{DBPath: dbPath, ShowRun: runID}, &bytes.Buffer{}, nil)
	assert.ErrorIs(t, err, db.ErrRunNotFound)

	assert.ErrorIs(t, inspectRuns(Config{ListRuns: true}, &bytes.Buffer{}, nil), errNoDatabase)
}
