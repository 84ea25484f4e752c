package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/analysis.defaults.json"

// Normalization and divisor names accepted in the config file. They mirror
// the strategy names parsed by the rate and subject packages.
const (
	NormalizationNullCondition = "null_condition"
	NormalizationBaseline      = "baseline"
	NormalizationNone          = "none"

	DivisorPerWindow = "per_window"
	DivisorUniform   = "uniform"
)

// AnalysisConfig holds the fixed experiment parameters for one analysis run.
// Fields are pointers so that a partial file only overrides what it names;
// the Get* accessors supply the defaults for anything left unset.
type AnalysisConfig struct {
	// Rate estimation
	Alpha          *float64 `json:"alpha,omitempty"`
	WindowStart    *int     `json:"window_start,omitempty"`
	WindowEnd      *int     `json:"window_end,omitempty"`
	RateDivisor    *string  `json:"rate_divisor,omitempty"` // "per_window" or "uniform"
	MaskRate       *bool    `json:"mask_rate,omitempty"`
	MinimumNCutoff *int     `json:"minimum_n_cutoff,omitempty"`

	// Normalization
	TimeWindowForBaseline *int    `json:"time_window_for_baseline,omitempty"`
	Normalization         *string `json:"normalization,omitempty"`
	NullCondition         *string `json:"null_condition,omitempty"`

	// Metrics search window, in axis time units. Both must be exact axis values.
	MetricsSearchStart *int `json:"metrics_search_start,omitempty"`
	MetricsSearchEnd   *int `json:"metrics_search_end,omitempty"`

	// Error-size analysis
	ErrorSmoothing *int `json:"error_smoothing,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAnalysisConfig returns an AnalysisConfig with all fields set to nil.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// DefaultAnalysisConfig returns a config with every field populated with its
// default value.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		Alpha:                 ptrFloat64(1.0 / 50.0),
		WindowStart:           ptrInt(1000),
		WindowEnd:             ptrInt(2000),
		RateDivisor:           ptrString(DivisorPerWindow),
		MaskRate:              ptrBool(true),
		MinimumNCutoff:        ptrInt(20),
		TimeWindowForBaseline: ptrInt(-100),
		Normalization:         ptrString(NormalizationNullCondition),
		NullCondition:         ptrString("no_flash_no_shift"),
		MetricsSearchStart:    ptrInt(0),
		MetricsSearchEnd:      ptrInt(600),
		ErrorSmoothing:        ptrInt(40),
	}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Omitted fields keep
// their defaults through the Get* accessors.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded, intended for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/inhibition/ and deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *AnalysisConfig) Validate() error {
	if c.Alpha != nil && *c.Alpha <= 0 {
		return fmt.Errorf("alpha must be positive, got %f", *c.Alpha)
	}
	if c.WindowStart != nil && *c.WindowStart < 0 {
		return fmt.Errorf("window_start must be non-negative, got %d", *c.WindowStart)
	}
	if c.WindowEnd != nil && *c.WindowEnd < 0 {
		return fmt.Errorf("window_end must be non-negative, got %d", *c.WindowEnd)
	}
	if c.GetWindowStart()+c.GetWindowEnd() == 0 {
		return fmt.Errorf("window_start + window_end must be positive")
	}
	if c.MinimumNCutoff != nil && *c.MinimumNCutoff < 0 {
		return fmt.Errorf("minimum_n_cutoff must be non-negative, got %d", *c.MinimumNCutoff)
	}
	if c.TimeWindowForBaseline != nil && *c.TimeWindowForBaseline >= 0 {
		return fmt.Errorf("time_window_for_baseline must be negative, got %d", *c.TimeWindowForBaseline)
	}

	switch c.GetNormalization() {
	case NormalizationNullCondition, NormalizationBaseline, NormalizationNone:
	default:
		return fmt.Errorf("unknown normalization %q (use %q, %q or %q)",
			c.GetNormalization(), NormalizationNullCondition, NormalizationBaseline, NormalizationNone)
	}
	switch c.GetRateDivisor() {
	case DivisorPerWindow, DivisorUniform:
	default:
		return fmt.Errorf("unknown rate_divisor %q (use %q or %q)", c.GetRateDivisor(), DivisorPerWindow, DivisorUniform)
	}

	start, end := c.GetMetricsSearchStart(), c.GetMetricsSearchEnd()
	if start >= end {
		return fmt.Errorf("metrics_search_start (%d) must be before metrics_search_end (%d)", start, end)
	}
	lo, hi := -c.GetWindowStart(), c.GetWindowEnd()
	if start < lo || start >= hi {
		return fmt.Errorf("metrics_search_start %d is not on the time axis [%d, %d)", start, lo, hi)
	}
	// The end bound is exclusive but must still name an axis point.
	if end < lo || end >= hi {
		return fmt.Errorf("metrics_search_end %d is not on the time axis [%d, %d)", end, lo, hi)
	}

	if c.ErrorSmoothing != nil && *c.ErrorSmoothing <= 0 {
		return fmt.Errorf("error_smoothing must be positive, got %d", *c.ErrorSmoothing)
	}
	return nil
}

// GetAlpha returns the alpha value or the default.
func (c *AnalysisConfig) GetAlpha() float64 {
	if c.Alpha == nil {
		return 1.0 / 50.0
	}
	return *c.Alpha
}

// GetWindowStart returns the window_start value or the default.
func (c *AnalysisConfig) GetWindowStart() int {
	if c.WindowStart == nil {
		return 1000
	}
	return *c.WindowStart
}

// GetWindowEnd returns the window_end value or the default.
func (c *AnalysisConfig) GetWindowEnd() int {
	if c.WindowEnd == nil {
		return 2000
	}
	return *c.WindowEnd
}

// GetRateDivisor returns the rate_divisor value or the default.
func (c *AnalysisConfig) GetRateDivisor() string {
	if c.RateDivisor == nil || *c.RateDivisor == "" {
		return DivisorPerWindow
	}
	return *c.RateDivisor
}

// GetMaskRate returns the mask_rate value or the default.
func (c *AnalysisConfig) GetMaskRate() bool {
	if c.MaskRate == nil {
		return true
	}
	return *c.MaskRate
}

// GetMinimumNCutoff returns the minimum_n_cutoff value or the default.
func (c *AnalysisConfig) GetMinimumNCutoff() int {
	if c.MinimumNCutoff == nil {
		return 20
	}
	return *c.MinimumNCutoff
}

// GetTimeWindowForBaseline returns the time_window_for_baseline value or the default.
func (c *AnalysisConfig) GetTimeWindowForBaseline() int {
	if c.TimeWindowForBaseline == nil {
		return -100
	}
	return *c.TimeWindowForBaseline
}

// GetNormalization returns the normalization value or the default.
func (c *AnalysisConfig) GetNormalization() string {
	if c.Normalization == nil || *c.Normalization == "" {
		return NormalizationNullCondition
	}
	return *c.Normalization
}

// GetNullCondition returns the null_condition value or the default.
func (c *AnalysisConfig) GetNullCondition() string {
	if c.NullCondition == nil || *c.NullCondition == "" {
		return "no_flash_no_shift"
	}
	return *c.NullCondition
}

// GetMetricsSearchStart returns the metrics_search_start value or the default.
func (c *AnalysisConfig) GetMetricsSearchStart() int {
	if c.MetricsSearchStart == nil {
		return 0
	}
	return *c.MetricsSearchStart
}

// GetMetricsSearchEnd returns the metrics_search_end value or the default.
func (c *AnalysisConfig) GetMetricsSearchEnd() int {
	if c.MetricsSearchEnd == nil {
		return 600
	}
	return *c.MetricsSearchEnd
}

// GetErrorSmoothing returns the error_smoothing value or the default.
func (c *AnalysisConfig) GetErrorSmoothing() int {
	if c.ErrorSmoothing == nil {
		return 40
	}
	return *c.ErrorSmoothing
}
