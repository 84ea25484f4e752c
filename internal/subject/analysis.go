// Package subject runs the rate and metrics pipelines for one subject across
// every condition and keeps the results keyed by condition name.
package subject

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/banshee-data/inhibition.report/internal/condition"
	"github.com/banshee-data/inhibition.report/internal/config"
	"github.com/banshee-data/inhibition.report/internal/dip"
	"github.com/banshee-data/inhibition.report/internal/errorsize"
	"github.com/banshee-data/inhibition.report/internal/monitoring"
	"github.com/banshee-data/inhibition.report/internal/rate"
	"github.com/banshee-data/inhibition.report/internal/trial"
)

var (
	// ErrUnknownDivisor is returned for a rate divisor other than per_window or uniform.
	ErrUnknownDivisor = errors.New("unknown rate divisor")
	// ErrUnknownCondition is returned when a condition name has no results.
	ErrUnknownCondition = errors.New("unknown condition")
	// ErrNotComputed is returned when a pipeline step runs before its inputs exist.
	ErrNotComputed = errors.New("results not computed")
)

// Options controls one run of the rate pipeline.
type Options struct {
	// Mask zeroes rate points covered by too few trials.
	Mask bool
	// Divisor is "per_window" (trial-count curve) or "uniform" (trials in
	// the condition).
	Divisor string
}

// OptionsFromConfig returns the rate options named by cfg.
func OptionsFromConfig(cfg *config.AnalysisConfig) Options {
	return Options{Mask: cfg.GetMaskRate(), Divisor: cfg.GetRateDivisor()}
}

// ConditionResult is everything computed for one condition group.
type ConditionResult struct {
	Name   string
	Filter condition.Filter

	Trials      int
	Onsets      []float64
	TrialCounts []int

	Rate         []float64
	BaselineRate []float64
	// BaselineOK is false when the baseline window averaged to zero and
	// BaselineRate holds the unscaled rate.
	BaselineOK bool
	// NullRate is nil until NormalizeToNullCondition runs.
	NullRate []float64
}

// Analysis is the per-subject driver. Its only state is the results computed
// so far; methods are meant to be called in sequence from one goroutine.
type Analysis struct {
	SubjectID string

	trials trial.Table
	cfg    *config.AnalysisConfig
	log    *zap.Logger
	axis   rate.Axis

	results       map[string]*ConditionResult
	nullCondition string
	metrics       []dip.Record
	errorSize     *errorsize.Result
}

// NewAnalysis prepares an analysis of trials for one subject. cfg must be
// valid; a nil cfg uses the built-in defaults and a nil logger discards logs.
func NewAnalysis(subjectID string, trials trial.Table, cfg *config.AnalysisConfig, log *zap.Logger) (*Analysis, error) {
	if cfg == nil {
		cfg = config.EmptyAnalysisConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}
	axis, err := rate.NewAxis(cfg.GetWindowStart(), cfg.GetWindowEnd())
	if err != nil {
		return nil, err
	}
	return &Analysis{
		SubjectID: subjectID,
		trials:    trials,
		cfg:       cfg,
		log:       monitoring.OrNop(log).With(zap.String("subject", subjectID)),
		axis:      axis,
		results:   make(map[string]*ConditionResult),
	}, nil
}

// Axis returns the time axis every curve is defined on.
func (a *Analysis) Axis() rate.Axis { return a.axis }

// Config returns the analysis parameters.
func (a *Analysis) Config() *config.AnalysisConfig { return a.cfg }

// Result returns the results for a condition name.
func (a *Analysis) Result(name string) (*ConditionResult, bool) {
	r, ok := a.results[name]
	return r, ok
}

// Conditions returns the names with results, in condition.Filters() order.
func (a *Analysis) Conditions() []string {
	var names []string
	for _, name := range condition.Names() {
		if _, ok := a.results[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Metrics returns the records produced by the last RunMetricsPipeline.
func (a *Analysis) Metrics() []dip.Record { return a.metrics }

// NullCondition returns the condition the null-normalized rates were divided
// by, or "" if NormalizeToNullCondition has not run.
func (a *Analysis) NullCondition() string { return a.nullCondition }

// RunRatePipeline computes, for every condition group, the onsets, the
// trial-count curve, the causal rate and its baseline-normalized form.
// Previous results are replaced.
func (a *Analysis) RunRatePipeline(opts Options) error {
	if opts.Divisor != config.DivisorPerWindow && opts.Divisor != config.DivisorUniform {
		return fmt.Errorf("%w %q: use %q (default) or %q",
			ErrUnknownDivisor, opts.Divisor, config.DivisorPerWindow, config.DivisorUniform)
	}

	results := make(map[string]*ConditionResult, len(condition.Filters()))
	for _, f := range condition.Filters() {
		subset, name := f.Apply(a.trials)
		res := &ConditionResult{
			Name:        name,
			Filter:      f,
			Trials:      len(subset),
			Onsets:      subset.Onsets(),
			TrialCounts: rate.TrialCounts(subset, a.axis),
		}

		divisor := rate.PerPoint(res.TrialCounts)
		if opts.Divisor == config.DivisorUniform {
			divisor = rate.Uniform(res.Trials)
		}
		curve, err := rate.Causal(res.Onsets, a.axis, divisor, a.cfg.GetAlpha())
		if err != nil {
			return fmt.Errorf("condition %s: %w", name, err)
		}
		if opts.Mask {
			if curve, err = rate.Mask(curve, res.TrialCounts, a.cfg.GetMinimumNCutoff()); err != nil {
				return fmt.Errorf("condition %s: %w", name, err)
			}
		}
		res.Rate = curve

		res.BaselineRate, err = rate.NormalizeBaseline(a.axis, curve, a.cfg.GetTimeWindowForBaseline())
		switch {
		case errors.Is(err, rate.ErrZeroBaseline):
			a.log.Debug("baseline is zero, rate left unscaled", zap.String("condition", name))
		case err != nil:
			return fmt.Errorf("condition %s: %w", name, err)
		default:
			res.BaselineOK = true
		}

		if res.Trials == 0 {
			a.log.Debug("condition has no trials", zap.String("condition", name))
		}
		results[name] = res
	}

	a.results = results
	a.nullCondition = ""
	a.log.Debug("rate pipeline complete",
		zap.Int("trials", len(a.trials)),
		zap.Bool("mask", opts.Mask),
		zap.String("divisor", opts.Divisor))
	return nil
}

// NormalizeToNullCondition divides every condition's rate by the rate of the
// named condition, with null values at or below 1 clamped to 1. The stored
// rate of the null condition itself is left untouched.
func (a *Analysis) NormalizeToNullCondition(name string) error {
	if len(a.results) == 0 {
		return fmt.Errorf("%w: run the rate pipeline first", ErrNotComputed)
	}
	null, ok := a.results[name]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownCondition, name)
	}
	for _, key := range a.Conditions() {
		res := a.results[key]
		denominator := make([]float64, len(null.Rate))
		copy(denominator, null.Rate)
		normalized, err := rate.NormalizeNull(res.Rate, denominator)
		if err != nil {
			return fmt.Errorf("condition %s: %w", key, err)
		}
		res.NullRate = normalized
	}
	a.nullCondition = name
	return nil
}

// Curve returns the curve of a condition under the given normalization.
func (r *ConditionResult) Curve(n rate.Normalization) ([]float64, error) {
	switch n {
	case rate.NormalizeNullCondition:
		if r.NullRate == nil {
			return nil, fmt.Errorf("%w: null-normalized rate of %s", ErrNotComputed, r.Name)
		}
		return r.NullRate, nil
	case rate.NormalizeToBaseline:
		return r.BaselineRate, nil
	case rate.NormalizeNone:
		return r.Rate, nil
	default:
		return nil, fmt.Errorf("%w %q", rate.ErrUnknownNormalization, n)
	}
}

// RunMetricsPipeline extracts one dip record per condition, in
// condition.Filters() order, from the curves of the given normalization
// restricted to the configured search window. A missing latency is logged and
// recorded with LatencyOK false; it does not fail the run.
func (a *Analysis) RunMetricsPipeline(n rate.Normalization) ([]dip.Record, error) {
	if _, err := rate.ParseNormalization(string(n)); err != nil {
		return nil, err
	}
	if len(a.results) == 0 {
		return nil, fmt.Errorf("%w: run the rate pipeline first", ErrNotComputed)
	}
	lo, hi, err := a.axis.Span(a.cfg.GetMetricsSearchStart(), a.cfg.GetMetricsSearchEnd())
	if err != nil {
		return nil, fmt.Errorf("metrics search window: %w", err)
	}
	times := a.axis.Times()[lo:hi]

	records := make([]dip.Record, 0, len(a.results))
	for _, name := range a.Conditions() {
		res := a.results[name]
		curve, err := res.Curve(n)
		if err != nil {
			return nil, err
		}
		rec, err := dip.Extract(curve[lo:hi], times)
		switch {
		case errors.Is(err, dip.ErrLatencyUnavailable):
			a.log.Warn("missing latency",
				zap.String("condition", name),
				zap.String("normalization", string(n)),
				zap.Float64("minimum", rec.Minimum))
		case err != nil:
			return nil, fmt.Errorf("condition %s: %w", name, err)
		}
		rec.Condition = name
		rec.FlashShown, rec.StimJumped = res.Filter.Flags()
		records = append(records, rec)
	}
	a.metrics = records
	return records, nil
}

// Run executes the configured sequence: rate pipeline, null normalization
// when requested, then metrics.
func (a *Analysis) Run() ([]dip.Record, error) {
	n, err := rate.ParseNormalization(a.cfg.GetNormalization())
	if err != nil {
		return nil, err
	}
	if err := a.RunRatePipeline(OptionsFromConfig(a.cfg)); err != nil {
		return nil, err
	}
	if n == rate.NormalizeNullCondition {
		if err := a.NormalizeToNullCondition(a.cfg.GetNullCondition()); err != nil {
			return nil, err
		}
	}
	return a.RunMetricsPipeline(n)
}

// RunErrorSize computes the touch error-size curves of the subject's trials
// in the given units.
func (a *Analysis) RunErrorSize(unit string) errorsize.Result {
	res := errorsize.Analyze(a.log, a.trials, a.cfg.GetErrorSmoothing(), unit)
	a.errorSize = &res
	return res
}

// ErrorSize returns the last error-size result, if any.
func (a *Analysis) ErrorSize() (errorsize.Result, bool) {
	if a.errorSize == nil {
		return errorsize.Result{}, false
	}
	return *a.errorSize, true
}
