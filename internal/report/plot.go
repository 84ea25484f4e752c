// Package report renders rate and error curves as PNG plots and interactive
// HTML charts.
package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/inhibition.report/internal/errorsize"
	"github.com/banshee-data/inhibition.report/internal/rate"
	"github.com/banshee-data/inhibition.report/internal/security"
	"github.com/banshee-data/inhibition.report/internal/subject"
	"github.com/banshee-data/inhibition.report/internal/trial"
)

// PlottedConditions are the conditions drawn on every chart.
var PlottedConditions = []string{
	trial.NoFlashNoShift,
	trial.NoFlashShift,
	trial.FlashNoShift,
	trial.FlashShift,
}

var yLabels = map[rate.Normalization]string{
	rate.NormalizeNone:          "Rate (1/s)",
	rate.NormalizeToBaseline:    "Rate / baseline",
	rate.NormalizeNullCondition: "Rate / null condition",
}

// points pairs times with values, dropping non-finite values.
func points(times []int, values []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(times[i]), Y: v})
	}
	return pts
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	p.Add(plotter.NewGrid())
	return p
}

func addLine(p *plot.Plot, label string, pts plotter.XYs, c color.Color) error {
	if len(pts) == 0 {
		return nil
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(label, line)
	return nil
}

// PlotRates writes a PNG of the subject's rate curves under normalization n
// into dir and returns the file path.
func PlotRates(dir string, a *subject.Analysis, n rate.Normalization) (string, error) {
	p := newPlot(
		fmt.Sprintf("Subject %s - movement rate (%s)", a.SubjectID, n),
		"Time from flash (ms)",
		yLabels[n],
	)
	times := a.Axis().Times()
	colors := generateColors(len(PlottedConditions))
	for i, name := range PlottedConditions {
		res, ok := a.Result(name)
		if !ok {
			continue
		}
		curve, err := res.Curve(n)
		if err != nil {
			return "", err
		}
		if err := addLine(p, fmt.Sprintf("%s (n=%d)", name, res.Trials), points(times, curve), colors[i]); err != nil {
			return "", err
		}
	}

	path, err := security.OutputPath(dir, fmt.Sprintf("%s_rate_%s.png", a.SubjectID, n))
	if err != nil {
		return "", err
	}
	if err := save(p, path); err != nil {
		return "", fmt.Errorf("save rate plot: %w", err)
	}
	return path, nil
}

// PlotErrorSize writes a PNG of the moving-average touch error to the
// original dot for each condition and returns the file path.
func PlotErrorSize(dir, subjectID string, res errorsize.Result, unit string) (string, error) {
	p := newPlot(
		fmt.Sprintf("Subject %s - touch error", subjectID),
		"Time from flash (ms)",
		fmt.Sprintf("Distance to dot (%s)", unit),
	)
	colors := generateColors(len(PlottedConditions))
	for i, name := range PlottedConditions {
		c, ok := res.Curves[name]
		if !ok {
			continue
		}
		label := fmt.Sprintf("%s (n=%d)", name, res.Samples[name])
		if err := addLine(p, label, points(c.Times, c.Original), colors[i]); err != nil {
			return "", err
		}
	}
	if !math.IsNaN(res.Baseline) {
		base := plotter.XYs{{X: errorsize.CurveStart, Y: res.Baseline}, {X: errorsize.CurveEnd - 1, Y: res.Baseline}}
		if err := addLine(p, "baseline", base, plotter.DefaultLineStyle.Color); err != nil {
			return "", err
		}
	}

	path, err := security.OutputPath(dir, fmt.Sprintf("%s_error_size.png", subjectID))
	if err != nil {
		return "", err
	}
	if err := save(p, path); err != nil {
		return "", fmt.Errorf("save error plot: %w", err)
	}
	return path, nil
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}
