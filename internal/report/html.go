package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/inhibition.report/internal/rate"
	"github.com/banshee-data/inhibition.report/internal/security"
	"github.com/banshee-data/inhibition.report/internal/subject"
)

// rateChart builds an interactive line chart of every plotted condition.
func rateChart(a *subject.Analysis, n rate.Normalization) (*charts.Line, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: fmt.Sprintf("Subject %s", a.SubjectID),
			Width:     "1200px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Movement rate - %s", a.SubjectID),
			Subtitle: fmt.Sprintf("normalization=%s", n),
		}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time from flash (ms)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: yLabels[n]}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
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
			return nil, err
		}
		pts := points(times, curve)
		items := make([]opts.LineData, 0, len(pts))
		for _, pt := range pts {
			items = append(items, opts.LineData{Value: []interface{}{pt.X, pt.Y}})
		}
		line.AddSeries(name, items,
			charts.WithLineStyleOpts(opts.LineStyle{Width: 1, Color: hexColor(colors[i])}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(colors[i])}),
		)
	}
	return line, nil
}

// RenderRates writes an HTML page with one rate chart per normalization.
func RenderRates(w io.Writer, a *subject.Analysis, normalizations ...rate.Normalization) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Subject %s", a.SubjectID)
	for _, n := range normalizations {
		line, err := rateChart(a, n)
		if err != nil {
			return err
		}
		page.AddCharts(line)
	}
	return page.Render(w)
}

// WriteRatesHTML renders RenderRates into dir and returns the file path.
func WriteRatesHTML(dir string, a *subject.Analysis, normalizations ...rate.Normalization) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path, err := security.OutputPath(dir, fmt.Sprintf("%s_rates.html", a.SubjectID))
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := RenderRates(f, a, normalizations...); err != nil {
		f.Close()
		return "", fmt.Errorf("render rates: %w", err)
	}
	return path, f.Close()
}
