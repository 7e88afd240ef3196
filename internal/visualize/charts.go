package visualize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/searchperf/querybench/internal/compare"
)

// Chart file names, one PNG per chart type.
const (
	ChartMedian      = "median_comparison.png"
	ChartP95         = "p95_comparison.png"
	ChartP99         = "p99_comparison.png"
	ChartImprovement = "performance_improvement.png"
	ChartRPS         = "requests_per_second.png"
	ChartWinners     = "winner_summary.png"
	ChartAggregated  = "aggregated_summary.png"
)

// ChartFiles lists every chart a full render produces.
var ChartFiles = []string{
	ChartMedian,
	ChartP95,
	ChartP99,
	ChartImprovement,
	ChartRPS,
	ChartWinners,
	ChartAggregated,
}

const (
	chartWidth  = 14 * vg.Inch
	chartHeight = 7 * vg.Inch
)

var barWidth = vg.Points(12)

// Renderer draws the fixed chart set for one comparison. Pure presentation;
// it never modifies the comparison.
type Renderer struct {
	cmp    *compare.Comparison
	outDir string
	logger zerolog.Logger
}

// NewRenderer prepares a renderer writing PNGs into outDir
func NewRenderer(cmp *compare.Comparison, outDir string, logger zerolog.Logger) *Renderer {
	return &Renderer{cmp: cmp, outDir: outDir, logger: logger}
}

// RenderAll draws every chart type and returns the written paths
func (r *Renderer) RenderAll() ([]string, error) {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating chart directory: %w", err)
	}

	charts := []struct {
		file string
		draw func() (*plot.Plot, error)
	}{
		{ChartMedian, func() (*plot.Plot, error) {
			return r.grouped("Median Response Time (lower is better)", "Median (ms)",
				func(row compare.Row) compare.MetricDelta { return row.Median })
		}},
		{ChartP95, func() (*plot.Plot, error) {
			return r.grouped("95th Percentile Response Time (lower is better)", "p95 (ms)",
				func(row compare.Row) compare.MetricDelta { return row.P95 })
		}},
		{ChartP99, func() (*plot.Plot, error) {
			return r.grouped("99th Percentile Response Time (lower is better)", "p99 (ms)",
				func(row compare.Row) compare.MetricDelta { return row.P99 })
		}},
		{ChartRPS, func() (*plot.Plot, error) {
			return r.grouped("Throughput (higher is better)", "Requests/s",
				func(row compare.Row) compare.MetricDelta { return row.RPS })
		}},
		{ChartImprovement, r.improvement},
		{ChartWinners, r.winners},
		{ChartAggregated, r.aggregated},
	}

	written := make([]string, 0, len(charts))
	for _, ch := range charts {
		p, err := ch.draw()
		if err != nil {
			return written, fmt.Errorf("%s: %w", ch.file, err)
		}
		path := filepath.Join(r.outDir, ch.file)
		if err := p.Save(chartWidth, chartHeight, path); err != nil {
			return written, fmt.Errorf("saving %s: %w", ch.file, err)
		}
		r.logger.Info().Str("chart", ch.file).Msg("Saved chart")
		written = append(written, path)
	}
	return written, nil
}

// displayName shortens stat names for axis labels
func displayName(name string) string {
	if i := strings.Index(name, ":"); i >= 0 {
		name = strings.TrimSpace(name[i+1:])
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func (r *Renderer) names() []string {
	names := make([]string, len(r.cmp.Rows))
	for i, row := range r.cmp.Rows {
		names[i] = displayName(row.Name)
	}
	return names
}

// grouped draws side-by-side baseline/variant bars, one pair per query
func (r *Renderer) grouped(title, yLabel string, metric func(compare.Row) compare.MetricDelta) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel
	p.X.Tick.Label.Rotation = -0.9
	p.X.Tick.Label.XAlign = -0.8

	baseVals := make(plotter.Values, len(r.cmp.Rows))
	varVals := make(plotter.Values, len(r.cmp.Rows))
	for i, row := range r.cmp.Rows {
		d := metric(row)
		baseVals[i] = d.Baseline
		varVals[i] = d.Variant
	}

	baseBars, err := plotter.NewBarChart(baseVals, barWidth)
	if err != nil {
		return nil, err
	}
	baseBars.Color = plotutil.Color(0)
	baseBars.LineStyle.Width = 0
	baseBars.Offset = -barWidth / 2

	varBars, err := plotter.NewBarChart(varVals, barWidth)
	if err != nil {
		return nil, err
	}
	varBars.Color = plotutil.Color(1)
	varBars.LineStyle.Width = 0
	varBars.Offset = barWidth / 2

	p.Add(baseBars, varBars)
	p.Legend.Add(r.cmp.BaselineLabel, baseBars)
	p.Legend.Add(r.cmp.VariantLabel, varBars)
	p.Legend.Top = true
	p.NominalX(r.names()...)
	return p, nil
}

// improvement draws signed winner-margin bars: negative when the variant is
// faster, positive when the baseline is.
func (r *Renderer) improvement() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Median Improvement per Query (%s negative / %s positive)",
		r.cmp.VariantLabel, r.cmp.BaselineLabel)
	p.Y.Label.Text = "Improvement (%)"
	p.X.Tick.Label.Rotation = -0.9
	p.X.Tick.Label.XAlign = -0.8

	vals := make(plotter.Values, len(r.cmp.Rows))
	for i, row := range r.cmp.Rows {
		switch row.Winner {
		case r.cmp.VariantLabel:
			vals[i] = -row.Improvement
		case r.cmp.BaselineLabel:
			vals[i] = row.Improvement
		}
	}

	bars, err := plotter.NewBarChart(vals, barWidth)
	if err != nil {
		return nil, err
	}
	bars.Color = plotutil.Color(2)
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalX(r.names()...)
	return p, nil
}

// winners draws the win-count summary
func (r *Renderer) winners() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Which Performs Better? (count of queries, lower median wins)"
	p.Y.Label.Text = "Queries won"

	wins := r.cmp.WinCounts()
	labels := []string{r.cmp.BaselineLabel, r.cmp.VariantLabel}
	vals := plotter.Values{float64(wins[r.cmp.BaselineLabel]), float64(wins[r.cmp.VariantLabel])}
	if wins["Equal"] > 0 {
		labels = append(labels, "Equal")
		vals = append(vals, float64(wins["Equal"]))
	}

	bars, err := plotter.NewBarChart(vals, 4*barWidth)
	if err != nil {
		return nil, err
	}
	bars.Color = plotutil.Color(3)
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalX(labels...)
	return p, nil
}

// aggregated draws the roll-up row's latency metrics side by side. Falls back
// to per-row means when the inputs carried no aggregated row.
func (r *Renderer) aggregated() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Overall Performance Summary (aggregated results)"
	p.Y.Label.Text = "Latency (ms)"

	metrics := []struct {
		name string
		get  func(compare.Row) compare.MetricDelta
	}{
		{"Median", func(row compare.Row) compare.MetricDelta { return row.Median }},
		{"Average", func(row compare.Row) compare.MetricDelta { return row.Average }},
		{"p95", func(row compare.Row) compare.MetricDelta { return row.P95 }},
		{"p99", func(row compare.Row) compare.MetricDelta { return row.P99 }},
	}

	baseVals := make(plotter.Values, len(metrics))
	varVals := make(plotter.Values, len(metrics))
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = m.name
		if r.cmp.Aggregated != nil {
			d := m.get(*r.cmp.Aggregated)
			baseVals[i] = d.Baseline
			varVals[i] = d.Variant
			continue
		}
		for _, row := range r.cmp.Rows {
			d := m.get(row)
			baseVals[i] += d.Baseline / float64(len(r.cmp.Rows))
			varVals[i] += d.Variant / float64(len(r.cmp.Rows))
		}
	}

	baseBars, err := plotter.NewBarChart(baseVals, 3*barWidth)
	if err != nil {
		return nil, err
	}
	baseBars.Color = plotutil.Color(0)
	baseBars.LineStyle.Width = 0
	baseBars.Offset = -1.5 * barWidth

	varBars, err := plotter.NewBarChart(varVals, 3*barWidth)
	if err != nil {
		return nil, err
	}
	varBars.Color = plotutil.Color(1)
	varBars.LineStyle.Width = 0
	varBars.Offset = 1.5 * barWidth

	p.Add(baseBars, varBars)
	p.Legend.Add(r.cmp.BaselineLabel, baseBars)
	p.Legend.Add(r.cmp.VariantLabel, varBars)
	p.Legend.Top = true
	p.NominalX(names...)
	return p, nil
}
