package compare

import (
	"errors"
	"fmt"
	"sort"

	"github.com/searchperf/querybench/internal/loadtest"
	"github.com/searchperf/querybench/internal/queries"
)

// ErrRowMismatch reports query names present in only one of the two inputs.
// The comparison is still produced for the joined rows; mismatched names are
// excluded from every aggregate.
var ErrRowMismatch = errors.New("query name present in only one input")

// Options label the two sides and optionally enrich rows with query text.
type Options struct {
	BaselineLabel string
	VariantLabel  string
	Queries       []queries.Query // Loaded store for text lookup; nil skips enrichment
}

// MetricDelta is one metric compared across the two sides. Change is the
// percentage change from baseline to variant; Valid is false when the
// baseline value is zero.
type MetricDelta struct {
	Baseline float64
	Variant  float64
	Change   float64
	Valid    bool
}

func delta(baseline, variant float64) MetricDelta {
	d := MetricDelta{Baseline: baseline, Variant: variant}
	if baseline != 0 {
		d.Change = (variant - baseline) / baseline * 100
		d.Valid = true
	}
	return d
}

// Row is one joined comparison record.
type Row struct {
	Name        string
	QueryText   string
	Winner      string  // Side label with the lower median, or "Equal"
	Improvement float64 // How much faster the winner's median is, percent of the loser's

	BaselineRequests int64
	VariantRequests  int64
	BaselineFailures int64
	VariantFailures  int64

	Median  MetricDelta
	Average MetricDelta
	Min     MetricDelta
	Max     MetricDelta
	P95     MetricDelta
	P99     MetricDelta
	RPS     MetricDelta
}

// Comparison is the full joined result.
type Comparison struct {
	BaselineLabel string
	VariantLabel  string
	Rows          []Row    // Sorted by name, Aggregated excluded
	Aggregated    *Row     // Present when both inputs carry the roll-up row
	Mismatched    []string // Names found on one side only
}

// Compare joins two stats exports by query name. The winner of each row is
// the side with the lower median latency.
func Compare(baseline, variant map[string]StatsRow, opts Options) (*Comparison, error) {
	if opts.BaselineLabel == "" {
		opts.BaselineLabel = "Baseline"
	}
	if opts.VariantLabel == "" {
		opts.VariantLabel = "Variant"
	}

	names := make(map[string]struct{}, len(baseline)+len(variant))
	for name := range baseline {
		names[name] = struct{}{}
	}
	for name := range variant {
		names[name] = struct{}{}
	}

	c := &Comparison{
		BaselineLabel: opts.BaselineLabel,
		VariantLabel:  opts.VariantLabel,
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	for _, name := range sorted {
		b, inBase := baseline[name]
		v, inVar := variant[name]
		if !inBase || !inVar {
			c.Mismatched = append(c.Mismatched, name)
			continue
		}

		row := Row{
			Name:             name,
			BaselineRequests: b.Requests,
			VariantRequests:  v.Requests,
			BaselineFailures: b.Failures,
			VariantFailures:  v.Failures,
			Median:           delta(b.Median, v.Median),
			Average:          delta(b.Average, v.Average),
			Min:              delta(b.Min, v.Min),
			Max:              delta(b.Max, v.Max),
			P95:              delta(b.P95, v.P95),
			P99:              delta(b.P99, v.P99),
			RPS:              delta(b.RPS, v.RPS),
		}

		switch {
		case v.Median < b.Median:
			row.Winner = opts.VariantLabel
			row.Improvement = (b.Median - v.Median) / b.Median * 100
		case b.Median < v.Median:
			row.Winner = opts.BaselineLabel
			row.Improvement = (v.Median - b.Median) / v.Median * 100
		default:
			row.Winner = "Equal"
		}

		if opts.Queries != nil {
			if q, ok := queries.Lookup(opts.Queries, name); ok {
				row.QueryText = q.Text
			}
		}

		if name == loadtest.AggregatedName {
			agg := row
			c.Aggregated = &agg
			continue
		}
		c.Rows = append(c.Rows, row)
	}

	if len(c.Rows) == 0 && c.Aggregated == nil {
		return nil, fmt.Errorf("no matching query names between the two inputs")
	}
	if len(c.Mismatched) > 0 {
		return c, fmt.Errorf("%w: %v", ErrRowMismatch, c.Mismatched)
	}
	return c, nil
}

// WinCounts tallies per-row winners keyed by side label
func (c *Comparison) WinCounts() map[string]int {
	wins := make(map[string]int)
	for _, row := range c.Rows {
		wins[row.Winner]++
	}
	return wins
}

// MeanChange averages the valid percentage changes of one metric across rows
func (c *Comparison) MeanChange(metric func(Row) MetricDelta) (float64, bool) {
	var sum float64
	var n int
	for _, row := range c.Rows {
		d := metric(row)
		if d.Valid {
			sum += d.Change
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
