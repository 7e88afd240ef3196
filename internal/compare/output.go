package compare

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/searchperf/querybench/internal/loadtest"
)

const changeNA = "N/A"

func formatChange(d MetricDelta) string {
	if !d.Valid {
		return changeNA
	}
	return fmt.Sprintf("%.2f%%", d.Change)
}

func formatImprovement(r Row) string {
	if r.Winner == "Equal" {
		return "Same performance"
	}
	return fmt.Sprintf("%.2f%% faster", r.Improvement)
}

// header builds the merged CSV column set for the configured side labels
func (c *Comparison) header() []string {
	b, v := c.BaselineLabel, c.VariantLabel
	cols := []string{"Query Name", "Query", "Better Performance", "Performance Improvement"}
	cols = append(cols, b+" Request Count", v+" Request Count")
	for _, metric := range []string{"Median (ms)", "Average (ms)", "Min (ms)", "Max (ms)", "95% (ms)", "99% (ms)", "Requests/s"} {
		cols = append(cols, b+" "+metric, v+" "+metric, strings.TrimSuffix(metric, " (ms)")+" Change")
	}
	cols = append(cols, b+" Failures", v+" Failures")
	return cols
}

func (c *Comparison) record(r Row) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	queryText := r.QueryText
	if queryText == "" {
		queryText = changeNA
	}
	rec := []string{r.Name, queryText, r.Winner, formatImprovement(r)}
	rec = append(rec,
		strconv.FormatInt(r.BaselineRequests, 10),
		strconv.FormatInt(r.VariantRequests, 10),
	)
	for _, d := range []MetricDelta{r.Median, r.Average, r.Min, r.Max, r.P95, r.P99, r.RPS} {
		rec = append(rec, f(d.Baseline), f(d.Variant), formatChange(d))
	}
	rec = append(rec,
		strconv.FormatInt(r.BaselineFailures, 10),
		strconv.FormatInt(r.VariantFailures, 10),
	)
	return rec
}

// WriteCSV writes the merged comparison, per-query rows first, the
// aggregated roll-up last.
func (c *Comparison) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(c.header()); err != nil {
		return err
	}
	for _, row := range c.Rows {
		if err := cw.Write(c.record(row)); err != nil {
			return err
		}
	}
	if c.Aggregated != nil {
		if err := cw.Write(c.record(*c.Aggregated)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the merged comparison to a file
func (c *Comparison) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Summary prints win counts, mean per-metric deltas and the aggregated rows
func (c *Comparison) Summary(w io.Writer) {
	fmt.Fprintln(w, "================================================================================")
	fmt.Fprintf(w, "PERFORMANCE COMPARISON: %s vs %s\n", c.BaselineLabel, c.VariantLabel)
	fmt.Fprintln(w, "================================================================================")
	fmt.Fprintf(w, "Queries compared: %d\n", len(c.Rows))
	if len(c.Mismatched) > 0 {
		fmt.Fprintf(w, "Unmatched rows (excluded from aggregates): %v\n", c.Mismatched)
	}

	wins := c.WinCounts()
	fmt.Fprintf(w, "\nWin counts (lower median):\n")
	fmt.Fprintf(w, "  %-20s %d\n", c.BaselineLabel+":", wins[c.BaselineLabel])
	fmt.Fprintf(w, "  %-20s %d\n", c.VariantLabel+":", wins[c.VariantLabel])
	if wins["Equal"] > 0 {
		fmt.Fprintf(w, "  %-20s %d\n", "Equal:", wins["Equal"])
	}

	fmt.Fprintf(w, "\nMean change (%s relative to %s):\n", c.VariantLabel, c.BaselineLabel)
	metrics := []struct {
		name string
		get  func(Row) MetricDelta
	}{
		{"Median", func(r Row) MetricDelta { return r.Median }},
		{"Average", func(r Row) MetricDelta { return r.Average }},
		{"95th percentile", func(r Row) MetricDelta { return r.P95 }},
		{"99th percentile", func(r Row) MetricDelta { return r.P99 }},
		{"Requests/s", func(r Row) MetricDelta { return r.RPS }},
	}
	for _, m := range metrics {
		if mean, ok := c.MeanChange(m.get); ok {
			fmt.Fprintf(w, "  %-20s %+.2f%%\n", m.name+":", mean)
		}
	}

	if agg := c.Aggregated; agg != nil {
		fmt.Fprintln(w, "\nAggregated results:")
		fmt.Fprintf(w, "  Median:     %.2f ms -> %.2f ms (%s)\n", agg.Median.Baseline, agg.Median.Variant, formatChange(agg.Median))
		fmt.Fprintf(w, "  Average:    %.2f ms -> %.2f ms (%s)\n", agg.Average.Baseline, agg.Average.Variant, formatChange(agg.Average))
		fmt.Fprintf(w, "  Requests:   %d -> %d\n", agg.BaselineRequests, agg.VariantRequests)
		fmt.Fprintf(w, "  Requests/s: %.2f -> %.2f (%s)\n", agg.RPS.Baseline, agg.RPS.Variant, formatChange(agg.RPS))
	}
	fmt.Fprintln(w, "================================================================================")
}

// ReadComparison loads a previously written comparison CSV. The side labels
// are recovered from the header.
func ReadComparison(path string) (*Comparison, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := parseComparison(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func parseComparison(r io.Reader) (*Comparison, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	// The 5th column is "<baseline label> Request Count"
	if len(header) < 6 || !strings.HasSuffix(header[4], " Request Count") || !strings.HasSuffix(header[5], " Request Count") {
		return nil, fmt.Errorf("not a comparison CSV: unexpected header")
	}
	c := &Comparison{
		BaselineLabel: strings.TrimSuffix(header[4], " Request Count"),
		VariantLabel:  strings.TrimSuffix(header[5], " Request Count"),
	}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		get := func(name string) (string, error) {
			i, ok := col[name]
			if !ok {
				return "", fmt.Errorf("line %d: missing column %q", line, name)
			}
			return record[i], nil
		}
		num := func(name string) (float64, error) {
			s, err := get(name)
			if err != nil {
				return 0, err
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, fmt.Errorf("line %d: column %q: %w", line, name, err)
			}
			return v, nil
		}
		metric := func(name string) (MetricDelta, error) {
			b, err := num(c.BaselineLabel + " " + name)
			if err != nil {
				return MetricDelta{}, err
			}
			v, err := num(c.VariantLabel + " " + name)
			if err != nil {
				return MetricDelta{}, err
			}
			return delta(b, v), nil
		}

		row := Row{}
		if row.Name, err = get("Query Name"); err != nil {
			return nil, err
		}
		if row.QueryText, err = get("Query"); err != nil {
			return nil, err
		}
		if row.QueryText == changeNA {
			row.QueryText = ""
		}
		if row.Winner, err = get("Better Performance"); err != nil {
			return nil, err
		}
		if imp, err := get("Performance Improvement"); err == nil {
			if v, perr := strconv.ParseFloat(strings.TrimSuffix(imp, "% faster"), 64); perr == nil {
				row.Improvement = v
			}
		}

		if row.Median, err = metric("Median (ms)"); err != nil {
			return nil, err
		}
		if row.Average, err = metric("Average (ms)"); err != nil {
			return nil, err
		}
		if row.Min, err = metric("Min (ms)"); err != nil {
			return nil, err
		}
		if row.Max, err = metric("Max (ms)"); err != nil {
			return nil, err
		}
		if row.P95, err = metric("95% (ms)"); err != nil {
			return nil, err
		}
		if row.P99, err = metric("99% (ms)"); err != nil {
			return nil, err
		}
		if row.RPS, err = metric("Requests/s"); err != nil {
			return nil, err
		}

		breqs, err := num(c.BaselineLabel + " Request Count")
		if err != nil {
			return nil, err
		}
		vreqs, err := num(c.VariantLabel + " Request Count")
		if err != nil {
			return nil, err
		}
		bfails, err := num(c.BaselineLabel + " Failures")
		if err != nil {
			return nil, err
		}
		vfails, err := num(c.VariantLabel + " Failures")
		if err != nil {
			return nil, err
		}
		row.BaselineRequests, row.VariantRequests = int64(breqs), int64(vreqs)
		row.BaselineFailures, row.VariantFailures = int64(bfails), int64(vfails)

		if row.Name == loadtest.AggregatedName {
			agg := row
			c.Aggregated = &agg
			continue
		}
		c.Rows = append(c.Rows, row)
	}

	if len(c.Rows) == 0 && c.Aggregated == nil {
		return nil, fmt.Errorf("no data rows")
	}
	return c, nil
}
