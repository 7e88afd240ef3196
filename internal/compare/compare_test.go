package compare

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(name string, median float64) StatsRow {
	return StatsRow{
		Name:     name,
		Requests: 1000,
		Median:   median,
		Average:  median * 1.1,
		Min:      median * 0.5,
		Max:      median * 3,
		P95:      median * 1.8,
		P99:      median * 2.4,
		RPS:      25,
	}
}

func TestCompare_WinnerByLowerMedian(t *testing.T) {
	baseline := map[string]StatsRow{"vpc/01_count_all": row("vpc/01_count_all", 87)}
	variant := map[string]StatsRow{"vpc/01_count_all": row("vpc/01_count_all", 81)}

	c, err := Compare(baseline, variant, Options{})
	require.NoError(t, err)
	require.Len(t, c.Rows, 1)

	r := c.Rows[0]
	assert.Equal(t, "Variant", r.Winner)
	// 87ms -> 81ms is a 6.9% drop
	assert.InDelta(t, -6.9, r.Median.Change, 0.01)
	assert.InDelta(t, 6.9, r.Improvement, 0.01)
}

func TestCompare_Symmetry(t *testing.T) {
	a := map[string]StatsRow{"q": row("q", 120)}
	b := map[string]StatsRow{"q": row("q", 100)}

	forward, err := Compare(a, b, Options{BaselineLabel: "A", VariantLabel: "B"})
	require.NoError(t, err)
	reverse, err := Compare(b, a, Options{BaselineLabel: "B", VariantLabel: "A"})
	require.NoError(t, err)

	// Either direction picks the same winner with the same improvement.
	assert.Equal(t, "B", forward.Rows[0].Winner)
	assert.Equal(t, "B", reverse.Rows[0].Winner)
	assert.InDelta(t, forward.Rows[0].Improvement, reverse.Rows[0].Improvement, 1e-9)
}

func TestCompare_EqualMedians(t *testing.T) {
	a := map[string]StatsRow{"q": row("q", 50)}
	b := map[string]StatsRow{"q": row("q", 50)}

	c, err := Compare(a, b, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Equal", c.Rows[0].Winner)
	assert.Zero(t, c.Rows[0].Improvement)
}

func TestCompare_RowMismatch(t *testing.T) {
	baseline := map[string]StatsRow{
		"shared": row("shared", 10),
		"only_a": row("only_a", 20),
	}
	variant := map[string]StatsRow{
		"shared": row("shared", 12),
		"only_b": row("only_b", 30),
	}

	c, err := Compare(baseline, variant, Options{})
	require.ErrorIs(t, err, ErrRowMismatch)
	require.NotNil(t, c)
	assert.Len(t, c.Rows, 1)
	assert.ElementsMatch(t, []string{"only_a", "only_b"}, c.Mismatched)
}

func TestCompare_NoOverlap(t *testing.T) {
	baseline := map[string]StatsRow{"a": row("a", 10)}
	variant := map[string]StatsRow{"b": row("b", 10)}

	_, err := Compare(baseline, variant, Options{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRowMismatch)
}

func TestCompare_AggregatedSplitOut(t *testing.T) {
	baseline := map[string]StatsRow{
		"q":          row("q", 10),
		"Aggregated": row("Aggregated", 15),
	}
	variant := map[string]StatsRow{
		"q":          row("q", 11),
		"Aggregated": row("Aggregated", 14),
	}

	c, err := Compare(baseline, variant, Options{})
	require.NoError(t, err)
	assert.Len(t, c.Rows, 1)
	require.NotNil(t, c.Aggregated)
	assert.Equal(t, "Variant", c.Aggregated.Winner)
}

func TestDelta_ZeroBaseline(t *testing.T) {
	d := delta(0, 5)
	assert.False(t, d.Valid)
	assert.Zero(t, d.Change)
}

func TestWinCountsAndMeanChange(t *testing.T) {
	baseline := map[string]StatsRow{
		"q1": row("q1", 100),
		"q2": row("q2", 100),
		"q3": row("q3", 100),
	}
	variant := map[string]StatsRow{
		"q1": row("q1", 90),  // -10%
		"q2": row("q2", 110), // +10%
		"q3": row("q3", 80),  // -20%
	}

	c, err := Compare(baseline, variant, Options{BaselineLabel: "Old", VariantLabel: "New"})
	require.NoError(t, err)

	wins := c.WinCounts()
	assert.Equal(t, 2, wins["New"])
	assert.Equal(t, 1, wins["Old"])

	mean, ok := c.MeanChange(func(r Row) MetricDelta { return r.Median })
	require.True(t, ok)
	assert.InDelta(t, (-10+10-20)/3.0, mean, 1e-9)
}

func TestParseStats(t *testing.T) {
	csvData := strings.Join([]string{
		"Name,Request Count,Failure Count,Median Response Time,Average Response Time,Min Response Time,Max Response Time,90%,95%,99%,Requests/s",
		"PPL Query: vpc/01_count_all,1200,3,87,92.5,40,310,140,160,220,20.0",
		"Aggregated,1200,3,87,92.5,40,310,140,160,220,20.0",
	}, "\n")

	rows, order, err := parseStats(strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, []string{"PPL Query: vpc/01_count_all", "Aggregated"}, order)

	r := rows["PPL Query: vpc/01_count_all"]
	assert.Equal(t, int64(1200), r.Requests)
	assert.Equal(t, int64(3), r.Failures)
	assert.Equal(t, 87.0, r.Median)
	assert.Equal(t, 160.0, r.P95)
	assert.Equal(t, 20.0, r.RPS)
}

func TestParseStats_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing column", "Name,Request Count\nq,1"},
		{"bad number", "Name,Request Count,Failure Count,Median Response Time,Average Response Time,Min Response Time,Max Response Time,95%,99%,Requests/s\nq,1,0,abc,1,1,1,1,1,1"},
		{"no rows", "Name,Request Count,Failure Count,Median Response Time,Average Response Time,Min Response Time,Max Response Time,95%,99%,Requests/s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseStats(strings.NewReader(tt.data))
			require.Error(t, err)
		})
	}
}

func TestComparisonCSVRoundTrip(t *testing.T) {
	baseline := map[string]StatsRow{
		"PPL Query: vpc/01_count_all": row("PPL Query: vpc/01_count_all", 87),
		"PPL Query: nfw/02_drops":     row("PPL Query: nfw/02_drops", 45),
		"Aggregated":                  row("Aggregated", 66),
	}
	variant := map[string]StatsRow{
		"PPL Query: vpc/01_count_all": row("PPL Query: vpc/01_count_all", 81),
		"PPL Query: nfw/02_drops":     row("PPL Query: nfw/02_drops", 52),
		"Aggregated":                  row("Aggregated", 64),
	}

	c, err := Compare(baseline, variant, Options{BaselineLabel: "OS 2.11", VariantLabel: "OS 2.13"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.WriteCSV(&buf))

	back, err := parseComparison(&buf)
	require.NoError(t, err)
	assert.Equal(t, "OS 2.11", back.BaselineLabel)
	assert.Equal(t, "OS 2.13", back.VariantLabel)
	require.Len(t, back.Rows, 2)
	require.NotNil(t, back.Aggregated)

	for i, want := range c.Rows {
		got := back.Rows[i]
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Winner, got.Winner)
		assert.True(t, math.Abs(want.Median.Change-got.Median.Change) < 0.01)
		assert.Equal(t, want.BaselineRequests, got.BaselineRequests)
	}
}
