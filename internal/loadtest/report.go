package loadtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// AggregatedName is the roll-up row every stats export carries, matching the
// name the comparator joins summary rows on.
const AggregatedName = "Aggregated"

// StatsColumns is the fixed column set of the stats interchange CSV. Latency
// values are milliseconds.
var StatsColumns = []string{
	"Name",
	"Request Count",
	"Failure Count",
	"Median Response Time",
	"Average Response Time",
	"Min Response Time",
	"Max Response Time",
	"90%",
	"95%",
	"99%",
	"Requests/s",
}

// Report accumulates framework metrics per query name plus the aggregate.
type Report struct {
	mu         sync.Mutex
	PerQuery   map[string]*vegeta.Metrics
	Aggregated *vegeta.Metrics
}

// NewReport returns an empty report
func NewReport() *Report {
	return &Report{
		PerQuery:   make(map[string]*vegeta.Metrics),
		Aggregated: &vegeta.Metrics{},
	}
}

func (r *Report) metricsFor(name string) *vegeta.Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.PerQuery[name]
	if !ok {
		m = &vegeta.Metrics{}
		r.PerQuery[name] = m
	}
	return m
}

// Close finalizes all metrics; call once after the last result was added
func (r *Report) Close() {
	for _, m := range r.PerQuery {
		m.Close()
	}
	r.Aggregated.Close()
}

// Names returns the per-query row names in stable sorted order
func (r *Report) Names() []string {
	names := make([]string, 0, len(r.PerQuery))
	for name := range r.PerQuery {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func failureCount(m *vegeta.Metrics) uint64 {
	return m.Requests - uint64(math.Round(float64(m.Requests)*m.Success))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func statsRow(name string, m *vegeta.Metrics) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	return []string{
		name,
		strconv.FormatUint(m.Requests, 10),
		strconv.FormatUint(failureCount(m), 10),
		f(ms(m.Latencies.P50)),
		f(ms(m.Latencies.Mean)),
		f(ms(m.Latencies.Min)),
		f(ms(m.Latencies.Max)),
		f(ms(m.Latencies.P90)),
		f(ms(m.Latencies.P95)),
		f(ms(m.Latencies.P99)),
		f(m.Rate),
	}
}

// WriteCSV exports the stats table: one row per query, Aggregated last
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StatsColumns); err != nil {
		return err
	}
	for _, name := range r.Names() {
		if err := cw.Write(statsRow(name, r.PerQuery[name])); err != nil {
			return err
		}
	}
	if err := cw.Write(statsRow(AggregatedName, r.Aggregated)); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// Summary prints a fixed-width results table
func (r *Report) Summary(w io.Writer) {
	fmt.Fprintln(w, "================================================================================")
	fmt.Fprintln(w, "LOAD TEST SUMMARY")
	fmt.Fprintln(w, "================================================================================")
	fmt.Fprintf(w, "%-45s | %8s | %6s | %10s | %10s | %8s\n",
		"Query", "Reqs", "Fails", "p50 (ms)", "p99 (ms)", "Req/s")
	fmt.Fprintln(w, "--------------------------------------------------------------------------------")

	rows := r.Names()
	rows = append(rows, AggregatedName)
	for _, name := range rows {
		m := r.Aggregated
		if name != AggregatedName {
			m = r.PerQuery[name]
		}
		display := name
		if len(display) > 45 {
			display = display[:45]
		}
		fmt.Fprintf(w, "%-45s | %8d | %6d | %10.2f | %10.2f | %8.2f\n",
			display, m.Requests, failureCount(m),
			ms(m.Latencies.P50), ms(m.Latencies.P99), m.Rate)
	}
	fmt.Fprintln(w, "================================================================================")
}
