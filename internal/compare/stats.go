package compare

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// StatsRow is one parsed row of a stats export (Name plus the fixed latency
// and throughput columns, all latencies in milliseconds).
type StatsRow struct {
	Name     string
	Requests int64
	Failures int64
	Median   float64
	Average  float64
	Min      float64
	Max      float64
	P95      float64
	P99      float64
	RPS      float64
}

// requiredColumns must all be present for a stats file to be accepted.
var requiredColumns = []string{
	"Name",
	"Request Count",
	"Failure Count",
	"Median Response Time",
	"Average Response Time",
	"Min Response Time",
	"Max Response Time",
	"95%",
	"99%",
	"Requests/s",
}

// ReadStats loads a stats CSV keyed by query name. A malformed file or one
// missing required columns is rejected outright.
func ReadStats(path string) (map[string]StatsRow, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	rows, order, err := parseStats(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, order, nil
}

func parseStats(r io.Reader) (map[string]StatsRow, []string, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, nil, fmt.Errorf("missing required column %q", name)
		}
	}

	rows := make(map[string]StatsRow)
	var order []string
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}

		get := func(name string) string { return record[col[name]] }
		num := func(name string) (float64, error) {
			v, err := strconv.ParseFloat(get(name), 64)
			if err != nil {
				return 0, fmt.Errorf("line %d: column %q: %w", line, name, err)
			}
			return v, nil
		}

		row := StatsRow{Name: get("Name")}
		var parseErr error
		assign := func(dst *float64, name string) {
			if parseErr != nil {
				return
			}
			*dst, parseErr = num(name)
		}
		assign(&row.Median, "Median Response Time")
		assign(&row.Average, "Average Response Time")
		assign(&row.Min, "Min Response Time")
		assign(&row.Max, "Max Response Time")
		assign(&row.P95, "95%")
		assign(&row.P99, "99%")
		assign(&row.RPS, "Requests/s")
		if parseErr != nil {
			return nil, nil, parseErr
		}

		reqs, err := num("Request Count")
		if err != nil {
			return nil, nil, err
		}
		fails, err := num("Failure Count")
		if err != nil {
			return nil, nil, err
		}
		row.Requests = int64(reqs)
		row.Failures = int64(fails)

		rows[row.Name] = row
		order = append(order, row.Name)
	}

	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("no data rows")
	}
	return rows, order, nil
}
