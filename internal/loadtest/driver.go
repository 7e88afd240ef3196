package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	vegeta "github.com/tsenart/vegeta/v12/lib"

	"github.com/searchperf/querybench/internal/osclient"
	"github.com/searchperf/querybench/internal/queries"
)

// Options tune one load-test run. Scheduling, pacing, timeouts and statistics
// all belong to the load-generation framework; the driver only builds targets.
type Options struct {
	Rate     int           // Total requests per second across the whole query set
	Duration time.Duration // Attack duration
	Workers  int           // Initial framework workers per attack
}

// Plan is an immutable description of one run: the loaded query set plus the
// target cluster. Build it once, then Run it.
type Plan struct {
	queries  []queries.Query
	endpoint string
	client   *http.Client
	opts     Options
	logger   zerolog.Logger
}

// NewPlan validates the query set and prepares a run
func NewPlan(qs []queries.Query, cluster *osclient.Client, opts Options, logger zerolog.Logger) (*Plan, error) {
	if len(qs) == 0 {
		return nil, queries.ErrNoQueries
	}
	if opts.Rate <= 0 {
		return nil, fmt.Errorf("rate must be positive, got %d", opts.Rate)
	}
	if opts.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %s", opts.Duration)
	}
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	return &Plan{
		queries:  qs,
		endpoint: cluster.Endpoint(),
		client:   cluster.HTTPClient(),
		opts:     opts,
		logger:   logger,
	}, nil
}

// target builds the framework target for one query: PPL queries go to the
// plugin endpoint wrapped in a JSON envelope, DSL bodies go to the index's
// search endpoint.
func (p *Plan) target(q queries.Query) (vegeta.Target, error) {
	header := http.Header{"Content-Type": []string{"application/json"}}

	switch q.Language {
	case queries.LangPPL:
		body, err := json.Marshal(map[string]string{"query": q.Text})
		if err != nil {
			return vegeta.Target{}, fmt.Errorf("query %s: encoding PPL envelope: %w", q.Name, err)
		}
		return vegeta.Target{
			Method: http.MethodPost,
			URL:    p.endpoint + osclient.PPLPath,
			Body:   body,
			Header: header,
		}, nil
	case queries.LangDSL:
		return vegeta.Target{
			Method: http.MethodPost,
			URL:    p.endpoint + "/" + q.Index + "/_search",
			Body:   []byte(q.Text),
			Header: header,
		}, nil
	default:
		return vegeta.Target{}, fmt.Errorf("query %s: unsupported language %q", q.Name, q.Language)
	}
}

// Run executes one attack per query concurrently, all paced so the blended
// request rate matches Options.Rate. Each framework result is one observation;
// failures are recorded, never retried.
func (p *Plan) Run(ctx context.Context) (*Report, error) {
	report := NewReport()

	// Spreading the total rate across len(queries) attacks keeps per-query
	// pacing exact even when rate < len(queries).
	perQuery := vegeta.Rate{
		Freq: p.opts.Rate,
		Per:  time.Duration(len(p.queries)) * time.Second,
	}

	p.logger.Info().
		Int("queries", len(p.queries)).
		Int("rate", p.opts.Rate).
		Dur("duration", p.opts.Duration).
		Str("endpoint", p.endpoint).
		Msg("Starting load test")

	var (
		wg sync.WaitGroup
		mu sync.Mutex // guards aggregated metrics
	)

	for _, q := range p.queries {
		tgt, err := p.target(q)
		if err != nil {
			return nil, err
		}

		wg.Add(1)
		go func(q queries.Query, tgt vegeta.Target) {
			defer wg.Done()

			attacker := vegeta.NewAttacker(
				vegeta.Client(p.client),
				vegeta.Workers(uint64(p.opts.Workers)),
			)
			done := make(chan struct{})
			defer close(done)
			go func() {
				select {
				case <-ctx.Done():
					attacker.Stop()
				case <-done:
				}
			}()

			name := q.StatName()
			metrics := report.metricsFor(name)
			for res := range attacker.Attack(vegeta.NewStaticTargeter(tgt), perQuery, p.opts.Duration, name) {
				metrics.Add(res)
				mu.Lock()
				report.Aggregated.Add(res)
				mu.Unlock()
			}
		}(q, tgt)
	}

	wg.Wait()
	report.Close()

	if err := ctx.Err(); err != nil {
		p.logger.Warn().Msg("Load test interrupted")
	}
	p.logger.Info().
		Uint64("requests", report.Aggregated.Requests).
		Float64("success_ratio", report.Aggregated.Success).
		Msg("Load test complete")

	return report, nil
}
