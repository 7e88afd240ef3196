package generate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/searchperf/querybench/internal/osclient"
	"github.com/searchperf/querybench/internal/queries"
)

// Options controls a synthetic ingestion run.
type Options struct {
	Index       string
	Count       int
	BatchSize   int
	Workers     int
	Compression string
	Seed        int64
}

// Stats summarizes a completed ingestion run.
type Stats struct {
	Indexed  int64
	Failed   int64
	Elapsed  time.Duration
	DocsPerS float64
}

// Ingester pushes synthesized documents into OpenSearch via the bulk API.
type Ingester struct {
	client *osclient.Client
	logger zerolog.Logger
}

func NewIngester(client *osclient.Client, logger zerolog.Logger) *Ingester {
	return &Ingester{client: client, logger: logger}
}

// encodeBatch renders docs as bulk NDJSON: an index action line per document
// followed by the document source.
func encodeBatch(index string, docs []map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	meta := []byte(`{"index":{"_index":` + strconv.Quote(index) + `}}` + "\n")
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		buf.Write(meta)
		if err := enc.Encode(d); err != nil {
			return nil, fmt.Errorf("encoding bulk document: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Run synthesizes opts.Count documents of the given log type and bulk-indexes
// them with opts.Workers concurrent senders. Each worker owns its generator so
// document synthesis never contends on a shared rand source.
func (in *Ingester) Run(ctx context.Context, logType queries.LogType, opts Options) (Stats, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5000
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	batches := make(chan int, opts.Workers*2)
	var indexed, failed atomic.Int64
	start := time.Now()

	in.logger.Info().
		Str("index", opts.Index).
		Str("log_type", string(logType)).
		Int("count", opts.Count).
		Int("batch_size", opts.BatchSize).
		Int("workers", opts.Workers).
		Str("compression", opts.Compression).
		Msg("starting ingestion")

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		rng := rand.New(rand.NewSource(opts.Seed + int64(w)))
		docFn, err := NewDocFunc(logType, rng)
		if err != nil {
			return Stats{}, err
		}
		g.Go(func() error {
			docs := make([]map[string]any, 0, opts.BatchSize)
			for size := range batches {
				docs = docs[:0]
				for i := 0; i < size; i++ {
					docs = append(docs, docFn())
				}
				body, err := encodeBatch(opts.Index, docs)
				if err != nil {
					return err
				}
				if err := in.client.Bulk(ctx, body, opts.Compression); err != nil {
					failed.Add(int64(size))
					return fmt.Errorf("bulk indexing %d docs: %w", size, err)
				}
				total := indexed.Add(int64(size))
				if total%100000 < int64(opts.BatchSize) {
					elapsed := time.Since(start).Seconds()
					in.logger.Info().
						Int64("indexed", total).
						Float64("docs_per_sec", float64(total)/elapsed).
						Msg("ingestion progress")
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(batches)
		for remaining := opts.Count; remaining > 0; {
			size := opts.BatchSize
			if remaining < size {
				size = remaining
			}
			select {
			case batches <- size:
				remaining -= size
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	runErr := g.Wait()

	if err := in.client.Refresh(context.Background(), opts.Index); err != nil {
		in.logger.Warn().Err(err).Str("index", opts.Index).Msg("refresh after ingestion failed")
	}

	stats := Stats{
		Indexed: indexed.Load(),
		Failed:  failed.Load(),
		Elapsed: time.Since(start),
	}
	if secs := stats.Elapsed.Seconds(); secs > 0 {
		stats.DocsPerS = float64(stats.Indexed) / secs
	}

	in.logger.Info().
		Int64("indexed", stats.Indexed).
		Int64("failed", stats.Failed).
		Dur("elapsed", stats.Elapsed).
		Float64("docs_per_sec", stats.DocsPerS).
		Msg("ingestion complete")

	if runErr != nil {
		return stats, runErr
	}
	return stats, nil
}

// RunFile streams an NDJSON file into the index, stamping each document with a
// fresh @timestamp. File ingestion is sequential: the source file dictates
// order and there is no synthesis cost to parallelize away.
func (in *Ingester) RunFile(ctx context.Context, path string, opts Options) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("opening data file: %w", err)
	}
	defer f.Close()

	if opts.BatchSize <= 0 {
		opts.BatchSize = 5000
	}
	ts := timestamp()
	start := time.Now()
	var indexed, failed atomic.Int64

	in.logger.Info().
		Str("index", opts.Index).
		Str("file", path).
		Int("batch_size", opts.BatchSize).
		Msg("starting file ingestion")

	flush := func(docs []map[string]any) error {
		if len(docs) == 0 {
			return nil
		}
		body, err := encodeBatch(opts.Index, docs)
		if err != nil {
			return err
		}
		if err := in.client.Bulk(ctx, body, opts.Compression); err != nil {
			failed.Add(int64(len(docs)))
			return fmt.Errorf("bulk indexing %d docs: %w", len(docs), err)
		}
		indexed.Add(int64(len(docs)))
		return nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 16<<20)
	docs := make([]map[string]any, 0, opts.BatchSize)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return Stats{}, fmt.Errorf("parsing %s line %d: %w", path, line, err)
		}
		doc["@timestamp"] = ts
		docs = append(docs, doc)
		if len(docs) >= opts.BatchSize {
			if err := flush(docs); err != nil {
				return Stats{Indexed: indexed.Load(), Failed: failed.Load(), Elapsed: time.Since(start)}, err
			}
			docs = docs[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return Stats{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := flush(docs); err != nil {
		return Stats{Indexed: indexed.Load(), Failed: failed.Load(), Elapsed: time.Since(start)}, err
	}

	if err := in.client.Refresh(context.Background(), opts.Index); err != nil {
		in.logger.Warn().Err(err).Str("index", opts.Index).Msg("refresh after ingestion failed")
	}

	stats := Stats{
		Indexed: indexed.Load(),
		Failed:  failed.Load(),
		Elapsed: time.Since(start),
	}
	if secs := stats.Elapsed.Seconds(); secs > 0 {
		stats.DocsPerS = float64(stats.Indexed) / secs
	}
	in.logger.Info().
		Int64("indexed", stats.Indexed).
		Dur("elapsed", stats.Elapsed).
		Float64("docs_per_sec", stats.DocsPerS).
		Msg("file ingestion complete")
	return stats, nil
}
