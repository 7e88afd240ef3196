package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/searchperf/querybench/internal/generate"
	"github.com/searchperf/querybench/internal/osclient"
	"github.com/searchperf/querybench/internal/queries"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Synthesize and bulk-index sample documents",
	Long: `Generate fills an index with synthetic documents shaped like real AWS
log data for the selected log type, so the query workload has something to
aggregate over. The big5 log type has no synthesizer; for it, pass --file
with an NDJSON corpus to stream in instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}

		logType, err := queries.ParseLogType(cfg.Selection.LogType)
		if err != nil {
			return err
		}
		if logType == queries.LogTypeAll {
			return fmt.Errorf("generate needs a single log type, got %q", logType)
		}

		index := cfg.Generate.Index
		if index == "" {
			index = logType.Index()
		}

		cluster, err := osclient.New(osclient.Config{
			Endpoint: cfg.Cluster.Endpoint,
			Username: cfg.Cluster.Username,
			Password: cfg.Cluster.Password,
			Timeout:  time.Duration(cfg.Cluster.Timeout) * time.Second,
			Insecure: cfg.Cluster.Insecure,
		}, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ing := generate.NewIngester(cluster, log)
		opts := generate.Options{
			Index:       index,
			Count:       int(cfg.Generate.Count),
			BatchSize:   cfg.Generate.BatchSize,
			Workers:     cfg.Generate.Workers,
			Compression: cfg.Generate.Compression,
		}

		var stats generate.Stats
		if cfg.Generate.File != "" {
			stats, err = ing.RunFile(ctx, cfg.Generate.File, opts)
		} else if logType == queries.LogTypeBig5 {
			return fmt.Errorf("big5 data is file-fed, pass --file with an NDJSON corpus")
		} else {
			stats, err = ing.Run(ctx, logType, opts)
		}
		if err != nil {
			return err
		}

		if total, err := cluster.Count(context.Background(), index); err == nil {
			log.Info().Str("index", index).Int64("total_docs", total).Msg("index document count")
		}
		fmt.Printf("Indexed %d documents into %s in %s (%.0f docs/s)\n",
			stats.Indexed, index, stats.Elapsed.Round(time.Second), stats.DocsPerS)
		return nil
	},
}

func init() {
	f := generateCmd.Flags()
	f.String("endpoint", "", "OpenSearch base URL")
	f.String("log-type", "", "log type to synthesize (vpc, nfw, cloudtrail, waf)")
	f.String("index", "", "target index (defaults to the log type's index)")
	f.Int64("count", 0, "number of documents to synthesize")
	f.Int("batch-size", 0, "documents per bulk request")
	f.Int("workers", 0, "concurrent bulk workers")
	f.String("compression", "", "bulk body compression (none, gzip, zstd)")
	f.String("file", "", "NDJSON file to stream instead of synthesizing")
	f.String("log-level", "", "log level (debug, info, warn, error)")
}
