package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/searchperf/querybench/internal/loadtest"
	"github.com/searchperf/querybench/internal/osclient"
	"github.com/searchperf/querybench/internal/queries"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay the selected query workload against the cluster",
	Long: `Run loads the query store for the selected log type and language,
fires every query concurrently at a fixed blended rate for the configured
duration, and writes per-query latency statistics to a CSV.

Interrupting the run (Ctrl-C) stops the attacks and still reports the
statistics collected so far.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logType, err := queries.ParseLogType(cfg.Selection.LogType)
		if err != nil {
			return err
		}
		lang, err := queries.ParseLanguage(cfg.Selection.Language)
		if err != nil {
			return err
		}

		qs, err := queries.LoadQueries(os.DirFS(cfg.Selection.QueryDir), logType, lang)
		if err != nil {
			return fmt.Errorf("loading queries from %s: %w", cfg.Selection.QueryDir, err)
		}
		log.Info().
			Int("queries", len(qs)).
			Str("log_type", string(logType)).
			Str("language", string(lang)).
			Str("endpoint", cfg.Cluster.Endpoint).
			Msg("workload loaded")

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

		plan, err := loadtest.NewPlan(qs, cluster, loadtest.Options{
			Rate:     cfg.Load.Rate,
			Duration: time.Duration(cfg.Load.Duration) * time.Second,
			Workers:  cfg.Load.Workers,
		}, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := plan.Run(ctx)
		if err != nil {
			return err
		}

		report.Summary(os.Stdout)

		if cfg.Load.Output != "" {
			f, err := os.Create(cfg.Load.Output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", cfg.Load.Output, err)
			}
			if err := report.WriteCSV(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			log.Info().Str("path", cfg.Load.Output).Msg("wrote statistics")

			if err := archiveFile(cfg, log, cfg.Load.Output); err != nil {
				log.Warn().Err(err).Msg("archival failed")
			}
		}
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.String("endpoint", "", "OpenSearch base URL")
	f.String("log-type", "", "log type to benchmark (vpc, nfw, cloudtrail, waf, big5, all)")
	f.String("language", "", "query language (ppl, dsl, both)")
	f.String("query-dir", "", "root of the query store")
	f.Int("rate", 0, "total requests per second across all queries")
	f.Int("duration", 0, "run duration in seconds")
	f.Int("workers", 0, "initial workers per query attack")
	f.String("output", "", "statistics CSV path")
	f.String("log-level", "", "log level (debug, info, warn, error)")
}
