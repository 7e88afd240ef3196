package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/searchperf/querybench/internal/config"
	"github.com/searchperf/querybench/internal/logger"
)

// Version is set at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "querybench",
	Short: "OpenSearch query performance harness",
	Long: `querybench replays PPL and DSL query workloads against an OpenSearch
cluster at a fixed request rate, records per-query latency statistics, and
compares runs against each other.

Cluster connection and workload selection come from the environment
(OPENSEARCH_ENDPOINT, OPENSEARCH_USER, OPENSEARCH_PASSWORD, LOG_TYPE,
QUERY_LANGUAGE), an optional querybench.toml, or flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(visualizeCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration and initializes logging. Every subcommand goes
// through here so flag overrides land after env and file values.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("loading config: %w", err)
	}
	applyOverrides(cmd, cfg)
	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, logger.Get(cmd.Name()), nil
}

// applyOverrides copies explicitly-set flags over the loaded config. Only
// flags the user actually passed win; defaults stay with viper.
func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	set := func(name string, dst func()) {
		if f.Changed(name) {
			dst()
		}
	}
	set("endpoint", func() { cfg.Cluster.Endpoint, _ = f.GetString("endpoint") })
	set("log-type", func() { cfg.Selection.LogType, _ = f.GetString("log-type") })
	set("language", func() { cfg.Selection.Language, _ = f.GetString("language") })
	set("query-dir", func() { cfg.Selection.QueryDir, _ = f.GetString("query-dir") })
	set("rate", func() { cfg.Load.Rate, _ = f.GetInt("rate") })
	set("duration", func() { cfg.Load.Duration, _ = f.GetInt("duration") })
	set("output", func() { cfg.Load.Output, _ = f.GetString("output") })
	set("workers", func() {
		n, _ := f.GetInt("workers")
		if cmd.Name() == "generate" {
			cfg.Generate.Workers = n
		} else {
			cfg.Load.Workers = n
		}
	})
	set("index", func() { cfg.Generate.Index, _ = f.GetString("index") })
	set("count", func() { cfg.Generate.Count, _ = f.GetInt64("count") })
	set("batch-size", func() { cfg.Generate.BatchSize, _ = f.GetInt("batch-size") })
	set("compression", func() { cfg.Generate.Compression, _ = f.GetString("compression") })
	set("file", func() { cfg.Generate.File, _ = f.GetString("file") })
	set("log-level", func() { cfg.Log.Level, _ = f.GetString("log-level") })
}
