package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/searchperf/querybench/internal/compare"
	"github.com/searchperf/querybench/internal/queries"
)

var compareCmd = &cobra.Command{
	Use:   "compare <baseline.csv> <variant.csv>",
	Short: "Compare two statistics CSVs query by query",
	Long: `Compare joins two run statistics files by query name, computes the
percentage change for every latency metric, and declares a winner per query
by lower median response time. Queries present in only one file are reported
and skipped.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		baselineLabel, _ := f.GetString("baseline-label")
		variantLabel, _ := f.GetString("variant-label")
		output, _ := f.GetString("output")

		baseline, _, err := compare.ReadStats(args[0])
		if err != nil {
			return fmt.Errorf("reading baseline %s: %w", args[0], err)
		}
		variant, _, err := compare.ReadStats(args[1])
		if err != nil {
			return fmt.Errorf("reading variant %s: %w", args[1], err)
		}

		// Query text enrichment is optional; a missing store is not an error
		// when comparing CSVs produced elsewhere.
		var qs []queries.Query
		if loaded, err := queries.LoadQueries(os.DirFS(cfg.Selection.QueryDir), queries.LogTypeAll, queries.LangBoth); err == nil {
			qs = loaded
		} else {
			log.Debug().Err(err).Msg("query store unavailable, skipping text enrichment")
		}

		cmp, err := compare.Compare(baseline, variant, compare.Options{
			BaselineLabel: baselineLabel,
			VariantLabel:  variantLabel,
			Queries:       qs,
		})
		if err != nil {
			if !errors.Is(err, compare.ErrRowMismatch) {
				return err
			}
			log.Warn().Strs("queries", cmp.Mismatched).Msg("queries present in only one file, comparing the rest")
		}

		cmp.Summary(os.Stdout)

		if output != "" {
			if err := cmp.WriteCSVFile(output); err != nil {
				return err
			}
			log.Info().Str("path", output).Msg("wrote comparison")
			if err := archiveFile(cfg, log, output); err != nil {
				log.Warn().Err(err).Msg("archival failed")
			}
		}
		return nil
	},
}

func init() {
	f := compareCmd.Flags()
	f.String("baseline-label", "Baseline", "display label for the first file")
	f.String("variant-label", "Variant", "display label for the second file")
	f.String("output", "performance_comparison.csv", "comparison CSV path (empty for summary only)")
	f.String("query-dir", "", "root of the query store, used to attach query text")
	f.String("log-level", "", "log level (debug, info, warn, error)")
}
