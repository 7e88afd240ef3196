package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/searchperf/querybench/internal/compare"
	"github.com/searchperf/querybench/internal/visualize"
)

var visualizeCmd = &cobra.Command{
	Use:   "visualize <comparison.csv>",
	Short: "Render comparison charts from a comparison CSV",
	Long: `Visualize reads a comparison CSV produced by the compare command and
renders a set of PNG charts: grouped latency bars, percentage improvements,
win counts, request rates, and an aggregated summary.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		outDir, _ := cmd.Flags().GetString("out-dir")

		cmp, err := compare.ReadComparison(args[0])
		if err != nil {
			return fmt.Errorf("reading comparison %s: %w", args[0], err)
		}

		files, err := visualize.NewRenderer(cmp, outDir, log).RenderAll()
		if err != nil {
			return err
		}
		log.Info().Int("charts", len(files)).Str("dir", outDir).Msg("rendered charts")
		for _, f := range files {
			fmt.Println(f)
		}

		if err := archiveDir(cfg, log, outDir); err != nil {
			log.Warn().Err(err).Msg("archival failed")
		}
		return nil
	},
}

func init() {
	f := visualizeCmd.Flags()
	f.String("out-dir", "performance_charts", "directory for rendered PNGs")
	f.String("log-level", "", "log level (debug, info, warn, error)")
}
