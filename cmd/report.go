package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/directory-cli/internal/assess"
	"github.com/sells-group/directory-cli/internal/report"
)

var reportBatchID string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate directory quality reports",
}

var reportBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Summarize one validation batch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		rpt, err := report.BuildBatchReport(ctx, st, reportBatchID)
		if err != nil {
			return eris.Wrap(err, "build batch report")
		}
		text, err := report.RenderBatchReport(rpt)
		if err != nil {
			return eris.Wrap(err, "render batch report")
		}
		fmt.Println(text)
		return nil
	},
}

var reportDirectoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Summarize the whole provider directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		scorer, err := assess.NewScorer(cfg.Reconcile.ConfidenceThreshold)
		if err != nil {
			return eris.Wrap(err, "init scorer")
		}

		rpt, err := report.BuildDirectoryReport(ctx, st, scorer)
		if err != nil {
			return eris.Wrap(err, "build directory report")
		}
		text, err := report.RenderDirectoryReport(rpt)
		if err != nil {
			return eris.Wrap(err, "render directory report")
		}
		fmt.Println(text)
		return nil
	},
}

func init() {
	reportBatchCmd.Flags().StringVar(&reportBatchID, "id", "", "batch ID (required)")
	_ = reportBatchCmd.MarkFlagRequired("id")
	reportCmd.AddCommand(reportBatchCmd)
	reportCmd.AddCommand(reportDirectoryCmd)
	rootCmd.AddCommand(reportCmd)
}
