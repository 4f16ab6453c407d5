package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/batch"
	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/report"
	"github.com/sells-group/directory-cli/internal/store"
)

var (
	batchName      string
	batchState     string
	batchSpecialty string
	batchStatus    string
	batchLimit     int
	batchEnrich    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Validate a batch of providers concurrently",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("validate"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		providers, err := st.ListProviders(ctx, store.ProviderFilter{
			State:     batchState,
			Specialty: batchSpecialty,
			Status:    model.ProviderStatus(batchStatus),
			Limit:     batchLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list providers")
		}
		if len(providers) == 0 {
			zap.L().Warn("no providers matched the batch filter")
			return nil
		}

		ids := make([]string, len(providers))
		for i, p := range providers {
			ids[i] = p.ID
		}

		orch := batch.New(st, newEngine(), newMerger(), batch.Config{
			Concurrency:   cfg.Batch.Concurrency,
			ProgressEvery: cfg.Batch.ProgressEvery,
			EnrichFirst:   batchEnrich || cfg.Batch.EnrichFirst,
		})

		result, err := orch.Run(ctx, batchName, ids)
		if err != nil {
			return eris.Wrap(err, "run batch")
		}

		rpt, err := report.BuildBatchReport(ctx, st, result.ID)
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

func init() {
	batchCmd.Flags().StringVar(&batchName, "name", "validation run", "batch name")
	batchCmd.Flags().StringVar(&batchState, "state", "", "only providers in this state")
	batchCmd.Flags().StringVar(&batchSpecialty, "specialty", "", "only providers matching this specialty")
	batchCmd.Flags().StringVar(&batchStatus, "status", "", "only providers with this status")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 100, "maximum providers to process")
	batchCmd.Flags().BoolVar(&batchEnrich, "enrich", false, "enrich each provider before validating")
	rootCmd.AddCommand(batchCmd)
}
