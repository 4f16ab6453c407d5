package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/assess"
	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/store"
	"github.com/sells-group/directory-cli/pkg/notion"
)

var (
	reviewLimit int
	reviewSync  bool
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Rank providers for manual review",
	Long:  "Assesses every provider's data quality, ranks the ones needing attention, and optionally syncs the queue to a Notion database.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if reviewSync {
			if err := cfg.Validate("review"); err != nil {
				return err
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		providers, err := st.ListProviders(ctx, store.ProviderFilter{})
		if err != nil {
			return eris.Wrap(err, "list providers")
		}

		scorer, err := assess.NewScorer(cfg.Reconcile.ConfidenceThreshold)
		if err != nil {
			return eris.Wrap(err, "init scorer")
		}

		candidates := scorer.Prioritize(providers, func(providerID string) []model.FieldValidation {
			history, err := st.ListValidations(ctx, providerID)
			if err != nil {
				zap.L().Warn("validation history unavailable",
					zap.String("provider_id", providerID),
					zap.Error(err))
				return nil
			}
			return history
		}, reviewLimit)

		printReviewQueue(candidates)

		if !reviewSync {
			return nil
		}

		client := notion.NewClient(cfg.Notion.Token)
		created, updated, err := notion.SyncReviewQueue(ctx, client, cfg.Notion.ReviewDB, toReviewPages(candidates))
		if err != nil {
			return eris.Wrap(err, "sync review queue")
		}

		zap.L().Info("review queue synced",
			zap.Int("created", created),
			zap.Int("updated", updated),
			zap.String("database", cfg.Notion.ReviewDB),
		)
		return nil
	},
}

func printReviewQueue(candidates []assess.ReviewCandidate) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRIORITY\tNAME\tNPI\tSTATUS\tISSUES")
	for _, c := range candidates {
		fmt.Fprintf(w, "%.1f\t%s %s\t%s\t%s\t%s\n",
			c.Priority,
			c.Provider.FirstName, c.Provider.LastName,
			c.Provider.NPI,
			c.Assessment.Status,
			strings.Join(c.Assessment.Issues, "; "),
		)
	}
	w.Flush()
}

func toReviewPages(candidates []assess.ReviewCandidate) []notion.ReviewPage {
	pages := make([]notion.ReviewPage, len(candidates))
	for i, c := range candidates {
		pages[i] = notion.ReviewPage{
			ProviderName: strings.TrimSpace(c.Provider.FirstName + " " + c.Provider.LastName),
			NPI:          c.Provider.NPI,
			Specialty:    c.Provider.Specialty,
			State:        c.Provider.State,
			Priority:     c.Priority,
			QualityScore: c.Assessment.QualityScore,
			Confidence:   c.Assessment.OverallConfidence,
			Issues:       c.Assessment.Issues,
		}
	}
	return pages
}

func init() {
	reviewCmd.Flags().IntVar(&reviewLimit, "limit", 25, "maximum providers to list")
	reviewCmd.Flags().BoolVar(&reviewSync, "sync", false, "push the queue to the configured Notion database")
	rootCmd.AddCommand(reviewCmd)
}
