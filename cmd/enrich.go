package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	enrichID  string
	enrichNPI string
	enrichDry bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fill missing provider fields from external sources",
	Long:  "Pulls authoritative values from the NPI registry and the practice website into empty fields of one provider record. Existing values are never overwritten.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		p, err := lookupProvider(ctx, st, enrichID, enrichNPI)
		if err != nil {
			return err
		}

		result := newMerger().Enrich(ctx, p)

		if !enrichDry && len(result.EnrichedFields) > 0 {
			if err := st.UpdateProvider(ctx, p); err != nil {
				return eris.Wrap(err, "save enriched provider")
			}
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal result")
		}
		fmt.Println(string(out))

		zap.L().Info("enrichment complete",
			zap.String("provider_id", p.ID),
			zap.Int("enriched_fields", len(result.EnrichedFields)),
			zap.Bool("dry_run", enrichDry),
		)
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichID, "id", "", "provider ID")
	enrichCmd.Flags().StringVar(&enrichNPI, "npi", "", "provider NPI")
	enrichCmd.Flags().BoolVar(&enrichDry, "dry-run", false, "report enrichments without saving")
	rootCmd.AddCommand(enrichCmd)
}
