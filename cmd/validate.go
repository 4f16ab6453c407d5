package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/reconcile"
	"github.com/sells-group/directory-cli/internal/store"
)

var (
	validateID  string
	validateNPI string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate one provider against external sources",
	Long:  "Checks a provider record against the NPI registry and the practice website, runs data-quality checks, saves the field validations, and updates the provider's status.",
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

		p, err := lookupProvider(ctx, st, validateID, validateNPI)
		if err != nil {
			return err
		}

		engine := newEngine()
		result := engine.Validate(ctx, *p)
		status := reconcile.Classify(result)

		if err := st.SaveValidations(ctx, p.ID, result.Validations); err != nil {
			return eris.Wrap(err, "save validations")
		}
		if err := st.UpdateProviderStatus(ctx, p.ID, status); err != nil {
			return eris.Wrap(err, "update status")
		}

		out, err := json.MarshalIndent(struct {
			model.ReconciliationResult
			Status model.ProviderStatus `json:"status"`
		}{result, status}, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal result")
		}
		fmt.Println(string(out))

		zap.L().Info("validation complete",
			zap.String("provider_id", p.ID),
			zap.Float64("confidence", result.OverallConfidence),
			zap.String("status", string(status)),
		)
		return nil
	},
}

// lookupProvider fetches a provider by ID or NPI, whichever was given.
func lookupProvider(ctx context.Context, st store.Store, id, npi string) (*model.Provider, error) {
	switch {
	case id != "":
		p, err := st.GetProvider(ctx, id)
		if err != nil {
			return nil, eris.Wrapf(err, "get provider %s", id)
		}
		return p, nil
	case npi != "":
		p, err := st.GetProviderByNPI(ctx, npi)
		if err != nil {
			return nil, eris.Wrapf(err, "get provider by npi %s", npi)
		}
		return p, nil
	default:
		return nil, eris.New("either --id or --npi is required")
	}
}

func init() {
	validateCmd.Flags().StringVar(&validateID, "id", "", "provider ID")
	validateCmd.Flags().StringVar(&validateNPI, "npi", "", "provider NPI")
	rootCmd.AddCommand(validateCmd)
}
