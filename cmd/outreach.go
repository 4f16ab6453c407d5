package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/report"
)

var (
	outreachID     string
	outreachNPI    string
	outreachAction string
)

var outreachCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Draft an outreach email for a provider",
	Long:  "Renders a verification, discrepancy, or notification email for one provider. Discrepancy emails list the provider's unresolved field discrepancies.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		p, err := lookupProvider(ctx, st, outreachID, outreachNPI)
		if err != nil {
			return err
		}

		var discrepancies []model.FieldValidation
		if report.EmailAction(outreachAction) == report.EmailDiscrepancy {
			history, err := st.ListValidations(ctx, p.ID)
			if err != nil {
				return eris.Wrap(err, "list validations")
			}
			for _, v := range history {
				if v.Status == model.ValidationNeedsReview {
					discrepancies = append(discrepancies, v)
				}
			}
		}

		email, err := report.BuildEmail(*p, report.EmailAction(outreachAction), discrepancies)
		if err != nil {
			return eris.Wrap(err, "build email")
		}

		fmt.Printf("To: %s\nSubject: %s\n\n%s\n", email.To, email.Subject, email.Body)
		return nil
	},
}

func init() {
	outreachCmd.Flags().StringVar(&outreachID, "id", "", "provider ID")
	outreachCmd.Flags().StringVar(&outreachNPI, "npi", "", "provider NPI")
	outreachCmd.Flags().StringVar(&outreachAction, "action", "verification", "email type: verification, discrepancy, or notification")
	rootCmd.AddCommand(outreachCmd)
}
