package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/intake"
)

var (
	seedCount     int
	seedSeed      uint64
	seedErrorRate float64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate synthetic providers for local testing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rate := seedErrorRate
		if rate < 0 {
			rate = cfg.Intake.SyntheticErrorRate
		}

		gen := intake.NewGenerator(seedSeed, rate)
		providers := gen.Generate(seedCount)

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}

		imported, err := intake.Import(ctx, st, providers)
		if err != nil {
			return eris.Wrap(err, "import synthetic providers")
		}

		zap.L().Info("seed complete",
			zap.Int("generated", len(providers)),
			zap.Int("imported", imported),
			zap.Float64("error_rate", rate),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 50, "number of providers to generate")
	seedCmd.Flags().Uint64Var(&seedSeed, "seed", 0, "random seed (0 for non-deterministic)")
	seedCmd.Flags().Float64Var(&seedErrorRate, "error-rate", -1, "fraction of records given deliberate data problems (default from config)")
	rootCmd.AddCommand(seedCmd)
}
