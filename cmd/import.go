package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/intake"
)

var (
	importFilePath string
	importURL      string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a provider roster into the store",
	Long:  "Reads a roster file (CSV, XLSX, JSON, XML, or a ZIP containing one) from disk or a remote URL and upserts the providers it contains.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		path := importFilePath
		if importURL != "" {
			downloaded, err := intake.FetchFile(ctx, importURL, cfg.Intake.DownloadDir)
			if err != nil {
				return eris.Wrap(err, "fetch roster")
			}
			path = downloaded
		}
		if path == "" {
			return eris.New("either --file or --url is required")
		}

		providers, err := intake.ParseRoster(ctx, path)
		if err != nil {
			return eris.Wrap(err, "parse roster")
		}

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
			return eris.Wrap(err, "import roster")
		}

		zap.L().Info("import complete",
			zap.Int("parsed", len(providers)),
			zap.Int("imported", imported),
			zap.String("roster", path),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to roster file")
	importCmd.Flags().StringVar(&importURL, "url", "", "http/https/ftp URL of roster file")
	rootCmd.AddCommand(importCmd)
}
