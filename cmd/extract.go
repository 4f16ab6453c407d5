package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/ocr"
	"github.com/sells-group/directory-cli/internal/source"
	"github.com/sells-group/directory-cli/pkg/anthropic"
)

var extractFilePath string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract provider fields from a credential document",
	Long:  "Runs pdftotext over a credential PDF and asks the configured model to pull out structured provider fields.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		adapter := source.NewDocumentAdapter(
			ocr.NewPdfToText(cfg.OCR.PdfToTextPath),
			anthropic.NewClient(cfg.Anthropic.Key),
			cfg.Anthropic.Model,
		)

		record, err := adapter.Extract(ctx, extractFilePath)
		if err != nil {
			return eris.Wrap(err, "extract document")
		}

		out, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal record")
		}
		fmt.Println(string(out))

		zap.L().Info("extraction complete", zap.String("file", extractFilePath))
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractFilePath, "file", "", "path to credential PDF (required)")
	_ = extractCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(extractCmd)
}
