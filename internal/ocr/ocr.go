// Package ocr extracts plain text from credential documents. The document
// source adapter decides what to do with the text; this package only gets
// it off the page.
package ocr

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
)

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// PdfToText extracts text using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText runs pdftotext -layout on the given PDF and returns stdout.
func (p *PdfToText) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", pdfPath, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "ocr: pdftotext failed for %s: %s", pdfPath, stderr.String())
	}

	text := stdout.String()
	if strings.TrimSpace(text) == "" {
		return "", eris.Errorf("ocr: no text extracted from %s", pdfPath)
	}
	return text, nil
}
