package report

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.AmericanEnglish)

// displaySpecialty normalizes the inconsistent casing roster imports leave
// behind ("INTERNAL MEDICINE", "internal medicine").
func displaySpecialty(s string) string {
	if s == "" {
		return "N/A"
	}
	return titleCaser.String(strings.ToLower(s))
}

var batchReportTmpl = template.Must(template.New("batch").Funcs(template.FuncMap{
	"specialty": displaySpecialty,
	"pct":       func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
}).Parse(`Provider Validation Report: {{.Batch.Name}}
========================================

Total Providers:    {{.Batch.TotalProviders}}
Processed:          {{.Batch.ProcessedProviders}}
Validated:          {{.Batch.ValidatedProviders}}
Needs Review:       {{.TotalNeedsReview}}
Average Confidence: {{pct .Batch.AverageConfidence}}
Status:             {{.Batch.Status}}
{{- if gt .Batch.ProcessingSeconds 0.0}}
Processing Time:    {{printf "%.2f" .Batch.ProcessingSeconds}}s
{{- end}}

{{- if .ProvidersNeedingReview}}

Providers Requiring Manual Review
---------------------------------
{{- range .ProvidersNeedingReview}}
  {{.FirstName}} {{.LastName}} - {{specialty .Specialty}}
{{- end}}
{{- end}}
`))

// RenderBatchReport renders a batch report as plain text for the CLI and
// file output.
func RenderBatchReport(r *BatchReport) (string, error) {
	var b strings.Builder
	if err := batchReportTmpl.Execute(&b, r); err != nil {
		return "", eris.Wrap(err, "report: render batch report")
	}
	return b.String(), nil
}

var directoryReportTmpl = template.Must(template.New("directory").Funcs(template.FuncMap{
	"pct": func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
}).Parse(`Directory Quality Report
========================

Total Providers:       {{.TotalProviders}}
Validated:             {{.ValidatedCount}}
Needs Review:          {{.NeedsReviewCount}}
Validation Rate:       {{printf "%.1f" .ValidationRate}}%
Average Confidence:    {{pct .AverageConfidence}}
Average Quality Score: {{pct .AverageQualityScore}}
Total Discrepancies:   {{.TotalDiscrepancies}}
Total Issues:          {{.TotalIssues}}
`))

// RenderDirectoryReport renders the aggregate quality report as plain text.
func RenderDirectoryReport(r *DirectoryReport) (string, error) {
	var b strings.Builder
	if err := directoryReportTmpl.Execute(&b, r); err != nil {
		return "", eris.Wrap(err, "report: render directory report")
	}
	return b.String(), nil
}
