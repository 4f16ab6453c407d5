// Package quality evaluates an on-file record alone: contact-field format
// validity and required-field completeness. It depends on no external source,
// so every provider always yields at least one validation entry.
package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/normalize"
)

const (
	sourceFormat  = "format_validation"
	sourceQuality = "quality_check"

	completenessThreshold = 0.8
)

// Check runs format and completeness validations against the record.
// Format checks only run for populated fields; the completeness check
// always runs, so the returned slice is never empty.
func Check(p model.Provider) []model.FieldValidation {
	now := time.Now().UTC()
	var out []model.FieldValidation

	if p.Phone != "" {
		out = append(out, formatValidation("phone_format", p.Phone,
			normalize.ValidPhone(p.Phone), 0.8, 0.5, "Phone format may be invalid", now))
	}
	if p.Email != "" {
		out = append(out, formatValidation("email_format", p.Email,
			normalize.ValidEmail(p.Email), 0.8, 0.5, "Email format may be invalid", now))
	}
	if p.ZipCode != "" {
		out = append(out, formatValidation("zip_code_format", p.ZipCode,
			normalize.ValidZip(p.ZipCode), 0.7, 0.4, "Zip code format may be invalid", now))
	}

	out = append(out, completeness(p, now))
	return out
}

func formatValidation(name, value string, valid bool, okConf, badConf float64, reason string, now time.Time) model.FieldValidation {
	fv := model.FieldValidation{
		FieldName:     name,
		OriginalValue: value,
		Source:        sourceFormat,
		ValidatedAt:   now,
	}
	if valid {
		fv.ValidatedValue = value
		fv.Confidence = okConf
		fv.Status = model.ValidationValidated
		return fv
	}
	fv.ValidatedValue = "Invalid format"
	fv.Confidence = badConf
	fv.Status = model.ValidationNeedsReview
	fv.DiscrepancyReason = reason
	return fv
}

func completeness(p model.Provider, now time.Time) model.FieldValidation {
	required := []string{
		p.FirstName, p.LastName, p.Phone,
		p.AddressLine1, p.City, p.State, p.ZipCode,
	}
	present := 0
	for _, v := range required {
		if v != "" {
			present++
		}
	}
	fraction := float64(present) / float64(len(required))
	pct := int(math.Round(fraction * 100))

	fv := model.FieldValidation{
		FieldName:      "data_completeness",
		OriginalValue:  fmt.Sprintf("%d/%d fields", present, len(required)),
		ValidatedValue: fmt.Sprintf("%d%% complete", pct),
		Confidence:     0.5 + fraction*0.3,
		Source:         sourceQuality,
		ValidatedAt:    now,
	}
	if fraction >= completenessThreshold {
		fv.Status = model.ValidationValidated
		return fv
	}
	fv.Status = model.ValidationNeedsReview
	fv.DiscrepancyReason = fmt.Sprintf("Only %d%% of required fields present", pct)
	return fv
}
