package reconcile

import (
	"strings"

	"github.com/sells-group/directory-cli/internal/model"
)

// Classify maps a reconciliation result to a provider lifecycle status.
//
// The decision order is deliberately permissive: a record at confidence 0.60
// or above with clean formats validates even when discrepancies are present.
// That overlap is policy, not an accident. Do not reorder the cases.
func Classify(result model.ReconciliationResult) model.ProviderStatus {
	if len(result.Validations) == 0 {
		return model.ProviderStatusPending
	}

	formatIssue := hasFormatIssue(result.Validations)
	complete := isComplete(result.Validations)
	discrepancy := len(result.Discrepancies) > 0
	conf := result.OverallConfidence

	switch {
	case conf >= 0.75 && !formatIssue && complete:
		return model.ProviderStatusValidated
	case conf >= 0.60 && !formatIssue:
		return model.ProviderStatusValidated
	case discrepancy || formatIssue || conf < 0.50:
		return model.ProviderStatusNeedsReview
	default:
		return model.ProviderStatusValidated
	}
}

func hasFormatIssue(vs []model.FieldValidation) bool {
	for _, v := range vs {
		if strings.Contains(v.FieldName, "format") && v.Status == model.ValidationNeedsReview {
			return true
		}
	}
	return false
}

func isComplete(vs []model.FieldValidation) bool {
	for _, v := range vs {
		if v.FieldName == "data_completeness" {
			return v.Status == model.ValidationValidated
		}
	}
	return false
}
