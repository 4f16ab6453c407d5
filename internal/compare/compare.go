// Package compare implements the per-field comparator that merges one on-file
// value with one externally observed value into a FieldValidation.
package compare

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/normalize"
)

// Fixed comparator confidences. These are deliberately independent of the
// source's base confidence: an absent candidate tells us nothing about the
// source's reliability, and a mismatch is a mismatch no matter who reported it.
const (
	confidenceNoCandidate = 0.3
	confidenceNewValue    = 0.8
	confidenceMismatch    = 0.5
)

// Field compares an on-file value against a single observed candidate.
//
// Precedence: an absent candidate flags the field for review; a candidate
// with no on-file counterpart is accepted as a newly found value; otherwise
// both sides are normalized and either match at the source's base confidence
// or produce a discrepancy.
func Field(fieldName, original, candidate, source string, baseConfidence float64) model.FieldValidation {
	fv := model.FieldValidation{
		FieldName:     fieldName,
		OriginalValue: original,
		Source:        source,
		ValidatedAt:   time.Now().UTC(),
	}

	if candidate == "" {
		fv.Status = model.ValidationNeedsReview
		fv.Confidence = confidenceNoCandidate
		return fv
	}

	fv.ValidatedValue = candidate

	if original == "" {
		fv.Status = model.ValidationValidated
		fv.Confidence = confidenceNewValue
		return fv
	}

	if normalize.Value(original) == normalize.Value(candidate) {
		fv.Status = model.ValidationValidated
		fv.Confidence = clamp(baseConfidence)
		return fv
	}

	fv.Status = model.ValidationDiscrepancy
	fv.Confidence = confidenceMismatch
	fv.DiscrepancyReason = fmt.Sprintf("Mismatch: original=%q, validated=%q", original, candidate)
	return fv
}

// Address compares the four comparable address sub-fields as a composite.
// Confidence scales with the fraction of candidate-supplied sub-fields that
// match; a candidate that supplies nothing scores the no-candidate floor.
func Address(original, candidate model.Address, source string, baseConfidence float64) model.FieldValidation {
	fv := model.FieldValidation{
		FieldName:      "address",
		OriginalValue:  formatAddress(original),
		ValidatedValue: formatAddress(candidate),
		Source:         source,
		ValidatedAt:    time.Now().UTC(),
	}

	pairs := []struct{ orig, cand string }{
		{original.Line1, candidate.Line1},
		{original.City, candidate.City},
		{original.State, candidate.State},
		{original.ZipCode, candidate.ZipCode},
	}

	matches, total := 0, 0
	for _, p := range pairs {
		if p.cand == "" {
			continue
		}
		total++
		if p.orig != "" && normalize.Value(p.orig) == normalize.Value(p.cand) {
			matches++
		}
	}

	if total == 0 {
		fv.Confidence = confidenceNoCandidate
	} else {
		fv.Confidence = clamp(float64(matches) / float64(total) * baseConfidence)
	}

	if matches == total && total > 0 {
		fv.Status = model.ValidationValidated
		return fv
	}

	fv.Status = model.ValidationDiscrepancy
	fv.DiscrepancyReason = fmt.Sprintf("Address mismatch: %d/%d fields match", matches, total)
	return fv
}

func formatAddress(a model.Address) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{a.Line1, a.City, a.State, a.ZipCode} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func clamp(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
