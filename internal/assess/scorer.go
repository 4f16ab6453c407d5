// Package assess derives holistic quality scores and review priorities from
// a provider's accumulated validation history.
package assess

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/directory-cli/internal/model"
)

const (
	// DefaultConfidenceThreshold is the confidence above which a provider
	// with no discrepancies is considered validated.
	DefaultConfidenceThreshold = 0.80

	missingFieldPenalty  = 0.1
	lowConfidencePenalty = 0.05
	lowConfidenceCutoff  = 0.6
)

// Scorer assesses provider data quality against a confidence threshold.
type Scorer struct {
	threshold float64
}

// NewScorer validates the threshold at construction so a misconfigured
// scorer can never produce per-record garbage.
func NewScorer(threshold float64) (*Scorer, error) {
	if threshold < 0 || threshold > 1 {
		return nil, eris.Errorf("assess: confidence threshold %v outside [0,1]", threshold)
	}
	if threshold == 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Scorer{threshold: threshold}, nil
}

// Assess scores the provider against its validation history. An empty
// history yields the needs_validation floor.
func (s *Scorer) Assess(p model.Provider, history []model.FieldValidation) model.QualityAssessment {
	if len(history) == 0 {
		return model.QualityAssessment{
			ProviderID:        p.ID,
			OverallConfidence: 0.5,
			QualityScore:      0.5,
			Status:            model.AssessmentNeedsValidation,
			Issues:            []string{"No validation data available"},
			Recommendations:   []string{"Run validation process"},
		}
	}

	sum := 0.0
	lowConfidence := 0
	var discrepancies []model.FieldValidation
	for _, v := range history {
		sum += v.Confidence
		if v.Confidence < lowConfidenceCutoff {
			lowConfidence++
		}
		if v.Status == model.ValidationDiscrepancy {
			discrepancies = append(discrepancies, v)
		}
	}
	confidence := sum / float64(len(history))

	issues := identifyIssues(p, discrepancies, lowConfidence)

	var status model.AssessmentStatus
	switch {
	case confidence >= s.threshold && len(discrepancies) == 0:
		status = model.AssessmentValidated
	case len(discrepancies) > 0 || confidence < lowConfidenceCutoff:
		status = model.AssessmentNeedsReview
	default:
		status = model.AssessmentNeedsManualVerify
	}

	return model.QualityAssessment{
		ProviderID:        p.ID,
		OverallConfidence: confidence,
		QualityScore:      qualityScore(p, confidence, lowConfidence),
		Status:            status,
		Issues:            issues,
		Recommendations:   recommend(issues, confidence),
		DiscrepancyCount:  len(discrepancies),
		ValidationCount:   len(history),
	}
}

func qualityScore(p model.Provider, confidence float64, lowConfidence int) float64 {
	score := confidence

	missing := 0
	if p.Phone == "" {
		missing++
	}
	if p.AddressLine1 == "" {
		missing++
	}
	if p.City == "" {
		missing++
	}
	if p.State == "" {
		missing++
	}
	score -= float64(missing) * missingFieldPenalty
	score -= float64(lowConfidence) * lowConfidencePenalty

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func identifyIssues(p model.Provider, discrepancies []model.FieldValidation, lowConfidence int) []string {
	var issues []string
	if p.Phone == "" {
		issues = append(issues, "Missing phone number")
	}
	if p.Email == "" {
		issues = append(issues, "Missing email address")
	}
	if p.AddressLine1 == "" {
		issues = append(issues, "Missing address")
	}
	if p.NPI == "" {
		issues = append(issues, "Missing NPI number")
	}
	if p.LicenseNumber == "" {
		issues = append(issues, "Missing license number")
	}
	for _, d := range discrepancies {
		issues = append(issues, fmt.Sprintf("Discrepancy in %s: %s", d.FieldName, d.DiscrepancyReason))
	}
	if lowConfidence > 0 {
		issues = append(issues, fmt.Sprintf("%d fields with low confidence scores", lowConfidence))
	}
	return issues
}

func recommend(issues []string, confidence float64) []string {
	var recs []string
	has := func(issue string) bool {
		for _, i := range issues {
			if i == issue {
				return true
			}
		}
		return false
	}

	if has("Missing phone number") {
		recs = append(recs, "Contact provider to obtain phone number")
	}
	if has("Missing email address") {
		recs = append(recs, "Search provider website for email address")
	}
	if has("Missing address") {
		recs = append(recs, "Verify address with NPI registry or state licensing board")
	}
	if has("Missing NPI number") {
		recs = append(recs, "Search NPI registry by provider name and location")
	}
	for _, i := range issues {
		if strings.HasPrefix(i, "Discrepancy") {
			recs = append(recs, "Manual review required to resolve discrepancies")
			break
		}
	}
	if confidence < 0.7 {
		recs = append(recs, "Additional validation sources recommended")
	}
	if len(recs) == 0 {
		recs = append(recs, "Data quality is acceptable")
	}
	return recs
}

// ReviewCandidate pairs a provider with its assessment and review priority.
type ReviewCandidate struct {
	Provider   model.Provider          `json:"provider"`
	Assessment model.QualityAssessment `json:"assessment"`
	Priority   float64                 `json:"priority_score"`
}

// Prioritize ranks providers for manual review, most urgent first. The sort
// is stable so equal-priority providers keep their input order. History is
// fetched per provider through lookup.
func (s *Scorer) Prioritize(providers []model.Provider, lookup func(providerID string) []model.FieldValidation, limit int) []ReviewCandidate {
	candidates := make([]ReviewCandidate, 0, len(providers))
	for _, p := range providers {
		a := s.Assess(p, lookup(p.ID))

		priority := 0.0
		if a.OverallConfidence < lowConfidenceCutoff {
			priority += 10
		}
		priority += float64(a.DiscrepancyCount) * 2
		priority += float64(len(a.Issues)) * 1.5

		candidates = append(candidates, ReviewCandidate{Provider: p, Assessment: a, Priority: priority})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}
