package assess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/directory-cli/internal/model"
)

func mustScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultConfidenceThreshold)
	require.NoError(t, err)
	return s
}

func fullProvider() model.Provider {
	return model.Provider{
		ID:            "prov-1",
		NPI:           "1234567893",
		Phone:         "555-123-4567",
		Email:         "jane@clinic.example",
		AddressLine1:  "123 Main St",
		City:          "Springfield",
		State:         "IL",
		LicenseNumber: "IL-12345",
	}
}

func TestNewScorerRejectsOutOfRangeThreshold(t *testing.T) {
	_, err := NewScorer(1.5)
	require.Error(t, err)

	_, err = NewScorer(-0.1)
	require.Error(t, err)
}

func TestNewScorerZeroMeansDefault(t *testing.T) {
	s, err := NewScorer(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfidenceThreshold, s.threshold)
}

func TestAssessEmptyHistory(t *testing.T) {
	s := mustScorer(t)

	a := s.Assess(fullProvider(), nil)

	assert.Equal(t, 0.5, a.OverallConfidence)
	assert.Equal(t, 0.5, a.QualityScore)
	assert.Equal(t, model.AssessmentNeedsValidation, a.Status)
	assert.Equal(t, []string{"No validation data available"}, a.Issues)
	assert.Equal(t, []string{"Run validation process"}, a.Recommendations)
}

func TestAssessCleanHighConfidenceValidates(t *testing.T) {
	s := mustScorer(t)
	history := []model.FieldValidation{
		{FieldName: "phone", Confidence: 0.9, Status: model.ValidationValidated},
		{FieldName: "email", Confidence: 0.85, Status: model.ValidationValidated},
	}

	a := s.Assess(fullProvider(), history)

	assert.Equal(t, model.AssessmentValidated, a.Status)
	assert.InDelta(t, 0.875, a.OverallConfidence, 1e-9)
	assert.InDelta(t, 0.875, a.QualityScore, 1e-9)
	assert.Equal(t, []string{"Data quality is acceptable"}, a.Recommendations)
}

func TestAssessDiscrepancyForcesReview(t *testing.T) {
	s := mustScorer(t)
	history := []model.FieldValidation{
		{FieldName: "phone", Confidence: 0.9, Status: model.ValidationValidated},
		{
			FieldName:         "email",
			Confidence:        0.9,
			Status:            model.ValidationDiscrepancy,
			DiscrepancyReason: `Mismatch: original="a@b.com", validated="c@d.com"`,
		},
	}

	a := s.Assess(fullProvider(), history)

	assert.Equal(t, model.AssessmentNeedsReview, a.Status)
	assert.Equal(t, 1, a.DiscrepancyCount)
	assert.Contains(t, a.Issues, `Discrepancy in email: Mismatch: original="a@b.com", validated="c@d.com"`)
	assert.Contains(t, a.Recommendations, "Manual review required to resolve discrepancies")
}

func TestAssessMidConfidenceNeedsManualVerification(t *testing.T) {
	s := mustScorer(t)
	history := []model.FieldValidation{
		{FieldName: "phone", Confidence: 0.7, Status: model.ValidationValidated},
	}

	a := s.Assess(fullProvider(), history)

	assert.Equal(t, model.AssessmentNeedsManualVerify, a.Status)
}

func TestAssessPenalizesMissingFieldsAndLowConfidence(t *testing.T) {
	s := mustScorer(t)
	p := model.Provider{ID: "prov-2"} // everything missing
	history := []model.FieldValidation{
		{FieldName: "phone", Confidence: 0.5, Status: model.ValidationValidated},
		{FieldName: "email", Confidence: 0.9, Status: model.ValidationValidated},
	}

	a := s.Assess(p, history)

	// mean 0.7, minus 4*0.1 missing fields, minus 1*0.05 low confidence.
	assert.InDelta(t, 0.25, a.QualityScore, 1e-9)
	assert.Contains(t, a.Issues, "Missing phone number")
	assert.Contains(t, a.Issues, "Missing NPI number")
	assert.Contains(t, a.Issues, "1 fields with low confidence scores")
	assert.Contains(t, a.Recommendations, "Contact provider to obtain phone number")
}

func TestAssessQualityScoreClampedAtZero(t *testing.T) {
	s := mustScorer(t)
	p := model.Provider{ID: "prov-3"}
	history := []model.FieldValidation{
		{FieldName: "phone", Confidence: 0.1, Status: model.ValidationValidated},
		{FieldName: "email", Confidence: 0.1, Status: model.ValidationValidated},
		{FieldName: "zip", Confidence: 0.1, Status: model.ValidationValidated},
	}

	a := s.Assess(p, history)
	assert.Equal(t, 0.0, a.QualityScore)
}

func TestPrioritizeOrdersAndTruncates(t *testing.T) {
	s := mustScorer(t)

	clean := fullProvider()
	clean.ID = "clean"
	messy := model.Provider{ID: "messy"}
	middling := fullProvider()
	middling.ID = "middling"

	histories := map[string][]model.FieldValidation{
		"clean": {
			{FieldName: "phone", Confidence: 0.9, Status: model.ValidationValidated},
		},
		"messy": {
			{FieldName: "phone", Confidence: 0.3, Status: model.ValidationDiscrepancy, DiscrepancyReason: "x"},
		},
		"middling": {
			{FieldName: "phone", Confidence: 0.65, Status: model.ValidationValidated},
		},
	}
	lookup := func(id string) []model.FieldValidation { return histories[id] }

	ranked := s.Prioritize([]model.Provider{clean, messy, middling}, lookup, 2)

	require.Len(t, ranked, 2)
	assert.Equal(t, "messy", ranked[0].Provider.ID)
	assert.Greater(t, ranked[0].Priority, ranked[1].Priority)
}

func TestPrioritizeStableOnTies(t *testing.T) {
	s := mustScorer(t)

	a := fullProvider()
	a.ID = "a"
	b := fullProvider()
	b.ID = "b"
	lookup := func(string) []model.FieldValidation {
		return []model.FieldValidation{
			{FieldName: "phone", Confidence: 0.9, Status: model.ValidationValidated},
		}
	}

	ranked := s.Prioritize([]model.Provider{a, b}, lookup, 0)

	require.Len(t, ranked, 2)
	assert.Equal(t, "a", ranked[0].Provider.ID)
	assert.Equal(t, "b", ranked[1].Provider.ID)
}
