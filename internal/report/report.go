// Package report builds human-readable summaries of validation batches and
// overall directory quality, plus outreach email templates.
package report

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/directory-cli/internal/assess"
	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/store"
)

// reviewDisplayLimit caps how many needs-review providers a batch report
// lists; the full count is still reported.
const reviewDisplayLimit = 50

// BatchReport summarizes one validation batch.
type BatchReport struct {
	Batch                  model.ValidationBatch `json:"batch"`
	ProvidersNeedingReview []model.Provider      `json:"providers_needing_review"`
	TotalNeedsReview       int                   `json:"total_needs_review"`
}

// BuildBatchReport loads a batch and the providers flagged for review.
func BuildBatchReport(ctx context.Context, st store.Store, batchID string) (*BatchReport, error) {
	b, err := st.GetBatch(ctx, batchID)
	if err != nil {
		return nil, eris.Wrapf(err, "report: load batch %s", batchID)
	}

	needsReview, err := st.ListProviders(ctx, store.ProviderFilter{
		Status: model.ProviderStatusNeedsReview,
		Limit:  reviewDisplayLimit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "report: list providers needing review")
	}

	return &BatchReport{
		Batch:                  *b,
		ProvidersNeedingReview: needsReview,
		TotalNeedsReview:       b.NeedsReviewCount,
	}, nil
}

// DirectoryReport aggregates quality assessments across the directory.
type DirectoryReport struct {
	TotalProviders      int            `json:"total_providers"`
	ValidatedCount      int            `json:"validated_count"`
	NeedsReviewCount    int            `json:"needs_review_count"`
	ValidationRate      float64        `json:"validation_rate"` // percent
	AverageConfidence   float64        `json:"average_confidence"`
	AverageQualityScore float64        `json:"average_quality_score"`
	TotalDiscrepancies  int            `json:"total_discrepancies"`
	TotalIssues         int            `json:"total_issues"`
	ProvidersByStatus   map[string]int `json:"providers_by_status"`
}

// BuildDirectoryReport assesses every provider against its validation
// history and aggregates the results.
func BuildDirectoryReport(ctx context.Context, st store.Store, scorer *assess.Scorer) (*DirectoryReport, error) {
	providers, err := st.ListProviders(ctx, store.ProviderFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "report: list providers")
	}

	r := &DirectoryReport{
		TotalProviders:    len(providers),
		ProvidersByStatus: map[string]int{},
	}
	if len(providers) == 0 {
		return r, nil
	}

	var confSum, qualitySum float64
	for _, p := range providers {
		history, err := st.ListValidations(ctx, p.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "report: load history for %s", p.ID)
		}
		a := scorer.Assess(p, history)

		confSum += a.OverallConfidence
		qualitySum += a.QualityScore
		r.TotalDiscrepancies += a.DiscrepancyCount
		r.TotalIssues += len(a.Issues)

		switch a.Status {
		case model.AssessmentValidated:
			r.ValidatedCount++
		case model.AssessmentNeedsReview:
			r.NeedsReviewCount++
		}
	}

	r.ValidationRate = float64(r.ValidatedCount) / float64(r.TotalProviders) * 100
	r.AverageConfidence = confSum / float64(r.TotalProviders)
	r.AverageQualityScore = qualitySum / float64(r.TotalProviders)
	r.ProvidersByStatus = map[string]int{
		"validated":        r.ValidatedCount,
		"needs_review":     r.NeedsReviewCount,
		"needs_validation": r.TotalProviders - r.ValidatedCount - r.NeedsReviewCount,
	}
	return r, nil
}
