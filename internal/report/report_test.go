package report

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/directory-cli/internal/assess"
	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestBuildBatchReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	flagged := &model.Provider{FirstName: "Jane", LastName: "Doe", Specialty: "CARDIOLOGY"}
	require.NoError(t, s.CreateProvider(ctx, flagged))
	require.NoError(t, s.UpdateProviderStatus(ctx, flagged.ID, model.ProviderStatusNeedsReview))

	b, err := s.CreateBatch(ctx, "march audit", 10)
	require.NoError(t, err)
	require.NoError(t, s.ReportBatchProgress(ctx, b.ID, model.BatchProgress{
		Processed: 10, Validated: 9, NeedsReview: 1, AverageConfidence: 0.8,
	}))

	r, err := BuildBatchReport(ctx, s, b.ID)
	require.NoError(t, err)

	assert.Equal(t, "march audit", r.Batch.Name)
	assert.Equal(t, 1, r.TotalNeedsReview)
	require.Len(t, r.ProvidersNeedingReview, 1)
	assert.Equal(t, "Doe", r.ProvidersNeedingReview[0].LastName)
}

func TestBuildBatchReportMissingBatch(t *testing.T) {
	s := newTestStore(t)

	_, err := BuildBatchReport(context.Background(), s, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch not found")
}

func TestBuildDirectoryReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	scorer, err := assess.NewScorer(assess.DefaultConfidenceThreshold)
	require.NoError(t, err)

	good := &model.Provider{
		FirstName: "Jane", LastName: "Doe", NPI: "1234567893",
		Phone: "555-123-4567", Email: "jane@clinic.example",
		AddressLine1: "123 Main St", City: "Springfield", State: "IL",
		LicenseNumber: "IL-12345",
	}
	require.NoError(t, s.CreateProvider(ctx, good))
	require.NoError(t, s.SaveValidations(ctx, good.ID, []model.FieldValidation{
		{FieldName: "phone", Confidence: 0.9, Source: "npi", Status: model.ValidationValidated},
	}))

	unvalidated := &model.Provider{FirstName: "John", LastName: "Smith"}
	require.NoError(t, s.CreateProvider(ctx, unvalidated))

	r, err := BuildDirectoryReport(ctx, s, scorer)
	require.NoError(t, err)

	assert.Equal(t, 2, r.TotalProviders)
	assert.Equal(t, 1, r.ValidatedCount)
	assert.InDelta(t, 50.0, r.ValidationRate, 1e-9)
	assert.Equal(t, 1, r.ProvidersByStatus["needs_validation"])
}

func TestBuildDirectoryReportEmpty(t *testing.T) {
	s := newTestStore(t)
	scorer, err := assess.NewScorer(assess.DefaultConfidenceThreshold)
	require.NoError(t, err)

	r, err := BuildDirectoryReport(context.Background(), s, scorer)
	require.NoError(t, err)
	assert.Equal(t, 0, r.TotalProviders)
	assert.Equal(t, 0.0, r.ValidationRate)
}

func TestRenderBatchReport(t *testing.T) {
	r := &BatchReport{
		Batch: model.ValidationBatch{
			Name:               "march audit",
			TotalProviders:     10,
			ProcessedProviders: 10,
			ValidatedProviders: 9,
			AverageConfidence:  0.8,
			Status:             model.BatchCompleted,
		},
		TotalNeedsReview: 1,
		ProvidersNeedingReview: []model.Provider{
			{FirstName: "Jane", LastName: "Doe", Specialty: "CARDIOLOGY"},
		},
	}

	out, err := RenderBatchReport(r)
	require.NoError(t, err)
	assert.Contains(t, out, "Provider Validation Report: march audit")
	assert.Contains(t, out, "Average Confidence: 80.0%")
	assert.Contains(t, out, "Jane Doe - Cardiology")
}

func TestRenderDirectoryReport(t *testing.T) {
	out, err := RenderDirectoryReport(&DirectoryReport{
		TotalProviders:    4,
		ValidatedCount:    3,
		ValidationRate:    75.0,
		AverageConfidence: 0.82,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Validation Rate:       75.0%")
	assert.Contains(t, out, "Average Confidence:    82.0%")
}
