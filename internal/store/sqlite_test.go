package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/directory-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleProvider() *model.Provider {
	return &model.Provider{
		NPI:                 "1234567893",
		FirstName:           "Jane",
		LastName:            "Doe",
		Specialty:           "Cardiology",
		PracticeName:        "Springfield Clinic",
		Phone:               "555-123-4567",
		Email:               "jane@clinic.example",
		AddressLine1:        "123 Main St",
		City:                "Springfield",
		State:               "IL",
		ZipCode:             "62701",
		LicenseNumber:       "IL-12345",
		LicenseState:        "IL",
		BoardCertifications: []string{"ABIM Cardiology"},
		InsuranceNetworks:   []string{"Acme Health"},
	}
}

func TestCreateAndGetProvider(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := sampleProvider()
	require.NoError(t, s.CreateProvider(ctx, p))
	require.NotEmpty(t, p.ID)
	assert.Equal(t, model.ProviderStatusPending, p.Status)

	got, err := s.GetProvider(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.FirstName)
	assert.Equal(t, "1234567893", got.NPI)
	assert.Equal(t, []string{"ABIM Cardiology"}, got.BoardCertifications)
	assert.Equal(t, []string{"Acme Health"}, got.InsuranceNetworks)
}

func TestGetProviderNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetProvider(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider not found")
}

func TestGetProviderByNPI(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := sampleProvider()
	require.NoError(t, s.CreateProvider(ctx, p))

	got, err := s.GetProviderByNPI(ctx, "1234567893")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestListProvidersFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleProvider()
	require.NoError(t, s.CreateProvider(ctx, a))

	b := sampleProvider()
	b.NPI = "1234567801"
	b.LastName = "Smith"
	b.State = "CA"
	b.Specialty = "Dermatology"
	require.NoError(t, s.CreateProvider(ctx, b))
	require.NoError(t, s.UpdateProviderStatus(ctx, b.ID, model.ProviderStatusValidated))

	byState, err := s.ListProviders(ctx, ProviderFilter{State: "CA"})
	require.NoError(t, err)
	require.Len(t, byState, 1)
	assert.Equal(t, "Smith", byState[0].LastName)

	byStatus, err := s.ListProviders(ctx, ProviderFilter{Status: model.ProviderStatusValidated})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)

	bySpecialty, err := s.ListProviders(ctx, ProviderFilter{Specialty: "Cardio"})
	require.NoError(t, err)
	require.Len(t, bySpecialty, 1)
	assert.Equal(t, "Doe", bySpecialty[0].LastName)

	all, err := s.ListProviders(ctx, ProviderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateProvider(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := sampleProvider()
	require.NoError(t, s.CreateProvider(ctx, p))

	p.Phone = "555-999-0000"
	p.Affiliations = []string{"Cardiovascular Disease"}
	require.NoError(t, s.UpdateProvider(ctx, p))

	got, err := s.GetProvider(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "555-999-0000", got.Phone)
	assert.Equal(t, []string{"Cardiovascular Disease"}, got.Affiliations)
}

func TestUpdateProviderStatusNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateProviderStatus(context.Background(), "missing", model.ProviderStatusValidated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider not found")
}

func TestSaveAndListValidations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := sampleProvider()
	require.NoError(t, s.CreateProvider(ctx, p))

	validations := []model.FieldValidation{
		{
			FieldName:      "phone",
			OriginalValue:  "555-123-4567",
			ValidatedValue: "555-123-4567",
			Confidence:     1.0,
			Source:         "npi",
			Status:         model.ValidationValidated,
		},
		{
			FieldName:         "email",
			OriginalValue:     "jane@clinic.example",
			ValidatedValue:    "other@clinic.example",
			Confidence:        0.5,
			Source:            "web_scrape",
			Status:            model.ValidationDiscrepancy,
			DiscrepancyReason: `Mismatch: original="jane@clinic.example", validated="other@clinic.example"`,
		},
	}
	require.NoError(t, s.SaveValidations(ctx, p.ID, validations))

	got, err := s.ListValidations(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, v := range got {
		assert.Equal(t, p.ID, v.ProviderID)
		assert.NotEmpty(t, v.ID)
		assert.False(t, v.ValidatedAt.IsZero())
	}
}

func TestSaveValidationsEmptyIsNoop(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.SaveValidations(context.Background(), "whatever", nil))
}

func TestBatchLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b, err := s.CreateBatch(ctx, "march audit", 100)
	require.NoError(t, err)
	assert.Equal(t, model.BatchPending, b.Status)
	assert.Equal(t, 100, b.TotalProviders)

	require.NoError(t, s.StartBatch(ctx, b.ID))
	require.NoError(t, s.ReportBatchProgress(ctx, b.ID, model.BatchProgress{
		Processed:         40,
		Validated:         30,
		NeedsReview:       10,
		AverageConfidence: 0.72,
	}))
	require.NoError(t, s.CompleteBatch(ctx, b.ID, model.BatchCompleted))

	got, err := s.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchCompleted, got.Status)
	assert.Equal(t, 40, got.ProcessedProviders)
	assert.Equal(t, 30, got.ValidatedProviders)
	assert.Equal(t, 10, got.NeedsReviewCount)
	assert.InDelta(t, 0.72, got.AverageConfidence, 1e-9)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)
	assert.GreaterOrEqual(t, got.ProcessingSeconds, 0.0)

	batches, err := s.ListBatches(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestBatchNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.StartBatch(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch not found")
}
