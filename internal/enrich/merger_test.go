package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/directory-cli/internal/model"
)

type fakeRegistry struct {
	record *model.ObservedRecord
	err    error
}

func (f *fakeRegistry) Lookup(_ context.Context, _ model.Provider) (*model.ObservedRecord, error) {
	return f.record, f.err
}

type fakeWeb struct {
	record *model.ObservedRecord
	err    error
}

func (f *fakeWeb) Observe(_ context.Context, _ string, _ model.Provider) (*model.ObservedRecord, error) {
	return f.record, f.err
}

func TestMergeRegistryFillsEmptyFields(t *testing.T) {
	p := model.Provider{ID: "prov-1", FirstName: "Jane", LastName: "Doe"}
	obs := &model.ObservedRecord{
		NPI:   "1234567893",
		Phone: "555-123-4567",
		Address: model.Address{
			Line1: "123 Main St", City: "Springfield", State: "IL", ZipCode: "62701",
		},
		MiddleName: "A",
	}
	result := newResult(p.ID)

	MergeRegistry(&p, obs, result)

	assert.Equal(t, "1234567893", p.NPI)
	assert.Equal(t, "555-123-4567", p.Phone)
	assert.Equal(t, "123 Main St", p.AddressLine1)
	assert.Equal(t, "Springfield", p.City)
	assert.Equal(t, "A", p.MiddleName)

	assert.Equal(t, 0.95, result.ConfidenceScores["npi"])
	assert.Equal(t, 0.9, result.ConfidenceScores["address"])
	assert.Equal(t, 0.85, result.ConfidenceScores["phone"])
	assert.Contains(t, result.EnrichedFields, "zip_code")
}

func TestMergeRegistryNeverOverwrites(t *testing.T) {
	p := model.Provider{
		ID:    "prov-1",
		NPI:   "9999999995",
		Phone: "111-111-1111",
	}
	obs := &model.ObservedRecord{NPI: "1234567893", Phone: "555-123-4567"}
	result := newResult(p.ID)

	MergeRegistry(&p, obs, result)

	assert.Equal(t, "9999999995", p.NPI)
	assert.Equal(t, "111-111-1111", p.Phone)
	assert.Empty(t, result.EnrichedFields)
}

func TestMergeWebContactConfidence(t *testing.T) {
	p := model.Provider{ID: "prov-1"}
	obs := &model.ObservedRecord{Phone: "555-123-4567", Email: "jane@clinic.example"}
	result := newResult(p.ID)

	MergeWeb(&p, obs, result)

	assert.Equal(t, 0.7, result.ConfidenceScores["phone"])
	assert.Equal(t, 0.7, result.ConfidenceScores["email"])
	assert.Equal(t, "jane@clinic.example", result.NewInformation["email"])
}

func TestMergeWebSpecialtyAppendsOnlyNewTokens(t *testing.T) {
	p := model.Provider{ID: "prov-1", Specialty: "Cardiology"}
	obs := &model.ObservedRecord{Specialties: []string{"Cardiology", "Pediatrics"}}
	result := newResult(p.ID)

	MergeWeb(&p, obs, result)

	assert.Equal(t, "Cardiology, Pediatrics", p.Specialty)
	assert.Equal(t, 0.6, result.ConfidenceScores["specialty"])
}

func TestMergeWebSpecialtyAllKnownIsNoop(t *testing.T) {
	p := model.Provider{ID: "prov-1", Specialty: "Cardiology, Pediatrics"}
	obs := &model.ObservedRecord{Specialties: []string{"Cardiology"}}
	result := newResult(p.ID)

	MergeWeb(&p, obs, result)

	assert.Equal(t, "Cardiology, Pediatrics", p.Specialty)
	assert.Empty(t, result.EnrichedFields)
}

func TestMergeTaxonomiesPrimaryFillsSpecialty(t *testing.T) {
	p := model.Provider{ID: "prov-1"}
	result := newResult(p.ID)

	MergeTaxonomies(&p, []string{"Internal Medicine", "Cardiovascular Disease", "Sports Medicine"}, result)

	assert.Equal(t, "Internal Medicine", p.Specialty)
	assert.Equal(t, 0.9, result.ConfidenceScores["specialty"])
	assert.Equal(t, []string{"Cardiovascular Disease", "Sports Medicine"}, p.Affiliations)
}

func TestMergeTaxonomiesKeepsExistingSpecialty(t *testing.T) {
	p := model.Provider{ID: "prov-1", Specialty: "Dermatology"}
	result := newResult(p.ID)

	MergeTaxonomies(&p, []string{"Internal Medicine", "Cardiovascular Disease"}, result)

	assert.Equal(t, "Dermatology", p.Specialty)
	assert.Empty(t, result.ConfidenceScores)
	assert.Equal(t, []string{"Cardiovascular Disease"}, p.Affiliations)
}

func TestEnrichSourceFailuresAreSkipped(t *testing.T) {
	m := NewMerger(
		&fakeRegistry{err: errors.New("registry down")},
		&fakeWeb{err: errors.New("site down")},
		WithWebsiteResolver(func(model.Provider) string { return "https://clinic.example" }),
	)
	p := model.Provider{ID: "prov-1", PracticeName: "Springfield Clinic"}

	result := m.Enrich(context.Background(), &p)

	require.NotNil(t, result)
	assert.Empty(t, result.EnrichedFields)
}

func TestEnrichWebSpecialtyWinsOverTaxonomy(t *testing.T) {
	m := NewMerger(
		&fakeRegistry{record: &model.ObservedRecord{
			Taxonomies: []string{"Internal Medicine", "Cardiovascular Disease"},
		}},
		&fakeWeb{record: &model.ObservedRecord{Specialties: []string{"Cardiology"}}},
		WithWebsiteResolver(func(model.Provider) string { return "https://clinic.example" }),
	)
	p := model.Provider{ID: "prov-1", PracticeName: "Springfield Clinic"}

	result := m.Enrich(context.Background(), &p)

	assert.Equal(t, "Cardiology", p.Specialty)
	assert.Equal(t, 0.6, result.ConfidenceScores["specialty"])
	assert.Equal(t, []string{"Cardiovascular Disease"}, p.Affiliations)
}

func TestEnrichEndToEnd(t *testing.T) {
	m := NewMerger(
		&fakeRegistry{record: &model.ObservedRecord{
			NPI:        "1234567893",
			Taxonomies: []string{"Internal Medicine", "Cardiovascular Disease"},
		}},
		&fakeWeb{record: &model.ObservedRecord{Email: "jane@clinic.example"}},
		WithWebsiteResolver(func(model.Provider) string { return "https://clinic.example" }),
	)
	p := model.Provider{ID: "prov-1", PracticeName: "Springfield Clinic"}

	result := m.Enrich(context.Background(), &p)

	assert.Equal(t, "1234567893", p.NPI)
	assert.Equal(t, "Internal Medicine", p.Specialty)
	assert.Equal(t, "jane@clinic.example", p.Email)
	assert.False(t, p.UpdatedAt.IsZero())
	assert.Contains(t, result.EnrichedFields, "npi")
	assert.Contains(t, result.EnrichedFields, "email")
}
