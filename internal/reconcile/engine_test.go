package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/source"
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

func completeProvider() model.Provider {
	return model.Provider{
		ID:           "prov-1",
		FirstName:    "Jane",
		LastName:     "Doe",
		Phone:        "555-123-4567",
		Email:        "jane@clinic.example",
		AddressLine1: "123 Main St",
		City:         "Springfield",
		State:        "IL",
		ZipCode:      "62701",
	}
}

func TestValidateNoSourcesStillProducesResult(t *testing.T) {
	eng := NewEngine(nil, nil, Config{})

	result := eng.Validate(context.Background(), completeProvider())

	require.NotEmpty(t, result.Validations)
	assert.GreaterOrEqual(t, result.OverallConfidence, 0.0)
	assert.LessOrEqual(t, result.OverallConfidence, 1.0)
	for _, v := range result.Validations {
		assert.Equal(t, "prov-1", v.ProviderID)
	}
}

func TestValidateRegistryContributesPhoneAndAddress(t *testing.T) {
	reg := &fakeRegistry{record: &model.ObservedRecord{
		Kind:       model.SourceRegistry,
		Phone:      "555-123-4567",
		Address:    model.Address{Line1: "123 Main St", City: "Springfield", State: "IL", ZipCode: "62701"},
		Confidence: 1.0,
	}}
	eng := NewEngine(reg, nil, Config{})

	result := eng.Validate(context.Background(), completeProvider())

	var sawPhone, sawAddress bool
	for _, v := range result.Validations {
		switch v.FieldName {
		case "phone":
			if v.Source == "npi" {
				sawPhone = true
				assert.Equal(t, model.ValidationValidated, v.Status)
				assert.Equal(t, 1.0, v.Confidence)
			}
		case "address":
			sawAddress = true
			assert.Equal(t, model.ValidationValidated, v.Status)
		}
	}
	assert.True(t, sawPhone)
	assert.True(t, sawAddress)
}

func TestValidateRegistryFailureIsSwallowed(t *testing.T) {
	reg := &fakeRegistry{err: errors.New("registry down")}
	eng := NewEngine(reg, nil, Config{})

	result := eng.Validate(context.Background(), completeProvider())

	require.NotEmpty(t, result.Validations)
	for _, v := range result.Validations {
		assert.NotEqual(t, "npi", v.Source)
	}
}

func TestValidateRegistryNotFoundIsSwallowed(t *testing.T) {
	reg := &fakeRegistry{err: source.ErrNotFound}
	eng := NewEngine(reg, nil, Config{})

	result := eng.Validate(context.Background(), completeProvider())
	require.NotEmpty(t, result.Validations)
}

func TestValidateWebUsesPerFieldConfidences(t *testing.T) {
	web := &fakeWeb{record: &model.ObservedRecord{
		Kind:  model.SourceWeb,
		Phone: "555-123-4567",
		Email: "other@clinic.example",
		FieldConfidences: map[string]float64{
			"phone": 0.95,
			"email": 0.5,
		},
	}}
	eng := NewEngine(nil, web, Config{
		ResolveWebsite: func(model.Provider) string { return "https://clinic.example" },
	})

	result := eng.Validate(context.Background(), completeProvider())

	var sawPhone, sawEmail bool
	for _, v := range result.Validations {
		if v.Source != "web_scrape" {
			continue
		}
		switch v.FieldName {
		case "phone":
			sawPhone = true
			assert.Equal(t, model.ValidationValidated, v.Status)
			assert.Equal(t, 0.95, v.Confidence)
		case "email":
			sawEmail = true
			assert.Equal(t, model.ValidationDiscrepancy, v.Status)
			assert.Equal(t, 0.5, v.Confidence)
		}
	}
	assert.True(t, sawPhone)
	assert.True(t, sawEmail)
}

func TestValidateWebSkippedWithoutResolvedURL(t *testing.T) {
	web := &fakeWeb{record: &model.ObservedRecord{Phone: "555-123-4567"}}
	eng := NewEngine(nil, web, Config{
		ResolveWebsite: func(model.Provider) string { return "" },
	})

	result := eng.Validate(context.Background(), completeProvider())
	for _, v := range result.Validations {
		assert.NotEqual(t, "web_scrape", v.Source)
	}
}

func TestValidateCollectsDiscrepancies(t *testing.T) {
	reg := &fakeRegistry{record: &model.ObservedRecord{
		Kind:       model.SourceRegistry,
		Phone:      "999-999-9999",
		Confidence: 1.0,
	}}
	eng := NewEngine(reg, nil, Config{})

	result := eng.Validate(context.Background(), completeProvider())

	require.NotEmpty(t, result.Discrepancies)
	for _, d := range result.Discrepancies {
		assert.Equal(t, model.ValidationDiscrepancy, d.Status)
		assert.NotEmpty(t, d.DiscrepancyReason)
	}
}

func TestOverallConfidenceMeanAndFloor(t *testing.T) {
	assert.Equal(t, 0.5, overallConfidence(nil))

	vs := []model.FieldValidation{
		{Confidence: 0.8},
		{Confidence: 0.6},
	}
	assert.InDelta(t, 0.7, overallConfidence(vs), 1e-9)
}
