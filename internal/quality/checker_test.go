package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/directory-cli/internal/model"
)

func fullProvider() model.Provider {
	return model.Provider{
		FirstName:    "Jane",
		LastName:     "Doe",
		Phone:        "555-123-4567",
		Email:        "jane.doe@example.com",
		AddressLine1: "1 A St",
		City:         "Springfield",
		State:        "CA",
		ZipCode:      "90001",
	}
}

func findValidation(t *testing.T, vs []model.FieldValidation, name string) model.FieldValidation {
	t.Helper()
	for _, v := range vs {
		if v.FieldName == name {
			return v
		}
	}
	t.Fatalf("validation %q not found", name)
	return model.FieldValidation{}
}

func TestCheck_CompleteRecord(t *testing.T) {
	vs := Check(fullProvider())
	require.Len(t, vs, 4) // phone, email, zip, completeness

	phone := findValidation(t, vs, "phone_format")
	assert.Equal(t, model.ValidationValidated, phone.Status)
	assert.Equal(t, 0.8, phone.Confidence)

	comp := findValidation(t, vs, "data_completeness")
	assert.Equal(t, model.ValidationValidated, comp.Status)
	assert.InDelta(t, 0.8, comp.Confidence, 1e-9)
	assert.Equal(t, "7/7 fields", comp.OriginalValue)
	assert.Equal(t, "100% complete", comp.ValidatedValue)
}

func TestCheck_InvalidFormats(t *testing.T) {
	p := fullProvider()
	p.Phone = "123"
	p.Email = "jane@invalid"
	p.ZipCode = "9000"

	vs := Check(p)

	phone := findValidation(t, vs, "phone_format")
	assert.Equal(t, model.ValidationNeedsReview, phone.Status)
	assert.Equal(t, 0.5, phone.Confidence)
	assert.Equal(t, "Phone format may be invalid", phone.DiscrepancyReason)
	assert.Equal(t, "Invalid format", phone.ValidatedValue)

	email := findValidation(t, vs, "email_format")
	assert.Equal(t, 0.5, email.Confidence)

	zip := findValidation(t, vs, "zip_code_format")
	assert.Equal(t, model.ValidationNeedsReview, zip.Status)
	assert.Equal(t, 0.4, zip.Confidence)
}

func TestCheck_EmptyFieldsSkipFormatChecks(t *testing.T) {
	p := model.Provider{FirstName: "Jane", LastName: "Doe"}

	vs := Check(p)
	require.Len(t, vs, 1)

	comp := vs[0]
	assert.Equal(t, "data_completeness", comp.FieldName)
	assert.Equal(t, model.ValidationNeedsReview, comp.Status)
	// 2 of 7 required fields present.
	assert.InDelta(t, 0.5+2.0/7.0*0.3, comp.Confidence, 1e-9)
	assert.Equal(t, "Only 29% of required fields present", comp.DiscrepancyReason)
}

func TestCheck_CompletenessBoundary(t *testing.T) {
	p := fullProvider()
	p.Email = "" // email is not a required field
	p.ZipCode = ""

	vs := Check(p)
	comp := findValidation(t, vs, "data_completeness")
	// 6 of 7 present: 86% >= 80% counts as complete.
	assert.Equal(t, model.ValidationValidated, comp.Status)
}
