package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/pkg/npi"
)

type fakeNPIClient struct {
	byNumber map[string]*npi.Result
	byName   []npi.Result
	err      error
}

func (f *fakeNPIClient) SearchByNumber(_ context.Context, number string) (*npi.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byNumber[number], nil
}

func (f *fakeNPIClient) SearchByName(_ context.Context, _, _, _ string) ([]npi.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byName, nil
}

func registryResult() *npi.Result {
	return &npi.Result{
		Number: "1234567890",
		Basic:  npi.Basic{FirstName: "JANE", LastName: "DOE"},
		Addresses: []npi.Address{{
			Purpose:    "LOCATION",
			Line1:      "1 A ST SUITE 2",
			City:       "SPRINGFIELD",
			State:      "CA",
			PostalCode: "90001",
			Telephone:  "555-123-4567",
		}},
		Taxonomies: []npi.Taxonomy{
			{Desc: "Cardiology", Primary: true, License: "C1234", State: "CA"},
			{Desc: "Internal Medicine"},
		},
	}
}

func TestLookup_ByNumber(t *testing.T) {
	client := &fakeNPIClient{byNumber: map[string]*npi.Result{"1234567890": registryResult()}}
	a := NewRegistryAdapter(client)

	p := model.Provider{NPI: "1234567890", FirstName: "Jane", LastName: "Doe", AddressLine1: "1 A St"}
	obs, err := a.Lookup(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, model.SourceRegistry, obs.Kind)
	assert.Equal(t, "555-123-4567", obs.Phone)
	assert.Equal(t, "Cardiology", obs.Specialty)
	assert.Equal(t, []string{"Cardiology", "Internal Medicine"}, obs.Taxonomies)
	assert.Equal(t, "C1234", obs.LicenseNumber)
	// Name matches case-insensitively, address is a substring: full confidence.
	assert.InDelta(t, 1.0, obs.Confidence, 1e-9)
}

func TestLookup_NameMismatchPenalty(t *testing.T) {
	client := &fakeNPIClient{byNumber: map[string]*npi.Result{"1234567890": registryResult()}}
	a := NewRegistryAdapter(client)

	p := model.Provider{NPI: "1234567890", FirstName: "John", LastName: "Doe"}
	obs, err := a.Lookup(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, obs.Confidence, 1e-9)
}

func TestLookup_AddressPenalty(t *testing.T) {
	client := &fakeNPIClient{byNumber: map[string]*npi.Result{"1234567890": registryResult()}}
	a := NewRegistryAdapter(client)

	p := model.Provider{NPI: "1234567890", FirstName: "Jane", LastName: "Doe", AddressLine1: "9 Elsewhere Ave"}
	obs, err := a.Lookup(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, obs.Confidence, 1e-9)
}

func TestLookup_FallsBackToNameSearch(t *testing.T) {
	client := &fakeNPIClient{byName: []npi.Result{*registryResult()}}
	a := NewRegistryAdapter(client)

	p := model.Provider{FirstName: "Jane", LastName: "Doe", State: "CA"}
	obs, err := a.Lookup(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "1234567890", obs.NPI)
}

func TestLookup_NotFound(t *testing.T) {
	a := NewRegistryAdapter(&fakeNPIClient{})

	_, err := a.Lookup(context.Background(), model.Provider{FirstName: "Jane", LastName: "Doe"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookup_WrapsSourceError(t *testing.T) {
	a := NewRegistryAdapter(&fakeNPIClient{err: errors.New("api down")})

	_, err := a.Lookup(context.Background(), model.Provider{NPI: "1234567890"})
	require.Error(t, err)

	var srcErr *Error
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, model.SourceRegistry, srcErr.Kind)
}
