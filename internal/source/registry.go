package source

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/resilience"
	"github.com/sells-group/directory-cli/pkg/npi"
)

// Match-confidence penalties for registry lookups.
const (
	namePartPenalty = 0.2
	addressPenalty  = 0.1
)

// RegistryAdapter resolves providers against the NPI registry.
type RegistryAdapter struct {
	client npi.Client
	retry  resilience.RetryConfig
}

// NewRegistryAdapter creates a registry adapter around the given API client.
func NewRegistryAdapter(client npi.Client) *RegistryAdapter {
	return &RegistryAdapter{
		client: client,
		retry:  resilience.DefaultRetryConfig(),
	}
}

// Lookup finds the provider's registry record by NPI, falling back to a
// name+state search. Returns ErrNotFound when the registry has no record.
// The returned record's Confidence is the identity-match score: 1.0 minus
// 0.2 per name-part mismatch, minus 0.1 when the on-file address line is
// not a substring of the registry's.
func (a *RegistryAdapter) Lookup(ctx context.Context, p model.Provider) (*model.ObservedRecord, error) {
	cfg := a.retry
	cfg.OnRetry = resilience.RetryLogger("registry", "lookup")

	res, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*npi.Result, error) {
		if p.NPI != "" {
			return a.client.SearchByNumber(ctx, p.NPI)
		}
		matches, err := a.client.SearchByName(ctx, p.FirstName, p.LastName, p.State)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, nil
		}
		return &matches[0], nil
	})
	if err != nil {
		return nil, &Error{Kind: model.SourceRegistry, Err: err}
	}
	if res == nil {
		return nil, ErrNotFound
	}

	obs := recordFromResult(res)
	obs.Confidence = matchConfidence(p, obs)

	zap.L().Debug("registry lookup complete",
		zap.String("provider_id", p.ID),
		zap.String("npi", obs.NPI),
		zap.Float64("confidence", obs.Confidence),
	)
	return obs, nil
}

func recordFromResult(res *npi.Result) *model.ObservedRecord {
	obs := &model.ObservedRecord{
		Kind:       model.SourceRegistry,
		NPI:        res.Number,
		FirstName:  res.Basic.FirstName,
		LastName:   res.Basic.LastName,
		MiddleName: res.Basic.MiddleName,
	}

	if loc := res.PracticeLocation(); loc != nil {
		obs.Phone = loc.Telephone
		obs.Address = model.Address{
			Line1:   loc.Line1,
			Line2:   loc.Line2,
			City:    loc.City,
			State:   loc.State,
			ZipCode: loc.PostalCode,
		}
	}

	for _, tax := range res.Taxonomies {
		if tax.Desc == "" {
			continue
		}
		obs.Taxonomies = append(obs.Taxonomies, tax.Desc)
		if tax.Primary && obs.Specialty == "" {
			obs.Specialty = tax.Desc
		}
		if tax.License != "" && obs.LicenseNumber == "" {
			obs.LicenseNumber = tax.License
			obs.LicenseState = tax.State
		}
	}
	if obs.Specialty == "" && len(obs.Taxonomies) > 0 {
		obs.Specialty = obs.Taxonomies[0]
	}

	return obs
}

// matchConfidence scores how well the registry record matches the on-file
// identity.
func matchConfidence(p model.Provider, obs *model.ObservedRecord) float64 {
	confidence := 1.0

	if !strings.EqualFold(p.FirstName, obs.FirstName) {
		confidence -= namePartPenalty
	}
	if !strings.EqualFold(p.LastName, obs.LastName) {
		confidence -= namePartPenalty
	}

	if p.AddressLine1 != "" && obs.Address.Line1 != "" {
		if !strings.Contains(strings.ToUpper(obs.Address.Line1), strings.ToUpper(p.AddressLine1)) {
			confidence -= addressPenalty
		}
	}

	if confidence < 0 {
		return 0
	}
	return confidence
}
