// Package enrich fills empty provider fields from external observations.
// The merge is strictly one-directional: populated fields are never
// overwritten, and every filled field carries a fixed provenance confidence.
package enrich

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/source"
)

// Fixed provenance confidences per field/source pair.
const (
	confRegistryNPI     = 0.95
	confRegistryAddress = 0.9
	confRegistryPhone   = 0.85
	confWebContact      = 0.7
	confTaxonomy        = 0.9
	confWebSpecialty    = 0.6
)

// Result reports which fields an enrichment pass filled and with what
// confidence. Fields filled without a tracked confidence (city, state, zip,
// middle name) appear in EnrichedFields only.
type Result struct {
	ProviderID       string             `json:"provider_id"`
	EnrichedFields   []string           `json:"enriched_fields"`
	NewInformation   map[string]string  `json:"new_information"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
}

func newResult(providerID string) *Result {
	return &Result{
		ProviderID:       providerID,
		NewInformation:   map[string]string{},
		ConfidenceScores: map[string]float64{},
	}
}

// Merger enriches providers from the registry and web sources. Either source
// may be nil.
type Merger struct {
	registry source.Registry
	web      source.Web

	sourceTimeout  time.Duration
	resolveWebsite func(model.Provider) string
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithSourceTimeout bounds each external source call.
func WithSourceTimeout(d time.Duration) MergerOption {
	return func(m *Merger) { m.sourceTimeout = d }
}

// WithWebsiteResolver maps a provider to a practice site URL to scrape.
// Without one, web enrichment is skipped.
func WithWebsiteResolver(fn func(model.Provider) string) MergerOption {
	return func(m *Merger) { m.resolveWebsite = fn }
}

// NewMerger creates an enrichment merger over the given sources.
func NewMerger(registry source.Registry, web source.Web, opts ...MergerOption) *Merger {
	m := &Merger{
		registry:      registry,
		web:           web,
		sourceTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enrich queries every available source and fills the provider's empty
// fields in place. Source failures degrade to skipping that source.
func (m *Merger) Enrich(ctx context.Context, p *model.Provider) *Result {
	result := newResult(p.ID)

	var obs *model.ObservedRecord
	if m.registry != nil {
		cctx, cancel := context.WithTimeout(ctx, m.sourceTimeout)
		var err error
		obs, err = m.registry.Lookup(cctx, *p)
		cancel()
		if err != nil {
			zap.L().Debug("registry enrichment skipped",
				zap.String("provider_id", p.ID), zap.Error(err))
			obs = nil
		}
	}
	if obs != nil {
		MergeRegistry(p, obs, result)
	}

	if m.web != nil && m.resolveWebsite != nil && p.PracticeName != "" {
		if siteURL := m.resolveWebsite(*p); siteURL != "" {
			cctx, cancel := context.WithTimeout(ctx, m.sourceTimeout)
			webObs, err := m.web.Observe(cctx, siteURL, *p)
			cancel()
			if err != nil {
				zap.L().Debug("web enrichment skipped",
					zap.String("provider_id", p.ID), zap.Error(err))
			} else {
				MergeWeb(p, webObs, result)
			}
		}
	}

	// Taxonomies fill specialty last: a specialty scraped from the practice
	// site wins over the registry's primary taxonomy.
	if obs != nil {
		MergeTaxonomies(p, obs.Taxonomies, result)
	}

	if len(result.EnrichedFields) > 0 {
		p.UpdatedAt = time.Now().UTC()
		zap.L().Info("provider enriched",
			zap.String("provider_id", p.ID),
			zap.Strings("fields", result.EnrichedFields),
		)
	}
	return result
}

// MergeRegistry fills identity, address and phone fields from a registry
// observation.
func MergeRegistry(p *model.Provider, obs *model.ObservedRecord, result *Result) {
	if p.NPI == "" && obs.NPI != "" {
		p.NPI = obs.NPI
		record(result, "npi", obs.NPI, confRegistryNPI)
	}

	addr := obs.Address
	if p.AddressLine1 == "" && addr.Line1 != "" {
		p.AddressLine1 = addr.Line1
		record(result, "address_line1", addr.Line1, 0)
		result.ConfidenceScores["address"] = confRegistryAddress
	}
	if p.City == "" && addr.City != "" {
		p.City = addr.City
		result.EnrichedFields = append(result.EnrichedFields, "city")
	}
	if p.State == "" && addr.State != "" {
		p.State = addr.State
		result.EnrichedFields = append(result.EnrichedFields, "state")
	}
	if p.ZipCode == "" && addr.ZipCode != "" {
		p.ZipCode = addr.ZipCode
		result.EnrichedFields = append(result.EnrichedFields, "zip_code")
	}
	if p.Phone == "" && obs.Phone != "" {
		p.Phone = obs.Phone
		record(result, "phone", obs.Phone, confRegistryPhone)
	}

	if p.MiddleName == "" && obs.MiddleName != "" {
		p.MiddleName = obs.MiddleName
		result.EnrichedFields = append(result.EnrichedFields, "middle_name")
	}
}

// MergeWeb fills contact fields and appends new specialty tokens from a web
// observation.
func MergeWeb(p *model.Provider, obs *model.ObservedRecord, result *Result) {
	if p.Phone == "" && obs.Phone != "" {
		p.Phone = obs.Phone
		record(result, "phone", obs.Phone, confWebContact)
	}
	if p.Email == "" && obs.Email != "" {
		p.Email = obs.Email
		record(result, "email", obs.Email, confWebContact)
	}

	if len(obs.Specialties) == 0 {
		return
	}
	var additions []string
	for _, s := range obs.Specialties {
		if !strings.Contains(p.Specialty, s) {
			additions = append(additions, s)
		}
	}
	if len(additions) == 0 {
		return
	}
	joined := strings.Join(additions, ", ")
	if p.Specialty != "" {
		p.Specialty = p.Specialty + ", " + joined
	} else {
		p.Specialty = joined
	}
	record(result, "specialty", p.Specialty, confWebSpecialty)
}

// MergeTaxonomies uses the primary taxonomy as the specialty when it is
// missing; the remainder is stored under affiliations.
func MergeTaxonomies(p *model.Provider, taxonomies []string, result *Result) {
	if len(taxonomies) == 0 {
		return
	}
	if p.Specialty == "" {
		p.Specialty = taxonomies[0]
		record(result, "specialty", taxonomies[0], confTaxonomy)
	}
	if len(taxonomies) > 1 {
		p.Affiliations = append(p.Affiliations, taxonomies[1:]...)
	}
}

func record(result *Result, field, value string, confidence float64) {
	result.EnrichedFields = append(result.EnrichedFields, field)
	result.NewInformation[field] = value
	if confidence > 0 {
		result.ConfidenceScores[field] = confidence
	}
}
