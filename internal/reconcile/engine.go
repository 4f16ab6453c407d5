// Package reconcile orchestrates per-field comparison across all available
// validation sources for one provider record and classifies the outcome.
package reconcile

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/compare"
	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/quality"
	"github.com/sells-group/directory-cli/internal/source"
)

// Source tags recorded on field validations.
const (
	tagRegistry = "npi"
	tagWeb      = "web_scrape"
)

// Config bounds the engine's external calls.
type Config struct {
	// SourceTimeout caps each individual source call. Default 10s.
	SourceTimeout time.Duration

	// ResolveWebsite maps a provider to a practice website URL to observe.
	// Returning "" skips the web source for that provider.
	ResolveWebsite func(model.Provider) string
}

// Engine reconciles one provider record against its external sources.
// Either source may be nil; the data-quality checks run regardless, so a
// result is produced even with no sources configured.
type Engine struct {
	registry source.Registry
	web      source.Web
	cfg      Config
}

// NewEngine creates a reconciliation engine with explicit source adapters.
func NewEngine(registry source.Registry, web source.Web, cfg Config) *Engine {
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 10 * time.Second
	}
	return &Engine{registry: registry, web: web, cfg: cfg}
}

// Validate reconciles the provider against every available source and
// returns the combined result. Source failures are logged and skipped, never
// surfaced: Validate cannot fail.
func (e *Engine) Validate(ctx context.Context, p model.Provider) model.ReconciliationResult {
	result := model.ReconciliationResult{ProviderID: p.ID}

	result.Validations = append(result.Validations, e.validateAgainstRegistry(ctx, p)...)
	result.Validations = append(result.Validations, e.validateAgainstWeb(ctx, p)...)

	// Data-quality checks always run, so the result is never empty even when
	// every external source is down.
	result.Validations = append(result.Validations, quality.Check(p)...)

	for i := range result.Validations {
		result.Validations[i].ProviderID = p.ID
	}

	result.OverallConfidence = overallConfidence(result.Validations)
	for _, v := range result.Validations {
		if v.Status == model.ValidationDiscrepancy {
			result.Discrepancies = append(result.Discrepancies, v)
		}
	}

	zap.L().Info("reconciliation complete",
		zap.String("provider_id", p.ID),
		zap.Int("validations", len(result.Validations)),
		zap.Int("discrepancies", len(result.Discrepancies)),
		zap.Float64("overall_confidence", result.OverallConfidence),
	)
	return result
}

func (e *Engine) validateAgainstRegistry(ctx context.Context, p model.Provider) []model.FieldValidation {
	if e.registry == nil {
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.SourceTimeout)
	defer cancel()

	obs, err := e.registry.Lookup(cctx, p)
	if err != nil {
		logSourceSkip("registry", p.ID, err)
		return nil
	}

	var out []model.FieldValidation
	if obs.Phone != "" {
		out = append(out, compare.Field("phone", p.Phone, obs.Phone, tagRegistry, obs.Confidence))
	}
	if obs.Address.Line1 != "" {
		out = append(out, compare.Address(p.Address(), obs.Address, tagRegistry, obs.Confidence))
	}
	return out
}

func (e *Engine) validateAgainstWeb(ctx context.Context, p model.Provider) []model.FieldValidation {
	if e.web == nil || e.cfg.ResolveWebsite == nil {
		return nil
	}
	siteURL := e.cfg.ResolveWebsite(p)
	if siteURL == "" {
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.SourceTimeout)
	defer cancel()

	obs, err := e.web.Observe(cctx, siteURL, p)
	if err != nil {
		logSourceSkip("web", p.ID, err)
		return nil
	}

	var out []model.FieldValidation
	if obs.Phone != "" {
		out = append(out, compare.Field("phone", p.Phone, obs.Phone, tagWeb, obs.FieldConfidences["phone"]))
	}
	if obs.Email != "" {
		out = append(out, compare.Field("email", p.Email, obs.Email, tagWeb, obs.FieldConfidences["email"]))
	}
	return out
}

func overallConfidence(vs []model.FieldValidation) float64 {
	if len(vs) == 0 {
		// Floor so every record still gets a defined status.
		return 0.5
	}
	sum := 0.0
	for _, v := range vs {
		sum += v.Confidence
	}
	return sum / float64(len(vs))
}

func logSourceSkip(name, providerID string, err error) {
	if errors.Is(err, source.ErrNotFound) {
		zap.L().Debug("source has no record, skipping",
			zap.String("source", name),
			zap.String("provider_id", providerID),
		)
		return
	}
	zap.L().Warn("source unavailable, skipping",
		zap.String("source", name),
		zap.String("provider_id", providerID),
		zap.Error(err),
	)
}
