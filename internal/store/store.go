// Package store persists provider records, their validation history, and
// batch progress. Two backends exist: sqlite for local runs and postgres for
// shared deployments.
package store

import (
	"context"

	"github.com/sells-group/directory-cli/internal/model"
)

// ProviderFilter specifies criteria for listing providers.
type ProviderFilter struct {
	Status    model.ProviderStatus `json:"status,omitempty"`
	State     string               `json:"state,omitempty"`
	Specialty string               `json:"specialty,omitempty"`
	Limit     int                  `json:"limit,omitempty"`
	Offset    int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for the directory pipeline.
type Store interface {
	// Providers
	CreateProvider(ctx context.Context, p *model.Provider) error
	GetProvider(ctx context.Context, id string) (*model.Provider, error)
	GetProviderByNPI(ctx context.Context, npi string) (*model.Provider, error)
	ListProviders(ctx context.Context, filter ProviderFilter) ([]model.Provider, error)
	UpdateProvider(ctx context.Context, p *model.Provider) error
	UpdateProviderStatus(ctx context.Context, id string, status model.ProviderStatus) error

	// Validation history
	SaveValidations(ctx context.Context, providerID string, validations []model.FieldValidation) error
	ListValidations(ctx context.Context, providerID string) ([]model.FieldValidation, error)

	// Batches
	CreateBatch(ctx context.Context, name string, totalProviders int) (*model.ValidationBatch, error)
	StartBatch(ctx context.Context, batchID string) error
	ReportBatchProgress(ctx context.Context, batchID string, progress model.BatchProgress) error
	CompleteBatch(ctx context.Context, batchID string, status model.BatchStatus) error
	GetBatch(ctx context.Context, batchID string) (*model.ValidationBatch, error)
	ListBatches(ctx context.Context, limit int) ([]model.ValidationBatch, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
