// Package source defines the adapter contracts for external validation
// sources and their implementations: the NPI registry, practice websites,
// and credential documents. Adapters return observed records; they never
// decide validation outcomes.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/directory-cli/internal/model"
)

// ErrNotFound is returned when a source has no record for the provider.
var ErrNotFound = errors.New("source: provider not found")

// Error wraps a failed source call with the source kind that produced it.
// The reconciliation engine treats any Error as "source unavailable" and
// continues without that source's contribution.
type Error struct {
	Kind model.SourceKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("source %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Registry looks a provider up in the national registry.
type Registry interface {
	Lookup(ctx context.Context, p model.Provider) (*model.ObservedRecord, error)
}

// Web observes a provider's practice website. The on-file record is passed
// in because the web adapter scores each extracted field against it.
type Web interface {
	Observe(ctx context.Context, siteURL string, p model.Provider) (*model.ObservedRecord, error)
}

// Document extracts an observed record from a credential document file.
type Document interface {
	Extract(ctx context.Context, path string) (*model.ObservedRecord, error)
}
