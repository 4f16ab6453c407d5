package batch

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/reconcile"
	"github.com/sells-group/directory-cli/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedProviders(t *testing.T, s store.Store, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := &model.Provider{
			FirstName:    "Jane",
			LastName:     "Doe",
			Phone:        "555-123-4567",
			Email:        "jane@clinic.example",
			AddressLine1: "123 Main St",
			City:         "Springfield",
			State:        "IL",
			ZipCode:      "62701",
		}
		require.NoError(t, s.CreateProvider(context.Background(), p))
		ids = append(ids, p.ID)
	}
	return ids
}

func TestRunProcessesAllProviders(t *testing.T) {
	s := newTestStore(t)
	ids := seedProviders(t, s, 5)

	// No external sources: data-quality checks only.
	engine := reconcile.NewEngine(nil, nil, reconcile.Config{})
	o := New(s, engine, nil, Config{Concurrency: 2, ProgressEvery: 2})

	b, err := o.Run(context.Background(), "quality sweep", ids)
	require.NoError(t, err)

	assert.Equal(t, model.BatchCompleted, b.Status)
	assert.Equal(t, 5, b.TotalProviders)
	assert.Equal(t, 5, b.ProcessedProviders)
	assert.Greater(t, b.AverageConfidence, 0.0)
	require.NotNil(t, b.CompletedAt)

	// Every provider got a status and a validation history.
	for _, id := range ids {
		p, err := s.GetProvider(context.Background(), id)
		require.NoError(t, err)
		assert.NotEqual(t, model.ProviderStatusPending, p.Status)

		vs, err := s.ListValidations(context.Background(), id)
		require.NoError(t, err)
		assert.NotEmpty(t, vs)
	}
}

func TestRunCountsMissingProvidersAsFailures(t *testing.T) {
	s := newTestStore(t)
	ids := seedProviders(t, s, 2)
	ids = append(ids, "does-not-exist")

	engine := reconcile.NewEngine(nil, nil, reconcile.Config{})
	o := New(s, engine, nil, Config{})

	b, err := o.Run(context.Background(), "partial", ids)
	require.NoError(t, err)

	assert.Equal(t, model.BatchCompleted, b.Status)
	assert.Equal(t, 2, b.ProcessedProviders)
}

func TestRunAllFailuresMarksBatchFailed(t *testing.T) {
	s := newTestStore(t)

	engine := reconcile.NewEngine(nil, nil, reconcile.Config{})
	o := New(s, engine, nil, Config{})

	b, err := o.Run(context.Background(), "ghosts", []string{"nope-1", "nope-2"})
	require.NoError(t, err)
	assert.Equal(t, model.BatchFailed, b.Status)
}

func TestRunEmptyBatchCompletes(t *testing.T) {
	s := newTestStore(t)

	engine := reconcile.NewEngine(nil, nil, reconcile.Config{})
	o := New(s, engine, nil, Config{})

	b, err := o.Run(context.Background(), "empty", nil)
	require.NoError(t, err)
	assert.Equal(t, model.BatchCompleted, b.Status)
	assert.Equal(t, 0, b.ProcessedProviders)
}
