package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/directory-cli/internal/assess"
	"github.com/sells-group/directory-cli/internal/batch"
	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/reconcile"
	"github.com/sells-group/directory-cli/internal/store"
)

func providerWithEmail(email string) model.Provider {
	return model.Provider{Email: email}
}

func newTestRouter(t *testing.T) (http.Handler, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	// No external sources: only data-quality checks run.
	engine := reconcile.NewEngine(nil, nil, reconcile.Config{})
	orch := batch.New(st, engine, nil, batch.Config{Concurrency: 1})
	scorer, err := assess.NewScorer(0)
	require.NoError(t, err)

	return newRouter(st, engine, orch, nil, scorer), st
}

func TestServeHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeGetProviderNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/providers/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeListProviders(t *testing.T) {
	router, st := newTestRouter(t)

	p := &model.Provider{FirstName: "Jane", LastName: "Doe", State: "IL", Status: model.ProviderStatusPending}
	require.NoError(t, st.CreateProvider(context.Background(), p))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/providers?state=IL", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var providers []model.Provider
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &providers))
	require.Len(t, providers, 1)
	assert.Equal(t, "Jane", providers[0].FirstName)
}

func TestServeValidateProvider(t *testing.T) {
	router, st := newTestRouter(t)

	p := &model.Provider{
		FirstName: "Jane", LastName: "Doe",
		Phone: "(555) 123-4567", Email: "jane@lakesidecardio.com",
		AddressLine1: "123 Main St", City: "Springfield", State: "IL", ZipCode: "62701",
		Status: model.ProviderStatusPending,
	}
	require.NoError(t, st.CreateProvider(context.Background(), p))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/providers/"+p.ID+"/validate", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OverallConfidence float64              `json:"overall_confidence"`
		Status            model.ProviderStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Greater(t, resp.OverallConfidence, 0.0)
	assert.NotEmpty(t, resp.Status)

	// Validations were persisted.
	history, err := st.ListValidations(context.Background(), p.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, history)
}

func TestServeCreateBatchNoMatch(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/batches", jsonBody(t, map[string]any{"name": "empty"}))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServeCreateBatchBadBody(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/batches", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeEnrichNotConfigured(t *testing.T) {
	router, st := newTestRouter(t)

	p := providerWithEmail("jane@example.com")
	require.NoError(t, st.CreateProvider(context.Background(), &p))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/providers/"+p.ID+"/enrich", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServeDirectoryReport(t *testing.T) {
	router, st := newTestRouter(t)

	p := providerWithEmail("jane@example.com")
	require.NoError(t, st.CreateProvider(context.Background(), &p))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/directory", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "Total Providers")
}

func TestServeBatchReportNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/batch/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}
