package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/directory-cli/internal/assess"
	"github.com/sells-group/directory-cli/internal/batch"
	"github.com/sells-group/directory-cli/internal/enrich"
	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/reconcile"
	"github.com/sells-group/directory-cli/internal/report"
	"github.com/sells-group/directory-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the directory HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}

		engine := newEngine()
		merger := newMerger()
		orch := batch.New(st, engine, merger, batch.Config{
			Concurrency:   cfg.Batch.Concurrency,
			ProgressEvery: cfg.Batch.ProgressEvery,
			EnrichFirst:   cfg.Batch.EnrichFirst,
		})
		scorer, err := assess.NewScorer(cfg.Reconcile.ConfidenceThreshold)
		if err != nil {
			return eris.Wrap(err, "init scorer")
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st, engine, orch, merger, scorer),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(st store.Store, engine *reconcile.Engine, orch *batch.Orchestrator, merger *enrich.Merger, scorer *assess.Scorer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/providers", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		providers, err := st.ListProviders(req.Context(), store.ProviderFilter{
			Status:    model.ProviderStatus(q.Get("status")),
			State:     q.Get("state"),
			Specialty: q.Get("specialty"),
			Limit:     100,
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list providers failed"})
			return
		}
		writeJSON(w, http.StatusOK, providers)
	})

	r.Get("/providers/{id}", func(w http.ResponseWriter, req *http.Request) {
		p, err := st.GetProvider(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "provider not found"})
			return
		}
		writeJSON(w, http.StatusOK, p)
	})

	r.Post("/providers/{id}/validate", func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		p, err := st.GetProvider(ctx, chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "provider not found"})
			return
		}

		result := engine.Validate(ctx, *p)
		status := reconcile.Classify(result)

		if err := st.SaveValidations(ctx, p.ID, result.Validations); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "save validations failed"})
			return
		}
		if err := st.UpdateProviderStatus(ctx, p.ID, status); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "update status failed"})
			return
		}

		writeJSON(w, http.StatusOK, struct {
			model.ReconciliationResult
			Status model.ProviderStatus `json:"status"`
		}{result, status})
	})

	r.Post("/providers/{id}/enrich", func(w http.ResponseWriter, req *http.Request) {
		if merger == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "enrichment not configured"})
			return
		}
		ctx := req.Context()
		p, err := st.GetProvider(ctx, chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "provider not found"})
			return
		}

		result := merger.Enrich(ctx, p)
		if len(result.EnrichedFields) > 0 {
			if err := st.UpdateProvider(ctx, p); err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "save provider failed"})
				return
			}
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Post("/batches", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Name      string `json:"name"`
			State     string `json:"state"`
			Specialty string `json:"specialty"`
			Limit     int    `json:"limit"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Limit <= 0 {
			body.Limit = 100
		}

		providers, err := st.ListProviders(req.Context(), store.ProviderFilter{
			State:     body.State,
			Specialty: body.Specialty,
			Limit:     body.Limit,
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list providers failed"})
			return
		}
		if len(providers) == 0 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "no providers matched"})
			return
		}

		ids := make([]string, len(providers))
		for i, p := range providers {
			ids[i] = p.ID
		}

		// Run the batch asynchronously; progress is visible via GET /batches/{id}.
		go func() {
			b, err := orch.Run(context.Background(), body.Name, ids)
			if err != nil {
				zap.L().Error("api batch failed",
					zap.String("name", body.Name),
					zap.Error(err),
				)
				return
			}
			zap.L().Info("api batch complete",
				zap.String("batch_id", b.ID),
				zap.Int("providers", len(ids)),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":    "accepted",
			"providers": len(ids),
		})
	})

	r.Get("/batches/{id}", func(w http.ResponseWriter, req *http.Request) {
		b, err := st.GetBatch(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch not found"})
			return
		}
		writeJSON(w, http.StatusOK, b)
	})

	r.Get("/batches", func(w http.ResponseWriter, req *http.Request) {
		batches, err := st.ListBatches(req.Context(), 20)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list batches failed"})
			return
		}
		writeJSON(w, http.StatusOK, batches)
	})

	r.Get("/reports/batch/{id}", func(w http.ResponseWriter, req *http.Request) {
		rep, err := report.BuildBatchReport(req.Context(), st, chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch not found"})
			return
		}
		text, err := report.RenderBatchReport(rep)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "render report failed"})
			return
		}
		writeText(w, text)
	})

	r.Get("/reports/directory", func(w http.ResponseWriter, req *http.Request) {
		rep, err := report.BuildDirectoryReport(req.Context(), st, scorer)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "build report failed"})
			return
		}
		text, err := report.RenderDirectoryReport(rep)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "render report failed"})
			return
		}
		writeText(w, text)
	})

	return r
}

func writeText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
