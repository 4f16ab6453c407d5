// Package batch sequences reconciliation over many provider records and
// tracks aggregate progress in the store.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/directory-cli/internal/enrich"
	"github.com/sells-group/directory-cli/internal/model"
	"github.com/sells-group/directory-cli/internal/reconcile"
	"github.com/sells-group/directory-cli/internal/store"
)

// Config tunes a batch run.
type Config struct {
	// Concurrency is the number of providers processed in parallel.
	// Defaults to 1 (sequential).
	Concurrency int

	// ProgressEvery flushes progress to the store after this many records.
	// Defaults to 10.
	ProgressEvery int

	// EnrichFirst runs the enrichment merger before reconciliation so newly
	// filled fields participate in validation.
	EnrichFirst bool
}

// Orchestrator runs a validation batch: for each provider it reads the
// record, optionally enriches it, reconciles it, then writes the validation
// history and the classified status back.
type Orchestrator struct {
	store  store.Store
	engine *reconcile.Engine
	merger *enrich.Merger
	cfg    Config
}

// New creates a batch orchestrator. merger may be nil when enrichment is not
// wanted.
func New(st store.Store, engine *reconcile.Engine, merger *enrich.Merger, cfg Config) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 10
	}
	return &Orchestrator{store: st, engine: engine, merger: merger, cfg: cfg}
}

// tally accumulates progress counters under a single lock. Each provider's
// read-reconcile-write cycle happens inside its own goroutine; only the
// counters are shared.
type tally struct {
	mu          sync.Mutex
	processed   int
	validated   int
	needsReview int
	confSum     float64
	failed      int
}

func (t *tally) record(status model.ProviderStatus, confidence float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed++
	t.confSum += confidence
	switch status {
	case model.ProviderStatusValidated:
		t.validated++
	case model.ProviderStatusNeedsReview:
		t.needsReview++
	}
}

func (t *tally) fail() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed++
}

func (t *tally) progress() model.BatchProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	avg := 0.0
	if t.processed > 0 {
		avg = t.confSum / float64(t.processed)
	}
	return model.BatchProgress{
		Processed:         t.processed,
		Validated:         t.validated,
		NeedsReview:       t.needsReview,
		AverageConfidence: avg,
	}
}

// Run validates every listed provider under a named batch and returns the
// completed batch row. Individual provider failures are counted, logged and
// skipped; only store-level failures abort the run.
func (o *Orchestrator) Run(ctx context.Context, name string, providerIDs []string) (*model.ValidationBatch, error) {
	b, err := o.store.CreateBatch(ctx, name, len(providerIDs))
	if err != nil {
		return nil, eris.Wrap(err, "batch: create")
	}
	if err := o.store.StartBatch(ctx, b.ID); err != nil {
		return nil, eris.Wrapf(err, "batch: start %s", b.ID)
	}

	log := zap.L().With(zap.String("batch_id", b.ID), zap.Int("total", len(providerIDs)))
	log.Info("batch started")
	start := time.Now()

	var t tally
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for i, id := range providerIDs {
		i, id := i, id
		g.Go(func() error {
			if err := o.processOne(gctx, id, &t); err != nil {
				zap.L().Error("provider validation failed",
					zap.String("provider_id", id),
					zap.Error(err))
				t.fail()
			}
			if (i+1)%o.cfg.ProgressEvery == 0 {
				if err := o.store.ReportBatchProgress(gctx, b.ID, t.progress()); err != nil {
					zap.L().Warn("progress report failed", zap.Error(err))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch: run")
	}

	final := t.progress()
	if err := o.store.ReportBatchProgress(ctx, b.ID, final); err != nil {
		return nil, eris.Wrapf(err, "batch: final progress %s", b.ID)
	}

	status := model.BatchCompleted
	if final.Processed == 0 && len(providerIDs) > 0 {
		status = model.BatchFailed
	}
	if err := o.store.CompleteBatch(ctx, b.ID, status); err != nil {
		return nil, eris.Wrapf(err, "batch: complete %s", b.ID)
	}

	log.Info("batch complete",
		zap.Int("processed", final.Processed),
		zap.Int("validated", final.Validated),
		zap.Int("needs_review", final.NeedsReview),
		zap.Float64("average_confidence", final.AverageConfidence),
		zap.Duration("elapsed", time.Since(start)),
	)
	return o.store.GetBatch(ctx, b.ID)
}

func (o *Orchestrator) processOne(ctx context.Context, providerID string, t *tally) error {
	p, err := o.store.GetProvider(ctx, providerID)
	if err != nil {
		return eris.Wrapf(err, "batch: load provider %s", providerID)
	}

	if o.cfg.EnrichFirst && o.merger != nil {
		result := o.merger.Enrich(ctx, p)
		if len(result.EnrichedFields) > 0 {
			if err := o.store.UpdateProvider(ctx, p); err != nil {
				return eris.Wrapf(err, "batch: save enrichment %s", providerID)
			}
		}
	}

	result := o.engine.Validate(ctx, *p)
	status := reconcile.Classify(result)

	if err := o.store.SaveValidations(ctx, providerID, result.Validations); err != nil {
		return eris.Wrapf(err, "batch: save validations %s", providerID)
	}
	if err := o.store.UpdateProviderStatus(ctx, providerID, status); err != nil {
		return eris.Wrapf(err, "batch: update status %s", providerID)
	}

	t.record(status, result.OverallConfidence)
	return nil
}
