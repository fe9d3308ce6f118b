// Package worker runs the batch attribution loop: journeys land in Postgres
// from the ingestion pipeline, the worker computes results for each
// configured model and persists them.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/paidsearchnav/attribution-service/internal/attribution"
	"github.com/paidsearchnav/attribution-service/internal/domain"
	"github.com/paidsearchnav/attribution-service/internal/pkg/logger"
)

// JourneySource is the read side the worker drains.
type JourneySource interface {
	Get(ctx context.Context, journeyID string) (*domain.CustomerJourney, error)
	Touches(ctx context.Context, journeyID string) ([]domain.AttributionTouch, error)
	ListPending(ctx context.Context, modelType domain.AttributionModelType, since time.Time, limit int) ([]string, error)
}

// ResultSink persists computed results.
type ResultSink interface {
	Save(ctx context.Context, result *domain.AttributionResult) error
}

// ResultCacher mirrors results into the read cache. Optional.
type ResultCacher interface {
	Set(ctx context.Context, modelName string, result *domain.AttributionResult) error
}

// PassLock guards a batch pass so only one instance computes at a time.
// Optional; without one every instance runs its own passes.
type PassLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// AttributionWorker polls for journeys without results and computes them.
type AttributionWorker struct {
	journeys JourneySource
	results  ResultSink
	cache    ResultCacher
	lock     PassLock
	engine   *attribution.Engine
	models   []*attribution.Model

	pollInterval time.Duration
	batchSize    int
	lookback     time.Duration

	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewAttributionWorker creates a worker computing results for the given
// model set on each poll.
func NewAttributionWorker(journeys JourneySource, results ResultSink, engine *attribution.Engine, models []*attribution.Model, pollInterval time.Duration, batchSize int) *AttributionWorker {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &AttributionWorker{
		journeys:     journeys,
		results:      results,
		engine:       engine,
		models:       models,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		lookback:     90 * 24 * time.Hour,
	}
}

// SetCache mirrors saved results into the read cache.
func (w *AttributionWorker) SetCache(cache ResultCacher) {
	w.cache = cache
}

// SetLock serializes batch passes across service instances.
func (w *AttributionWorker) SetLock(lock PassLock) {
	w.lock = lock
}

// Start begins the polling loop.
func (w *AttributionWorker) Start() {
	if w.running {
		return
	}
	w.running = true
	w.ctx, w.cancel = context.WithCancel(context.Background())

	logger.Info("attribution worker starting",
		"poll_interval", w.pollInterval.String(), "batch_size", w.batchSize, "models", len(w.models))

	w.wg.Add(1)
	go w.runLoop()
}

// Stop gracefully stops the worker.
func (w *AttributionWorker) Stop() {
	if !w.running {
		return
	}
	w.cancel()
	w.wg.Wait()
	w.running = false
	logger.Info("attribution worker stopped")
}

func (w *AttributionWorker) runLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// First pass immediately so a restart doesn't wait a full interval.
	w.RunOnce(w.ctx)

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(w.ctx)
		}
	}
}

// RunOnce processes one batch per configured model and reports how many
// results it wrote. Per-journey failures are logged and skipped so one bad
// journey cannot stall the batch.
func (w *AttributionWorker) RunOnce(ctx context.Context) int {
	if w.lock != nil {
		acquired, err := w.lock.Acquire(ctx)
		if err != nil {
			logger.Error("acquiring batch lock failed", "error", err.Error())
			return 0
		}
		if !acquired {
			logger.Debug("batch lock held elsewhere, skipping pass")
			return 0
		}
		defer func() {
			if err := w.lock.Release(ctx); err != nil {
				logger.Warn("releasing batch lock failed", "error", err.Error())
			}
		}()
	}

	since := time.Now().Add(-w.lookback)
	processed := 0

	for _, model := range w.models {
		ids, err := w.journeys.ListPending(ctx, model.ModelType, since, w.batchSize)
		if err != nil {
			logger.Error("listing pending journeys failed",
				"model", model.ModelName, "error", err.Error())
			continue
		}

		for _, journeyID := range ids {
			if ctx.Err() != nil {
				return processed
			}
			if err := w.processJourney(ctx, journeyID, model); err != nil {
				logger.Error("attribution failed for journey",
					"journey_id", journeyID, "model", model.ModelName, "error", err.Error())
				continue
			}
			processed++
		}
	}

	if processed > 0 {
		logger.Info("attribution batch complete", "results", processed)
	}
	return processed
}

func (w *AttributionWorker) processJourney(ctx context.Context, journeyID string, model *attribution.Model) error {
	journey, err := w.journeys.Get(ctx, journeyID)
	if err != nil {
		return err
	}
	touches, err := w.journeys.Touches(ctx, journeyID)
	if err != nil {
		return err
	}

	result, err := w.engine.CalculateAttribution(ctx, journey, touches, model)
	if err != nil {
		return err
	}
	if err := w.results.Save(ctx, result); err != nil {
		return err
	}

	if w.cache != nil {
		if err := w.cache.Set(ctx, model.ModelName, result); err != nil {
			// Cache is an optimization: losing a write is not a batch failure.
			logger.Warn("caching result failed",
				"journey_id", journeyID, "model", model.ModelName, "error", err.Error())
		}
	}
	return nil
}
