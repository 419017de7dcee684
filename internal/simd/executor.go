package simd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/queue-sim/internal/export"
	"github.com/GoSim-25-26J-441/queue-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/queue-sim/internal/runner"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/config"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrRunTerminal  = errors.New("run is terminal")
	ErrRunIDMissing = errors.New("run_id is required")
	ErrRunExists    = errors.New("run already exists")
	ErrStoreFull    = errors.New("run store is full")
	ErrShuttingDown = errors.New("executor is shutting down")
)

// exportTimeout bounds a single result export
const exportTimeout = 30 * time.Second

// RunExecutor manages asynchronous run execution and per-run cancellation.
type RunExecutor struct {
	store    *RunStore
	notifier *Notifier
	sink     export.ResultWriter
	logger   *slog.Logger

	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	closed   bool
	inflight sync.WaitGroup
}

// NewRunExecutor creates an executor. notifier and sink may be nil.
func NewRunExecutor(store *RunStore, notifier *Notifier, sink export.ResultWriter) *RunExecutor {
	return &RunExecutor{
		store:    store,
		notifier: notifier,
		sink:     sink,
		logger:   logger.Default,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// SetLogger replaces the executor logger
func (e *RunExecutor) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

// Start begins executing a run asynchronously.
// Returns the updated run state (running) or an error.
func (e *RunExecutor) Start(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	rec, ok := e.store.Get(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Status == models.RunStatusRunning {
		return rec, nil
	}
	if rec.Run.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s", ErrRunTerminal, runID)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrShuttingDown
	}
	if _, running := e.cancels[runID]; running {
		e.mu.Unlock()
		rec, _ = e.store.Get(runID)
		return rec, nil
	}
	updated, err := e.store.SetStatus(runID, models.RunStatusRunning, "")
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancels[runID] = cancel
	e.inflight.Add(1)
	e.mu.Unlock()

	go e.runSimulation(ctx, runID)
	return updated, nil
}

// Stop requests cancellation of a pending or running run and marks it cancelled.
func (e *RunExecutor) Stop(runID string) (*RunRecord, error) {
	if runID == "" {
		return nil, ErrRunIDMissing
	}

	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()
	if ok {
		cancel()
	}

	updated, err := e.store.SetStatus(runID, models.RunStatusCancelled, "")
	if err != nil {
		return nil, err
	}
	e.notify(updated)
	return updated, nil
}

// Simulate runs a scenario synchronously without registering it in the store
func (e *RunExecutor) Simulate(ctx context.Context, scenario *config.Scenario) (*runner.Output, error) {
	return runner.Run(ctx, scenario, runner.Options{Logger: e.logger})
}

// Shutdown cancels every in-flight run and waits for them to finish or ctx to expire.
func (e *RunExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	for _, cancel := range e.cancels {
		cancel()
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every started run has finished
func (e *RunExecutor) Wait() {
	e.inflight.Wait()
}

func (e *RunExecutor) cleanup(runID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[runID]; ok {
		cancel()
		delete(e.cancels, runID)
	}
	e.mu.Unlock()
	e.inflight.Done()
}

func (e *RunExecutor) runSimulation(ctx context.Context, runID string) {
	defer e.cleanup(runID)
	log := e.logger.With("run_id", runID)

	rec, ok := e.store.Get(runID)
	if !ok {
		log.Error("Run not found")
		return
	}

	collector := metrics.NewCollector(0)
	if err := e.store.SetCollector(runID, collector); err != nil {
		log.Error("Failed to store collector", "error", err)
	}

	started := time.Now()
	log.Info("Starting simulation", "model", rec.Scenario.Model, "duration", rec.Scenario.Duration)
	out, err := runner.Run(ctx, rec.Scenario, runner.Options{
		Logger:    log,
		Collector: collector,
		Labels:    map[string]string{"run_id": runID},
	})
	if err != nil {
		if ctx.Err() != nil {
			log.Info("Simulation cancelled")
			if updated, setErr := e.store.SetStatus(runID, models.RunStatusCancelled, ""); setErr == nil {
				e.notify(updated)
			}
			return
		}
		log.Error("Simulation failed", "error", err)
		if updated, setErr := e.store.SetStatus(runID, models.RunStatusFailed, err.Error()); setErr != nil {
			log.Error("Failed to set failed status", "error", setErr)
		} else {
			e.notify(updated)
		}
		return
	}

	updated, err := e.store.Complete(runID, out.Result)
	if err != nil {
		// Stopped after the engine finished; the cancellation stands.
		log.Info("Run finished after stop", "error", err)
		return
	}
	log.Info("Simulation completed",
		"served", out.Result.CustomersServed,
		"events", out.Result.Events,
		"wall_time", time.Since(started))

	e.export(log, updated)
	e.notify(updated)
}

func (e *RunExecutor) export(log *slog.Logger, rec *RunRecord) {
	if e.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	err := e.sink.WriteResult(ctx, export.Record{
		RunID:      rec.Run.ID,
		Scenario:   rec.Scenario.Name,
		FinishedAt: rec.Run.EndTime,
		Result:     rec.Run.Result,
	})
	if err != nil {
		log.Error("Failed to export result", "error", err)
	}
}

func (e *RunExecutor) notify(rec *RunRecord) {
	if e.notifier == nil || rec == nil {
		return
	}
	e.notifier.Notify(rec.CallbackURL, rec.CallbackSecret, rec)
}
