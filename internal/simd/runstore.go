package simd

import (
	"fmt"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/queue-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/config"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/utils"
)

// RunRecord is everything the daemon keeps about one run
type RunRecord struct {
	Run            *models.Run
	Scenario       *config.Scenario
	Collector      *metrics.Collector
	CallbackURL    string
	CallbackSecret string
}

// clone copies the record so callers can read it without holding the store lock.
// Scenario and Collector are shared: the scenario is never mutated after
// creation and the collector does its own locking.
func (r *RunRecord) clone() *RunRecord {
	out := *r
	run := *r.Run
	if r.Run.Metadata != nil {
		run.Metadata = make(map[string]string, len(r.Run.Metadata))
		for k, v := range r.Run.Metadata {
			run.Metadata[k] = v
		}
	}
	out.Run = &run
	return &out
}

// RunStore is an in-memory, bounded registry of runs
type RunStore struct {
	mu      sync.RWMutex
	runs    map[string]*RunRecord
	order   []string
	maxRuns int
}

// NewRunStore creates a store holding at most maxRuns runs. When full, the
// oldest terminal run is evicted to make room. maxRuns <= 0 means unbounded.
func NewRunStore(maxRuns int) *RunStore {
	return &RunStore{
		runs:    make(map[string]*RunRecord),
		maxRuns: maxRuns,
	}
}

// Create registers a new pending run. An empty runID is generated.
func (s *RunStore) Create(runID string, scenario *config.Scenario, callbackURL, callbackSecret string) (*RunRecord, error) {
	if scenario == nil {
		return nil, fmt.Errorf("%w: scenario is required", config.ErrInvalidScenario)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if runID == "" {
		runID = utils.GenerateRunID()
	}
	if _, exists := s.runs[runID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrRunExists, runID)
	}
	if s.maxRuns > 0 && len(s.runs) >= s.maxRuns && !s.evictLocked() {
		return nil, fmt.Errorf("%w: %d runs active", ErrStoreFull, len(s.runs))
	}

	rec := &RunRecord{
		Run: &models.Run{
			ID:        runID,
			Status:    models.RunStatusPending,
			Model:     scenario.Model,
			CreatedAt: time.Now().UTC(),
		},
		Scenario:       scenario,
		CallbackURL:    callbackURL,
		CallbackSecret: callbackSecret,
	}
	if scenario.Name != "" {
		rec.Run.Metadata = map[string]string{"scenario": scenario.Name}
	}
	s.runs[runID] = rec
	s.order = append(s.order, runID)
	return rec.clone(), nil
}

// evictLocked drops the oldest terminal run. Caller holds the write lock.
func (s *RunStore) evictLocked() bool {
	for i, id := range s.order {
		if s.runs[id].Run.Status.Terminal() {
			delete(s.runs, id)
			s.order = append(s.order[:i], s.order[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns a snapshot of the run
func (s *RunStore) Get(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	return rec.clone(), true
}

// List returns up to limit runs, newest first. An empty status matches all.
func (s *RunStore) List(limit, offset int, status models.RunStatus) []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	matched := make([]*RunRecord, 0, len(s.runs))
	for i := len(s.order) - 1; i >= 0; i-- {
		rec := s.runs[s.order[i]]
		if status != "" && rec.Run.Status != status {
			continue
		}
		matched = append(matched, rec)
	}

	if offset >= len(matched) {
		return []*RunRecord{}
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]*RunRecord, len(matched))
	for i, rec := range matched {
		out[i] = rec.clone()
	}
	return out
}

// SetStatus moves a run to status and stamps the start or end time.
// Terminal runs cannot change status.
func (s *RunStore) SetStatus(runID string, status models.RunStatus, errMsg string) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(runID, status, errMsg, nil)
}

// Complete stores the result and marks the run completed in one step, so a
// run stopped in the meantime never carries a result.
func (s *RunStore) Complete(runID string, result *models.Result) (*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(runID, models.RunStatusCompleted, "", result)
}

func (s *RunStore) transitionLocked(runID string, status models.RunStatus, errMsg string, result *models.Result) (*RunRecord, error) {
	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if rec.Run.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrRunTerminal, runID, rec.Run.Status)
	}

	rec.Run.Status = status
	if errMsg != "" {
		rec.Run.Error = errMsg
	}
	if result != nil {
		rec.Run.Result = result
	}

	now := time.Now().UTC()
	switch {
	case status == models.RunStatusRunning:
		if rec.Run.StartTime.IsZero() {
			rec.Run.StartTime = now
		}
	case status.Terminal():
		rec.Run.EndTime = now
		if !rec.Run.StartTime.IsZero() {
			rec.Run.Duration = now.Sub(rec.Run.StartTime)
		}
	}

	return rec.clone(), nil
}

// SetCollector attaches the time-series collector of a run
func (s *RunStore) SetCollector(runID string, collector *metrics.Collector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	rec.Collector = collector
	return nil
}

// Len returns the number of stored runs
func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
