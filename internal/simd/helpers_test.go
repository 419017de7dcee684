package simd

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/queue-sim/internal/export"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/config"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
)

const goldenYAML = `
name: golden
model: mm1
mean_interarrival: 2
mean_service: 1
duration: 1000
stream: 1
sample_interval: 10
`

// endlessYAML runs long enough that tests can always stop it mid-flight
const endlessYAML = `
model: mm1
mean_interarrival: 1
mean_service: 0.5
duration: 1000000000
`

func mustScenario(t *testing.T, yamlText string) *config.Scenario {
	t.Helper()
	s, err := config.ParseScenarioYAMLString(yamlText)
	if err != nil {
		t.Fatalf("ParseScenarioYAMLString: %v", err)
	}
	return s
}

func newTestExecutor(store *RunStore, notifier *Notifier, sink export.ResultWriter) *RunExecutor {
	e := NewRunExecutor(store, notifier, sink)
	e.SetLogger(logger.New("error", io.Discard))
	return e
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := NewRunStore(0)
	exec := newTestExecutor(store, nil, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = exec.Shutdown(ctx)
	})
	return NewService(store, exec, "")
}

func waitForStatus(t *testing.T, store *RunStore, runID string, want models.RunStatus) *RunRecord {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec, ok := store.Get(runID)
		if !ok {
			t.Fatalf("run %s disappeared", runID)
		}
		if rec.Run.Status == want {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	rec, _ := store.Get(runID)
	t.Fatalf("run %s did not reach %s, last status %s (%s)", runID, want, rec.Run.Status, rec.Run.Error)
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	records []export.Record
	err     error
}

func (s *recordingSink) WriteResult(_ context.Context, rec export.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) snapshot() []export.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]export.Record(nil), s.records...)
}
