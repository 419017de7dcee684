package engine

import (
	"io"
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/utils"
)

// scriptedSampler returns preset draws in order, ignoring the requested mean
type scriptedSampler struct {
	t     *testing.T
	draws []float64
}

func (s *scriptedSampler) ExpFloat64(float64) float64 {
	if len(s.draws) == 0 {
		s.t.Fatal("scripted sampler exhausted")
	}
	v := s.draws[0]
	s.draws = s.draws[1:]
	return v
}

func newTestEngine(t *testing.T, cfg Config, stream int) *Engine {
	t.Helper()
	src, err := utils.NewRandSource(stream)
	if err != nil {
		t.Fatalf("NewRandSource(%d) failed: %v", stream, err)
	}
	e, err := NewEngine(cfg, src)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	e.SetLogger(logger.New("error", io.Discard))
	return e
}

func runEngine(t *testing.T, e *Engine) *Result {
	t.Helper()
	res, err := e.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return res
}

func approxEqual(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}
