// Package runner turns a validated scenario into a finished simulation:
// it picks the variate stream, builds the engine, wires time-series sampling
// and attaches the analytic prediction to the result.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoSim-25-26J-441/queue-sim/internal/analytic"
	"github.com/GoSim-25-26J-441/queue-sim/internal/engine"
	"github.com/GoSim-25-26J-441/queue-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/config"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/utils"
)

// Options tune a single run. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// Collector receives the occupancy time series when the scenario sets a
	// sample interval. A new one is created when nil.
	Collector *metrics.Collector
	Labels    map[string]string
	// Observer, if set, sees every engine event after sampling.
	Observer engine.Observer
}

// Output is a finished run
type Output struct {
	Result    *models.Result
	Collector *metrics.Collector
}

// Discipline maps a scenario onto engine parameters
func Discipline(s *config.Scenario) (engine.Discipline, error) {
	switch s.Model {
	case config.ModelMM1:
		return engine.MM1(), nil
	case config.ModelMM1K:
		return engine.MM1K(s.Capacity), nil
	case config.ModelMMC:
		return engine.MMC(s.Servers), nil
	default:
		return engine.Discipline{}, fmt.Errorf("%w: unknown model %q", config.ErrInvalidScenario, s.Model)
	}
}

// NewSource returns the variate source selected by the scenario. An explicit
// seed wins over a stream; with neither the default stream is used.
func NewSource(s *config.Scenario) (*utils.RandSource, error) {
	switch {
	case s.Seed != 0:
		return utils.NewSeededRandSource(s.Seed)
	case s.Stream != 0:
		return utils.NewRandSource(s.Stream)
	default:
		return utils.NewDefaultRandSource(), nil
	}
}

// Run validates and executes a scenario. Defaults must already be applied.
func Run(ctx context.Context, s *config.Scenario, opts Options) (*Output, error) {
	if err := config.ValidateScenario(s); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default
	}

	discipline, err := Discipline(s)
	if err != nil {
		return nil, err
	}
	src, err := NewSource(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidScenario, err)
	}
	initialSeed := src.Seed()

	eng, err := engine.NewEngine(engine.Config{
		Discipline:       discipline,
		MeanInterarrival: s.MeanInterarrival,
		MeanService:      s.MeanService,
		EndTime:          s.Duration,
	}, src)
	if err != nil {
		return nil, err
	}
	eng.SetLogger(log)

	collector := opts.Collector
	if collector == nil {
		collector = metrics.NewCollector(0)
	}
	var sampler *metrics.IntervalSampler
	if s.SampleInterval > 0 {
		sampler = metrics.NewIntervalSampler(collector, s.SampleInterval, opts.Labels)
	}
	if sampler != nil || opts.Observer != nil {
		eng.SetObserver(func(ev engine.Event, snap engine.Snapshot) {
			if sampler != nil {
				sampler.Observe(snap.Now, metrics.StationState{Occupancy: snap.Occupancy, Busy: snap.Busy})
			}
			if opts.Observer != nil {
				opts.Observer(ev, snap)
			}
		})
	}

	raw, err := eng.RunContext(ctx)
	if err != nil {
		return nil, err
	}
	if sampler != nil {
		sampler.Flush(raw.Elapsed)
	}

	result := raw.Model()
	result.Model = s.Model
	result.Stream = s.Stream
	result.Seed = initialSeed

	theory, err := analytic.Predict(analytic.Params{
		Model:            s.Model,
		Servers:          s.Servers,
		Capacity:         s.Capacity,
		MeanInterarrival: s.MeanInterarrival,
		MeanService:      s.MeanService,
	})
	if err != nil {
		log.Warn("No analytic prediction", "model", s.Model, "error", err)
	} else {
		result.Theory = theory
	}

	return &Output{Result: result, Collector: collector}, nil
}
