package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/GoSim-25-26J-441/queue-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/queue-sim/internal/resource"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
)

// cancelCheckInterval is how many events are processed between context checks
const cancelCheckInterval = 4096

var (
	// ErrInvalidConfig is returned by NewEngine for unusable parameters
	ErrInvalidConfig = errors.New("invalid engine config")
	// ErrAlreadyRun is returned when Run is called twice on one engine
	ErrAlreadyRun = errors.New("engine has already run")
)

// Config holds the parameters of a single run. Times share one arbitrary unit.
type Config struct {
	Discipline       Discipline
	MeanInterarrival float64
	MeanService      float64
	EndTime          float64
}

// Validate checks the config before a run starts
func (c Config) Validate() error {
	if err := c.Discipline.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !(c.MeanInterarrival > 0) || math.IsInf(c.MeanInterarrival, 1) {
		return fmt.Errorf("%w: mean inter-arrival time must be positive, got %v", ErrInvalidConfig, c.MeanInterarrival)
	}
	if !(c.MeanService > 0) || math.IsInf(c.MeanService, 1) {
		return fmt.Errorf("%w: mean service time must be positive, got %v", ErrInvalidConfig, c.MeanService)
	}
	if !(c.EndTime > 0) || math.IsInf(c.EndTime, 1) {
		return fmt.Errorf("%w: end time must be positive, got %v", ErrInvalidConfig, c.EndTime)
	}
	return nil
}

// Engine is the discrete-event simulation engine for one station.
// An Engine runs once and is not safe for concurrent use.
type Engine struct {
	cfg      Config
	sampler  resource.Sampler
	clock    Clock
	pool     *resource.ServerPool
	acc      *metrics.Accumulator
	observer Observer
	logger   *slog.Logger

	occupancy    int
	maxOccupancy int
	arrivals     uint64
	rejected     uint64
	events       uint64
	ran          bool
}

// NewEngine creates an engine drawing every variate from sampler
func NewEngine(cfg Config, sampler resource.Sampler) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sampler == nil {
		return nil, fmt.Errorf("%w: sampler is required", ErrInvalidConfig)
	}
	pool, err := resource.NewServerPool(cfg.Discipline.Servers, sampler)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &Engine{
		cfg:     cfg,
		sampler: sampler,
		clock:   NewClock(),
		pool:    pool,
		acc:     metrics.NewAccumulator(),
		logger:  logger.Default,
	}, nil
}

// SetLogger sets the engine's logger
func (e *Engine) SetLogger(l *slog.Logger) {
	e.logger = l
}

// SetObserver registers a callback invoked after every event
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

// Config returns the engine's configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Run executes the simulation to completion
func (e *Engine) Run() (*Result, error) {
	return e.RunContext(context.Background())
}

// RunContext executes the simulation, stopping early with ctx.Err() if the
// context is cancelled. The event that crosses the end time is processed in
// full, so the final clock may lie past EndTime.
func (e *Engine) RunContext(ctx context.Context) (*Result, error) {
	if e.ran {
		return nil, ErrAlreadyRun
	}
	e.ran = true

	e.logger.Info("Starting simulation",
		"discipline", e.cfg.Discipline.String(),
		"mean_interarrival", e.cfg.MeanInterarrival,
		"mean_service", e.cfg.MeanService,
		"end_time", e.cfg.EndTime)

	debug := e.logger.Enabled(ctx, slog.LevelDebug)
	for e.clock.Now < e.cfg.EndTime {
		if e.events%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				e.logger.Info("Simulation cancelled", "sim_time", e.clock.Now, "events_processed", e.events)
				return nil, err
			}
		}

		var ev Event
		kind, at := e.clock.Next()
		if kind == EventArrival {
			ev = e.arrive(at)
		} else {
			ev = e.depart(at)
		}
		e.events++
		e.checkInvariants()

		if debug {
			e.logger.Debug("Processed event",
				"type", ev.Kind.String(),
				"sim_time", ev.Time,
				"server", ev.Server,
				"occupancy", e.occupancy,
				"next_arrival", e.clock.NextArrival,
				"next_departure", e.clock.NextDeparture)
		}
		if e.observer != nil {
			e.observer(ev, e.snapshot())
		}
	}

	result := e.result()
	e.logger.Info("Simulation completed",
		"sim_time", result.Elapsed,
		"events_processed", result.Events,
		"customers_served", result.Completed,
		"throughput", result.Summary.Throughput)
	return result, nil
}

func (e *Engine) arrive(at float64) Event {
	e.clock.AdvanceTo(at)
	e.acc.Advance(at, e.occupancy)
	e.arrivals++
	e.clock.NextArrival = at + e.sampler.ExpFloat64(e.cfg.MeanInterarrival)

	ev := Event{Kind: EventArrival, Time: at, Server: -1}
	if !e.cfg.Discipline.Admits(e.occupancy) {
		e.rejected++
		ev.Rejected = true
		return ev
	}

	e.occupancy++
	if e.occupancy > e.maxOccupancy {
		e.maxOccupancy = e.occupancy
	}
	if e.occupancy <= e.cfg.Discipline.Servers {
		if e.occupancy == e.cfg.Discipline.Servers {
			e.acc.StartBusyPeriod(at)
		}
		ev.Server = e.pool.Assign(at, e.cfg.MeanService)
		e.refreshDeparture()
	}
	return ev
}

func (e *Engine) depart(at float64) Event {
	idx, _ := e.pool.NextCompletion()
	e.clock.AdvanceTo(at)
	e.acc.Advance(at, e.occupancy)
	e.occupancy--
	e.acc.RecordDeparture()
	e.pool.Release(idx)

	c := e.cfg.Discipline.Servers
	if e.occupancy >= c {
		e.pool.Assign(at, e.cfg.MeanService)
	}
	if e.occupancy == c-1 {
		e.acc.EndBusyPeriod(at)
	}
	e.refreshDeparture()
	return Event{Kind: EventDeparture, Time: at, Server: idx}
}

func (e *Engine) refreshDeparture() {
	_, e.clock.NextDeparture = e.pool.NextCompletion()
}

func (e *Engine) checkInvariants() {
	if e.occupancy < 0 {
		panic(invariantf("negative occupancy %d", e.occupancy))
	}
	if k := e.cfg.Discipline.Capacity; k > 0 && e.occupancy > k {
		panic(invariantf("occupancy %d exceeds capacity %d", e.occupancy, k))
	}
	if want := min(e.occupancy, e.cfg.Discipline.Servers); e.pool.Busy() != want {
		panic(invariantf("%d busy servers with occupancy %d, want %d", e.pool.Busy(), e.occupancy, want))
	}
}

func (e *Engine) snapshot() Snapshot {
	totals := e.acc.Totals()
	return Snapshot{
		Now:           e.clock.Now,
		Occupancy:     e.occupancy,
		Busy:          e.pool.Busy(),
		NextArrival:   e.clock.NextArrival,
		NextDeparture: e.clock.NextDeparture,
		Area:          totals.AreaUnderOccupancy,
		BusyTime:      totals.TotalBusyTime,
		Arrivals:      e.arrivals,
		Completed:     totals.CompletedCount,
		Rejected:      e.rejected,
	}
}

func (e *Engine) result() *Result {
	totals := e.acc.Totals()
	return &Result{
		Config:         e.cfg,
		Summary:        e.acc.Summarize(e.clock.Now),
		Totals:         totals,
		Elapsed:        e.clock.Now,
		Arrivals:       e.arrivals,
		Rejected:       e.rejected,
		Completed:      totals.CompletedCount,
		FinalOccupancy: e.occupancy,
		MaxOccupancy:   e.maxOccupancy,
		Events:         e.events,
		Servers:        e.pool.Stats(),
	}
}

// InvariantError is the panic value raised when the engine state becomes inconsistent
type InvariantError struct {
	msg string
}

func (e *InvariantError) Error() string {
	return "engine invariant violated: " + e.msg
}

func invariantf(format string, args ...interface{}) *InvariantError {
	return &InvariantError{msg: fmt.Sprintf(format, args...)}
}
