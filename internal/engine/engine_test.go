package engine

import (
	"context"
	"errors"
	"io"
	"math"
	"reflect"
	"testing"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
)

func TestNewEngineValidation(t *testing.T) {
	valid := Config{Discipline: MM1(), MeanInterarrival: 2, MeanService: 1, EndTime: 10}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interarrival", func(c *Config) { c.MeanInterarrival = 0 }},
		{"negative service", func(c *Config) { c.MeanService = -1 }},
		{"nan service", func(c *Config) { c.MeanService = math.NaN() }},
		{"zero end time", func(c *Config) { c.EndTime = 0 }},
		{"infinite end time", func(c *Config) { c.EndTime = math.Inf(1) }},
		{"no servers", func(c *Config) { c.Discipline = MMC(0) }},
		{"zero capacity", func(c *Config) { c.Discipline = MM1K(0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := NewEngine(cfg, &scriptedSampler{t: t})
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := NewEngine(valid, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for nil sampler, got %v", err)
	}
}

func TestEngineHandReplay(t *testing.T) {
	cfg := Config{Discipline: MM1(), MeanInterarrival: 2, MeanService: 1, EndTime: 4}
	e, err := NewEngine(cfg, &scriptedSampler{t: t, draws: []float64{1, 3, 5, 2}})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	e.SetLogger(logger.New("error", io.Discard))

	var kinds []EventKind
	var times []float64
	e.SetObserver(func(ev Event, _ Snapshot) {
		kinds = append(kinds, ev.Kind)
		times = append(times, ev.Time)
	})

	res := runEngine(t, e)

	wantKinds := []EventKind{EventArrival, EventArrival, EventDeparture, EventDeparture}
	wantTimes := []float64{0, 1, 3, 5}
	if !reflect.DeepEqual(kinds, wantKinds) {
		t.Errorf("Expected events %v, got %v", wantKinds, kinds)
	}
	if !reflect.DeepEqual(times, wantTimes) {
		t.Errorf("Expected event times %v, got %v", wantTimes, times)
	}

	if res.Elapsed != 5 {
		t.Errorf("Expected final time 5, got %v", res.Elapsed)
	}
	if res.Completed != 2 {
		t.Errorf("Expected 2 completed, got %d", res.Completed)
	}
	if res.Totals.AreaUnderOccupancy != 7 {
		t.Errorf("Expected area 7, got %v", res.Totals.AreaUnderOccupancy)
	}
	if res.Totals.TotalBusyTime != 5 {
		t.Errorf("Expected busy time 5, got %v", res.Totals.TotalBusyTime)
	}
	if !approxEqual(res.Summary.Throughput, 0.4) {
		t.Errorf("Expected throughput 0.4, got %v", res.Summary.Throughput)
	}
	if !approxEqual(res.Summary.Utilization, 1.0) {
		t.Errorf("Expected utilization 1.0, got %v", res.Summary.Utilization)
	}
	if !approxEqual(res.Summary.MeanOccupancy, 1.4) {
		t.Errorf("Expected mean occupancy 1.4, got %v", res.Summary.MeanOccupancy)
	}
	if !res.Summary.SojournDefined || !approxEqual(res.Summary.MeanSojournTime, 3.5) {
		t.Errorf("Expected mean sojourn 3.5, got %v (defined=%v)", res.Summary.MeanSojournTime, res.Summary.SojournDefined)
	}
}

func TestEngineTieGoesToArrival(t *testing.T) {
	cfg := Config{Discipline: MM1(), MeanInterarrival: 2, MeanService: 2, EndTime: 2.5}
	// arrival at 0 schedules the next arrival and its completion both at 2
	e, err := NewEngine(cfg, &scriptedSampler{t: t, draws: []float64{2, 2, 5, 1}})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	e.SetLogger(logger.New("error", io.Discard))

	var seq []Event
	e.SetObserver(func(ev Event, _ Snapshot) { seq = append(seq, ev) })
	res := runEngine(t, e)

	want := []Event{
		{Kind: EventArrival, Time: 0, Server: 0},
		{Kind: EventArrival, Time: 2, Server: -1},
		{Kind: EventDeparture, Time: 2, Server: 0},
		{Kind: EventDeparture, Time: 3, Server: 0},
	}
	if !reflect.DeepEqual(seq, want) {
		t.Fatalf("Expected events %+v, got %+v", want, seq)
	}
	if res.Totals.AreaUnderOccupancy != 3 {
		t.Errorf("Expected area 3, got %v", res.Totals.AreaUnderOccupancy)
	}
	if res.Totals.TotalBusyTime != 3 {
		t.Errorf("Expected busy time 3, got %v", res.Totals.TotalBusyTime)
	}
}

func TestEngineRejectionOnlyMovesArrivalClock(t *testing.T) {
	cfg := Config{Discipline: MM1K(1), MeanInterarrival: 1, MeanService: 5, EndTime: 2.5}
	// arrivals at 0, 1, 2, 3 and a single service ending at 5
	e, err := NewEngine(cfg, &scriptedSampler{t: t, draws: []float64{1, 5, 1, 1, 1}})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	e.SetLogger(logger.New("error", io.Discard))

	var snaps []Snapshot
	e.SetObserver(func(ev Event, s Snapshot) {
		if ev.Time > 0 && !ev.Rejected {
			t.Errorf("Expected arrival at %v to be rejected", ev.Time)
		}
		snaps = append(snaps, s)
	})
	res := runEngine(t, e)

	if res.Arrivals != 4 || res.Rejected != 3 {
		t.Errorf("Expected 4 arrivals and 3 rejections, got %d and %d", res.Arrivals, res.Rejected)
	}
	for _, s := range snaps {
		if s.Occupancy != 1 || s.NextDeparture != 5 {
			t.Errorf("Rejected arrival changed station state: %+v", s)
		}
	}
	if res.Completed != 0 || res.Summary.SojournDefined {
		t.Errorf("Expected no departures and undefined sojourn, got %d completed", res.Completed)
	}
	if res.Summary.MeanSojournTime != 0 {
		t.Errorf("Expected zero sojourn placeholder, got %v", res.Summary.MeanSojournTime)
	}
}

type golden struct {
	name        string
	cfg         Config
	served      uint64
	arrivals    uint64
	rejected    uint64
	throughput  float64
	utilPercent float64
	occupancy   float64
	sojourn     float64
	maxOcc      int
}

var goldenRuns = []golden{
	{
		name:        "mm1",
		cfg:         Config{Discipline: MM1(), MeanInterarrival: 2, MeanService: 1, EndTime: 1000},
		served:      523,
		arrivals:    524,
		throughput:  0.5222865026990202,
		utilPercent: 50.684796188514305,
		occupancy:   1.1083655572183722,
		sojourn:     2.122140915935355,
		maxOcc:      9,
	},
	{
		name:        "mm1k k=1",
		cfg:         Config{Discipline: MM1K(1), MeanInterarrival: 2, MeanService: 1, EndTime: 1000},
		served:      334,
		arrivals:    488,
		rejected:    154,
		throughput:  0.33379727405070203,
		utilPercent: 31.844839134343626,
		occupancy:   0.3184483913434363,
		sojourn:     0.9540173515469322,
		maxOcc:      1,
	},
	{
		name:        "mm1k k=3",
		cfg:         Config{Discipline: MM1K(3), MeanInterarrival: 2, MeanService: 1, EndTime: 1000},
		served:      526,
		arrivals:    563,
		rejected:    36,
		throughput:  0.5250886595504992,
		utilPercent: 55.83992954813496,
		occupancy:   0.9328937352656331,
		sojourn:     1.7766404173806274,
		maxOcc:      3,
	},
	{
		name:        "mmc c=3",
		cfg:         Config{Discipline: MMC(3), MeanInterarrival: 1, MeanService: 2, EndTime: 1000},
		served:      1033,
		arrivals:    1036,
		throughput:  1.0317333180330468,
		utilPercent: 51.19395607133611,
		occupancy:   3.3245769937537535,
		sojourn:     3.22232202415631,
		maxOcc:      14,
	},
}

func TestEngineGoldenRuns(t *testing.T) {
	for _, g := range goldenRuns {
		t.Run(g.name, func(t *testing.T) {
			res := runEngine(t, newTestEngine(t, g.cfg, 1))
			m := res.Model()

			if m.CustomersServed != g.served {
				t.Errorf("Expected %d served, got %d", g.served, m.CustomersServed)
			}
			if m.Arrivals != g.arrivals {
				t.Errorf("Expected %d arrivals, got %d", g.arrivals, m.Arrivals)
			}
			if m.Rejected != g.rejected {
				t.Errorf("Expected %d rejected, got %d", g.rejected, m.Rejected)
			}
			if m.MaxOccupancy != g.maxOcc {
				t.Errorf("Expected max occupancy %d, got %d", g.maxOcc, m.MaxOccupancy)
			}
			checks := []struct {
				field     string
				got, want float64
			}{
				{"throughput", m.Throughput, g.throughput},
				{"utilization_percent", m.UtilizationPercent, g.utilPercent},
				{"mean_occupancy", m.MeanOccupancy, g.occupancy},
				{"mean_sojourn_time", m.MeanSojournTime, g.sojourn},
			}
			for _, c := range checks {
				if !approxEqual(c.got, c.want) {
					t.Errorf("Expected %s %v, got %v", c.field, c.want, c.got)
				}
			}
		})
	}
}

func TestEngineGoldenMM1Totals(t *testing.T) {
	cfg := Config{Discipline: MM1(), MeanInterarrival: 2, MeanService: 1, EndTime: 1000}
	res := runEngine(t, newTestEngine(t, cfg, 1))

	if !approxEqual(res.Elapsed, 1001.366103273381) {
		t.Errorf("Expected final time 1001.366103273381, got %v", res.Elapsed)
	}
	if !approxEqual(res.Totals.AreaUnderOccupancy, 1109.879699034191) {
		t.Errorf("Expected area 1109.879699034191, got %v", res.Totals.AreaUnderOccupancy)
	}
	if !approxEqual(res.Totals.TotalBusyTime, 507.5403685449808) {
		t.Errorf("Expected busy time 507.5403685449808, got %v", res.Totals.TotalBusyTime)
	}
	if res.FinalOccupancy != 1 {
		t.Errorf("Expected final occupancy 1, got %d", res.FinalOccupancy)
	}
	if res.Elapsed < cfg.EndTime {
		t.Errorf("Expected the crossing event to be processed, final time %v", res.Elapsed)
	}
}

func TestEngineDeterminism(t *testing.T) {
	for _, g := range goldenRuns {
		t.Run(g.name, func(t *testing.T) {
			a := runEngine(t, newTestEngine(t, g.cfg, 1))
			b := runEngine(t, newTestEngine(t, g.cfg, 1))
			if !reflect.DeepEqual(a, b) {
				t.Errorf("Two runs with the same stream differ:\n%+v\n%+v", a, b)
			}
		})
	}

	cfg := goldenRuns[0].cfg
	a := runEngine(t, newTestEngine(t, cfg, 1))
	b := runEngine(t, newTestEngine(t, cfg, 2))
	if reflect.DeepEqual(a.Totals, b.Totals) {
		t.Error("Expected different streams to produce different runs")
	}
}

func TestEngineMMCWithOneServerMatchesMM1(t *testing.T) {
	for stream := 1; stream <= 5; stream++ {
		mm1 := runEngine(t, newTestEngine(t, Config{Discipline: MM1(), MeanInterarrival: 2, MeanService: 1, EndTime: 1000}, stream))
		mmc := runEngine(t, newTestEngine(t, Config{Discipline: MMC(1), MeanInterarrival: 2, MeanService: 1, EndTime: 1000}, stream))

		if mm1.Summary != mmc.Summary {
			t.Errorf("stream %d: M/M/1 %+v differs from M/M/c(1) %+v", stream, mm1.Summary, mmc.Summary)
		}
		if mm1.Totals != mmc.Totals || mm1.Arrivals != mmc.Arrivals {
			t.Errorf("stream %d: totals differ: %+v vs %+v", stream, mm1.Totals, mmc.Totals)
		}
	}
}

func TestEngineProperties(t *testing.T) {
	disciplines := []struct {
		name string
		cfg  Config
	}{
		{"mm1 light", Config{Discipline: MM1(), MeanInterarrival: 2, MeanService: 1, EndTime: 500}},
		{"mm1 overloaded", Config{Discipline: MM1(), MeanInterarrival: 1, MeanService: 2, EndTime: 500}},
		{"mm1k k=1", Config{Discipline: MM1K(1), MeanInterarrival: 1, MeanService: 1, EndTime: 500}},
		{"mm1k k=5", Config{Discipline: MM1K(5), MeanInterarrival: 1, MeanService: 1.5, EndTime: 500}},
		{"mmc c=2", Config{Discipline: MMC(2), MeanInterarrival: 1, MeanService: 1.8, EndTime: 500}},
		{"mmc c=4", Config{Discipline: MMC(4), MeanInterarrival: 0.5, MeanService: 1.5, EndTime: 500}},
		{"mmc c=10 default times", Config{Discipline: MMC(10), MeanInterarrival: 90, MeanService: 60, EndTime: 50000}},
	}

	for _, d := range disciplines {
		for stream := 1; stream <= 15; stream++ {
			e := newTestEngine(t, d.cfg, stream)
			lastTime, lastArea, lastBusy := 0.0, 0.0, 0.0
			c := d.cfg.Discipline.Servers
			e.SetObserver(func(ev Event, s Snapshot) {
				if s.Occupancy < 0 {
					t.Fatalf("%s/%d: negative occupancy %d", d.name, stream, s.Occupancy)
				}
				if k := d.cfg.Discipline.Capacity; k > 0 && s.Occupancy > k {
					t.Fatalf("%s/%d: occupancy %d above capacity %d", d.name, stream, s.Occupancy, k)
				}
				if s.Busy != min(s.Occupancy, c) {
					t.Fatalf("%s/%d: busy %d with occupancy %d", d.name, stream, s.Busy, s.Occupancy)
				}
				if s.Now < lastTime || s.Area < lastArea || s.BusyTime < lastBusy {
					t.Fatalf("%s/%d: totals went backwards at %v", d.name, stream, s.Now)
				}
				if s.NextDeparture < s.Now {
					t.Fatalf("%s/%d: next departure %v before now %v", d.name, stream, s.NextDeparture, s.Now)
				}
				lastTime, lastArea, lastBusy = s.Now, s.Area, s.BusyTime
			})

			res := runEngine(t, e)

			if res.Arrivals != res.Completed+res.Rejected+uint64(res.FinalOccupancy) {
				t.Errorf("%s/%d: arrivals %d != served %d + rejected %d + in system %d",
					d.name, stream, res.Arrivals, res.Completed, res.Rejected, res.FinalOccupancy)
			}
			if u := res.Summary.Utilization; u < 0 || u > 1 {
				t.Errorf("%s/%d: utilization %v outside [0,1]", d.name, stream, u)
			}
			if d.cfg.Discipline.Capacity == 0 && res.Rejected != 0 {
				t.Errorf("%s/%d: unbounded station rejected %d arrivals", d.name, stream, res.Rejected)
			}
		}
	}
}

func TestEngineLossSystemSojournEqualsService(t *testing.T) {
	// with k=1 nobody waits, so the sojourn time is a pure service time
	cfg := Config{Discipline: MM1K(1), MeanInterarrival: 1, MeanService: 0.5, EndTime: 200000}
	res := runEngine(t, newTestEngine(t, cfg, 3))

	if res.MaxOccupancy != 1 {
		t.Errorf("Expected max occupancy 1, got %d", res.MaxOccupancy)
	}
	if math.Abs(res.Summary.MeanSojournTime-0.5) > 0.02 {
		t.Errorf("Expected mean sojourn near 0.5, got %v", res.Summary.MeanSojournTime)
	}
	if math.Abs(res.Summary.Utilization-res.Summary.MeanOccupancy) > 1e-4 {
		t.Errorf("Expected utilization %v to equal mean occupancy %v", res.Summary.Utilization, res.Summary.MeanOccupancy)
	}
}

func TestEngineServerStats(t *testing.T) {
	cfg := Config{Discipline: MMC(3), MeanInterarrival: 1, MeanService: 2, EndTime: 1000}
	res := runEngine(t, newTestEngine(t, cfg, 1))

	if len(res.Servers) != 3 {
		t.Fatalf("Expected 3 server stats, got %d", len(res.Servers))
	}
	var served uint64
	for _, s := range res.Servers {
		served += s.Served
	}
	if served != res.Completed {
		t.Errorf("Expected per-server served to sum to %d, got %d", res.Completed, served)
	}

	m := res.Model()
	for _, s := range m.ServerStats {
		if s.BusyFraction < 0 || s.BusyFraction > 1 {
			t.Errorf("Server %d busy fraction %v outside [0,1]", s.Index, s.BusyFraction)
		}
	}
}

func TestEngineRunsOnce(t *testing.T) {
	e := newTestEngine(t, Config{Discipline: MM1(), MeanInterarrival: 2, MeanService: 1, EndTime: 10}, 1)
	runEngine(t, e)
	if _, err := e.Run(); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("Expected ErrAlreadyRun, got %v", err)
	}
}

func TestEngineRunContextCancelled(t *testing.T) {
	e := newTestEngine(t, Config{Discipline: MM1(), MeanInterarrival: 2, MeanService: 1, EndTime: 1e9}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.RunContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if res != nil {
		t.Errorf("Expected no result after cancellation, got %+v", res)
	}
}
