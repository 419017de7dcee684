package metrics

import (
	"fmt"
	"math"
)

// RunningTotals are the raw sums collected while a simulation runs
type RunningTotals struct {
	AreaUnderOccupancy  float64 `json:"area_under_occupancy"`
	TotalBusyTime       float64 `json:"total_busy_time"`
	CompletedCount      uint64  `json:"completed_count"`
	LastEventTime       float64 `json:"last_event_time"`
	LastBusyPeriodStart float64 `json:"last_busy_period_start"`
}

// Summary holds the steady-state estimates derived from RunningTotals.
// MeanSojournTime is only meaningful when SojournDefined is true.
type Summary struct {
	Throughput      float64 `json:"throughput"`
	Utilization     float64 `json:"utilization"`
	MeanOccupancy   float64 `json:"mean_occupancy"`
	MeanSojournTime float64 `json:"mean_sojourn_time"`
	SojournDefined  bool    `json:"sojourn_defined"`
}

// Accumulator integrates occupancy over time, busy periods and departures.
// Totals only ever grow; invalid inputs indicate a bug in the caller and panic.
type Accumulator struct {
	totals RunningTotals
}

// NewAccumulator returns a zeroed accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// RecordIntervalArea adds occupancy*dt for an interval during which occupancy was constant
func (a *Accumulator) RecordIntervalArea(occupancy int, dt float64) {
	if occupancy < 0 || dt < 0 || math.IsNaN(dt) {
		panic(fmt.Sprintf("metrics: invalid interval (occupancy=%d, dt=%v)", occupancy, dt))
	}
	a.totals.AreaUnderOccupancy += float64(occupancy) * dt
}

// Advance records the interval from the last event to now at the given
// occupancy and moves the last event time forward.
func (a *Accumulator) Advance(now float64, occupancy int) {
	a.RecordIntervalArea(occupancy, now-a.totals.LastEventTime)
	a.totals.LastEventTime = now
}

// RecordDeparture counts one completed service
func (a *Accumulator) RecordDeparture() {
	a.totals.CompletedCount++
}

// StartBusyPeriod marks the beginning of a busy period
func (a *Accumulator) StartBusyPeriod(now float64) {
	a.totals.LastBusyPeriodStart = now
}

// EndBusyPeriod closes the busy period opened by StartBusyPeriod
func (a *Accumulator) EndBusyPeriod(now float64) {
	a.RecordBusyPeriodEnd(now - a.totals.LastBusyPeriodStart)
}

// RecordBusyPeriodEnd adds the length of a finished busy period
func (a *Accumulator) RecordBusyPeriodEnd(duration float64) {
	if duration < 0 || math.IsNaN(duration) {
		panic(fmt.Sprintf("metrics: negative busy period %v", duration))
	}
	a.totals.TotalBusyTime += duration
}

// Totals returns a copy of the running totals
func (a *Accumulator) Totals() RunningTotals {
	return a.totals
}

// Summarize converts the totals into rates over the elapsed simulated time.
// A zero elapsed time yields an all-zero summary with an undefined sojourn time.
func (a *Accumulator) Summarize(elapsed float64) Summary {
	if elapsed <= 0 {
		return Summary{}
	}
	s := Summary{
		Throughput:    float64(a.totals.CompletedCount) / elapsed,
		Utilization:   a.totals.TotalBusyTime / elapsed,
		MeanOccupancy: a.totals.AreaUnderOccupancy / elapsed,
	}
	if s.Throughput > 0 {
		s.MeanSojournTime = s.MeanOccupancy / s.Throughput
		s.SojournDefined = true
	}
	return s
}
