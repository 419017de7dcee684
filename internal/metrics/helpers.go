package metrics

import "math"

// Metric names recorded by IntervalSampler
const (
	MetricOccupancy     = "occupancy"
	MetricBusyServers   = "busy_servers"
	MetricQueueLength   = "queue_length"
	MetricMeanOccupancy = "mean_occupancy"
)

// StationState is the piecewise-constant state of a station after an event
type StationState struct {
	Occupancy int
	Busy      int
}

// IntervalSampler turns the event stream of a run into samples on a
// regular simulated-time grid. Between two events the state is constant,
// so every grid point inside the gap gets the state left by the earlier event.
type IntervalSampler struct {
	collector *Collector
	labels    map[string]string
	interval  float64

	next      float64
	lastTime  float64
	lastArea  float64
	lastState StationState
}

// NewIntervalSampler samples into collector every interval units of simulated
// time, starting at 0. A non-positive interval disables sampling.
func NewIntervalSampler(collector *Collector, interval float64, labels map[string]string) *IntervalSampler {
	s := &IntervalSampler{
		collector: collector,
		labels:    copyLabels(labels),
		interval:  interval,
	}
	if interval <= 0 || math.IsNaN(interval) {
		s.next = math.Inf(1)
	}
	collector.Start(0)
	return s
}

// Observe consumes the state reached at simulated time now
func (s *IntervalSampler) Observe(now float64, state StationState) {
	s.emitBefore(now, false)
	s.lastArea += float64(s.lastState.Occupancy) * (now - s.lastTime)
	s.lastTime = now
	s.lastState = state
}

// Flush emits the remaining grid points up to and including end
func (s *IntervalSampler) Flush(end float64) {
	s.emitBefore(end, true)
	s.collector.Stop(end)
}

func (s *IntervalSampler) emitBefore(t float64, inclusive bool) {
	for s.next < t || (inclusive && s.next == t) {
		at := s.next
		area := s.lastArea + float64(s.lastState.Occupancy)*(at-s.lastTime)
		mean := float64(s.lastState.Occupancy)
		if at > 0 {
			mean = area / at
		}

		s.collector.Record(MetricOccupancy, float64(s.lastState.Occupancy), at, s.labels)
		s.collector.Record(MetricBusyServers, float64(s.lastState.Busy), at, s.labels)
		s.collector.Record(MetricQueueLength, float64(s.lastState.Occupancy-s.lastState.Busy), at, s.labels)
		s.collector.Record(MetricMeanOccupancy, mean, at, s.labels)
		s.next += s.interval
	}
}
