package engine

import "math"

// EventKind distinguishes the two state transitions of the station
type EventKind int

const (
	// EventArrival is a customer entering (or being turned away)
	EventArrival EventKind = iota
	// EventDeparture is a customer finishing service
	EventDeparture
)

// String returns the event kind name
func (k EventKind) String() string {
	switch k {
	case EventArrival:
		return "arrival"
	case EventDeparture:
		return "departure"
	default:
		return "unknown"
	}
}

// Event is a processed transition.
// Server is the slot that started or finished service, -1 if none.
type Event struct {
	Kind     EventKind `json:"kind"`
	Time     float64   `json:"time"`
	Server   int       `json:"server"`
	Rejected bool      `json:"rejected,omitempty"`
}

// Snapshot is the station state right after an event was applied
type Snapshot struct {
	Now           float64 `json:"now"`
	Occupancy     int     `json:"occupancy"`
	Busy          int     `json:"busy"`
	NextArrival   float64 `json:"next_arrival"`
	NextDeparture float64 `json:"next_departure"`
	Area          float64 `json:"area"`
	BusyTime      float64 `json:"busy_time"`
	Arrivals      uint64  `json:"arrivals"`
	Completed     uint64  `json:"completed"`
	Rejected      uint64  `json:"rejected"`
}

// Observer is called after every processed event. It must not retain the
// engine or call back into it.
type Observer func(Event, Snapshot)

// Clock tracks the current simulated time and the two pending event times
type Clock struct {
	Now           float64
	NextArrival   float64
	NextDeparture float64
}

// NewClock returns a clock at time zero with the first arrival due immediately
func NewClock() Clock {
	return Clock{NextDeparture: math.Inf(1)}
}

// Next returns the kind and time of the earliest pending event.
// Ties go to the arrival.
func (c Clock) Next() (EventKind, float64) {
	if c.NextArrival <= c.NextDeparture {
		return EventArrival, c.NextArrival
	}
	return EventDeparture, c.NextDeparture
}

// AdvanceTo moves the clock forward. It panics if t is in the past.
func (c *Clock) AdvanceTo(t float64) {
	if t < c.Now || math.IsNaN(t) {
		panic(invariantf("time moved backwards from %v to %v", c.Now, t))
	}
	c.Now = t
}
