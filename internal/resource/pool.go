package resource

import (
	"fmt"
	"math"
)

// Sampler draws exponentially distributed durations with a given mean
type Sampler interface {
	ExpFloat64(mean float64) float64
}

// SlotState is the state of a single server
type SlotState int

const (
	SlotIdle SlotState = iota
	SlotBusy
)

func (s SlotState) String() string {
	if s == SlotBusy {
		return "busy"
	}
	return "idle"
}

// ServerSlot is one server of the pool
type ServerSlot struct {
	State      SlotState
	Completion float64 // +Inf while idle

	startedAt   float64
	served      uint64
	serviceTime float64 // sum of completed service durations
}

// SlotStats summarizes the work done by one server
type SlotStats struct {
	Index       int     `json:"index"`
	Served      uint64  `json:"served"`
	ServiceTime float64 `json:"service_time"`
}

// ServerPool tracks c parallel servers and their scheduled completion times.
// Scans are linear, which is fine for the small server counts simulated here.
// A pool belongs to a single simulation run and is not safe for concurrent use.
type ServerPool struct {
	slots   []ServerSlot
	busy    int
	sampler Sampler
}

// NewServerPool creates a pool of size idle servers drawing service times from sampler
func NewServerPool(size int, sampler Sampler) (*ServerPool, error) {
	if size < 1 {
		return nil, fmt.Errorf("server pool size must be positive, got %d", size)
	}
	if sampler == nil {
		return nil, fmt.Errorf("server pool requires a sampler")
	}
	slots := make([]ServerSlot, size)
	for i := range slots {
		slots[i].Completion = math.Inf(1)
	}
	return &ServerPool{slots: slots, sampler: sampler}, nil
}

// Size returns the number of servers
func (p *ServerPool) Size() int {
	return len(p.slots)
}

// Busy returns the number of busy servers
func (p *ServerPool) Busy() int {
	return p.busy
}

// HasIdle reports whether at least one server is free
func (p *ServerPool) HasIdle() bool {
	return p.busy < len(p.slots)
}

// Slot returns a copy of slot i
func (p *ServerPool) Slot(i int) ServerSlot {
	return p.slots[i]
}

// Assign marks the lowest-index idle server busy until now plus a freshly
// drawn service time and returns its index. Calling Assign with no idle
// server is a logic error and panics.
func (p *ServerPool) Assign(now, meanService float64) int {
	for i := range p.slots {
		s := &p.slots[i]
		if s.State != SlotIdle {
			continue
		}
		s.State = SlotBusy
		s.startedAt = now
		s.Completion = now + p.sampler.ExpFloat64(meanService)
		p.busy++
		return i
	}
	panic(fmt.Sprintf("resource: assign called with all %d servers busy", len(p.slots)))
}

// Release frees server i. Releasing an idle server panics.
func (p *ServerPool) Release(i int) {
	if i < 0 || i >= len(p.slots) {
		panic(fmt.Sprintf("resource: release of unknown server %d", i))
	}
	s := &p.slots[i]
	if s.State != SlotBusy {
		panic(fmt.Sprintf("resource: release of idle server %d", i))
	}
	s.served++
	s.serviceTime += s.Completion - s.startedAt
	s.State = SlotIdle
	s.Completion = math.Inf(1)
	p.busy--
}

// NextCompletion returns the busy server finishing first and its completion
// time. Equal times resolve to the lowest index. With no busy server it
// returns (-1, +Inf).
func (p *ServerPool) NextCompletion() (int, float64) {
	idx, next := -1, math.Inf(1)
	if p.busy == 0 {
		return idx, next
	}
	for i := range p.slots {
		if p.slots[i].State == SlotBusy && p.slots[i].Completion < next {
			idx, next = i, p.slots[i].Completion
		}
	}
	return idx, next
}

// Stats returns per-server counters for completed services
func (p *ServerPool) Stats() []SlotStats {
	out := make([]SlotStats, len(p.slots))
	for i, s := range p.slots {
		out[i] = SlotStats{Index: i, Served: s.served, ServiceTime: s.serviceTime}
	}
	return out
}
