package engine

import (
	"errors"
	"fmt"
)

// Model identifies a queue model
type Model string

const (
	ModelMM1  Model = "mm1"
	ModelMM1K Model = "mm1k"
	ModelMMC  Model = "mmc"
)

// ErrInvalidDiscipline is returned for a discipline that cannot be simulated
var ErrInvalidDiscipline = errors.New("invalid discipline")

// Discipline describes how the station admits and serves customers.
// Capacity 0 means unbounded.
type Discipline struct {
	Model    Model `json:"model"`
	Servers  int   `json:"servers"`
	Capacity int   `json:"capacity,omitempty"`
}

// MM1 is a single server with an unbounded waiting room
func MM1() Discipline {
	return Discipline{Model: ModelMM1, Servers: 1}
}

// MM1K is a single server holding at most k customers in the system
func MM1K(k int) Discipline {
	return Discipline{Model: ModelMM1K, Servers: 1, Capacity: k}
}

// MMC is c identical servers sharing an unbounded waiting room
func MMC(c int) Discipline {
	return Discipline{Model: ModelMMC, Servers: c}
}

// Admits reports whether an arrival finding occupancy customers is let in
func (d Discipline) Admits(occupancy int) bool {
	return d.Capacity == 0 || occupancy < d.Capacity
}

// Validate checks the discipline parameters
func (d Discipline) Validate() error {
	if d.Servers < 1 {
		return fmt.Errorf("%w: servers must be at least 1, got %d", ErrInvalidDiscipline, d.Servers)
	}
	if d.Model == ModelMM1K && d.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1, got %d", ErrInvalidDiscipline, d.Capacity)
	}
	if d.Capacity < 0 {
		return fmt.Errorf("%w: capacity must not be negative, got %d", ErrInvalidDiscipline, d.Capacity)
	}
	if d.Capacity > 0 && d.Capacity < d.Servers {
		return fmt.Errorf("%w: capacity %d is below server count %d", ErrInvalidDiscipline, d.Capacity, d.Servers)
	}
	return nil
}

// String returns the Kendall notation of the discipline
func (d Discipline) String() string {
	switch {
	case d.Capacity > 0 && d.Servers == 1:
		return fmt.Sprintf("M/M/1/%d", d.Capacity)
	case d.Capacity > 0:
		return fmt.Sprintf("M/M/%d/%d", d.Servers, d.Capacity)
	case d.Model == ModelMMC:
		return fmt.Sprintf("M/M/%d", d.Servers)
	default:
		return "M/M/1"
	}
}
