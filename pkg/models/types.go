package models

import (
	"time"
)

// RunStatus represents the status of a simulation run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether a run in this status can no longer change
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// Run represents a simulation run managed by the daemon
type Run struct {
	ID        string            `json:"id"`
	Status    RunStatus         `json:"status"`
	Model     string            `json:"model"`
	CreatedAt time.Time         `json:"created_at"`
	StartTime time.Time         `json:"start_time,omitempty"`
	EndTime   time.Time         `json:"end_time,omitempty"`
	Duration  time.Duration     `json:"duration,omitempty"`
	Result    *Result           `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Result is the outcome of one simulation run.
// Times are in simulated time units; UtilizationPercent is in [0, 100].
type Result struct {
	Model            string  `json:"model"`
	Servers          int     `json:"servers"`
	Capacity         int     `json:"capacity,omitempty"`
	MeanInterarrival float64 `json:"mean_interarrival"`
	MeanService      float64 `json:"mean_service"`
	EndTime          float64 `json:"end_time"`
	Stream           int     `json:"stream,omitempty"`
	Seed             int64   `json:"seed"`

	CustomersServed    uint64  `json:"customers_served"`
	Arrivals           uint64  `json:"arrivals"`
	Rejected           uint64  `json:"rejected"`
	Throughput         float64 `json:"throughput"`
	UtilizationPercent float64 `json:"utilization_percent"`
	MeanOccupancy      float64 `json:"mean_occupancy"`
	MeanSojournTime    float64 `json:"mean_sojourn_time"`
	SojournDefined     bool    `json:"sojourn_defined"`

	Elapsed        float64 `json:"elapsed"`
	FinalOccupancy int     `json:"final_occupancy"`
	MaxOccupancy   int     `json:"max_occupancy"`
	Events         uint64  `json:"events"`

	ServerStats []ServerStats `json:"server_stats,omitempty"`
	Theory      *Theory       `json:"theory,omitempty"`
}

// RejectionRate is the fraction of arrivals turned away
func (r *Result) RejectionRate() float64 {
	if r.Arrivals == 0 {
		return 0
	}
	return float64(r.Rejected) / float64(r.Arrivals)
}

// ServerStats reports the work done by one server
type ServerStats struct {
	Index        int     `json:"index"`
	Served       uint64  `json:"served"`
	BusyTime     float64 `json:"busy_time"`
	BusyFraction float64 `json:"busy_fraction"`
}

// Theory holds the closed-form steady-state values for a queue model.
// Stable is false when the offered load has no steady state; the other
// fields are then zero.
type Theory struct {
	Rho                 float64 `json:"rho"`
	Stable              bool    `json:"stable"`
	Throughput          float64 `json:"throughput"`
	Utilization         float64 `json:"utilization"`
	MeanOccupancy       float64 `json:"mean_occupancy"`
	MeanSojournTime     float64 `json:"mean_sojourn_time"`
	MeanQueueLength     float64 `json:"mean_queue_length"`
	MeanWaitTime        float64 `json:"mean_wait_time"`
	BlockingProbability float64 `json:"blocking_probability,omitempty"`
	WaitProbability     float64 `json:"wait_probability,omitempty"`
}

// MetricPoint represents a single sample taken at a simulated time
type MetricPoint struct {
	SimTime float64           `json:"sim_time"`
	Name    string            `json:"name"`
	Value   float64           `json:"value"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// MetricsSummary represents a summary of collected metrics
type MetricsSummary struct {
	StartTime    float64                 `json:"start_time"`
	EndTime      float64                 `json:"end_time"`
	Metrics      map[string][]float64    `json:"metrics"` // metric name -> values
	Aggregations map[string]*Aggregation `json:"aggregations,omitempty"`
}

// Aggregation represents aggregated statistics for a metric
type Aggregation struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}
