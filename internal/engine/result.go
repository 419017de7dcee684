package engine

import (
	"github.com/GoSim-25-26J-441/queue-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/queue-sim/internal/resource"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
)

// Result is the raw outcome of a run
type Result struct {
	Config         Config
	Summary        metrics.Summary
	Totals         metrics.RunningTotals
	Elapsed        float64
	Arrivals       uint64
	Rejected       uint64
	Completed      uint64
	FinalOccupancy int
	MaxOccupancy   int
	Events         uint64
	Servers        []resource.SlotStats
}

// Model converts the result into its API representation
func (r *Result) Model() *models.Result {
	out := &models.Result{
		Model:              string(r.Config.Discipline.Model),
		Servers:            r.Config.Discipline.Servers,
		Capacity:           r.Config.Discipline.Capacity,
		MeanInterarrival:   r.Config.MeanInterarrival,
		MeanService:        r.Config.MeanService,
		EndTime:            r.Config.EndTime,
		CustomersServed:    r.Completed,
		Arrivals:           r.Arrivals,
		Rejected:           r.Rejected,
		Throughput:         r.Summary.Throughput,
		UtilizationPercent: 100 * r.Summary.Utilization,
		MeanOccupancy:      r.Summary.MeanOccupancy,
		MeanSojournTime:    r.Summary.MeanSojournTime,
		SojournDefined:     r.Summary.SojournDefined,
		Elapsed:            r.Elapsed,
		FinalOccupancy:     r.FinalOccupancy,
		MaxOccupancy:       r.MaxOccupancy,
		Events:             r.Events,
	}
	out.ServerStats = make([]models.ServerStats, len(r.Servers))
	for i, s := range r.Servers {
		stat := models.ServerStats{Index: s.Index, Served: s.Served, BusyTime: s.ServiceTime}
		if r.Elapsed > 0 {
			stat.BusyFraction = s.ServiceTime / r.Elapsed
		}
		out.ServerStats[i] = stat
	}
	return out
}
