package export

import (
	"context"
	"fmt"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/config"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
)

// greptimeClient is the subset of the ingester client used here
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeWriter stores one row per finished run in a GreptimeDB table
type GreptimeWriter struct {
	client greptimeClient
	table  string
}

// NewGreptimeWriter connects to the configured GreptimeDB instance
func NewGreptimeWriter(cfg config.GreptimeConfig) (*GreptimeWriter, error) {
	gcfg := greptime.NewConfig(cfg.Host).WithPort(cfg.Port).WithDatabase(cfg.Database)
	if cfg.Username != "" {
		gcfg = gcfg.WithAuth(cfg.Username, cfg.Password)
	}
	client, err := greptime.NewClient(gcfg)
	if err != nil {
		return nil, fmt.Errorf("create greptime client: %w", err)
	}
	return &GreptimeWriter{client: client, table: cfg.Table}, nil
}

func (w *GreptimeWriter) buildTable(rec Record) (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, err
	}
	columns := []struct {
		name string
		typ  types.ColumnType
		tag  bool
	}{
		{"run_id", types.STRING, true},
		{"model", types.STRING, true},
		{"servers", types.INT64, false},
		{"capacity", types.INT64, false},
		{"mean_interarrival", types.FLOAT64, false},
		{"mean_service", types.FLOAT64, false},
		{"customers_served", types.UINT64, false},
		{"arrivals", types.UINT64, false},
		{"rejected", types.UINT64, false},
		{"throughput", types.FLOAT64, false},
		{"utilization_percent", types.FLOAT64, false},
		{"mean_occupancy", types.FLOAT64, false},
		{"mean_sojourn_time", types.FLOAT64, false},
		{"sojourn_defined", types.BOOLEAN, false},
		{"elapsed", types.FLOAT64, false},
	}
	for _, c := range columns {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}

	r := rec.Result
	err = tbl.AddRow(
		rec.RunID,
		r.Model,
		int64(r.Servers),
		int64(r.Capacity),
		r.MeanInterarrival,
		r.MeanService,
		r.CustomersServed,
		r.Arrivals,
		r.Rejected,
		r.Throughput,
		r.UtilizationPercent,
		r.MeanOccupancy,
		r.MeanSojournTime,
		r.SojournDefined,
		r.Elapsed,
		rec.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return tbl, nil
}

// WriteResult inserts the record as a single row
func (w *GreptimeWriter) WriteResult(ctx context.Context, rec Record) error {
	if rec.Result == nil {
		return fmt.Errorf("greptime: run %s has no result", rec.RunID)
	}
	tbl, err := w.buildTable(rec)
	if err != nil {
		return fmt.Errorf("greptime: build row for run %s: %w", rec.RunID, err)
	}
	resp, err := w.client.Write(ctx, tbl)
	if err != nil {
		return fmt.Errorf("greptime: write run %s: %w", rec.RunID, err)
	}
	logger.Debug("Wrote result to GreptimeDB",
		"run_id", rec.RunID,
		"table", w.table,
		"affected_rows", resp.GetAffectedRows().GetValue())
	return nil
}

// Close is a no-op; the ingester client holds no resources needing release
func (w *GreptimeWriter) Close() error {
	return nil
}
