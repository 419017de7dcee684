package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/config"
)

// execer is satisfied by *pgxpool.Pool
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresWriter upserts one row per run into a Postgres table
type PostgresWriter struct {
	db    execer
	pool  *pgxpool.Pool
	table string
}

// NewPostgresWriter opens a pool and makes sure the results table exists
func NewPostgresWriter(ctx context.Context, cfg config.PostgresConfig) (*PostgresWriter, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	w := &PostgresWriter{db: pool, pool: pool, table: cfg.Table}
	if err := w.EnsureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return w, nil
}

func (w *PostgresWriter) quotedTable() string {
	return pgx.Identifier{w.table}.Sanitize()
}

// EnsureTable creates the results table when missing
func (w *PostgresWriter) EnsureTable(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + w.quotedTable() + ` (
  run_id              TEXT PRIMARY KEY,
  scenario            TEXT NOT NULL DEFAULT '',
  model               TEXT NOT NULL,
  customers_served    BIGINT NOT NULL,
  throughput          DOUBLE PRECISION NOT NULL,
  utilization_percent DOUBLE PRECISION NOT NULL,
  mean_occupancy      DOUBLE PRECISION NOT NULL,
  mean_sojourn_time   DOUBLE PRECISION,
  finished_at         TIMESTAMPTZ NOT NULL,
  result              JSONB NOT NULL
)`
	if _, err := w.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", w.table, err)
	}
	return nil
}

// WriteResult upserts the record keyed by run ID. An undefined sojourn time is stored as NULL.
func (w *PostgresWriter) WriteResult(ctx context.Context, rec Record) error {
	r := rec.Result
	if r == nil {
		return fmt.Errorf("postgres: run %s has no result", rec.RunID)
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("postgres: encode run %s: %w", rec.RunID, err)
	}
	var sojourn *float64
	if r.SojournDefined {
		sojourn = &r.MeanSojournTime
	}

	sql := `INSERT INTO ` + w.quotedTable() + ` (run_id, scenario, model, customers_served, throughput,
  utilization_percent, mean_occupancy, mean_sojourn_time, finished_at, result)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (run_id) DO UPDATE SET
  scenario = EXCLUDED.scenario,
  model = EXCLUDED.model,
  customers_served = EXCLUDED.customers_served,
  throughput = EXCLUDED.throughput,
  utilization_percent = EXCLUDED.utilization_percent,
  mean_occupancy = EXCLUDED.mean_occupancy,
  mean_sojourn_time = EXCLUDED.mean_sojourn_time,
  finished_at = EXCLUDED.finished_at,
  result = EXCLUDED.result`

	tag, err := w.db.Exec(ctx, sql,
		rec.RunID, rec.Scenario, r.Model, int64(r.CustomersServed), r.Throughput,
		r.UtilizationPercent, r.MeanOccupancy, sojourn, rec.FinishedAt, payload)
	if err != nil {
		return fmt.Errorf("postgres: write run %s: %w", rec.RunID, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("postgres: write run %s affected %d rows", rec.RunID, tag.RowsAffected())
	}
	return nil
}

// Close releases the connection pool
func (w *PostgresWriter) Close() error {
	if w.pool != nil {
		w.pool.Close()
	}
	return nil
}
