package main

import (
	"context"
	"fmt"

	"github.com/GoSim-25-26J-441/queue-sim/internal/export"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/config"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
)

// openSinks opens every configured result sink. The returned writer is never nil.
func openSinks(ctx context.Context, cfg config.ExportConfig) (*export.MultiWriter, error) {
	var writers []export.ResultWriter
	fail := func(err error) (*export.MultiWriter, error) {
		_ = export.NewMultiWriter(writers...).Close()
		return nil, err
	}

	if cfg.File != "" {
		w, err := export.NewFileWriter(cfg.File)
		if err != nil {
			return fail(fmt.Errorf("open result file: %w", err))
		}
		writers = append(writers, w)
		logger.Info("Exporting results to file", "path", cfg.File)
	}
	if cfg.Greptime.Enabled() {
		w, err := export.NewGreptimeWriter(cfg.Greptime)
		if err != nil {
			return fail(fmt.Errorf("open greptime sink: %w", err))
		}
		writers = append(writers, w)
		logger.Info("Exporting results to GreptimeDB", "host", cfg.Greptime.Host, "table", cfg.Greptime.Table)
	}
	if cfg.Postgres.Enabled() {
		w, err := export.NewPostgresWriter(ctx, cfg.Postgres)
		if err != nil {
			return fail(fmt.Errorf("open postgres sink: %w", err))
		}
		writers = append(writers, w)
		logger.Info("Exporting results to Postgres", "table", cfg.Postgres.Table)
	}
	return export.NewMultiWriter(writers...), nil
}
