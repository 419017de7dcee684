package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/queue-sim/internal/export"
	"github.com/GoSim-25-26J-441/queue-sim/internal/report"
	"github.com/GoSim-25-26J-441/queue-sim/internal/runner"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/utils"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		sf      scenarioFlags
		details bool
		theory  bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation and print the report",
		Example: `  queuesim run -a 2 -d 1 -s 1000
  queuesim run -m mmc -c 3 -a 1 -d 2 -s 1000 --details --theory
  queuesim run -f config/scenarios/mm1k.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scenario, err := sf.build(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			sinks, err := openSinks(ctx, a.cfg.Export)
			if err != nil {
				return err
			}
			defer func() {
				if err := sinks.Close(); err != nil {
					logger.Warn("Closing result sinks failed", "error", err)
				}
			}()

			out, err := runner.Run(ctx, scenario, runner.Options{Logger: logger.Default})
			if err != nil {
				return err
			}
			result := out.Result

			if sinks.Len() > 0 {
				rec := export.Record{
					RunID:      utils.GenerateRunID(),
					Scenario:   scenario.Name,
					FinishedAt: time.Now().UTC(),
					Result:     result,
				}
				if err := sinks.WriteResult(ctx, rec); err != nil {
					return err
				}
				logger.Info("Result exported", "run_id", rec.RunID, "sinks", sinks.Len())
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			return report.Render(cmd.OutOrStdout(), result, report.Options{Details: details, Theory: theory})
		},
	}

	sf.register(cmd)
	fs := cmd.Flags()
	fs.BoolVar(&details, "details", false, "include arrivals, rejections and per-server counters")
	fs.BoolVar(&theory, "theory", false, "include closed-form steady-state values")
	fs.BoolVar(&asJSON, "json", false, "print the result as JSON instead of the report")
	fs.String("export-file", "", "append the result as a JSON line to this file")
	mustBind(a.v, "export.file", fs.Lookup("export-file"))
	return cmd
}
