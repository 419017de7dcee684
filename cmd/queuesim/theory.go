package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/queue-sim/internal/analytic"
	"github.com/GoSim-25-26J-441/queue-sim/internal/report"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
)

func newTheoryCmd(_ *app) *cobra.Command {
	var (
		sf     scenarioFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "theory",
		Short: "Print closed-form steady-state values without simulating",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := sf.build(cmd)
			if err != nil {
				return err
			}
			theory, err := analytic.Predict(analytic.Params{
				Model:            s.Model,
				Servers:          s.Servers,
				Capacity:         s.Capacity,
				MeanInterarrival: s.MeanInterarrival,
				MeanService:      s.MeanService,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(theory)
			}
			return report.RenderTheory(cmd.OutOrStdout(), &models.Result{
				Model:            s.Model,
				Servers:          s.Servers,
				Capacity:         s.Capacity,
				MeanInterarrival: s.MeanInterarrival,
				MeanService:      s.MeanService,
				EndTime:          s.Duration,
				Theory:           theory,
			})
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the values as JSON")
	return cmd
}
