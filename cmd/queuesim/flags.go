package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/config"
)

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// scenarioFlags are the model parameters shared by run and theory. The
// one-letter shorthands follow the classic simulator options.
type scenarioFlags struct {
	file             string
	model            string
	meanInterarrival float64
	meanService      float64
	duration         float64
	servers          int
	capacity         int
	stream           int
	seed             int64
	sampleInterval   float64
}

func (f *scenarioFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.file, "scenario", "f", "", "scenario YAML file; flags override its values")
	fs.StringVarP(&f.model, "model", "m", config.ModelMM1, "queue model (mm1, mm1k, mmc)")
	fs.Float64VarP(&f.meanInterarrival, "mean-interarrival", "a", config.DefaultMeanInterarrival, "mean time between arrivals")
	fs.Float64VarP(&f.meanService, "mean-service", "d", config.DefaultMeanService, "mean service time")
	fs.Float64VarP(&f.duration, "duration", "s", config.DefaultDuration, "total simulated time")
	fs.IntVarP(&f.servers, "servers", "c", config.DefaultServers, "number of servers (mmc)")
	fs.IntVarP(&f.capacity, "capacity", "k", config.DefaultCapacity, "system capacity including the customer in service (mm1k)")
	fs.IntVar(&f.stream, "stream", config.DefaultStream, "predefined random stream (1-15)")
	fs.Int64Var(&f.seed, "seed", 0, "explicit random seed in [1, 2147483646]; overrides --stream")
	fs.Float64Var(&f.sampleInterval, "sample-interval", 0, "occupancy sampling interval in simulated time (0 disables)")
}

// build returns the scenario described by the file (if any) and the flags the user set.
func (f *scenarioFlags) build(cmd *cobra.Command) (*config.Scenario, error) {
	s := &config.Scenario{}
	if f.file != "" {
		loaded, err := config.ReadScenario(f.file)
		if err != nil {
			return nil, err
		}
		s = loaded
	}

	changed := cmd.Flags().Changed
	if f.file == "" || changed("model") {
		if s.Model != f.model {
			// file values only apply to the file's model
			if f.model != config.ModelMMC {
				s.Servers = 0
			}
			if f.model != config.ModelMM1K {
				s.Capacity = 0
			}
		}
		s.Model = f.model
	}
	if changed("mean-interarrival") {
		s.MeanInterarrival = f.meanInterarrival
	}
	if changed("mean-service") {
		s.MeanService = f.meanService
	}
	if changed("duration") {
		s.Duration = f.duration
	}
	if changed("servers") {
		s.Servers = f.servers
	}
	if changed("capacity") {
		s.Capacity = f.capacity
	}
	if changed("stream") {
		s.Stream, s.Seed = f.stream, 0
	}
	if changed("seed") {
		s.Seed, s.Stream = f.seed, 0
	}
	if changed("sample-interval") {
		s.SampleInterval = f.sampleInterval
	}

	s.ApplyDefaults()
	if err := config.ValidateScenario(s); err != nil {
		return nil, err
	}
	return s, nil
}
