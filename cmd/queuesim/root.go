package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/config"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
)

// envPrefix namespaces environment overrides, e.g. QUEUESIM_SERVER_HTTP_ADDR
const envPrefix = "QUEUESIM"

// app holds the state shared by every subcommand of one command tree
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	defaults := config.DefaultConfig()

	root := &cobra.Command{
		Use:   "queuesim",
		Short: "Discrete-event simulator for M/M/1, M/M/1/k and M/M/c queues",
		Long: `queuesim simulates single-station queues with Poisson arrivals and
exponential service, and reports throughput, utilization, mean number in
system and mean sojourn time.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./queuesim.yaml or ./config/queuesim.yaml)")
	flags.String("log-level", defaults.LogLevel, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.LogFormat, "log format (text, json)")
	mustBind(a.v, "log_level", flags.Lookup("log-level"))
	mustBind(a.v, "log_format", flags.Lookup("log-format"))

	root.AddCommand(newRunCmd(a), newTheoryCmd(a), newServeCmd(a))
	return root
}

// initConfig layers defaults, config file, environment and flags, then
// installs the process logger.
func (a *app) initConfig(cmd *cobra.Command) error {
	setDefaults(a.v, config.DefaultConfig())

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("queuesim")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		a.v.AddConfigPath("config")
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	var cfg config.Config
	if err := a.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := config.ValidateConfig(&cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	log, err := logger.NewWithFormat(cfg.LogFormat, cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger.SetDefault(log)
	if used := a.v.ConfigFileUsed(); used != "" {
		logger.Debug("Loaded config file", "path", used)
	}
	return nil
}

// setDefaults registers every key so environment variables can override it
func setDefaults(v *viper.Viper, cfg config.Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("server.http_addr", cfg.Server.HTTPAddr)
	v.SetDefault("server.grpc_addr", cfg.Server.GRPCAddr)
	v.SetDefault("server.callback_secret", cfg.Server.CallbackSecret)
	v.SetDefault("server.max_runs", cfg.Server.MaxRuns)
	v.SetDefault("export.file", cfg.Export.File)
	v.SetDefault("export.greptime.host", cfg.Export.Greptime.Host)
	v.SetDefault("export.greptime.port", cfg.Export.Greptime.Port)
	v.SetDefault("export.greptime.database", cfg.Export.Greptime.Database)
	v.SetDefault("export.greptime.table", cfg.Export.Greptime.Table)
	v.SetDefault("export.greptime.username", cfg.Export.Greptime.Username)
	v.SetDefault("export.greptime.password", cfg.Export.Greptime.Password)
	v.SetDefault("export.postgres.dsn", cfg.Export.Postgres.DSN)
	v.SetDefault("export.postgres.table", cfg.Export.Postgres.Table)
}
