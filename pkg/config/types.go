package config

// Queue models understood by the simulator
const (
	ModelMM1  = "mm1"
	ModelMM1K = "mm1k"
	ModelMMC  = "mmc"
)

// Scenario defaults, taken from the classic textbook setup: a customer every
// 90 time units, 60 units of service each, run for a billion units.
const (
	DefaultMeanInterarrival = 90.0
	DefaultMeanService      = 60.0
	DefaultDuration         = 1.0e9
	DefaultServers          = 10
	DefaultCapacity         = 10
	DefaultStream           = 1
)

// Scenario describes one simulation run
type Scenario struct {
	Name             string  `yaml:"name,omitempty" json:"name,omitempty"`
	Model            string  `yaml:"model" json:"model"`
	MeanInterarrival float64 `yaml:"mean_interarrival" json:"mean_interarrival"`
	MeanService      float64 `yaml:"mean_service" json:"mean_service"`
	Duration         float64 `yaml:"duration" json:"duration"`
	Servers          int     `yaml:"servers,omitempty" json:"servers,omitempty"`
	Capacity         int     `yaml:"capacity,omitempty" json:"capacity,omitempty"`
	Stream           int     `yaml:"stream,omitempty" json:"stream,omitempty"`
	Seed             int64   `yaml:"seed,omitempty" json:"seed,omitempty"`
	SampleInterval   float64 `yaml:"sample_interval,omitempty" json:"sample_interval,omitempty"` // 0 disables time series
}

// ApplyDefaults fills every unset (zero) field. Servers defaults to 1 except
// for mmc; capacity is only defaulted for mm1k.
func (s *Scenario) ApplyDefaults() {
	if s.Model == "" {
		s.Model = ModelMM1
	}
	if s.MeanInterarrival == 0 {
		s.MeanInterarrival = DefaultMeanInterarrival
	}
	if s.MeanService == 0 {
		s.MeanService = DefaultMeanService
	}
	if s.Duration == 0 {
		s.Duration = DefaultDuration
	}
	if s.Servers == 0 {
		if s.Model == ModelMMC {
			s.Servers = DefaultServers
		} else {
			s.Servers = 1
		}
	}
	if s.Capacity == 0 && s.Model == ModelMM1K {
		s.Capacity = DefaultCapacity
	}
	if s.Stream == 0 && s.Seed == 0 {
		s.Stream = DefaultStream
	}
}

// Config is the process configuration for the CLI and the run daemon
type Config struct {
	LogLevel  string       `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string       `yaml:"log_format" mapstructure:"log_format"`
	Server    ServerConfig `yaml:"server" mapstructure:"server"`
	Export    ExportConfig `yaml:"export" mapstructure:"export"`
}

// ServerConfig configures the run daemon listeners
type ServerConfig struct {
	HTTPAddr       string `yaml:"http_addr" mapstructure:"http_addr"`
	GRPCAddr       string `yaml:"grpc_addr" mapstructure:"grpc_addr"`
	CallbackSecret string `yaml:"callback_secret" mapstructure:"callback_secret"`
	MaxRuns        int    `yaml:"max_runs" mapstructure:"max_runs"`
}

// ExportConfig selects where finished results are written. Empty sinks are disabled.
type ExportConfig struct {
	File     string         `yaml:"file" mapstructure:"file"`
	Greptime GreptimeConfig `yaml:"greptime" mapstructure:"greptime"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// GreptimeConfig configures the GreptimeDB result sink
type GreptimeConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Database string `yaml:"database" mapstructure:"database"`
	Table    string `yaml:"table" mapstructure:"table"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// Enabled reports whether the sink is configured
func (g GreptimeConfig) Enabled() bool { return g.Host != "" }

// PostgresConfig configures the Postgres result sink
type PostgresConfig struct {
	DSN   string `yaml:"dsn" mapstructure:"dsn"`
	Table string `yaml:"table" mapstructure:"table"`
}

// Enabled reports whether the sink is configured
func (p PostgresConfig) Enabled() bool { return p.DSN != "" }

// DefaultConfig returns the process configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			HTTPAddr: ":8080",
			GRPCAddr: ":50051",
			MaxRuns:  1000,
		},
		Export: ExportConfig{
			Greptime: GreptimeConfig{Port: 4001, Database: "public", Table: "queue_sim_results"},
			Postgres: PostgresConfig{Table: "queue_sim_results"},
		},
	}
}
