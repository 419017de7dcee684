package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/utils"
)

// ErrInvalidScenario wraps every scenario validation failure
var ErrInvalidScenario = errors.New("invalid scenario")

// LoadScenario loads and parses a scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	scenario, err := ParseScenarioYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}
	return scenario, nil
}

// ReadScenario reads a scenario file without applying defaults or validating it
func ReadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	scenario, err := DecodeScenarioYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}
	return scenario, nil
}

// LoadConfig loads and parses a process configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ValidateScenario checks a scenario after defaults have been applied
func ValidateScenario(s *Scenario) error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidScenario, fmt.Sprintf(format, args...))
	}

	switch s.Model {
	case ModelMM1, ModelMM1K, ModelMMC:
	default:
		return invalid("unknown model %q (must be mm1, mm1k or mmc)", s.Model)
	}

	positive := []struct {
		name  string
		value float64
	}{
		{"mean_interarrival", s.MeanInterarrival},
		{"mean_service", s.MeanService},
		{"duration", s.Duration},
	}
	for _, p := range positive {
		if !(p.value > 0) || math.IsInf(p.value, 1) {
			return invalid("%s must be a positive finite number, got %v", p.name, p.value)
		}
	}

	switch s.Model {
	case ModelMMC:
		if s.Servers < 1 {
			return invalid("servers must be at least 1, got %d", s.Servers)
		}
		if s.Capacity != 0 {
			return invalid("capacity is only supported for mm1k")
		}
	case ModelMM1K:
		if s.Servers != 1 {
			return invalid("mm1k has exactly one server, got %d", s.Servers)
		}
		if s.Capacity < 1 {
			return invalid("capacity must be at least 1, got %d", s.Capacity)
		}
	case ModelMM1:
		if s.Servers != 1 {
			return invalid("mm1 has exactly one server, got %d", s.Servers)
		}
		if s.Capacity != 0 {
			return invalid("capacity is only supported for mm1k")
		}
	}

	if s.Stream != 0 && s.Seed != 0 {
		return invalid("stream and seed are mutually exclusive")
	}
	if s.Stream != 0 {
		if _, err := utils.StreamSeed(s.Stream); err != nil {
			return invalid("%v", err)
		}
	}
	if s.Seed != 0 && (s.Seed < 1 || s.Seed >= utils.LehmerModulus) {
		return invalid("seed must be in [1, %d], got %d", utils.LehmerModulus-1, s.Seed)
	}
	if s.SampleInterval < 0 || math.IsNaN(s.SampleInterval) {
		return invalid("sample_interval must not be negative, got %v", s.SampleInterval)
	}
	return nil
}

// ValidateConfig checks the process configuration
func ValidateConfig(cfg *Config) error {
	if !logger.ValidLevel(cfg.LogLevel) {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %s (must be text or json)", cfg.LogFormat)
	}
	if cfg.Server.MaxRuns < 0 {
		return fmt.Errorf("server.max_runs cannot be negative")
	}
	if cfg.Export.Greptime.Enabled() {
		if cfg.Export.Greptime.Port <= 0 {
			return fmt.Errorf("export.greptime.port must be positive")
		}
		if cfg.Export.Greptime.Table == "" {
			return fmt.Errorf("export.greptime.table cannot be empty")
		}
	}
	if cfg.Export.Postgres.Enabled() && cfg.Export.Postgres.Table == "" {
		return fmt.Errorf("export.postgres.table cannot be empty")
	}
	return nil
}
