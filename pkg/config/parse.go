package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeScenarioYAML checks YAML bytes against the schema and decodes them.
// Unset fields stay zero; callers apply defaults once every override is known.
func DecodeScenarioYAML(data []byte) (*Scenario, error) {
	if err := ValidateScenarioSchema(data); err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario yaml: %w", err)
	}
	return &scenario, nil
}

// ParseScenarioYAML parses a Scenario from YAML bytes, applies defaults and validates it.
// This is used for APIs where the scenario is provided as payload (not via filesystem).
func ParseScenarioYAML(data []byte) (*Scenario, error) {
	scenario, err := DecodeScenarioYAML(data)
	if err != nil {
		return nil, err
	}
	scenario.ApplyDefaults()

	if err := ValidateScenario(scenario); err != nil {
		return nil, err
	}
	return scenario, nil
}

// ParseScenarioYAMLString parses a Scenario from a YAML string
func ParseScenarioYAMLString(yamlText string) (*Scenario, error) {
	return ParseScenarioYAML([]byte(yamlText))
}

// ParseConfigYAML parses a process Config from YAML bytes on top of DefaultConfig
func ParseConfigYAML(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
