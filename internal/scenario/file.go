package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteFile writes a scenario document to a YAML file.
func WriteFile(sc *Scenario, path string) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a scenario document from a YAML file. The result is
// untrusted until Validate passes.
func ReadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return &sc, nil
}
