package director

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

func WriteScenario(scenario *Scenario, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(scenario)
	if err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func ReadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return &scenario, nil
}

// ScenarioPath is where the debug dump of job id is written under dir.
func ScenarioPath(dir, id string) string {
	return filepath.Join(dir, "scenarios", fmt.Sprintf("scenario_%s.yaml", id))
}
