package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ewhitmore/hearth/internal/domain"
)

// ScenarioFile is the on-disk shape of a custom scenario set. Pension
// scenarios carry monthly growth rates; mortgage scenarios carry
// overpayments. A file may mix both since the engine only reads the
// fields relevant to the instrument kind.
type ScenarioFile struct {
	Scenarios []domain.Scenario `yaml:"scenarios"`
}

// ScenarioParser handles parsing of scenario definition files.
type ScenarioParser struct{}

// NewScenarioParser creates a new scenario parser.
func NewScenarioParser() *ScenarioParser {
	return &ScenarioParser{}
}

// LoadFromFile loads a scenario set from a YAML file.
func (sp *ScenarioParser) LoadFromFile(filename string) ([]domain.Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var file ScenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := sp.ValidateScenarios(file.Scenarios); err != nil {
		return nil, fmt.Errorf("scenario validation failed: %w", err)
	}

	return file.Scenarios, nil
}

// ValidateScenarios validates a loaded scenario set.
func (sp *ScenarioParser) ValidateScenarios(scenarios []domain.Scenario) error {
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenarios provided")
	}

	seen := make(map[string]bool, len(scenarios))
	for i, sc := range scenarios {
		if err := sp.validateScenario(&sc); err != nil {
			return fmt.Errorf("scenario %d validation failed: %w", i, err)
		}
		if seen[sc.Name] {
			return fmt.Errorf("duplicate scenario name: %s", sc.Name)
		}
		seen[sc.Name] = true
	}
	return nil
}

func (sp *ScenarioParser) validateScenario(sc *domain.Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	one := decimal.NewFromInt(1)
	if sc.MonthlyGrowthRate.LessThan(one.Neg()) || sc.MonthlyGrowthRate.GreaterThan(one) {
		return fmt.Errorf("monthly growth rate must be a fraction between -1 and 1")
	}
	if sc.Overpayment.LessThan(decimal.Zero) {
		return fmt.Errorf("overpayment cannot be negative")
	}
	return nil
}
