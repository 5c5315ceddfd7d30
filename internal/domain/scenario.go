package domain

import "github.com/shopspring/decimal"

// Scenario is a named parameter set for a projection run. MonthlyGrowthRate
// drives pension compounding; Overpayment drives mortgage amortization. A
// scenario is not persisted on its own, it lives in the scenario field of
// the projection snapshots it produced.
type Scenario struct {
	Name string `json:"name" yaml:"name"`

	// MonthlyGrowthRate is a fraction per month (0.0012 = 0.12%/month).
	MonthlyGrowthRate decimal.Decimal `json:"monthlyGrowthRate" yaml:"monthly_growth_rate"`

	// Overpayment is an extra monthly mortgage payment.
	Overpayment decimal.Decimal `json:"overpayment" yaml:"overpayment"`
}

// Scenario name conventions. ScenarioDefault doubles as the
// actual-continuation scenario for pensions; ScenarioBase is the
// zero-overpayment mortgage baseline that months-saved comparisons run
// against.
const (
	ScenarioDefault     = "default"
	ScenarioOptimistic  = "optimistic"
	ScenarioPessimistic = "pessimistic"
	ScenarioBase        = "base"
	ScenarioAggressive  = "aggressive"
)

// DefaultMortgageScenarios returns the stock mortgage scenario set: the
// zero-overpayment base plus a 500/month aggressive overpayment.
func DefaultMortgageScenarios() []Scenario {
	return []Scenario{
		{Name: ScenarioBase, Overpayment: decimal.Zero},
		{Name: ScenarioAggressive, Overpayment: decimal.NewFromInt(500)},
	}
}

// BaseScenario picks the comparison baseline out of a scenario set: the
// scenario named "base", else the one named "default", else the first.
func BaseScenario(scenarios []Scenario) *Scenario {
	for i := range scenarios {
		if scenarios[i].Name == ScenarioBase {
			return &scenarios[i]
		}
	}
	for i := range scenarios {
		if scenarios[i].Name == ScenarioDefault {
			return &scenarios[i]
		}
	}
	if len(scenarios) > 0 {
		return &scenarios[0]
	}
	return nil
}
