package compare

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ewhitmore/hearth/internal/domain"
)

// Outcome summarises one scenario's projection run.
type Outcome struct {
	Scenario string `json:"scenario"`

	// PayoffDate is the month the balance reaches zero. Nil for pensions
	// and for mortgage schedules that never pay off within the horizon.
	PayoffDate    *time.Time      `json:"payoffDate,omitempty"`
	TotalInterest decimal.Decimal `json:"totalInterest"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	TerminalValue decimal.Decimal `json:"terminalValue"`
	Months        int             `json:"months"`

	// MonthsSaved is the payoff improvement over the base scenario. Nil
	// when either schedule never pays off or there is no improvement.
	MonthsSaved *int `json:"monthsSaved,omitempty"`
}

// ComparisonSet is the result of comparing scenarios for one instrument.
type ComparisonSet struct {
	Instrument   string                `json:"instrument"`
	Kind         domain.InstrumentKind `json:"kind"`
	Base         *Outcome              `json:"base"`
	Alternatives []Outcome             `json:"alternatives"`
}

// Outcomes returns base plus alternatives in order.
func (cs *ComparisonSet) Outcomes() []Outcome {
	out := make([]Outcome, 0, len(cs.Alternatives)+1)
	if cs.Base != nil {
		out = append(out, *cs.Base)
	}
	return append(out, cs.Alternatives...)
}

// outcomeFromPoints reduces a projection run to its comparison metrics.
func outcomeFromPoints(scenario string, points []domain.Point) Outcome {
	o := Outcome{
		Scenario:      scenario,
		TotalInterest: decimal.Zero,
		TotalPaid:     decimal.Zero,
		TerminalValue: decimal.Zero,
		Months:        len(points),
	}
	for i := range points {
		p := points[i]
		if p.Interest != nil {
			o.TotalInterest = o.TotalInterest.Add(*p.Interest)
		}
		if p.Payment != nil {
			paid := *p.Payment
			if p.Overpayment != nil {
				paid = paid.Add(*p.Overpayment)
			}
			o.TotalPaid = o.TotalPaid.Add(paid)
		}
		if p.Value.IsZero() && o.PayoffDate == nil {
			d := p.Date
			o.PayoffDate = &d
		}
	}
	if len(points) > 0 {
		o.TerminalValue = points[len(points)-1].Value
	}
	return o
}

// withMonthsSaved fills in the payoff improvement relative to base.
func withMonthsSaved(alt Outcome, base *Outcome) Outcome {
	if base == nil || base.PayoffDate == nil || alt.PayoffDate == nil {
		return alt
	}
	saved := (base.PayoffDate.Year()-alt.PayoffDate.Year())*12 +
		int(base.PayoffDate.Month()) - int(alt.PayoffDate.Month())
	if saved <= 0 {
		return alt
	}
	alt.MonthsSaved = &saved
	return alt
}
