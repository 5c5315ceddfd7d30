package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentKind distinguishes the two projectable product types.
type InstrumentKind string

const (
	KindPension  InstrumentKind = "pension"
	KindMortgage InstrumentKind = "mortgage"
)

// Instrument is a pension pot or a mortgage product being projected.
// CurrentValue is the authoritative "as of now" figure: the pot value for
// pensions, the outstanding balance for mortgages. It is updated whenever a
// new actual snapshot is confirmed.
type Instrument struct {
	ID   int64          `json:"id"`
	Kind InstrumentKind `json:"kind"`
	Name string         `json:"name"`

	// Person owns a pension (settings for date of birth, retirement age and
	// government pension are keyed by this name). Property references the
	// mortgaged property.
	Person   string `json:"person,omitempty"`
	Property string `json:"property,omitempty"`

	// AccountID links mortgage payments to a ledger account, when present.
	AccountID *int64 `json:"accountId,omitempty"`

	CurrentValue decimal.Decimal `json:"currentValue"`

	// MonthlyContribution applies to pensions, MonthlyPayment and
	// Overpayment to mortgages.
	MonthlyContribution decimal.Decimal `json:"monthlyContribution"`
	MonthlyPayment      decimal.Decimal `json:"monthlyPayment"`
	Overpayment         decimal.Decimal `json:"overpayment"`

	// AnnualRate is the mortgage interest rate as a fraction (0.0439 for
	// 4.39% APR). Pension growth rates come from settings per scenario.
	AnnualRate decimal.Decimal `json:"annualRate"`

	// RetirementAge overrides the per-person retirement age setting when
	// non-nil.
	RetirementAge *int `json:"retirementAge,omitempty"`

	// PaymentDay is the day of month mortgage snapshots fall on (default 1).
	// Pension snapshots are always normalized to day 15.
	PaymentDay int `json:"paymentDay,omitempty"`

	IsActive bool `json:"isActive"`

	// ProjectedValue is the terminal value of the most recent default
	// scenario regeneration: pot at retirement for pensions, closing
	// balance at horizon for mortgages.
	ProjectedValue *decimal.Decimal `json:"projectedValue,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MonthlyRate returns the instrument's per-month interest fraction.
func (i *Instrument) MonthlyRate() decimal.Decimal {
	return i.AnnualRate.Div(decimal.NewFromInt(12))
}

// SnapshotDay returns the day of month the instrument's snapshots are
// normalized to.
func (i *Instrument) SnapshotDay() int {
	if i.Kind == KindPension {
		return 15
	}
	if i.PaymentDay >= 1 && i.PaymentDay <= 28 {
		return i.PaymentDay
	}
	return 1
}
