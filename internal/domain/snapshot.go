package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is one dated value record for an instrument, either a confirmed
// actual or a computed projection under a named scenario.
//
// Invariants maintained by the reconcile package:
//   - at most one actual per (instrument, date);
//   - at most one projection per (instrument, scenario, date);
//   - an actual recorded for a date supersedes any projection on that date.
type Snapshot struct {
	ID           int64     `json:"id"`
	InstrumentID int64     `json:"instrumentId"`
	ReviewDate   time.Time `json:"reviewDate"`

	// Value is the pot value for pensions, the closing balance for
	// mortgages.
	Value decimal.Decimal `json:"value"`

	// Mortgage breakdown for the month: interest charged, principal repaid,
	// and the payment split it came from. Nil for pension snapshots.
	Interest    *decimal.Decimal `json:"interest,omitempty"`
	Principal   *decimal.Decimal `json:"principal,omitempty"`
	Payment     *decimal.Decimal `json:"payment,omitempty"`
	Overpayment *decimal.Decimal `json:"overpayment,omitempty"`

	// GrowthPercent is the percentage change against the chronologically
	// preceding snapshot in the same lineage (actuals compare to the prior
	// actual, scenario projections to the prior point of the same run).
	// Nil when there is no prior point or its value is not positive.
	GrowthPercent *decimal.Decimal `json:"growthPercent,omitempty"`

	IsProjection bool `json:"isProjection"`

	// Scenario names the parameter set a projection was generated under.
	// Empty for actuals.
	Scenario string `json:"scenario,omitempty"`

	// RateUsed records the monthly rate fraction the projection was
	// computed with. Cleared on confirmation.
	RateUsed *decimal.Decimal `json:"rateUsed,omitempty"`

	// TransactionID links the snapshot to a ledger transaction when the
	// payment was posted to an account.
	TransactionID *int64 `json:"transactionId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// PaidOff reports whether a mortgage snapshot closed at a zero balance.
func (s *Snapshot) PaidOff() bool {
	return s.Value.LessThanOrEqual(decimal.Zero)
}

// Point is one month of engine output. Points are pure computation results;
// the reconcile package turns persisted ones into Snapshot rows.
type Point struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`

	// Mortgage step detail; nil for pension points.
	Interest    *decimal.Decimal `json:"interest,omitempty"`
	Principal   *decimal.Decimal `json:"principal,omitempty"`
	Payment     *decimal.Decimal `json:"payment,omitempty"`
	Overpayment *decimal.Decimal `json:"overpayment,omitempty"`

	GrowthPercent *decimal.Decimal `json:"growthPercent,omitempty"`
	Scenario      string           `json:"scenario"`
	RateUsed      *decimal.Decimal `json:"rateUsed,omitempty"`
}

// GrowthPercent computes the percentage change from prev to next, or nil
// when prev is zero or negative. Shared by the engine and the reconcile
// package so actual and projected lineages agree on the guard.
func GrowthPercent(prev, next decimal.Decimal) *decimal.Decimal {
	if prev.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	pct := next.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100))
	return &pct
}
