// Package projection contains the pure month-by-month projection math for
// pensions and mortgages. Nothing in here touches storage: callers feed in a
// starting state and receive a slice of points to persist or display.
package projection

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ewhitmore/hearth/internal/domain"
)

var (
	decimalZero   = decimal.Zero
	decimalOne    = decimal.NewFromInt(1)
	decimalTwelve = decimal.NewFromInt(12)

	// Balances below a penny are treated as paid off.
	payoffEpsilon = decimal.RequireFromString("0.01")
)

// MaxMortgageMonths caps a single mortgage projection run. A schedule that
// has not reached zero after 30 years is not converging under the given
// payment and the loop stops rather than running away.
const MaxMortgageMonths = 360

func onePlus(rate decimal.Decimal) decimal.Decimal {
	return decimalOne.Add(rate)
}

// PensionInput is the starting state for a pension projection run.
// StartDate is the review date of the latest actual snapshot, or today when
// no actual exists. StartValue is the value on that date.
type PensionInput struct {
	StartDate           time.Time
	StartValue          decimal.Decimal
	MonthlyContribution decimal.Decimal
	MonthlyGrowthRate   decimal.Decimal
	Active              bool
	Scenario            string
	Months              int
}

// Pension walks the pension recurrence forward one month at a time:
//
//	value(n+1) = value(n) * (1 + rate) + contribution
//
// Growth applies whether the pension is active or not; the contribution is
// added only while it is active. The first point lands one calendar month
// after StartDate and every point is normalised to the 15th of its month.
// A non-positive horizon yields an empty slice.
func Pension(in PensionInput) []domain.Point {
	if in.Months <= 0 {
		return nil
	}

	contribution := decimalZero
	if in.Active {
		contribution = in.MonthlyContribution
	}

	points := make([]domain.Point, 0, in.Months)
	value := in.StartValue
	prev := in.StartValue

	for offset := 0; offset < in.Months; offset++ {
		value = value.Mul(onePlus(in.MonthlyGrowthRate)).Add(contribution)

		rate := in.MonthlyGrowthRate
		points = append(points, domain.Point{
			Date:          monthAnchor(in.StartDate, offset+1, 15),
			Value:         value,
			GrowthPercent: domain.GrowthPercent(prev, value),
			Scenario:      in.Scenario,
			RateUsed:      &rate,
		})
		prev = value
	}
	return points
}

// MortgageInput is the starting state for a mortgage projection run.
// StartDate is the date of the latest actual snapshot, or today when none
// exists; the first projected payment lands one calendar month later on
// PaymentDay. AnnualRate is a fraction (0.0439 for 4.39% APR).
type MortgageInput struct {
	StartDate      time.Time
	StartBalance   decimal.Decimal
	AnnualRate     decimal.Decimal
	MonthlyPayment decimal.Decimal
	Overpayment    decimal.Decimal
	PaymentDay     int
	Scenario       string
	MaxMonths      int
}

// Mortgage amortises the balance month by month until it reaches zero or
// the month cap is hit. Each month:
//
//	interest  = balance * annualRate/12, rounded to 2dp half-up
//	principal = payment + overpayment - interest
//
// The final month is clamped so principal never exceeds the outstanding
// balance; the recorded overpayment shrinks accordingly and the run stops
// once the balance hits zero.
func Mortgage(in MortgageInput) []domain.Point {
	maxMonths := in.MaxMonths
	if maxMonths <= 0 || maxMonths > MaxMortgageMonths {
		maxMonths = MaxMortgageMonths
	}
	day := in.PaymentDay
	if day < 1 || day > 28 {
		day = 1
	}

	monthlyRate := in.AnnualRate.Div(decimalTwelve)

	var points []domain.Point
	balance := in.StartBalance

	for offset := 0; offset < maxMonths && balance.GreaterThan(payoffEpsilon); offset++ {
		interest := balance.Mul(monthlyRate).Round(2)
		principal := in.MonthlyPayment.Add(in.Overpayment).Sub(interest)

		overpayment := in.Overpayment
		if principal.GreaterThan(balance) {
			principal = balance
			overpayment = principal.Sub(in.MonthlyPayment.Sub(interest))
		}

		balance = balance.Sub(principal)
		if balance.LessThan(payoffEpsilon) {
			balance = decimalZero
		}

		payment := in.MonthlyPayment
		points = append(points, domain.Point{
			Date:        monthAnchor(in.StartDate, offset+1, day),
			Value:       balance,
			Interest:    &interest,
			Principal:   &principal,
			Payment:     &payment,
			Overpayment: &overpayment,
			Scenario:    in.Scenario,
			RateUsed:    &monthlyRate,
		})
	}
	return points
}

// monthAnchor returns the given day of the month that lies offset calendar
// months after t. Month arithmetic is done on year and month only, so a
// start date late in a month never spills into the month after the
// intended one.
func monthAnchor(t time.Time, offset, day int) time.Time {
	y, m := t.Year(), int(t.Month())+offset
	return time.Date(y, time.Month(m), day, 0, 0, 0, 0, time.UTC)
}
