package projection

import (
	"time"

	"github.com/shopspring/decimal"
)

// Age returns the whole years between dob and now.
func Age(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if int(now.Month()) < int(dob.Month()) ||
		(now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// MonthsUntilRetirement returns the number of whole months between now and
// the month the person turns retirementAge. Already-retired people get 0.
func MonthsUntilRetirement(dob time.Time, retirementAge int, now time.Time) int {
	months := (retirementAge - Age(dob, now)) * 12
	months -= int(now.Month()) - int(dob.Month())
	if months < 0 {
		return 0
	}
	return months
}

// AmortizedPayment derives the level monthly payment that clears balance
// over termMonths at the given annual rate (a fraction, 0.0439 for 4.39%):
//
//	M = P * r(1+r)^n / ((1+r)^n - 1)
//
// A zero or negative rate degrades to straight-line balance/n. The result
// is rounded to 2dp.
func AmortizedPayment(balance, annualRate decimal.Decimal, termMonths int) decimal.Decimal {
	if termMonths <= 0 {
		return decimalZero
	}
	n := decimal.NewFromInt(int64(termMonths))

	monthlyRate := annualRate.Div(decimalTwelve)
	factor := onePlus(monthlyRate).Pow(n)
	denominator := factor.Sub(decimalOne)
	if denominator.LessThanOrEqual(decimalZero) {
		return balance.Div(n).Round(2)
	}
	return balance.Mul(monthlyRate.Mul(factor).Div(denominator)).Round(2)
}
