package projection

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestPensionRecurrence(t *testing.T) {
	points := Pension(PensionInput{
		StartDate:           date(2026, time.January, 15),
		StartValue:          d("45000"),
		MonthlyContribution: d("300"),
		MonthlyGrowthRate:   d("0.0012"),
		Active:              true,
		Scenario:            "default",
		Months:              3,
	})
	require.Len(t, points, 3)

	assert.Equal(t, "45354.00", points[0].Value.StringFixed(2))
	assert.Equal(t, "45708.42", points[1].Value.StringFixed(2))
	assert.Equal(t, "46063.27", points[2].Value.StringFixed(2))

	// Dates land on the 15th, starting one month after the start date.
	assert.Equal(t, date(2026, time.February, 15), points[0].Date)
	assert.Equal(t, date(2026, time.March, 15), points[1].Date)
	assert.Equal(t, date(2026, time.April, 15), points[2].Date)

	for _, p := range points {
		assert.Equal(t, "default", p.Scenario)
		require.NotNil(t, p.RateUsed)
		assert.True(t, p.RateUsed.Equal(d("0.0012")))
	}
}

func TestPensionInactiveSkipsContributions(t *testing.T) {
	points := Pension(PensionInput{
		StartDate:           date(2026, time.March, 15),
		StartValue:          d("10000"),
		MonthlyContribution: d("250"),
		MonthlyGrowthRate:   d("0.001"),
		Active:              false,
		Scenario:            "default",
		Months:              2,
	})
	require.Len(t, points, 2)

	// Growth still compounds, contributions stop.
	assert.Equal(t, "10010.00", points[0].Value.StringFixed(2))
	assert.Equal(t, "10020.01", points[1].Value.StringFixed(2))
}

func TestPensionGrowthPercentChain(t *testing.T) {
	points := Pension(PensionInput{
		StartDate:           date(2026, time.January, 15),
		StartValue:          d("45000"),
		MonthlyContribution: d("300"),
		MonthlyGrowthRate:   d("0.0012"),
		Active:              true,
		Scenario:            "default",
		Months:              2,
	})
	require.Len(t, points, 2)

	// First month is measured against the starting value, later months
	// against the previous projected value.
	require.NotNil(t, points[0].GrowthPercent)
	assert.Equal(t, "0.79", points[0].GrowthPercent.StringFixed(2))
	require.NotNil(t, points[1].GrowthPercent)
	assert.Equal(t, "0.78", points[1].GrowthPercent.StringFixed(2))
}

func TestPensionZeroStartValueOmitsGrowthPercent(t *testing.T) {
	points := Pension(PensionInput{
		StartDate:         date(2026, time.January, 15),
		StartValue:        decimal.Zero,
		MonthlyGrowthRate: d("0.0012"),
		Scenario:          "default",
		Months:            1,
	})
	require.Len(t, points, 1)
	assert.Nil(t, points[0].GrowthPercent)
}

func TestPensionNonPositiveHorizon(t *testing.T) {
	assert.Empty(t, Pension(PensionInput{Months: 0, StartValue: d("1000")}))
	assert.Empty(t, Pension(PensionInput{Months: -4, StartValue: d("1000")}))
}

func TestPensionDateNeverSpillsIntoWrongMonth(t *testing.T) {
	// A start date at the end of January must project into February, not
	// skip to March the way naive day-preserving date addition would.
	points := Pension(PensionInput{
		StartDate:         date(2026, time.January, 31),
		StartValue:        d("5000"),
		MonthlyGrowthRate: d("0.001"),
		Scenario:          "default",
		Months:            1,
	})
	require.Len(t, points, 1)
	assert.Equal(t, date(2026, time.February, 15), points[0].Date)
}

func TestMortgageFirstMonth(t *testing.T) {
	points := Mortgage(MortgageInput{
		StartDate:      date(2026, time.January, 1),
		StartBalance:   d("100000"),
		AnnualRate:     d("0.0439"),
		MonthlyPayment: d("800"),
		PaymentDay:     1,
		Scenario:       "base",
		MaxMonths:      1,
	})
	require.Len(t, points, 1)

	p := points[0]
	assert.Equal(t, date(2026, time.February, 1), p.Date)
	require.NotNil(t, p.Interest)
	assert.Equal(t, "365.83", p.Interest.StringFixed(2))
	require.NotNil(t, p.Principal)
	assert.Equal(t, "434.17", p.Principal.StringFixed(2))
	assert.Equal(t, "99565.83", p.Value.StringFixed(2))
	assert.Equal(t, "base", p.Scenario)
}

func TestMortgagePayoffClampsFinalMonth(t *testing.T) {
	points := Mortgage(MortgageInput{
		StartDate:      date(2026, time.January, 1),
		StartBalance:   d("500"),
		AnnualRate:     d("0.0439"),
		MonthlyPayment: d("800"),
		PaymentDay:     1,
		Scenario:       "base",
	})
	require.Len(t, points, 1)

	p := points[0]
	assert.True(t, p.Value.IsZero(), "balance should clamp to zero, got %s", p.Value)
	require.NotNil(t, p.Principal)
	assert.Equal(t, "500.00", p.Principal.StringFixed(2))
	// interest = 500 * 0.0439/12 = 1.83; the recorded overpayment absorbs
	// the shortfall so payment + overpayment - interest still equals the
	// principal actually paid.
	require.NotNil(t, p.Interest)
	assert.Equal(t, "1.83", p.Interest.StringFixed(2))
	require.NotNil(t, p.Overpayment)
	assert.Equal(t, "-298.17", p.Overpayment.StringFixed(2))
}

func TestMortgageOverpaymentShortensSchedule(t *testing.T) {
	base := Mortgage(MortgageInput{
		StartDate:      date(2026, time.January, 1),
		StartBalance:   d("2400"),
		AnnualRate:     decimal.Zero,
		MonthlyPayment: d("800"),
		PaymentDay:     1,
		Scenario:       "base",
	})
	aggressive := Mortgage(MortgageInput{
		StartDate:      date(2026, time.January, 1),
		StartBalance:   d("2400"),
		AnnualRate:     decimal.Zero,
		MonthlyPayment: d("800"),
		Overpayment:    d("400"),
		PaymentDay:     1,
		Scenario:       "aggressive",
	})
	assert.Len(t, base, 3)
	assert.Len(t, aggressive, 2)
	assert.True(t, base[len(base)-1].Value.IsZero())
	assert.True(t, aggressive[len(aggressive)-1].Value.IsZero())
}

func TestMortgageNonConvergingScheduleStopsAtCap(t *testing.T) {
	// Payment below the monthly interest never amortises; the run must
	// stop at the 30 year cap instead of looping forever.
	points := Mortgage(MortgageInput{
		StartDate:      date(2026, time.January, 1),
		StartBalance:   d("100000"),
		AnnualRate:     d("0.06"),
		MonthlyPayment: d("100"),
		PaymentDay:     1,
		Scenario:       "base",
	})
	assert.Len(t, points, MaxMortgageMonths)
	assert.True(t, points[len(points)-1].Value.GreaterThan(d("100000")))
}

func TestMortgagePaymentDayOutOfRangeDefaultsToFirst(t *testing.T) {
	points := Mortgage(MortgageInput{
		StartDate:      date(2026, time.January, 15),
		StartBalance:   d("1000"),
		AnnualRate:     decimal.Zero,
		MonthlyPayment: d("1000"),
		PaymentDay:     31,
		Scenario:       "base",
	})
	require.Len(t, points, 1)
	assert.Equal(t, date(2026, time.February, 1), points[0].Date)
}
