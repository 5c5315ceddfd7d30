package compare

import (
	"encoding/csv"
	"strconv"
	"strings"
)

// CSVFormatter formats comparison results as CSV
type CSVFormatter struct{}

// Format generates CSV output for comparison results
func (cf *CSVFormatter) Format(set *ComparisonSet) (string, error) {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	header := []string{
		"Scenario",
		"Type",
		"Payoff Date",
		"Total Interest",
		"Total Paid",
		"Terminal Value",
		"Months",
		"Months Saved",
	}
	if err := writer.Write(header); err != nil {
		return "", err
	}

	if set.Base != nil {
		if err := writer.Write(cf.formatRow(set.Base, "base")); err != nil {
			return "", err
		}
	}
	for i := range set.Alternatives {
		if err := writer.Write(cf.formatRow(&set.Alternatives[i], "alternative")); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// formatRow formats one outcome as a CSV row
func (cf *CSVFormatter) formatRow(o *Outcome, scenarioType string) []string {
	payoff := ""
	if o.PayoffDate != nil {
		payoff = o.PayoffDate.Format("2006-01-02")
	}
	saved := ""
	if o.MonthsSaved != nil {
		saved = strconv.Itoa(*o.MonthsSaved)
	}
	return []string{
		o.Scenario,
		scenarioType,
		payoff,
		o.TotalInterest.StringFixed(2),
		o.TotalPaid.StringFixed(2),
		o.TerminalValue.StringFixed(2),
		strconv.Itoa(o.Months),
		saved,
	}
}
