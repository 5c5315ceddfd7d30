package compare

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/ewhitmore/hearth/internal/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	baseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

// TableFormatter formats comparison results as a console table.
type TableFormatter struct{}

// Format generates a formatted table comparing scenarios.
func (tf *TableFormatter) Format(set *ComparisonSet) string {
	var sb strings.Builder

	title := "PENSION SCENARIO COMPARISON"
	if set.Kind == domain.KindMortgage {
		title = "MORTGAGE SCENARIO COMPARISON"
	}
	sb.WriteString(titleStyle.Render(title) + "\n")
	sb.WriteString(strings.Repeat("=", 84) + "\n")
	sb.WriteString(fmt.Sprintf("Instrument: %s\n\n", set.Instrument))

	nameWidth := 16
	numWidth := 14

	sb.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %*s %*s %*s %*s %*s",
		nameWidth, "Scenario",
		numWidth, "Payoff",
		numWidth, "Interest",
		numWidth, "Total Paid",
		numWidth, "Terminal",
		numWidth, "Saved")) + "\n")
	sb.WriteString(strings.Repeat("-", 84) + "\n")

	if set.Base != nil {
		sb.WriteString(tf.formatRow(set.Base, nameWidth, numWidth, true))
	}
	for i := range set.Alternatives {
		sb.WriteString(tf.formatRow(&set.Alternatives[i], nameWidth, numWidth, false))
	}
	sb.WriteString(strings.Repeat("=", 84) + "\n")

	return sb.String()
}

func (tf *TableFormatter) formatRow(o *Outcome, nameWidth, numWidth int, isBase bool) string {
	name := o.Scenario
	if isBase {
		name += " (base)"
	}

	payoff := "-"
	if o.PayoffDate != nil {
		payoff = o.PayoffDate.Format("Jan 2006")
	}

	saved := "-"
	if o.MonthsSaved != nil {
		saved = gainStyle.Render(fmt.Sprintf("%d months", *o.MonthsSaved))
	}

	row := fmt.Sprintf("%-*s %*s %*s %*s %*s %*s\n",
		nameWidth, truncate(name, nameWidth),
		numWidth, payoff,
		numWidth, formatMoney(o.TotalInterest),
		numWidth, formatMoney(o.TotalPaid),
		numWidth, formatMoney(o.TerminalValue),
		numWidth, saved)
	if isBase {
		return baseStyle.Render(strings.TrimSuffix(row, "\n")) + "\n"
	}
	return row
}

// FormatCompact creates a one-line summary per comparison.
func (tf *TableFormatter) FormatCompact(set *ComparisonSet) string {
	var sb strings.Builder
	if set.Base != nil {
		sb.WriteString(fmt.Sprintf("Base: %s", set.Base.Scenario))
	}
	for _, alt := range set.Alternatives {
		saved := faintStyle.Render("no change")
		if alt.MonthsSaved != nil {
			saved = fmt.Sprintf("%d months earlier", *alt.MonthsSaved)
		}
		sb.WriteString(fmt.Sprintf(" | %s: %s", alt.Scenario, saved))
	}
	return sb.String()
}

func formatMoney(d decimal.Decimal) string {
	if d.Abs().GreaterThanOrEqual(decimal.NewFromInt(1000000)) {
		return "£" + d.Div(decimal.NewFromInt(1000000)).StringFixed(2) + "M"
	}
	return "£" + d.StringFixed(2)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
