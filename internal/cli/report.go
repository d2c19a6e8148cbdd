package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/model"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(SubtleColor)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// RenderHealth writes the projection summary followed by the projected inflows and outflows.
func RenderHealth(w io.Writer, result *model.HealthResult) error {
	var b strings.Builder

	line := func(label, value string) string {
		return fmt.Sprintf("%-20s%s", label+":", value)
	}
	summary := strings.Join([]string{
		line("Window", result.StartDate.Format(model.DateLayout)+" → "+result.EndDate.Format(model.DateLayout)),
		line("Current balance", money(result.CurrentBalance)),
		line("Projected inflows", money(result.TotalInflows)),
		line("Projected outflows", money(result.TotalOutflows)),
		line("Projected balance", BoldStyle.Render(money(result.ProjectedBalance))),
		line("Status", StatusStyle(result.Status).Render(strings.ToUpper(string(result.Status)))),
		line("Paycheck source", string(result.PaycheckSource)),
	}, "\n")
	b.WriteString(RenderBox("Cash flow health", summary))
	b.WriteString("\n\n")

	b.WriteString(projectedSection("Inflows", result.Inflows))
	b.WriteString(projectedSection("Outflows", result.Outflows))

	_, err := io.WriteString(w, b.String())
	return err
}

func projectedSection(title string, txns []model.ProjectedTransaction) string {
	var b strings.Builder
	b.WriteString(FormatTitle(title))
	b.WriteString("\n")
	if len(txns) == 0 {
		b.WriteString(SubtleStyle.Render("none"))
		b.WriteString("\n\n")
		return b.String()
	}

	t := newTable("Date", "Description", "Kind", "Amount")
	for _, txn := range txns {
		t.Row(txn.Date.Format(model.DateLayout), txn.Description, string(txn.Kind), money(txn.Amount))
	}
	b.WriteString(t.String())
	b.WriteString("\n\n")
	return b.String()
}

// RenderPatterns writes detected recurring expenses as a table.
func RenderPatterns(w io.Writer, patterns []model.RecurringPattern) error {
	if len(patterns) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No recurring expenses detected."))
		return err
	}

	t := newTable("Merchant", "Frequency", "Amount", "Next", "Seen", "Confidence")
	for _, p := range patterns {
		t.Row(
			p.MerchantKey,
			string(p.Frequency),
			money(p.TypicalAmount),
			p.PredictedNextDate.Format(model.DateLayout),
			fmt.Sprintf("%d", p.OccurrenceCount),
			fmt.Sprintf("%.0f%%", p.Confidence*100),
		)
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n", FormatTitle("Recurring expenses"), t.String())
	return err
}

// RenderIncome writes classified income events, newest first.
func RenderIncome(w io.Writer, events []model.IncomeEvent) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No income found."))
		return err
	}

	t := newTable("Date", "Description", "Kind", "Amount")
	for _, e := range events {
		t.Row(e.Date.Format(model.DateLayout), e.Description, string(e.Kind), money(e.Amount))
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n", FormatTitle("Income"), t.String())
	return err
}

// RenderSettings writes the user's declared settings; unset fields show as "-".
func RenderSettings(w io.Writer, settings *model.UserFinancialSettings) error {
	optional := func(d *decimal.Decimal) string {
		if d == nil {
			return "-"
		}
		return money(*d)
	}
	bonusDate := "-"
	if settings.NextBonusDate != nil {
		bonusDate = settings.NextBonusDate.Format(model.DateLayout)
	}

	content := strings.Join([]string{
		"Current balance: " + money(settings.CurrentBalance),
		"Paycheck amount: " + optional(settings.PaycheckAmount),
		"Bonus amount:    " + optional(settings.BonusAmount),
		"Next bonus date: " + bonusDate,
	}, "\n")

	_, err := fmt.Fprintln(w, RenderBox("Settings for "+settings.UserID, content))
	return err
}
