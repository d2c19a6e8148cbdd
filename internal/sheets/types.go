package sheets

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/model"
)

const reportDateLayout = "Jan 2, 2006"

// ProjectionRow is one forecast inflow or outflow.
type ProjectionRow struct {
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Kind        string
}

// PatternRow is one detected recurring expense.
type PatternRow struct {
	NextDate    time.Time
	Amount      decimal.Decimal
	Merchant    string
	Frequency   string
	Confidence  float64
	Occurrences int
}

// Report holds everything written to the report tab.
type Report struct {
	GeneratedAt      time.Time
	StartDate        time.Time
	EndDate          time.Time
	CurrentBalance   decimal.Decimal
	TotalInflows     decimal.Decimal
	TotalOutflows    decimal.Decimal
	ProjectedBalance decimal.Decimal
	UserID           string
	Status           string
	PaycheckSource   string
	Inflows          []ProjectionRow
	Outflows         []ProjectionRow
	Patterns         []PatternRow
}

// BuildReport flattens a projection and its patterns into report rows.
// Patterns are listed by monthly cost, largest first.
func BuildReport(userID string, result *model.HealthResult, patterns []model.RecurringPattern, now time.Time) Report {
	report := Report{
		GeneratedAt:      now,
		UserID:           userID,
		StartDate:        result.StartDate,
		EndDate:          result.EndDate,
		CurrentBalance:   result.CurrentBalance,
		TotalInflows:     result.TotalInflows,
		TotalOutflows:    result.TotalOutflows,
		ProjectedBalance: result.ProjectedBalance,
		Status:           string(result.Status),
		PaycheckSource:   string(result.PaycheckSource),
		Inflows:          projectionRows(result.Inflows),
		Outflows:         projectionRows(result.Outflows),
	}

	report.Patterns = make([]PatternRow, 0, len(patterns))
	for _, p := range patterns {
		report.Patterns = append(report.Patterns, PatternRow{
			Merchant:    p.MerchantKey,
			Frequency:   string(p.Frequency),
			Amount:      p.TypicalAmount,
			NextDate:    p.PredictedNextDate,
			Confidence:  p.Confidence,
			Occurrences: p.OccurrenceCount,
		})
	}
	sort.SliceStable(report.Patterns, func(i, j int) bool {
		return monthlyCost(report.Patterns[i]).GreaterThan(monthlyCost(report.Patterns[j]))
	})

	return report
}

// monthlyCost scales a pattern's typical amount to a 30-day month.
func monthlyCost(row PatternRow) decimal.Decimal {
	gap := model.Frequency(row.Frequency).ExpectedGap()
	if gap == 0 {
		return row.Amount
	}
	return row.Amount.Mul(decimal.NewFromInt(30)).Div(decimal.NewFromInt(int64(gap)))
}

func projectionRows(txns []model.ProjectedTransaction) []ProjectionRow {
	rows := make([]ProjectionRow, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, ProjectionRow{
			Date:        t.Date,
			Amount:      t.Amount,
			Description: t.Description,
			Kind:        string(t.Kind),
		})
	}
	return rows
}

// Values renders the report as spreadsheet rows.
func (r Report) Values() [][]any {
	values := make([][]any, 0, 20+len(r.Inflows)+len(r.Outflows)+len(r.Patterns))

	values = append(values,
		[]any{
			"Runway Report",
			fmt.Sprintf("%s - %s", r.StartDate.Format(reportDateLayout), r.EndDate.Format(reportDateLayout)),
		},
		[]any{"Generated", r.GeneratedAt.Format(time.RFC3339), "User", r.UserID},
		[]any{},
		[]any{"Summary"},
		[]any{"Current Balance", money(r.CurrentBalance)},
		[]any{"Projected Inflows", money(r.TotalInflows)},
		[]any{"Projected Outflows", money(r.TotalOutflows)},
		[]any{"Projected Balance", money(r.ProjectedBalance)},
		[]any{"Status", r.Status},
		[]any{"Paycheck Source", r.PaycheckSource},
	)

	values = appendProjection(values, "Inflows", r.Inflows)
	values = appendProjection(values, "Outflows", r.Outflows)

	values = append(values,
		[]any{},
		[]any{"Recurring Expenses"},
		[]any{"Merchant", "Frequency", "Amount", "Next Date", "Confidence", "Occurrences"},
	)
	for _, p := range r.Patterns {
		values = append(values, []any{
			p.Merchant,
			p.Frequency,
			money(p.Amount),
			p.NextDate.Format(model.DateLayout),
			fmt.Sprintf("%.2f", p.Confidence),
			p.Occurrences,
		})
	}

	return values
}

func appendProjection(values [][]any, title string, rows []ProjectionRow) [][]any {
	values = append(values,
		[]any{},
		[]any{title},
		[]any{"Date", "Description", "Amount", "Kind"},
	)
	for _, row := range rows {
		values = append(values, []any{
			row.Date.Format(model.DateLayout),
			row.Description,
			money(row.Amount),
			row.Kind,
		})
	}
	return values
}

// money keeps amounts exact; USER_ENTERED input turns them into numbers.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
