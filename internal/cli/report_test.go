package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/runway/internal/model"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRenderHealth(t *testing.T) {
	result := &model.HealthResult{
		StartDate:        day(6, 1),
		EndDate:          day(6, 15),
		CurrentBalance:   decimal.RequireFromString("1500"),
		TotalInflows:     decimal.RequireFromString("5000"),
		TotalOutflows:    decimal.RequireFromString("120"),
		ProjectedBalance: decimal.RequireFromString("6380"),
		Status:           model.StatusTooMuch,
		PaycheckSource:   model.PaycheckDeclared,
		Inflows: []model.ProjectedTransaction{
			{Date: day(6, 15), Amount: decimal.RequireFromString("2000"), Description: "Paycheck", Kind: model.ProjectedPaycheck},
			{Date: day(6, 15), Amount: decimal.RequireFromString("3000"), Description: "Bonus", Kind: model.ProjectedBonus},
		},
		Outflows: []model.ProjectedTransaction{},
	}

	var out bytes.Buffer
	require.NoError(t, RenderHealth(&out, result))

	text := out.String()
	for _, want := range []string{"2024-06-01", "2024-06-15", "$6380.00", "TOO_MUCH", "declared", "Paycheck", "Bonus", "$3000.00"} {
		assert.Contains(t, text, want)
	}
	assert.Contains(t, text, "none", "empty outflows are called out")
}

func TestRenderPatterns(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RenderPatterns(&out, nil))
	assert.Contains(t, out.String(), "No recurring expenses")

	out.Reset()
	require.NoError(t, RenderPatterns(&out, []model.RecurringPattern{{
		MerchantKey:       "netflix",
		Frequency:         model.FrequencyMonthly,
		TypicalAmount:     decimal.RequireFromString("15.99"),
		PredictedNextDate: day(6, 15),
		OccurrenceCount:   6,
		Confidence:        0.93,
	}}))

	text := out.String()
	for _, want := range []string{"netflix", "monthly", "$15.99", "2024-06-15", "93%"} {
		assert.Contains(t, text, want)
	}
}

func TestRenderIncome(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RenderIncome(&out, []model.IncomeEvent{
		{Date: day(5, 28), Amount: decimal.RequireFromString("2500"), Description: "ACME CORP PAYROLL", Kind: model.IncomePayroll},
	}))
	assert.Contains(t, out.String(), "ACME CORP PAYROLL")
	assert.Contains(t, out.String(), "payroll")

	out.Reset()
	require.NoError(t, RenderIncome(&out, nil))
	assert.Contains(t, out.String(), "No income found")
}

func TestRenderSettings(t *testing.T) {
	paycheck := decimal.RequireFromString("2000")
	bonusDate := day(12, 15)

	var out bytes.Buffer
	require.NoError(t, RenderSettings(&out, &model.UserFinancialSettings{
		UserID:         "alice",
		CurrentBalance: decimal.RequireFromString("1500"),
		PaycheckAmount: &paycheck,
		NextBonusDate:  &bonusDate,
	}))

	text := out.String()
	assert.Contains(t, text, "alice")
	assert.Contains(t, text, "$2000.00")
	assert.Contains(t, text, "2024-12-15")
	assert.Contains(t, text, "Bonus amount:    -")
}

func TestProgress(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress(&out, 2, "Importing statements...")
	p.Step()
	p.Step()
	p.Finish()
	assert.Contains(t, out.String(), "Importing statements...")
}
