package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// HealthStatus classifies a projected balance against the configured thresholds.
type HealthStatus string

const (
	// StatusNotEnough means the projected balance falls below the lower threshold.
	StatusNotEnough HealthStatus = "not_enough"
	// StatusEnough means the projected balance sits between the thresholds.
	StatusEnough HealthStatus = "enough"
	// StatusTooMuch means the projected balance exceeds the upper threshold.
	StatusTooMuch HealthStatus = "too_much"
)

// ProjectedKind identifies what produced a projected cash movement.
type ProjectedKind string

const (
	// ProjectedPaycheck is a forecast paycheck.
	ProjectedPaycheck ProjectedKind = "paycheck"
	// ProjectedBonus is the forecast bonus on the horizon date.
	ProjectedBonus ProjectedKind = "bonus"
	// ProjectedRecurring is a forecast occurrence of a recurring expense.
	ProjectedRecurring ProjectedKind = "recurring"
)

// PaycheckSource records where the projected paycheck amount came from.
type PaycheckSource string

const (
	// PaycheckDeclared uses the amount from the user's settings.
	PaycheckDeclared PaycheckSource = "declared"
	// PaycheckHistory uses the median of past payroll deposits.
	PaycheckHistory PaycheckSource = "history"
	// PaycheckDefault uses the configured default for users with settings but no amount.
	PaycheckDefault PaycheckSource = "default"
	// PaycheckNone means no paycheck could be inferred; no paycheck inflows are projected.
	PaycheckNone PaycheckSource = "none"
)

// ProjectedTransaction is a single forecast inflow or outflow.
// Amount is always a positive magnitude; direction follows from the list it is in.
type ProjectedTransaction struct {
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	MerchantKey string          `json:"merchant_key,omitempty"`
	Kind        ProjectedKind   `json:"kind"`
}

// HealthResult is the outcome of one projection call.
type HealthResult struct {
	StartDate        time.Time              `json:"start_date"`
	EndDate          time.Time              `json:"end_date"`
	ProjectedBalance decimal.Decimal        `json:"projected_balance"`
	CurrentBalance   decimal.Decimal        `json:"current_balance"`
	TotalInflows     decimal.Decimal        `json:"total_inflows"`
	TotalOutflows    decimal.Decimal        `json:"total_outflows"`
	Status           HealthStatus           `json:"status"`
	PaycheckSource   PaycheckSource         `json:"paycheck_source"`
	Inflows          []ProjectedTransaction `json:"inflows"`
	Outflows         []ProjectedTransaction `json:"outflows"`
}

// SumAmounts totals the amounts of the given projected transactions.
func SumAmounts(txns []ProjectedTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		total = total.Add(t.Amount)
	}
	return total
}
