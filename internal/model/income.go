package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncomeKind distinguishes regular wages from irregular income.
type IncomeKind string

const (
	// IncomePayroll is a regular paycheck.
	IncomePayroll IncomeKind = "payroll"
	// IncomeBonus is any credit that does not look like a paycheck.
	IncomeBonus IncomeKind = "bonus"
)

// IncomeEvent is a single classified credit transaction.
type IncomeEvent struct {
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Kind        IncomeKind      `json:"kind"`
}

// FilterIncome returns the events of the given kind, preserving order.
func FilterIncome(events []IncomeEvent, kind IncomeKind) []IncomeEvent {
	var out []IncomeEvent
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
