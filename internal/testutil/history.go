package testutil

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/model"
)

// HistoryBuilder assembles a statement history that ends shortly before a
// fixed "today". Occurrences are generated backwards from today so the
// resulting patterns are never stale.
type HistoryBuilder struct {
	today        time.Time
	transactions []model.Transaction
}

// NewHistory starts a history ending at today.
func NewHistory(today time.Time) *HistoryBuilder {
	return &HistoryBuilder{today: model.Day(today)}
}

// Monthly adds count occurrences on the same day of month, the last one in
// the month before today.
func (b *HistoryBuilder) Monthly(description, amount string, day, count int) *HistoryBuilder {
	for i := count; i >= 1; i-- {
		date := model.DateInMonth(b.today.Year(), b.today.Month()-time.Month(i), day)
		b.Add(date, description, amount)
	}
	return b
}

// Every adds count occurrences separated by gapDays, the last one
// lastDaysAgo days before today.
func (b *HistoryBuilder) Every(description, amount string, gapDays, count, lastDaysAgo int) *HistoryBuilder {
	last := b.today.AddDate(0, 0, -lastDaysAgo)
	for i := count - 1; i >= 0; i-- {
		b.Add(last.AddDate(0, 0, -i*gapDays), description, amount)
	}
	return b
}

// Add appends a single statement line.
func (b *HistoryBuilder) Add(date time.Time, description, amount string) *HistoryBuilder {
	b.transactions = append(b.transactions, model.Transaction{
		PostingDate: model.Day(date),
		Description: description,
		Amount:      decimal.RequireFromString(amount),
		Source:      "test",
	})
	return b
}

// WithBalance sets the running balance after the most recent line.
func (b *HistoryBuilder) WithBalance(balance string) *HistoryBuilder {
	b.sort()
	if n := len(b.transactions); n > 0 {
		b.transactions[n-1].BalanceAfter = decimal.NewNullDecimal(decimal.RequireFromString(balance))
	}
	return b
}

// Build returns the history sorted by posting date.
func (b *HistoryBuilder) Build() []model.Transaction {
	b.sort()
	out := make([]model.Transaction, len(b.transactions))
	copy(out, b.transactions)
	return out
}

func (b *HistoryBuilder) sort() {
	sort.SliceStable(b.transactions, func(i, j int) bool {
		return b.transactions[i].PostingDate.Before(b.transactions[j].PostingDate)
	})
}
