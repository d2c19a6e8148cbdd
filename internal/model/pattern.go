package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the inferred cadence of a recurring expense.
type Frequency string

const (
	// FrequencyWeekly repeats every 7 days.
	FrequencyWeekly Frequency = "weekly"
	// FrequencyBiweekly repeats every 14 days.
	FrequencyBiweekly Frequency = "biweekly"
	// FrequencyMonthly repeats on a calendar day each month.
	FrequencyMonthly Frequency = "monthly"
	// FrequencyQuarterly repeats roughly every 91 days.
	FrequencyQuarterly Frequency = "quarterly"
	// FrequencyYearly repeats every 365 days.
	FrequencyYearly Frequency = "yearly"
)

// Frequencies lists every supported cadence, shortest first.
var Frequencies = []Frequency{
	FrequencyWeekly,
	FrequencyBiweekly,
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencyYearly,
}

// ExpectedGap returns the canonical day count between two occurrences.
func (f Frequency) ExpectedGap() int {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyBiweekly:
		return 14
	case FrequencyMonthly:
		return 30
	case FrequencyQuarterly:
		return 91
	case FrequencyYearly:
		return 365
	default:
		return 0
	}
}

// Next returns the occurrence after from. Monthly cadences advance by calendar
// month and land on day (clamped to the month's length); the rest add ExpectedGap days.
func (f Frequency) Next(from time.Time, day int) time.Time {
	if f == FrequencyMonthly {
		if day <= 0 {
			day = from.Day()
		}
		return AddMonths(from, 1, day)
	}
	return Day(from).AddDate(0, 0, f.ExpectedGap())
}

// Valid reports whether f is a known cadence.
func (f Frequency) Valid() bool {
	return f.ExpectedGap() > 0
}

// RecurringPattern is a periodic expense inferred from transaction history.
// It is recomputed from scratch on every detection run.
type RecurringPattern struct {
	FirstDate         time.Time       `json:"first_date"`
	LastDate          time.Time       `json:"last_date"`
	PredictedNextDate time.Time       `json:"predicted_next_date"`
	TypicalAmount     decimal.Decimal `json:"typical_amount"`
	TypicalDayOfMonth *int            `json:"typical_day_of_month,omitempty"`
	MerchantKey       string          `json:"merchant_key"`
	Frequency         Frequency       `json:"frequency"`
	Confidence        float64         `json:"confidence"`
	OccurrenceCount   int             `json:"occurrence_count"`
}

// AnchorDay returns the day-of-month monthly projections land on.
func (p RecurringPattern) AnchorDay() int {
	if p.TypicalDayOfMonth != nil && *p.TypicalDayOfMonth > 0 {
		return *p.TypicalDayOfMonth
	}
	return p.PredictedNextDate.Day()
}
