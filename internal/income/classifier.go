// Package income splits credit transactions into payroll and bonus events.
package income

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
)

// Policy decides what happens to credits that carry no payroll marker.
type Policy string

const (
	// ReclassifyByMedian treats unmarked credits up to PayrollMultiplier times
	// the markered payroll median as payroll.
	ReclassifyByMedian Policy = "reclassify_by_median"
	// BonusByDefault treats every unmarked credit as a bonus.
	BonusByDefault Policy = "bonus_by_default"
)

// Config holds the classifier's markers and thresholds.
type Config struct {
	Policy            Policy
	Markers           []string
	PayrollMultiplier decimal.Decimal
}

// DefaultConfig returns the classifier settings used in production.
func DefaultConfig() Config {
	return Config{
		Policy:            ReclassifyByMedian,
		Markers:           []string{"payroll", "direct dep", "directdep", "dir dep", "salary"},
		PayrollMultiplier: decimal.NewFromInt(2),
	}
}

// Validate checks the policy and multiplier.
func (c Config) Validate() error {
	switch c.Policy {
	case ReclassifyByMedian, BonusByDefault:
	default:
		return fmt.Errorf("%w: income.policy %q", common.ErrInvalidConfig, c.Policy)
	}
	if !c.PayrollMultiplier.IsPositive() {
		return fmt.Errorf("%w: income.payroll_multiplier must be positive", common.ErrInvalidConfig)
	}
	if len(c.Markers) == 0 {
		return fmt.Errorf("%w: income.markers must not be empty", common.ErrInvalidConfig)
	}
	return nil
}

// Classifier labels credits as payroll or bonus. It is safe for concurrent use.
type Classifier struct {
	logger  *slog.Logger
	markers []string
	cfg     Config
}

// NewClassifier creates a classifier. A nil logger uses the default logger.
func NewClassifier(cfg Config, logger *slog.Logger) *Classifier {
	markers := make([]string, 0, len(cfg.Markers))
	for _, m := range cfg.Markers {
		if m = collapse(m); m != "" {
			markers = append(markers, m)
		}
	}
	return &Classifier{
		cfg:     cfg,
		markers: markers,
		logger:  common.ComponentLogger(logger, "income"),
	}
}

// Classify returns one event per credit, newest first. Ties sort by larger
// amount, then description. No credits yields an empty slice.
func (c *Classifier) Classify(txns []model.NormalizedTransaction) []model.IncomeEvent {
	var marked, unmarked []model.NormalizedTransaction
	for _, txn := range txns {
		if !txn.Valid() {
			c.logger.Debug("skipping malformed transaction",
				"description", txn.Description,
				"error", common.ErrMalformedRecord)
			continue
		}
		if !txn.IsCredit() {
			continue
		}
		if c.IsPayroll(txn.Description) {
			marked = append(marked, txn)
		} else {
			unmarked = append(unmarked, txn)
		}
	}

	events := make([]model.IncomeEvent, 0, len(marked)+len(unmarked))
	for _, txn := range marked {
		events = append(events, newEvent(txn, model.IncomePayroll))
	}

	ceiling, reclassify := c.payrollCeiling(marked)
	for _, txn := range unmarked {
		kind := model.IncomeBonus
		if reclassify && txn.Amount.LessThanOrEqual(ceiling) {
			kind = model.IncomePayroll
		}
		events = append(events, newEvent(txn, kind))
	}

	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Description < b.Description
	})

	return events
}

// IsPayroll reports whether description carries a payroll marker.
func (c *Classifier) IsPayroll(description string) bool {
	text := collapse(description)
	for _, marker := range c.markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// payrollCeiling returns the largest amount an unmarked credit may have and
// still count as payroll.
func (c *Classifier) payrollCeiling(marked []model.NormalizedTransaction) (decimal.Decimal, bool) {
	if c.cfg.Policy == BonusByDefault || len(marked) == 0 {
		return decimal.Zero, false
	}

	amounts := make([]decimal.Decimal, len(marked))
	for i, txn := range marked {
		amounts[i] = txn.Amount
	}
	return model.Median(amounts).Mul(c.cfg.PayrollMultiplier), true
}

func newEvent(txn model.NormalizedTransaction, kind model.IncomeKind) model.IncomeEvent {
	return model.IncomeEvent{
		Date:        model.Day(txn.PostingDate),
		Amount:      txn.Amount,
		Description: txn.Description,
		Kind:        kind,
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
