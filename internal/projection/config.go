// Package projection forecasts a user's balance at a future date and grades it.
package projection

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
)

// Config holds the projection horizon and status thresholds.
type Config struct {
	ThresholdEnough       decimal.Decimal
	ThresholdTooMuch      decimal.Decimal
	DefaultPaycheckAmount decimal.Decimal
	HorizonDays           int
	PayPeriodDays         int
}

// DefaultConfig returns the projection settings used in production.
func DefaultConfig() Config {
	return Config{
		ThresholdEnough:       decimal.Zero,
		ThresholdTooMuch:      decimal.NewFromInt(500),
		DefaultPaycheckAmount: decimal.NewFromInt(2000),
		HorizonDays:           90,
		PayPeriodDays:         14,
	}
}

// Validate checks that the thresholds are ordered and the periods positive.
func (c Config) Validate() error {
	if c.ThresholdEnough.GreaterThan(c.ThresholdTooMuch) {
		return fmt.Errorf("%w: projection.threshold_enough exceeds projection.threshold_too_much", common.ErrInvalidConfig)
	}
	if c.HorizonDays <= 0 {
		return fmt.Errorf("%w: projection.horizon_days must be positive", common.ErrInvalidConfig)
	}
	if c.PayPeriodDays <= 0 {
		return fmt.Errorf("%w: projection.pay_period_days must be positive", common.ErrInvalidConfig)
	}
	if c.DefaultPaycheckAmount.IsNegative() {
		return fmt.Errorf("%w: projection.default_paycheck_amount must not be negative", common.ErrInvalidConfig)
	}
	return nil
}

// ParseBonusDate parses a declared bonus date in YYYY-MM-DD or RFC 3339 form.
func ParseBonusDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{model.DateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return model.Day(t), nil
		}
	}
	return time.Time{}, common.NewSettingsError("next_bonus_date", fmt.Sprintf("cannot parse %q as a date", value))
}

// ValidateSettings checks a settings snapshot before it is stored.
func ValidateSettings(settings *model.UserFinancialSettings, today time.Time) error {
	if settings == nil {
		return common.NewSettingsError("settings", "missing")
	}
	if strings.TrimSpace(settings.UserID) == "" {
		return common.NewSettingsError("user_id", "must not be empty")
	}
	if settings.PaycheckAmount != nil && settings.PaycheckAmount.IsNegative() {
		return common.NewSettingsError("paycheck_amount", "must not be negative")
	}
	if settings.BonusAmount != nil && settings.BonusAmount.IsNegative() {
		return common.NewSettingsError("bonus_amount", "must not be negative")
	}
	if settings.NextBonusDate != nil {
		if _, err := bonusHorizon(*settings.NextBonusDate, today); err != nil {
			return err
		}
	}
	return nil
}

// bonusHorizon returns the declared bonus date if it lies strictly after today.
func bonusHorizon(date, today time.Time) (time.Time, error) {
	date = model.Day(date)
	if !date.After(model.Day(today)) {
		return time.Time{}, common.NewSettingsError("next_bonus_date",
			fmt.Sprintf("%s is not after %s", date.Format(model.DateLayout), model.Day(today).Format(model.DateLayout)))
	}
	return date, nil
}
