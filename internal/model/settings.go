package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserFinancialSettings is the user-declared snapshot used by a projection.
// Nil fields are absent and fall back to historical inference.
type UserFinancialSettings struct {
	UpdatedAt      time.Time        `json:"updated_at"`
	NextBonusDate  *time.Time       `json:"next_bonus_date,omitempty"`
	PaycheckAmount *decimal.Decimal `json:"paycheck_amount,omitempty"`
	BonusAmount    *decimal.Decimal `json:"bonus_amount,omitempty"`
	CurrentBalance decimal.Decimal  `json:"current_balance"`
	UserID         string           `json:"user_id"`
}

// HasPaycheck reports whether a positive paycheck amount was declared.
func (s *UserFinancialSettings) HasPaycheck() bool {
	return s != nil && s.PaycheckAmount != nil && s.PaycheckAmount.IsPositive()
}

// HasBonusAmount reports whether a positive bonus amount was declared.
func (s *UserFinancialSettings) HasBonusAmount() bool {
	return s != nil && s.BonusAmount != nil && s.BonusAmount.IsPositive()
}
