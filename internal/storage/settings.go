package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
)

// SaveSettings inserts or replaces the user's declared financial settings.
func (s *SQLiteStorage) SaveSettings(ctx context.Context, settings *model.UserFinancialSettings) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if settings == nil {
		return fmt.Errorf("%w: settings", ErrNilParameter)
	}
	if err := validateString(settings.UserID, "userID"); err != nil {
		return err
	}

	updatedAt := settings.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	var bonusDate sql.NullString
	if settings.NextBonusDate != nil {
		bonusDate = sql.NullString{String: settings.NextBonusDate.Format(model.DateLayout), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (
			user_id, current_balance, paycheck_amount, bonus_amount, next_bonus_date, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			current_balance = excluded.current_balance,
			paycheck_amount = excluded.paycheck_amount,
			bonus_amount = excluded.bonus_amount,
			next_bonus_date = excluded.next_bonus_date,
			updated_at = excluded.updated_at
	`,
		settings.UserID,
		settings.CurrentBalance,
		nullDecimal(settings.PaycheckAmount),
		nullDecimal(settings.BonusAmount),
		bonusDate,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings for %s: %w", settings.UserID, err)
	}
	return nil
}

// GetSettings returns the user's declared settings or common.ErrNotFound.
func (s *SQLiteStorage) GetSettings(ctx context.Context, userID string) (*model.UserFinancialSettings, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	var (
		settings  model.UserFinancialSettings
		paycheck  decimal.NullDecimal
		bonus     decimal.NullDecimal
		bonusDate sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, current_balance, paycheck_amount, bonus_amount, next_bonus_date, updated_at
		FROM user_settings
		WHERE user_id = ?
	`, userID).Scan(
		&settings.UserID,
		&settings.CurrentBalance,
		&paycheck,
		&bonus,
		&bonusDate,
		&settings.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settings for user %s: %w", userID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	if paycheck.Valid {
		settings.PaycheckAmount = &paycheck.Decimal
	}
	if bonus.Valid {
		settings.BonusAmount = &bonus.Decimal
	}
	if bonusDate.Valid {
		date, err := time.Parse(model.DateLayout, bonusDate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse next bonus date %q: %w", bonusDate.String, err)
		}
		settings.NextBonusDate = &date
	}

	return &settings, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
