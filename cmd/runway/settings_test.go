package main

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
)

func settingsFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()

	var set *pflag.FlagSet
	for _, sub := range settingsCmd().Commands() {
		if sub.Name() == "set" {
			set = sub.Flags()
		}
	}
	require.NotNil(t, set)
	require.NoError(t, set.Parse(args))
	return set
}

func TestApplySettingsFlags(t *testing.T) {
	bonusDate := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	paycheck := decimal.RequireFromString("2000")
	existing := func() *model.UserFinancialSettings {
		return &model.UserFinancialSettings{
			UserID:         "alice",
			CurrentBalance: decimal.RequireFromString("100"),
			PaycheckAmount: &paycheck,
			NextBonusDate:  &bonusDate,
		}
	}

	t.Run("only passed flags change", func(t *testing.T) {
		settings := existing()
		require.NoError(t, applySettingsFlags(settings, settingsFlags(t, "--balance", "$1,500.25")))

		assert.Equal(t, "1500.25", settings.CurrentBalance.StringFixed(2))
		require.NotNil(t, settings.PaycheckAmount)
		assert.Equal(t, "2000.00", settings.PaycheckAmount.StringFixed(2))
		assert.Equal(t, &bonusDate, settings.NextBonusDate)
	})

	t.Run("empty values clear optional fields", func(t *testing.T) {
		settings := existing()
		require.NoError(t, applySettingsFlags(settings, settingsFlags(t, "--paycheck", "", "--bonus-date", "")))

		assert.Nil(t, settings.PaycheckAmount)
		assert.Nil(t, settings.NextBonusDate)
		assert.Equal(t, "100.00", settings.CurrentBalance.StringFixed(2))
	})

	t.Run("bonus and date", func(t *testing.T) {
		settings := existing()
		require.NoError(t, applySettingsFlags(settings, settingsFlags(t, "--bonus", "7500", "--bonus-date", "2025-03-01")))

		require.NotNil(t, settings.BonusAmount)
		assert.Equal(t, "7500.00", settings.BonusAmount.StringFixed(2))
		assert.Equal(t, "2025-03-01", settings.NextBonusDate.Format(model.DateLayout))
	})

	errorTests := []struct {
		name  string
		field string
		args  []string
	}{
		{name: "bad balance", args: []string{"--balance", "lots"}, field: "balance"},
		{name: "empty balance", args: []string{"--balance", ""}, field: "current_balance"},
		{name: "bad paycheck", args: []string{"--paycheck", "two grand"}, field: "paycheck_amount"},
		{name: "bad date", args: []string{"--bonus-date", "next spring"}, field: "next_bonus_date"},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			err := applySettingsFlags(existing(), settingsFlags(t, tt.args...))
			var settingsErr *common.SettingsError
			require.ErrorAs(t, err, &settingsErr)
			assert.Equal(t, tt.field, settingsErr.Field)
		})
	}
}

func TestApplySettingsFlags_FlagReadErrors(t *testing.T) {
	flags := pflag.NewFlagSet("set", pflag.ContinueOnError)
	flags.Int("paycheck", 0, "")
	require.NoError(t, flags.Parse([]string{"--paycheck", "2000"}))

	settings := &model.UserFinancialSettings{UserID: "default"}
	err := applySettingsFlags(settings, flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--paycheck")
	assert.Nil(t, settings.PaycheckAmount)

	var settingsErr *common.SettingsError
	assert.False(t, errors.As(err, &settingsErr), "a broken flag is not a settings problem")
}

func TestSyncWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		wantStart time.Time
		wantEnd   time.Time
		name      string
		start     string
		end       string
		days      int
		wantErr   bool
	}{
		{name: "days back from today", days: 30, wantStart: day(5, 2), wantEnd: day(6, 1)},
		{name: "explicit range", start: "2024-01-01", end: "2024-03-31", days: 30, wantStart: day(1, 1), wantEnd: day(3, 31)},
		{name: "days back from end", end: "2024-03-31", days: 31, wantStart: day(2, 29), wantEnd: day(3, 31)},
		{name: "start after end", start: "2024-04-01", end: "2024-03-31", days: 30, wantErr: true},
		{name: "bad start", start: "April", days: 30, wantErr: true},
		{name: "bad end", end: "2024/03/31", days: 30, wantErr: true},
		{name: "non-positive days", days: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := syncWindow(now, tt.start, tt.end, tt.days)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "friendly", userMessage(common.NewUserError("friendly", common.ErrMissingConfig)))
	assert.Equal(t, common.ErrMissingConfig.Error(), userMessage(common.ErrMissingConfig))
}
