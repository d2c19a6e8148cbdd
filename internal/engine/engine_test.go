package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
	"github.com/Veraticus/runway/internal/plaid"
	"github.com/Veraticus/runway/internal/sheets"
	"github.com/Veraticus/runway/internal/testutil"
)

var today = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newTestEngine(t *testing.T) (*Engine, *testutil.TestDB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	e, err := New(db.Storage, DefaultConfig(), WithClock(func() time.Time { return today }))
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, db
}

func insurance() *testutil.HistoryBuilder {
	return testutil.NewHistory(today).Monthly("GEICO AUTO PAYMENT", "-120.00", 11, 6)
}

func TestHealth_EndToEnd(t *testing.T) {
	ctx := context.Background()
	e, db := newTestEngine(t)

	db.MustSave("alice", insurance().Build())
	bonusDate := today.AddDate(0, 0, 14)
	require.NoError(t, e.UpdateSettings(ctx, &model.UserFinancialSettings{
		UserID:         "alice",
		CurrentBalance: dec("1500"),
		PaycheckAmount: decPtr("2000"),
		BonusAmount:    decPtr("3000"),
		NextBonusDate:  &bonusDate,
	}))

	result, err := e.Health(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, bonusDate, result.EndDate)
	assert.Equal(t, model.PaycheckDeclared, result.PaycheckSource)
	require.Len(t, result.Inflows, 2)
	require.Len(t, result.Outflows, 1)
	assert.Equal(t, "geico", result.Outflows[0].Description)
	assert.Equal(t, time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), result.Outflows[0].Date)
	assert.Equal(t, "6380.00", result.ProjectedBalance.StringFixed(2))
	assert.Equal(t, model.StatusTooMuch, result.Status)
}

func TestHealth_StatementBalanceFallback(t *testing.T) {
	ctx := context.Background()
	e, db := newTestEngine(t)

	db.MustSave("bob", insurance().
		Every("ACME CORP PAYROLL", "2500.00", 14, 6, 4).
		WithBalance("4321.00").
		Build())

	result, err := e.Health(ctx, "bob")
	require.NoError(t, err)

	assert.Equal(t, "4321.00", result.CurrentBalance.StringFixed(2))
	assert.Equal(t, model.PaycheckHistory, result.PaycheckSource)
	assert.Equal(t, today.AddDate(0, 0, 90), result.EndDate)

	// Paychecks follow the last deposit on May 28 in 14-day steps.
	require.NotEmpty(t, result.Inflows)
	assert.Equal(t, time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC), result.Inflows[0].Date)
	assert.Equal(t, "2500.00", result.Inflows[0].Amount.StringFixed(2))

	want := result.CurrentBalance.Add(result.TotalInflows).Sub(result.TotalOutflows)
	assert.True(t, want.Equal(result.ProjectedBalance))
}

func TestHealth_TransactionsWithoutBalance(t *testing.T) {
	e, db := newTestEngine(t)
	db.MustSave("carol", insurance().Build())

	result, err := e.Health(context.Background(), "carol")
	require.NoError(t, err)
	assert.True(t, result.CurrentBalance.IsZero())
	assert.Equal(t, model.PaycheckNone, result.PaycheckSource)
	assert.Empty(t, result.Inflows)
	assert.Len(t, result.Outflows, 3, "June, July and August")
}

func TestHealth_InsufficientData(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Health(context.Background(), "nobody")
	require.ErrorIs(t, err, common.ErrInsufficientData)
}

func TestHealth_StaleBonusDateRejected(t *testing.T) {
	ctx := context.Background()
	e, db := newTestEngine(t)

	past := today.AddDate(0, 0, -1)
	db.MustSaveSettings(&model.UserFinancialSettings{
		UserID:         "dave",
		CurrentBalance: dec("100"),
		NextBonusDate:  &past,
	})

	_, err := e.Health(ctx, "dave")
	require.ErrorIs(t, err, common.ErrInvalidSettings)

	var settingsErr *common.SettingsError
	require.ErrorAs(t, err, &settingsErr)
	assert.Equal(t, "next_bonus_date", settingsErr.Field)
}

func TestHealth_PersistsSnapshots(t *testing.T) {
	ctx := context.Background()
	e, db := newTestEngine(t)

	db.MustSave("erin", insurance().WithBalance("900.00").Build())

	result, err := e.Health(ctx, "erin")
	require.NoError(t, err)

	snapshot, err := db.Storage.GetLatestSnapshot(ctx, "erin", model.SnapshotHealth)
	require.NoError(t, err)
	var stored model.HealthResult
	require.NoError(t, snapshot.Decode(&stored))
	assert.Equal(t, result.Status, stored.Status)
	assert.True(t, result.ProjectedBalance.Equal(stored.ProjectedBalance))

	snapshot, err = db.Storage.GetLatestSnapshot(ctx, "erin", model.SnapshotPatterns)
	require.NoError(t, err)
	var patterns []model.RecurringPattern
	require.NoError(t, snapshot.Decode(&patterns))
	require.Len(t, patterns, 1)
	assert.Equal(t, "geico", patterns[0].MerchantKey)

	_, err = db.Storage.GetLatestSnapshot(ctx, "erin", model.SnapshotIncome)
	require.NoError(t, err)
}

func TestHealth_CachedUntilDataChanges(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	require.NoError(t, e.UpdateSettings(ctx, &model.UserFinancialSettings{UserID: "frank", CurrentBalance: dec("1000")}))

	first, err := e.Health(ctx, "frank")
	require.NoError(t, err)
	assert.Empty(t, first.Outflows)

	again, err := e.Health(ctx, "frank")
	require.NoError(t, err)
	assert.Same(t, first, again)

	inserted, err := e.Import(ctx, "frank", insurance().Build())
	require.NoError(t, err)
	assert.Equal(t, 6, inserted)

	after, err := e.Health(ctx, "frank")
	require.NoError(t, err)
	assert.Len(t, after.Outflows, 3)

	require.NoError(t, e.UpdateSettings(ctx, &model.UserFinancialSettings{UserID: "frank", CurrentBalance: dec("50")}))
	updated, err := e.Health(ctx, "frank")
	require.NoError(t, err)
	assert.Equal(t, "50.00", updated.CurrentBalance.StringFixed(2))
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()
	e, db := newTestEngine(t)

	db.MustSave("gina", insurance().
		Monthly("ACME CORP PAYROLL", "2500.00", 1, 5).
		Add(today.AddDate(0, 0, -10), "ANNUAL BONUS ACME", "7500.00").
		Build())

	analysis, err := e.Analyze(ctx, "gina")
	require.NoError(t, err)
	assert.Equal(t, "gina", analysis.UserID)
	assert.Equal(t, 12, analysis.Transactions)
	require.Len(t, analysis.Patterns, 1)
	assert.Equal(t, "geico", analysis.Patterns[0].MerchantKey)

	require.Len(t, analysis.Income, 6)
	bonuses := model.FilterIncome(analysis.Income, model.IncomeBonus)
	require.Len(t, bonuses, 1)
	assert.Equal(t, "7500.00", bonuses[0].Amount.StringFixed(2))
}

func TestUpdateSettings_Validation(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	tests := []struct {
		settings *model.UserFinancialSettings
		name     string
		field    string
	}{
		{name: "nil", field: "settings"},
		{name: "no user", settings: &model.UserFinancialSettings{}, field: "user_id"},
		{name: "negative paycheck", settings: &model.UserFinancialSettings{UserID: "x", PaycheckAmount: decPtr("-1")}, field: "paycheck_amount"},
		{name: "bonus today", settings: &model.UserFinancialSettings{UserID: "x", NextBonusDate: &today}, field: "next_bonus_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.UpdateSettings(ctx, tt.settings)
			var settingsErr *common.SettingsError
			require.ErrorAs(t, err, &settingsErr)
			assert.Equal(t, tt.field, settingsErr.Field)
		})
	}

	_, err := e.Settings(ctx, "x")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	e, db := newTestEngine(t)

	source := plaid.NewMockClient(insurance().Build()...)

	start := today.AddDate(0, -6, 0)
	inserted, err := e.Sync(ctx, "hank", source, start, today)
	require.NoError(t, err)
	assert.Equal(t, 6, inserted)
	require.Len(t, source.Windows(), 1)
	assert.Equal(t, plaid.Window{Start: start, End: today}, source.Windows()[0])

	// A second sync of the same window adds nothing.
	inserted, err = e.Sync(ctx, "hank", source, start, today)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	count, err := db.Storage.GetTransactionCount(ctx, "hank")
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	boom := errors.New("plaid down")
	source.Err = boom
	_, err = e.Sync(ctx, "hank", source, start, today)
	require.ErrorIs(t, err, boom)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	e, db := newTestEngine(t)
	db.MustSave("iris", insurance().WithBalance("700.00").Build())

	writer := sheets.NewMockWriter()
	require.NoError(t, e.Export(ctx, "iris", writer))

	calls := writer.GetWriteCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "iris", calls[0].UserID)
	assert.Equal(t, "700.00", calls[0].Result.CurrentBalance.StringFixed(2))
	require.Len(t, calls[0].Patterns, 1)

	require.ErrorIs(t, e.Export(ctx, "nobody", writer), common.ErrInsufficientData)
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	e, db := newTestEngine(t)
	db.MustSave("jack", insurance().WithBalance("10.00").Build())

	_, err := e.Health(ctx, "jack")
	require.NoError(t, err)

	require.NoError(t, e.Forget(ctx, "jack"))
	_, err = e.Health(ctx, "jack")
	require.ErrorIs(t, err, common.ErrInsufficientData)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.CacheMaxCost = 0
	require.ErrorIs(t, cfg.Validate(), common.ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.CacheTTL = -time.Second
	require.ErrorIs(t, cfg.Validate(), common.ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Recurrence.MinOccurrences = 1
	_, err := New(nil, cfg)
	require.ErrorIs(t, err, common.ErrInvalidConfig)
}
