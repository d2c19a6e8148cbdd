package recurrence

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/runway/internal/model"
)

var seriesStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// series builds debits for merchant starting at start and separated by gaps.
func series(merchant, amount string, start time.Time, gaps ...int) []model.NormalizedTransaction {
	date := start
	txns := []model.NormalizedTransaction{debit(merchant, amount, date)}
	for _, g := range gaps {
		date = date.AddDate(0, 0, g)
		txns = append(txns, debit(merchant, amount, date))
	}
	return txns
}

func debit(merchant, amount string, date time.Time) model.NormalizedTransaction {
	return model.NormalizedTransaction{
		MerchantKey: merchant,
		Transaction: model.Transaction{
			PostingDate: date,
			Description: merchant,
			Amount:      decimal.RequireFromString(amount).Abs().Neg(),
		},
	}
}

func lastDate(txns []model.NormalizedTransaction) time.Time {
	return txns[len(txns)-1].PostingDate
}

func detectorAt(today time.Time) *Detector {
	return NewDetector(DefaultConfig(), WithClock(func() time.Time { return today }))
}

func TestDetect_MonthlySubscription(t *testing.T) {
	txns := series("netflix", "15.99", seriesStart, 30, 31, 30, 29, 30)
	last := lastDate(txns)

	patterns := detectorAt(last.AddDate(0, 0, 5)).Detect(txns)

	require.Len(t, patterns, 1)
	p := patterns[0]
	assert.Equal(t, "netflix", p.MerchantKey)
	assert.Equal(t, model.FrequencyMonthly, p.Frequency)
	assert.Greater(t, p.Confidence, 0.9)
	assert.InDelta(t, 0.9333, p.Confidence, 0.001)
	assert.Equal(t, "15.99", p.TypicalAmount.StringFixed(2))
	assert.Equal(t, 6, p.OccurrenceCount)
	assert.Equal(t, seriesStart, p.FirstDate)
	assert.Equal(t, time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC), p.LastDate)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), p.PredictedNextDate)

	// Days 1 and 30 both occur twice; the most recent wins.
	require.NotNil(t, p.TypicalDayOfMonth)
	assert.Equal(t, 30, *p.TypicalDayOfMonth)
}

func TestDetect_RequiresThreeOccurrences(t *testing.T) {
	txns := series("netflix", "15.99", seriesStart, 30)

	patterns := detectorAt(lastDate(txns).AddDate(0, 0, 1)).Detect(txns)

	assert.Empty(t, patterns)
}

func TestDetect_Staleness(t *testing.T) {
	txns := series("netflix", "15.99", seriesStart, 30, 31, 30, 29, 30)
	last := lastDate(txns)

	tests := []struct {
		name      string
		daysSince int
		wantFound bool
	}{
		{name: "recent", daysSince: 10, wantFound: true},
		{name: "at window edge", daysSince: 60, wantFound: true},
		{name: "just past window", daysSince: 61, wantFound: false},
		{name: "ninety days old", daysSince: 90, wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patterns := detectorAt(last.AddDate(0, 0, tt.daysSince)).Detect(txns)
			if tt.wantFound {
				assert.Len(t, patterns, 1)
			} else {
				assert.Empty(t, patterns)
			}
		})
	}
}

func TestDetect_IrregularSeriesRejected(t *testing.T) {
	txns := series("gym", "40.00", seriesStart, 30, 20, 45, 28)

	patterns := detectorAt(lastDate(txns).AddDate(0, 0, 3)).Detect(txns)

	assert.Empty(t, patterns)
}

func TestDetect_BucketsByAmount(t *testing.T) {
	txns := series("apple", "2.99", seriesStart, 30, 30, 30)
	txns = append(txns, series("apple", "14.99", seriesStart.AddDate(0, 0, 4), 30, 30, 30)...)

	patterns := detectorAt(lastDate(txns).AddDate(0, 0, 1)).Detect(txns)

	require.Len(t, patterns, 2)
	assert.Equal(t, "apple", patterns[0].MerchantKey)
	assert.Equal(t, "apple", patterns[1].MerchantKey)
	// Same confidence, so the cheaper subscription sorts first.
	assert.True(t, patterns[0].TypicalAmount.LessThan(patterns[1].TypicalAmount))
	assert.Equal(t, "14.99", patterns[1].TypicalAmount.StringFixed(2))
	assert.Equal(t, 4, patterns[1].OccurrenceCount)
}

func TestDetect_WeeklyPattern(t *testing.T) {
	txns := series("farmers market", "25.00", seriesStart, 7, 7, 7, 7)
	last := lastDate(txns)

	patterns := detectorAt(last.AddDate(0, 0, 2)).Detect(txns)

	require.Len(t, patterns, 1)
	assert.Equal(t, model.FrequencyWeekly, patterns[0].Frequency)
	assert.Nil(t, patterns[0].TypicalDayOfMonth)
	assert.Equal(t, last.AddDate(0, 0, 7), patterns[0].PredictedNextDate)
	assert.InDelta(t, 1.0, patterns[0].Confidence, 1e-9)
}

func TestDetect_OrderedByConfidence(t *testing.T) {
	txns := series("alpha", "9.99", seriesStart, 30, 31, 30, 29, 30)
	txns = append(txns, series("zeta", "9.99", seriesStart, 30, 30, 30, 30, 30)...)

	patterns := detectorAt(seriesStart.AddDate(0, 0, 155)).Detect(txns)

	require.Len(t, patterns, 2)
	assert.Equal(t, "zeta", patterns[0].MerchantKey)
	assert.Equal(t, "alpha", patterns[1].MerchantKey)
	assert.GreaterOrEqual(t, patterns[0].Confidence, patterns[1].Confidence)
}

func TestDetect_IgnoresCreditsAndMalformedRecords(t *testing.T) {
	txns := series("netflix", "15.99", seriesStart, 30)
	txns = append(txns,
		model.NormalizedTransaction{
			MerchantKey: "netflix",
			Transaction: model.Transaction{Description: "missing date", Amount: decimal.NewFromInt(-16)},
		},
		model.NormalizedTransaction{
			MerchantKey: "netflix",
			Transaction: model.Transaction{
				PostingDate: seriesStart.AddDate(0, 0, 60),
				Amount:      decimal.RequireFromString("15.99"),
			},
		},
		debit("", "15.99", seriesStart.AddDate(0, 0, 60)),
	)

	patterns := detectorAt(seriesStart.AddDate(0, 0, 65)).Detect(txns)

	assert.Empty(t, patterns)
}

func TestDetect_EmptyInput(t *testing.T) {
	patterns := detectorAt(seriesStart).Detect(nil)

	assert.NotNil(t, patterns)
	assert.Empty(t, patterns)
}

func TestScoreGaps_Monotonic(t *testing.T) {
	regular := ScoreGaps([]int{30, 30, 30, 30}, model.FrequencyMonthly, 0.2)
	irregular := ScoreGaps([]int{30, 20, 45, 28}, model.FrequencyMonthly, 0.2)

	assert.InDelta(t, 1.0, regular, 1e-9)
	assert.Greater(t, regular, irregular)
	assert.GreaterOrEqual(t, irregular, 0.0)
}

func TestScoreGaps_Bounds(t *testing.T) {
	assert.Zero(t, ScoreGaps(nil, model.FrequencyMonthly, 0.2))
	assert.Zero(t, ScoreGaps([]int{30}, model.Frequency("daily"), 0.2))
	assert.Zero(t, ScoreGaps([]int{90, 90}, model.FrequencyMonthly, 0.2))
	assert.InDelta(t, 0.643, ScoreGaps([]int{15, 13}, model.FrequencyBiweekly, 0.2), 0.001)
}

func TestClassifyGap(t *testing.T) {
	tests := []struct {
		want   model.Frequency
		mean   float64
		wantOK bool
	}{
		{mean: 6, want: model.FrequencyWeekly, wantOK: true},
		{mean: 9, want: model.FrequencyWeekly, wantOK: true},
		{mean: 10, wantOK: false},
		{mean: 14.5, want: model.FrequencyBiweekly, wantOK: true},
		{mean: 25, want: model.FrequencyMonthly, wantOK: true},
		{mean: 35, want: model.FrequencyMonthly, wantOK: true},
		{mean: 36, wantOK: false},
		{mean: 91, want: model.FrequencyQuarterly, wantOK: true},
		{mean: 365, want: model.FrequencyYearly, wantOK: true},
		{mean: 400, wantOK: false},
	}

	for _, tt := range tests {
		got, ok := ClassifyGap(tt.mean)
		assert.Equal(t, tt.wantOK, ok, "mean %v", tt.mean)
		assert.Equal(t, tt.want, got, "mean %v", tt.mean)
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.MinOccurrences = 2
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.StalenessDays = map[model.Frequency]int{model.FrequencyMonthly: 60}
	require.Error(t, cfg.Validate())
}
