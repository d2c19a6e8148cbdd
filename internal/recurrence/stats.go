package recurrence

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/model"
)

// frequencyBand maps a range of mean gaps onto a cadence.
type frequencyBand struct {
	freq     model.Frequency
	min, max float64
}

var frequencyBands = []frequencyBand{
	{freq: model.FrequencyWeekly, min: 6, max: 9},
	{freq: model.FrequencyBiweekly, min: 12, max: 16},
	{freq: model.FrequencyMonthly, min: 25, max: 35},
	{freq: model.FrequencyQuarterly, min: 85, max: 100},
	{freq: model.FrequencyYearly, min: 360, max: 375},
}

// ClassifyGap returns the cadence whose band contains the mean gap in days.
func ClassifyGap(mean float64) (model.Frequency, bool) {
	for _, band := range frequencyBands {
		if mean >= band.min && mean <= band.max {
			return band.freq, true
		}
	}
	return "", false
}

// ScoreGaps measures how closely gaps follow the cadence's expected gap.
// It returns 1 for a perfectly regular series and falls linearly to 0 as the
// average deviation approaches tolerance × expected gap.
func ScoreGaps(gaps []int, freq model.Frequency, tolerance float64) float64 {
	expected := float64(freq.ExpectedGap())
	if len(gaps) == 0 || expected == 0 || tolerance <= 0 {
		return 0
	}

	var deviation float64
	for _, g := range gaps {
		deviation += math.Abs(float64(g) - expected)
	}
	deviation /= float64(len(gaps))

	score := 1 - deviation/(tolerance*expected)
	return math.Max(0, math.Min(1, score))
}

// dayGaps returns the day counts between successive transactions, which must be sorted by date.
func dayGaps(txns []model.NormalizedTransaction) []int {
	gaps := make([]int, 0, len(txns))
	for i := 1; i < len(txns); i++ {
		gaps = append(gaps, model.DaysBetween(txns[i-1].PostingDate, txns[i].PostingDate))
	}
	return gaps
}

func meanStdDev(values []int) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := float64(v) - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return mean, math.Sqrt(variance)
}

// medianAmount returns the median of the absolute amounts, rounded to cents.
func medianAmount(txns []model.NormalizedTransaction) decimal.Decimal {
	if len(txns) == 0 {
		return decimal.Zero
	}

	amounts := make([]decimal.Decimal, len(txns))
	for i, t := range txns {
		amounts[i] = t.Amount.Abs()
	}
	return model.Median(amounts).Round(2)
}

// modeDayOfMonth returns the most frequent day-of-month across txns, which
// must be sorted by date. Ties go to the most recent occurrence.
func modeDayOfMonth(txns []model.NormalizedTransaction) int {
	counts := make(map[int]int, len(txns))
	best, bestCount := 0, 0
	for _, t := range txns {
		day := t.PostingDate.Day()
		counts[day]++
		if counts[day] >= bestCount {
			best, bestCount = day, counts[day]
		}
	}
	return best
}
