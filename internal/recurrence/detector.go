package recurrence

import (
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
)

// Detector finds recurring expenses in a transaction history.
// It holds only immutable configuration and is safe for concurrent use.
type Detector struct {
	now    func() time.Time
	logger *slog.Logger
	cfg    Config
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		d.now = now
	}
}

// WithLogger sets the logger used for skipped records and rejected groups.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(cfg Config, opts ...Option) *Detector {
	d := &Detector{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = common.ComponentLogger(d.logger, "recurrence")
	return d
}

// Detect returns the active recurring expenses in txns, ordered by descending
// confidence, then merchant key, then typical amount.
func (d *Detector) Detect(txns []model.NormalizedTransaction) []model.RecurringPattern {
	today := model.Day(d.now())

	patterns := make([]model.RecurringPattern, 0)
	for merchant, debits := range d.groupDebits(txns) {
		for _, bucket := range d.bucketByAmount(debits) {
			pattern, ok := d.analyze(merchant, bucket, today)
			if ok {
				patterns = append(patterns, pattern)
			}
		}
	}

	sort.Slice(patterns, func(i, j int) bool {
		a, b := patterns[i], patterns[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.MerchantKey != b.MerchantKey {
			return a.MerchantKey < b.MerchantKey
		}
		return a.TypicalAmount.LessThan(b.TypicalAmount)
	})

	return patterns
}

func (d *Detector) groupDebits(txns []model.NormalizedTransaction) map[string][]model.NormalizedTransaction {
	groups := make(map[string][]model.NormalizedTransaction)
	for _, txn := range txns {
		if !txn.Valid() {
			d.logger.Debug("skipping malformed transaction",
				"description", txn.Description,
				"error", common.ErrMalformedRecord)
			continue
		}
		if !txn.IsDebit() || txn.MerchantKey == "" {
			continue
		}
		groups[txn.MerchantKey] = append(groups[txn.MerchantKey], txn)
	}
	return groups
}

// bucketByAmount splits one merchant's debits so distinct subscriptions at
// very different prices are analyzed separately.
func (d *Detector) bucketByAmount(debits []model.NormalizedTransaction) [][]model.NormalizedTransaction {
	sorted := make([]model.NormalizedTransaction, len(debits))
	copy(sorted, debits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount.Abs().LessThan(sorted[j].Amount.Abs())
	})

	var buckets [][]model.NormalizedTransaction
	var current []model.NormalizedTransaction
	for _, txn := range sorted {
		if len(current) > 0 {
			ceiling := current[0].Amount.Abs().Mul(decimal.NewFromFloat(d.cfg.AmountBucketRatio))
			if txn.Amount.Abs().GreaterThan(ceiling) {
				buckets = append(buckets, current)
				current = nil
			}
		}
		current = append(current, txn)
	}
	if len(current) > 0 {
		buckets = append(buckets, current)
	}
	return buckets
}

func (d *Detector) analyze(merchant string, bucket []model.NormalizedTransaction, today time.Time) (model.RecurringPattern, bool) {
	if len(bucket) < d.cfg.MinOccurrences {
		return model.RecurringPattern{}, false
	}

	occurrences := make([]model.NormalizedTransaction, len(bucket))
	copy(occurrences, bucket)
	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].PostingDate.Before(occurrences[j].PostingDate)
	})

	gaps := dayGaps(occurrences)
	mean, stddev := meanStdDev(gaps)
	if stddev > d.cfg.MaxStdDevRatio*mean {
		d.logger.Debug("irregular gaps", "merchant", merchant, "mean", mean, "stddev", stddev)
		return model.RecurringPattern{}, false
	}

	freq, ok := ClassifyGap(mean)
	if !ok {
		d.logger.Debug("no matching frequency", "merchant", merchant, "mean", mean)
		return model.RecurringPattern{}, false
	}

	confidence := ScoreGaps(gaps, freq, d.cfg.DeviationTolerance)
	if confidence < d.cfg.MinConfidence {
		d.logger.Debug("low confidence", "merchant", merchant, "frequency", freq, "confidence", confidence)
		return model.RecurringPattern{}, false
	}

	first := model.Day(occurrences[0].PostingDate)
	last := model.Day(occurrences[len(occurrences)-1].PostingDate)
	if model.DaysBetween(last, today) > d.cfg.StalenessDays[freq] {
		d.logger.Debug("stale pattern", "merchant", merchant, "frequency", freq, "last_date", last.Format(model.DateLayout))
		return model.RecurringPattern{}, false
	}

	pattern := model.RecurringPattern{
		MerchantKey:       merchant,
		TypicalAmount:     medianAmount(occurrences),
		Frequency:         freq,
		Confidence:        confidence,
		OccurrenceCount:   len(occurrences),
		FirstDate:         first,
		LastDate:          last,
		PredictedNextDate: freq.Next(last, last.Day()),
	}
	if freq == model.FrequencyMonthly {
		day := modeDayOfMonth(occurrences)
		pattern.TypicalDayOfMonth = &day
	}

	return pattern, true
}
