// Package recurrence infers periodic expenses from a transaction history.
package recurrence

import (
	"fmt"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
)

// Config holds the tunable thresholds of the detector.
type Config struct {
	// StalenessDays is the longest allowed silence, per frequency, before a
	// pattern is considered ended.
	StalenessDays      map[model.Frequency]int
	MinOccurrences     int
	MaxStdDevRatio     float64
	DeviationTolerance float64
	MinConfidence      float64
	AmountBucketRatio  float64
}

// DefaultConfig returns the detector thresholds used in production.
func DefaultConfig() Config {
	return Config{
		MinOccurrences:     3,
		MaxStdDevRatio:     0.3,
		DeviationTolerance: 0.2,
		MinConfidence:      0.7,
		AmountBucketRatio:  2.0,
		StalenessDays: map[model.Frequency]int{
			model.FrequencyWeekly:    14,
			model.FrequencyBiweekly:  21,
			model.FrequencyMonthly:   60,
			model.FrequencyQuarterly: 182,
			model.FrequencyYearly:    548,
		},
	}
}

// Validate checks that every threshold is usable.
func (c Config) Validate() error {
	if c.MinOccurrences < 3 {
		return fmt.Errorf("%w: recurrence.min_occurrences must be at least 3", common.ErrInvalidConfig)
	}
	if c.MaxStdDevRatio <= 0 {
		return fmt.Errorf("%w: recurrence.max_stddev_ratio must be positive", common.ErrInvalidConfig)
	}
	if c.DeviationTolerance <= 0 {
		return fmt.Errorf("%w: recurrence.deviation_tolerance must be positive", common.ErrInvalidConfig)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: recurrence.min_confidence must be within [0,1]", common.ErrInvalidConfig)
	}
	if c.AmountBucketRatio <= 1 {
		return fmt.Errorf("%w: recurrence.amount_bucket_ratio must be greater than 1", common.ErrInvalidConfig)
	}
	for _, freq := range model.Frequencies {
		if c.StalenessDays[freq] <= 0 {
			return fmt.Errorf("%w: recurrence staleness window for %s must be positive", common.ErrInvalidConfig, freq)
		}
	}
	return nil
}
