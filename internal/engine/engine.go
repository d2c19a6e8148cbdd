// Package engine ties storage to the analysis pipeline: it loads a user's
// history, runs normalization, recurrence detection, income classification
// and projection, and persists the results as snapshots.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/income"
	"github.com/Veraticus/runway/internal/merchant"
	"github.com/Veraticus/runway/internal/model"
	"github.com/Veraticus/runway/internal/projection"
	"github.com/Veraticus/runway/internal/recurrence"
	"github.com/Veraticus/runway/internal/service"
)

// Config holds configuration options for the engine.
type Config struct {
	Recurrence   recurrence.Config
	Income       income.Config
	Projection   projection.Config
	CacheTTL     time.Duration
	CacheMaxCost int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Recurrence:   recurrence.DefaultConfig(),
		Income:       income.DefaultConfig(),
		Projection:   projection.DefaultConfig(),
		CacheTTL:     5 * time.Minute,
		CacheMaxCost: 1000,
	}
}

// Validate checks every component configuration.
func (c Config) Validate() error {
	if err := c.Recurrence.Validate(); err != nil {
		return err
	}
	if err := c.Income.Validate(); err != nil {
		return err
	}
	if err := c.Projection.Validate(); err != nil {
		return err
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("%w: cache ttl cannot be negative", common.ErrInvalidConfig)
	}
	if c.CacheMaxCost <= 0 {
		return fmt.Errorf("%w: cache max cost must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// Analysis is the per-user output of the history pipeline.
type Analysis struct {
	GeneratedAt  time.Time                `json:"generated_at"`
	UserID       string                   `json:"user_id"`
	Patterns     []model.RecurringPattern `json:"patterns"`
	Income       []model.IncomeEvent      `json:"income"`
	Transactions int                      `json:"transactions"`
}

// Engine orchestrates analysis for any number of users. It is safe for
// concurrent use.
type Engine struct {
	storage    service.Storage
	detector   *recurrence.Detector
	classifier *income.Classifier
	projector  *projection.Projector
	cache      *ristretto.Cache[string, any]
	logger     *slog.Logger
	now        func() time.Time
	cacheTTL   time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the source of "today" for every component.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger passed down to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine backed by storage.
func New(storage service.Storage, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		storage:  storage,
		now:      time.Now,
		cacheTTL: cfg.CacheTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	base := e.logger
	e.logger = common.ComponentLogger(base, "engine")

	cache, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: cfg.CacheMaxCost * 10,
		MaxCost:     cfg.CacheMaxCost,
		BufferItems: 64,
		// Entries are counted, not sized.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	e.cache = cache

	e.detector = recurrence.NewDetector(cfg.Recurrence,
		recurrence.WithClock(e.now),
		recurrence.WithLogger(base))
	e.classifier = income.NewClassifier(cfg.Income, base)
	e.projector = projection.NewProjector(cfg.Projection, base)

	return e, nil
}

// Close releases the cache.
func (e *Engine) Close() {
	e.cache.Close()
}

func analysisKey(userID string) string { return "analysis:" + userID }
func healthKey(userID string) string   { return "health:" + userID }

// invalidate drops every cached result for userID.
func (e *Engine) invalidate(userID string) {
	e.cache.Del(analysisKey(userID))
	e.cache.Del(healthKey(userID))
	e.cache.Wait()
}

func (e *Engine) remember(key string, value any) {
	if e.cacheTTL == 0 {
		return
	}
	e.cache.SetWithTTL(key, value, 1, e.cacheTTL)
	e.cache.Wait()
}

// Analyze runs detection and classification over the user's full history and
// stores the results as patterns and income snapshots.
func (e *Engine) Analyze(ctx context.Context, userID string) (*Analysis, error) {
	if cached, ok := e.cache.Get(analysisKey(userID)); ok {
		if analysis, ok := cached.(*Analysis); ok {
			return analysis, nil
		}
	}

	txns, err := e.storage.GetTransactions(ctx, userID, service.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	normalized := merchant.NormalizeAll(txns)
	analysis := &Analysis{
		GeneratedAt:  e.now(),
		UserID:       userID,
		Transactions: len(txns),
		Patterns:     e.detector.Detect(normalized),
		Income:       e.classifier.Classify(normalized),
	}

	if err := e.saveSnapshot(ctx, userID, model.SnapshotPatterns, analysis.Patterns); err != nil {
		return nil, err
	}
	if err := e.saveSnapshot(ctx, userID, model.SnapshotIncome, analysis.Income); err != nil {
		return nil, err
	}

	e.logger.Info("analysis complete",
		"user_id", userID,
		"transactions", analysis.Transactions,
		"patterns", len(analysis.Patterns),
		"income_events", len(analysis.Income))

	e.remember(analysisKey(userID), analysis)
	return analysis, nil
}

// Health projects the user's balance to the next horizon and stores the
// result as a health snapshot. The current balance comes from settings and
// falls back to the latest running balance on a stored statement line.
func (e *Engine) Health(ctx context.Context, userID string) (*model.HealthResult, error) {
	if cached, ok := e.cache.Get(healthKey(userID)); ok {
		if result, ok := cached.(*model.HealthResult); ok {
			return result, nil
		}
	}

	settings, err := e.storage.GetSettings(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	balance, err := e.currentBalance(ctx, userID, settings)
	if err != nil {
		return nil, err
	}

	analysis, err := e.Analyze(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := e.projector.Project(projection.Input{
		Today:          e.now(),
		CurrentBalance: balance,
		Settings:       settings,
		Patterns:       analysis.Patterns,
		IncomeHistory:  analysis.Income,
	})
	if err != nil {
		return nil, err
	}

	if err := e.saveSnapshot(ctx, userID, model.SnapshotHealth, result); err != nil {
		return nil, err
	}

	e.logger.Info("health projected",
		"user_id", userID,
		"status", result.Status,
		"projected_balance", result.ProjectedBalance.StringFixed(2),
		"paycheck_source", result.PaycheckSource)

	e.remember(healthKey(userID), result)
	return result, nil
}

func (e *Engine) currentBalance(ctx context.Context, userID string, settings *model.UserFinancialSettings) (decimal.Decimal, error) {
	if settings != nil {
		return settings.CurrentBalance, nil
	}

	balance, asOf, err := e.storage.GetLatestBalance(ctx, userID)
	if err == nil {
		e.logger.Debug("using statement balance", "user_id", userID, "as_of", asOf.Format(model.DateLayout))
		return balance, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return decimal.Zero, fmt.Errorf("failed to load balance: %w", err)
	}

	count, err := e.storage.GetTransactionCount(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to count transactions: %w", err)
	}
	if count == 0 {
		return decimal.Zero, fmt.Errorf("%w: no balance or transactions for user %s", common.ErrInsufficientData, userID)
	}
	return decimal.Zero, nil
}

// Import stores transactions for userID and returns how many were new.
func (e *Engine) Import(ctx context.Context, userID string, txns []model.Transaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}

	inserted, err := e.storage.SaveTransactions(ctx, userID, txns)
	if err != nil {
		return 0, fmt.Errorf("failed to save transactions: %w", err)
	}
	if inserted > 0 {
		e.invalidate(userID)
	}

	e.logger.Info("imported transactions",
		"user_id", userID,
		"received", len(txns),
		"inserted", inserted)
	return inserted, nil
}

// Sync pulls transactions between start and end from source and imports them.
func (e *Engine) Sync(ctx context.Context, userID string, source service.TransactionSource, start, end time.Time) (int, error) {
	txns, err := source.GetTransactions(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	return e.Import(ctx, userID, txns)
}

// Settings returns the stored settings for userID.
func (e *Engine) Settings(ctx context.Context, userID string) (*model.UserFinancialSettings, error) {
	return e.storage.GetSettings(ctx, userID)
}

// UpdateSettings validates and stores settings.
func (e *Engine) UpdateSettings(ctx context.Context, settings *model.UserFinancialSettings) error {
	if err := projection.ValidateSettings(settings, e.now()); err != nil {
		return err
	}

	settings.UpdatedAt = e.now().UTC()
	if err := e.storage.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	e.invalidate(settings.UserID)
	return nil
}

// Export projects the user's health and writes it with writer.
func (e *Engine) Export(ctx context.Context, userID string, writer service.ReportWriter) error {
	result, err := e.Health(ctx, userID)
	if err != nil {
		return err
	}
	analysis, err := e.Analyze(ctx, userID)
	if err != nil {
		return err
	}
	return writer.WriteHealth(ctx, userID, result, analysis.Patterns)
}

// Forget deletes everything stored for userID.
func (e *Engine) Forget(ctx context.Context, userID string) error {
	if err := e.storage.DeleteUserData(ctx, userID); err != nil {
		return err
	}
	e.invalidate(userID)
	return nil
}

func (e *Engine) saveSnapshot(ctx context.Context, userID string, kind model.SnapshotKind, value any) error {
	snapshot, err := model.NewSnapshot(userID, kind, value)
	if err != nil {
		return err
	}
	if err := e.storage.SaveSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save %s snapshot: %w", kind, err)
	}
	return nil
}
