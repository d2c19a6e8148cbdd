// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
// Dates are inclusive calendar days.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// Storage defines the contract for our persistence layer. Every record is
// scoped to a user id.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, userID string, transactions []model.Transaction) (int, error)
	GetTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionCount(ctx context.Context, userID string) (int, error)
	GetLatestBalance(ctx context.Context, userID string) (decimal.Decimal, time.Time, error)

	// Settings operations
	SaveSettings(ctx context.Context, settings *model.UserFinancialSettings) error
	GetSettings(ctx context.Context, userID string) (*model.UserFinancialSettings, error)

	// Snapshot operations
	SaveSnapshot(ctx context.Context, snapshot *model.AnalysisSnapshot) error
	GetLatestSnapshot(ctx context.Context, userID string, kind model.SnapshotKind) (*model.AnalysisSnapshot, error)

	// Database management
	DeleteUserData(ctx context.Context, userID string) error
	Migrate(ctx context.Context) error
	Close() error
}

// TransactionSource produces statement lines from a bank connection.
type TransactionSource interface {
	GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error)
}

// ReportWriter exports a projection report to an external destination.
type ReportWriter interface {
	WriteHealth(ctx context.Context, userID string, result *model.HealthResult, patterns []model.RecurringPattern) error
}
