package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
	"github.com/Veraticus/runway/internal/service"
)

// SaveTransactions stores transactions for userID and returns how many were
// new. Lines already stored for the user (same hash) are ignored.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, userID string, transactions []model.Transaction) (int, error) {
	// Validate inputs
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return 0, err
	}
	if err := validateTransactions(transactions); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted, err := s.saveTransactionsTx(ctx, tx, userID, transactions)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return inserted, nil
}

func (s *SQLiteStorage) saveTransactionsTx(ctx context.Context, tx *sql.Tx, userID string, transactions []model.Transaction) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, user_id, hash, posting_date, description, amount, balance_after, source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, txn := range transactions {
		// Generate hash if not already set
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}
		if txn.ID == "" {
			txn.ID = uuid.NewString()
		}

		result, err := stmt.ExecContext(ctx,
			txn.ID,
			userID,
			txn.Hash,
			txn.PostingDate.Format(model.DateLayout),
			txn.Description,
			txn.Amount,
			txn.BalanceAfter,
			txn.Source,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}

		if n, err := result.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	return inserted, nil
}

// GetTransactions returns userID's transactions in posting order.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, userID string, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateDateRange(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}

	query := strings.Builder{}
	query.WriteString(`
		SELECT id, hash, posting_date, description, amount, balance_after, source
		FROM transactions
		WHERE user_id = ?`)
	args := []any{userID}

	if filter.StartDate != nil {
		query.WriteString(" AND posting_date >= ?")
		args = append(args, filter.StartDate.Format(model.DateLayout))
	}
	if filter.EndDate != nil {
		query.WriteString(" AND posting_date <= ?")
		args = append(args, filter.EndDate.Format(model.DateLayout))
	}

	query.WriteString(" ORDER BY posting_date ASC, rowid ASC")

	if filter.Limit > 0 {
		query.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

// GetTransactionCount returns how many transactions are stored for userID.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context, userID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// GetLatestBalance returns the running balance reported by the most recent
// statement line that carried one, together with that line's date.
func (s *SQLiteStorage) GetLatestBalance(ctx context.Context, userID string) (decimal.Decimal, time.Time, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, time.Time{}, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return decimal.Zero, time.Time{}, err
	}

	var (
		balance decimal.Decimal
		date    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT balance_after, posting_date
		FROM transactions
		WHERE user_id = ? AND balance_after IS NOT NULL
		ORDER BY posting_date DESC, rowid DESC
		LIMIT 1
	`, userID).Scan(&balance, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, time.Time{}, fmt.Errorf("balance for user %s: %w", userID, common.ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("failed to query latest balance: %w", err)
	}

	postedAt, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("failed to parse posting date %q: %w", date, err)
	}
	return balance, postedAt, nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for rows.Next() {
		var (
			txn  model.Transaction
			date string
		)
		if err := rows.Scan(
			&txn.ID,
			&txn.Hash,
			&date,
			&txn.Description,
			&txn.Amount,
			&txn.BalanceAfter,
			&txn.Source,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		postedAt, err := time.Parse(model.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse posting date %q: %w", date, err)
		}
		txn.PostingDate = postedAt

		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}
