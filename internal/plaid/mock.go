package plaid

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/runway/internal/model"
	"github.com/Veraticus/runway/internal/service"
)

var _ service.TransactionSource = (*MockClient)(nil)

// Window is one requested sync range.
type Window struct {
	Start time.Time
	End   time.Time
}

// MockClient stands in for a linked bank during sync tests. It serves
// Statement filtered to the requested window, inclusive on both ends like
// /transactions/get, unless GetTransactionsFn is set.
type MockClient struct {
	GetTransactionsFn func(ctx context.Context, start, end time.Time) ([]model.Transaction, error)
	// Err fails every call when set.
	Err       error
	Statement []model.Transaction
	Accounts  []string
	windows   []Window
	mu        sync.Mutex
}

// NewMockClient creates a mock bank holding statement.
func NewMockClient(statement ...model.Transaction) *MockClient {
	return &MockClient{Statement: statement}
}

// GetTransactions records the window and returns the matching statement lines.
func (m *MockClient) GetTransactions(ctx context.Context, start, end time.Time) ([]model.Transaction, error) {
	m.mu.Lock()
	m.windows = append(m.windows, Window{Start: start, End: end})
	fn, err := m.GetTransactionsFn, m.Err
	statement := m.Statement
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(ctx, start, end)
	}

	from, to := model.Day(start), model.Day(end)
	out := make([]model.Transaction, 0, len(statement))
	for _, txn := range statement {
		day := model.Day(txn.PostingDate)
		if day.Before(from) || day.After(to) {
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

// GetAccounts returns the configured account names.
func (m *MockClient) GetAccounts(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]string(nil), m.Accounts...), nil
}

// Windows returns every range requested so far, oldest first.
func (m *MockClient) Windows() []Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Window(nil), m.windows...)
}
