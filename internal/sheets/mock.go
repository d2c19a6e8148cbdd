package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/runway/internal/model"
	"github.com/Veraticus/runway/internal/service"
)

var _ service.ReportWriter = (*MockWriter)(nil)

// MockWriter records WriteHealth calls for tests.
type MockWriter struct {
	WriteFunc  func(ctx context.Context, userID string, result *model.HealthResult, patterns []model.RecurringPattern) error
	WriteCalls []WriteCall
	mu         sync.Mutex
}

// WriteCall represents a single call to WriteHealth.
type WriteCall struct {
	Error    error
	Result   *model.HealthResult
	UserID   string
	Patterns []model.RecurringPattern
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// WriteHealth records the call and delegates to WriteFunc when set.
func (m *MockWriter) WriteHealth(ctx context.Context, userID string, result *model.HealthResult, patterns []model.RecurringPattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.WriteFunc != nil {
		err = m.WriteFunc(ctx, userID, result, patterns)
	}

	m.WriteCalls = append(m.WriteCalls, WriteCall{
		UserID:   userID,
		Result:   result,
		Patterns: patterns,
		Error:    err,
	})
	return err
}

// GetWriteCalls returns a copy of all write calls.
func (m *MockWriter) GetWriteCalls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]WriteCall, len(m.WriteCalls))
	copy(calls, m.WriteCalls)
	return calls
}

// SetWriteError configures the mock to fail every call with err.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(context.Context, string, *model.HealthResult, []model.RecurringPattern) error {
		return err
	}
}
