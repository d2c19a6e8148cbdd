// Package testutil provides shared fixtures for runway tests: an isolated
// in-memory database and builders for realistic statement histories.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/runway/internal/model"
	"github.com/Veraticus/runway/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new migrated in-memory database that is closed when
// the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.MustSave("user-1", testutil.NewHistory(today).Monthly("NETFLIX.COM", "-15.99", 15, 6).Build())
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustSave stores transactions for userID or fails the test.
func (db *TestDB) MustSave(userID string, transactions []model.Transaction) {
	db.t.Helper()

	if _, err := db.Storage.SaveTransactions(context.Background(), userID, transactions); err != nil {
		db.t.Fatalf("failed to save transactions for %s: %v", userID, err)
	}
}

// MustSaveSettings stores settings or fails the test.
func (db *TestDB) MustSaveSettings(settings *model.UserFinancialSettings) {
	db.t.Helper()

	if err := db.Storage.SaveSettings(context.Background(), settings); err != nil {
		db.t.Fatalf("failed to save settings for %s: %v", settings.UserID, err)
	}
}
