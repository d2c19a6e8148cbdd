package plaid

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
)

func validConfig() Config {
	return Config{
		ClientID:    "test-client-id",
		Secret:      "test-secret",
		Environment: "sandbox",
		AccessToken: "test-token",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		wantErr error
		mutate  func(*Config)
		name    string
	}{
		{name: "valid sandbox", mutate: func(*Config) {}},
		{name: "valid production", mutate: func(c *Config) { c.Environment = "production" }},
		{name: "missing client ID", mutate: func(c *Config) { c.ClientID = "" }, wantErr: common.ErrMissingConfig},
		{name: "missing secret", mutate: func(c *Config) { c.Secret = "" }, wantErr: common.ErrMissingConfig},
		{name: "missing access token", mutate: func(c *Config) { c.AccessToken = "" }, wantErr: common.ErrMissingConfig},
		{name: "missing environment", mutate: func(c *Config) { c.Environment = "" }, wantErr: common.ErrMissingConfig},
		{name: "unknown environment", mutate: func(c *Config) { c.Environment = "development" }, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(validConfig(), nil)
	require.NoError(t, err)
	assert.NotNil(t, client.client)
	assert.Equal(t, "test-token", client.accessToken)
	assert.Equal(t, 3, client.retryOpts.MaxAttempts)

	_, err = NewClient(Config{ClientID: "only-id"}, nil)
	require.Error(t, err)
}

func TestClient_GetTransactions_Validation(t *testing.T) {
	client, err := NewClient(validConfig(), nil)
	require.NoError(t, err)

	now := time.Now()

	//nolint:staticcheck // nil context is the case under test
	_, err = client.GetTransactions(nil, now.AddDate(0, -1, 0), now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cannot be nil")

	_, err = client.GetTransactions(context.Background(), now, now.AddDate(0, -1, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start date must be before end date")
}

func plaidTxn(id, date, name string, amount float64) plaid.Transaction {
	var pt plaid.Transaction
	pt.SetTransactionId(id)
	pt.SetDate(date)
	pt.SetName(name)
	pt.SetAmount(amount)
	return pt
}

func TestConvertTransaction(t *testing.T) {
	t.Run("outflow becomes negative", func(t *testing.T) {
		txn, err := convertTransaction(plaidTxn("tx-1", "2024-05-01", "NETFLIX.COM", 15.99))
		require.NoError(t, err)
		assert.Equal(t, "tx-1", txn.ID)
		assert.Equal(t, "tx-1", txn.Reference)
		assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), txn.PostingDate)
		assert.Equal(t, "NETFLIX.COM", txn.Description)
		assert.Equal(t, "-15.99", txn.Amount.StringFixed(2))
		assert.Equal(t, "plaid", txn.Source)
		assert.NotEmpty(t, txn.Hash)
		assert.True(t, txn.IsDebit())
	})

	t.Run("inflow becomes positive", func(t *testing.T) {
		txn, err := convertTransaction(plaidTxn("tx-2", "2024-05-15", "ACME PAYROLL", -2500))
		require.NoError(t, err)
		assert.Equal(t, "2500.00", txn.Amount.StringFixed(2))
		assert.True(t, txn.IsCredit())
	})

	t.Run("merchant name fills empty name", func(t *testing.T) {
		pt := plaidTxn("tx-3", "2024-05-02", "", 4.5)
		pt.SetMerchantName("Blue Bottle")
		txn, err := convertTransaction(pt)
		require.NoError(t, err)
		assert.Equal(t, "Blue Bottle", txn.Description)
	})

	t.Run("pending skipped", func(t *testing.T) {
		pt := plaidTxn("tx-4", "2024-05-03", "HULU", 7.99)
		pt.SetPending(true)
		_, err := convertTransaction(pt)
		require.ErrorIs(t, err, common.ErrMalformedRecord)
	})

	t.Run("bad date skipped", func(t *testing.T) {
		_, err := convertTransaction(plaidTxn("tx-5", "05/03/2024", "HULU", 7.99))
		require.ErrorIs(t, err, common.ErrMalformedRecord)
	})

	t.Run("no description skipped", func(t *testing.T) {
		_, err := convertTransaction(plaidTxn("tx-6", "2024-05-03", "  ", 7.99))
		require.ErrorIs(t, err, common.ErrMalformedRecord)
	})
}

func TestMockClient(t *testing.T) {
	rent := model.Transaction{PostingDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Description: "RENT"}
	coffee := model.Transaction{PostingDate: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), Description: "BLUE BOTTLE"}
	early := model.Transaction{PostingDate: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), Description: "EARLY"}
	mock := NewMockClient(early, rent, coffee)
	mock.Accounts = []string{"Checking"}

	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)

	txns, err := mock.GetTransactions(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, []model.Transaction{rent, coffee}, txns, "window is inclusive on both ends")

	accounts, err := mock.GetAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Checking"}, accounts)

	override := []model.Transaction{{Description: "OVERRIDE"}}
	mock.GetTransactionsFn = func(context.Context, time.Time, time.Time) ([]model.Transaction, error) {
		return override, nil
	}
	txns, err = mock.GetTransactions(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, override, txns)

	boom := errors.New("boom")
	mock.Err = boom
	_, err = mock.GetTransactions(context.Background(), start, end)
	require.ErrorIs(t, err, boom)
	_, err = mock.GetAccounts(context.Background())
	require.ErrorIs(t, err, boom)

	windows := mock.Windows()
	require.Len(t, windows, 3)
	assert.Equal(t, Window{Start: start, End: end}, windows[2])
}
