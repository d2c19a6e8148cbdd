// Package plaid syncs bank transactions from the Plaid API.
package plaid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/runway/internal/common"
	"github.com/Veraticus/runway/internal/model"
	"github.com/Veraticus/runway/internal/service"
)

const (
	// Plaid's max page size for /transactions/get.
	pageSize = int32(500)

	rateLimitCode = "RATE_LIMIT_EXCEEDED"
)

var _ service.TransactionSource = (*Client)(nil)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: plaid client ID is required", common.ErrMissingConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: plaid secret is required", common.ErrMissingConfig)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: plaid access token is required", common.ErrMissingConfig)
	}
	switch c.Environment {
	case "":
		return fmt.Errorf("%w: plaid environment is required", common.ErrMissingConfig)
	case "sandbox", "production":
		return nil
	default:
		return fmt.Errorf("%w: plaid environment must be sandbox or production", common.ErrInvalidConfig)
	}
}

// Client fetches transactions for a single linked Plaid item.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   common.RetryOptions
	accessToken string
}

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		logger:      common.ComponentLogger(logger, "plaid"),
		retryOpts: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// GetTransactions fetches posted transactions between start and end, inclusive.
func (c *Client) GetTransactions(ctx context.Context, start, end time.Time) ([]model.Transaction, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}
	if start.After(end) {
		return nil, errors.New("start date must be before end date")
	}

	c.logger.Info("Fetching transactions from Plaid",
		"start_date", start.Format(model.DateLayout),
		"end_date", end.Format(model.DateLayout))

	var fetched []plaid.Transaction
	offset := int32(0)

	for {
		var page []plaid.Transaction

		err := common.WithRetry(ctx, func() error {
			request := plaid.NewTransactionsGetRequest(
				c.accessToken,
				start.Format(model.DateLayout),
				end.Format(model.DateLayout),
			)
			request.SetOptions(plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			})

			resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				return c.classifyError(err, "failed to fetch transactions")
			}

			page = resp.GetTransactions()
			c.logger.Debug("Fetched transaction batch",
				"count", len(page),
				"offset", offset,
				"total", resp.GetTotalTransactions())
			return nil
		}, c.retryOpts)
		if err != nil {
			return nil, err
		}

		fetched = append(fetched, page...)
		if len(page) < int(pageSize) {
			break
		}
		offset += pageSize
	}

	transactions := make([]model.Transaction, 0, len(fetched))
	skipped := 0
	for _, pt := range fetched {
		txn, err := convertTransaction(pt)
		if err != nil {
			skipped++
			c.logger.Debug("Skipping Plaid transaction", "id", pt.GetTransactionId(), "error", err)
			continue
		}
		transactions = append(transactions, txn)
	}

	c.logger.Info("Fetched all transactions", "count", len(transactions), "skipped", skipped)
	return transactions, nil
}

// GetAccounts fetches account IDs from Plaid.
func (c *Client) GetAccounts(ctx context.Context) ([]string, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}

	var accounts []plaid.AccountBase
	err := common.WithRetry(ctx, func() error {
		request := plaid.NewAccountsGetRequest(c.accessToken)
		resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
		if err != nil {
			return c.classifyError(err, "failed to fetch accounts")
		}
		accounts = resp.GetAccounts()
		return nil
	}, c.retryOpts)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.GetAccountId())
	}
	return ids, nil
}

// classifyError marks rate limits retryable and everything else final.
func (c *Client) classifyError(err error, action string) error {
	if plaidErr := extractPlaidError(err); plaidErr != nil {
		if plaidErr.ErrorCode == rateLimitCode {
			c.logger.Warn("Rate limit hit, will retry", "error", plaidErr.ErrorMessage)
			return &common.RetryableError{Err: fmt.Errorf("%w: %s", common.ErrPlaidRateLimit, plaidErr.ErrorMessage), Retryable: true}
		}
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %s - %s", common.ErrPlaidConnection, plaidErr.ErrorCode, plaidErr.ErrorMessage),
			Retryable: false,
		}
	}
	return fmt.Errorf("%s: %w", action, err)
}

// convertTransaction maps a Plaid transaction onto the statement model.
// Plaid reports money leaving the account as a positive amount.
func convertTransaction(pt plaid.Transaction) (model.Transaction, error) {
	if pt.GetPending() {
		return model.Transaction{}, fmt.Errorf("%w: pending", common.ErrMalformedRecord)
	}

	date, err := time.Parse(model.DateLayout, pt.GetDate())
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: date %q", common.ErrMalformedRecord, pt.GetDate())
	}

	description := strings.TrimSpace(pt.GetName())
	if description == "" {
		description = strings.TrimSpace(pt.GetMerchantName())
	}
	if description == "" {
		return model.Transaction{}, fmt.Errorf("%w: empty description", common.ErrMalformedRecord)
	}

	txn := model.Transaction{
		ID:          pt.GetTransactionId(),
		PostingDate: date,
		Description: description,
		Amount:      decimal.NewFromFloat(pt.GetAmount()).Neg().Round(2),
		Source:      "plaid",
		Reference:   pt.GetTransactionId(),
	}
	txn.Hash = txn.GenerateHash()
	return txn, nil
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}
